// Package awscreds resolves source bucket credentials and checks that a source location is readable.
package awscreds

import (
	"fmt"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// Environment variables holding source bucket credentials.
const (
	EnvKeyID          = "FIREBOLT_AWS_KEY_ID"
	EnvSecretKey      = "FIREBOLT_AWS_SECRET_KEY"
	EnvRoleARN        = "FIREBOLT_AWS_ROLE_ARN"
	EnvRoleExternalID = "FIREBOLT_AWS_ROLE_EXTERNAL_ID"
)

// FromEnv reads credentials through getenv. It returns nil when none are set.
func FromEnv(getenv func(string) string) (*domain.AWSCredentials, error) {
	keyID, secret := getenv(EnvKeyID), getenv(EnvSecretKey)
	roleARN, externalID := getenv(EnvRoleARN), getenv(EnvRoleExternalID)
	return Resolve(keyID, secret, roleARN, externalID)
}

// Resolve validates one credential pair out of the four raw values.
func Resolve(keyID, secret, roleARN, externalID string) (*domain.AWSCredentials, error) {
	hasKey := keyID != "" || secret != ""
	hasRole := roleARN != "" || externalID != ""

	if hasKey && hasRole {
		return nil, domain.ErrValidation("Either aws key/secret or role_arn/external_id pair should be specified. Found both.")
	}
	if hasKey {
		if keyID == "" || secret == "" {
			return nil, domain.ErrValidation("Aws key/secret are both mandatory for a valid pair. Provided only one parameter.")
		}
		return &domain.AWSCredentials{KeySecret: &domain.AWSKeySecret{KeyID: keyID, SecretKey: secret}}, nil
	}
	if hasRole {
		if roleARN == "" {
			return nil, domain.ErrValidation("Aws external id is provided, but not role_arn")
		}
		return &domain.AWSCredentials{Role: &domain.AWSRole{RoleARN: roleARN, ExternalID: externalID}}, nil
	}
	return nil, nil
}

// Describe names the credential kind for log output without exposing secrets.
func Describe(c *domain.AWSCredentials) string {
	switch {
	case c == nil:
		return "none"
	case c.KeySecret != nil:
		return fmt.Sprintf("access key %s", mask(c.KeySecret.KeyID))
	case c.Role != nil:
		return fmt.Sprintf("role %s", c.Role.RoleARN)
	default:
		return "none"
	}
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
