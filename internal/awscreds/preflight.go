package awscreds

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// DefaultRegion is used when the caller does not name one.
const DefaultRegion = "us-east-1"

// PreflightOptions tune the S3 client used by Preflight.
type PreflightOptions struct {
	Region string
	// Endpoint overrides the S3 endpoint (path-style addressing is used when set).
	Endpoint string
}

// PreflightResult reports what a source listing found.
type PreflightResult struct {
	Bucket  string
	Prefix  string
	Listed  int
	Matched []string
}

// ParseS3URL splits s3://bucket/prefix into bucket and prefix.
func ParseS3URL(raw string) (bucket, prefix string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", domain.ErrValidation("invalid source URL %q: %v", raw, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", domain.ErrValidation("source URL %q must look like s3://bucket/prefix/", raw)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// Preflight lists the objects under sourceURL and returns those matching any pattern.
// Only key/secret credentials can be checked locally; role credentials are assumed by the engine.
func Preflight(
	ctx context.Context,
	sourceURL string,
	patterns []string,
	creds *domain.AWSCredentials,
	opts PreflightOptions,
) (*PreflightResult, error) {
	bucket, prefix, err := ParseS3URL(sourceURL)
	if err != nil {
		return nil, err
	}
	if creds == nil || creds.KeySecret == nil {
		return nil, domain.ErrValidation("source check needs %s and %s", EnvKeyID, EnvSecretKey)
	}

	client := newS3Client(creds.KeySecret, opts)
	result := &PreflightResult{Bucket: bucket, Prefix: prefix}

	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			result.Listed++
			if matchAny(patterns, strings.TrimPrefix(key, prefix)) {
				result.Matched = append(result.Matched, key)
			}
		}
	}

	if len(result.Matched) == 0 {
		return result, domain.ErrValidation("no objects under %s match %s (%d listed)",
			sourceURL, strings.Join(patterns, ", "), result.Listed)
	}
	return result, nil
}

func newS3Client(ks *domain.AWSKeySecret, opts PreflightOptions) *s3.Client {
	region := opts.Region
	if region == "" {
		region = DefaultRegion
	}
	cfg := aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(ks.KeyID, ks.SecretKey, ""),
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
}

// matchAny matches the key relative to the prefix, and its base name, against each glob.
func matchAny(patterns []string, rel string) bool {
	rel = strings.TrimPrefix(rel, "/")
	for _, p := range patterns {
		p = strings.TrimPrefix(p, "/")
		if ok, _ := path.Match(p, rel); ok {
			return true
		}
		if !strings.Contains(p, "/") {
			if ok, _ := path.Match(p, path.Base(rel)); ok {
				return true
			}
		}
	}
	return false
}
