package cli

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

// captureStdout redirects os.Stdout until the returned function is called,
// which restores it and returns everything written.
func captureStdout(t *testing.T) func() string {
	t.Helper()
	return captureFile(t, &os.Stdout)
}

// captureStderr is captureStdout for os.Stderr.
func captureStderr(t *testing.T) func() string {
	t.Helper()
	return captureFile(t, &os.Stderr)
}

func captureFile(t *testing.T, target **os.File) func() string {
	t.Helper()
	old := *target
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	*target = w

	// drain concurrently so large outputs do not block on the pipe buffer
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = buf.ReadFrom(r)
		close(done)
	}()

	return func() string {
		_ = w.Close()
		<-done
		*target = old
		return buf.String()
	}
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
