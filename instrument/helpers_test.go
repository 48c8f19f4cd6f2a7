package instrument

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var rowPattern = regexp.MustCompile(`^"\(([0-9]+,)*\)",1,[0-9]\.[0-9]{6}e-?[0-9]+$`)

// readLines returns the lines of the file at path without trailing newlines.
func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	require.True(t, strings.HasSuffix(text, "\n"), "log must end with a newline")
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// newTestRecorder returns a recorder writing to a temporary directory that
// fails the test on any fatal error.
func newTestRecorder(t *testing.T, opts ...Option) *Recorder {
	t.Helper()
	base := []Option{
		WithDir(t.TempDir()),
		WithLogger(zerolog.Nop()),
		WithFatalHandler(func(err error) {
			t.Errorf("unexpected fatal error: %v", err)
		}),
	}
	rec := New(append(base, opts...)...)
	t.Cleanup(func() { rec.Close() })
	return rec
}
