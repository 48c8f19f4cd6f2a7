package instrument

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRow(t *testing.T) {
	tests := []struct {
		name    string
		props   []string
		elapsed time.Duration
		want    string
	}{
		{"single property", []string{"2"}, 123400 * time.Nanosecond, `"(2,)",1,1.234000e-4`},
		{"no properties", nil, 3141590 * time.Nanosecond, `"()",1,3.141590e-3`},
		{"two properties", []string{"1", "0"}, 2 * time.Microsecond, `"(1,0,)",1,2.000000e-6`},
		{"positive exponent", nil, 12 * time.Second, `"()",1,1.200000e1`},
		{"zero exponent", nil, 1500 * time.Millisecond, `"()",1,1.500000e0`},
		{"zero", nil, 0, `"()",1,0.000000e0`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want+"\n", string(FormatRow(tt.props, tt.elapsed)))
		})
	}
}

func TestOpenSinkCreatesHeader(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSink(dir, "I32Add", 10)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, filepath.Join(dir, "I32Add.csv"), s.Path())
	assert.False(t, s.Resumed())
	assert.Equal(t, 0, s.Count())

	ok, err := s.Append(nil, 5*time.Microsecond)
	require.NoError(t, err)
	assert.True(t, ok)

	lines := readLines(t, s.Path())
	require.Len(t, lines, 2)
	assert.Equal(t, Header, lines[0])
	assert.Regexp(t, rowPattern, lines[1])
}

func TestSinkCap(t *testing.T) {
	s, err := OpenSink(t.TempDir(), "Br", 3)
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 5; i++ {
		ok, err := s.Append([]string{"1"}, time.Microsecond)
		require.NoError(t, err)
		assert.Equal(t, i < 3, ok)
	}
	assert.True(t, s.Full())
	assert.Equal(t, 3, s.Count())
	assert.Len(t, readLines(t, s.Path()), 4)
}

func TestSinkResumeMatchesSingleRun(t *testing.T) {
	samples := make([]time.Duration, 7)
	for i := range samples {
		samples[i] = time.Duration(i+1) * 1100 * time.Nanosecond
	}

	// Four samples, restart, three more.
	split := t.TempDir()
	s, err := OpenSink(split, "Return", 100)
	require.NoError(t, err)
	for _, d := range samples[:4] {
		_, err := s.Append([]string{"1"}, d)
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	s, err = OpenSink(split, "Return", 100)
	require.NoError(t, err)
	assert.True(t, s.Resumed())
	assert.Equal(t, 4, s.Count())
	for _, d := range samples[4:] {
		_, err := s.Append([]string{"1"}, d)
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	// All seven in one run.
	single := t.TempDir()
	s, err = OpenSink(single, "Return", 100)
	require.NoError(t, err)
	for _, d := range samples {
		_, err := s.Append([]string{"1"}, d)
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	got, err := os.ReadFile(LogPath(split, "Return"))
	require.NoError(t, err)
	want, err := os.ReadFile(LogPath(single, "Return"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
	assert.Len(t, readLines(t, LogPath(split, "Return")), 8)
}

func TestSinkResumeFull(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSink(dir, "Call", 2)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := s.Append(nil, time.Microsecond)
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	s, err = OpenSink(dir, "Call", 2)
	require.NoError(t, err)
	defer s.Close()
	assert.True(t, s.Full())

	ok, err := s.Append(nil, time.Microsecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, readLines(t, s.Path()), 3)
}

func TestSinkResumeRejectsTornRow(t *testing.T) {
	dir := t.TempDir()
	path := LogPath(dir, "I32Add")
	content := Header + "\n" + `"()",1,1.000000e-6` + "\n" + `"()",1,2.0`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := OpenSink(dir, "I32Add", 10)
	require.ErrorIs(t, err, ErrCorruptLog)
	assert.Contains(t, err.Error(), path)
}

func TestSinkResumeRejectsWrongHeader(t *testing.T) {
	dir := t.TempDir()
	path := LogPath(dir, "I32Add")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n"), 0o644))

	_, err := OpenSink(dir, "I32Add", 10)
	require.ErrorIs(t, err, ErrCorruptLog)
}

func TestSinkResumeEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := LogPath(dir, "Drop")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s, err := OpenSink(dir, "Drop", 10)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, []string{Header}, readLines(t, path))
}

func TestSinkAppendAfterClose(t *testing.T) {
	s, err := OpenSink(t.TempDir(), "Drop", 10)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	ok, err := s.Append(nil, time.Microsecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenSinkMissingDir(t *testing.T) {
	_, err := OpenSink(filepath.Join(t.TempDir(), "missing"), "Drop", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Drop.csv")
}

func TestSinkSharedPathKeepsEveryRow(t *testing.T) {
	dir := t.TempDir()
	a, err := OpenSink(dir, "Br", 2)
	require.NoError(t, err)
	defer a.Close()
	b, err := OpenSink(dir, "Br", 2)
	require.NoError(t, err)
	defer b.Close()
	assert.False(t, a.Resumed())
	assert.True(t, b.Resumed())

	for i, s := range []*Sink{a, b, a, b} {
		ok, err := s.Append([]string{strconv.Itoa(i)}, time.Second)
		require.NoError(t, err)
		require.True(t, ok)
	}

	lines := readLines(t, LogPath(dir, "Br"))
	assert.Equal(t, []string{
		Header,
		`"(0,)",1,1.000000e0`,
		`"(1,)",1,1.000000e0`,
		`"(2,)",1,1.000000e0`,
		`"(3,)",1,1.000000e0`,
	}, lines)

	reopened, err := OpenSink(dir, "Br", 10)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, 4, reopened.Count())
}

func TestSinkAppendWriteFailure(t *testing.T) {
	s, err := OpenSink(t.TempDir(), "Br", 10)
	require.NoError(t, err)
	ok, err := s.Append([]string{"0"}, time.Microsecond)
	require.NoError(t, err)
	require.True(t, ok)

	writable := s.file
	defer writable.Close()
	readOnly, err := os.Open(s.Path())
	require.NoError(t, err)
	s.file = readOnly
	defer s.Close()

	ok, err = s.Append([]string{"1"}, time.Microsecond)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), s.Path())
	assert.Equal(t, 1, s.Count())
}

func TestSinkZeroCap(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSink(dir, "Drop", 0)
	require.NoError(t, err)
	defer s.Close()
	assert.True(t, s.Full())

	ok, err := s.Append(nil, time.Microsecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, []string{Header}, readLines(t, LogPath(dir, "Drop")))

	negative, err := OpenSink(t.TempDir(), "Drop", -5)
	require.NoError(t, err)
	defer negative.Close()
	assert.Equal(t, 0, negative.Cap())
}
