package instrument

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

const (
	// Header is the first line of every sample log.
	Header = "args,n_exec,total_elapsed_time"

	// DefaultCap is the number of samples kept per kind.
	DefaultCap = 10_000

	// Extension is appended to the kind to form the log file name.
	Extension = ".csv"
)

// ErrCorruptLog is returned when an existing log cannot be resumed safely.
var ErrCorruptLog = errors.New("corrupt sample log")

// Sink is an append-only, capped log of samples for a single kind. Each row
// holds one raw sample; aggregation is left to offline tooling.
type Sink struct {
	mu      sync.Mutex
	kind    Kind
	path    string
	file    *os.File
	count   int
	cap     int
	resumed bool
	closed  bool
}

// LogPath returns the path of the log for kind inside dir.
func LogPath(dir string, kind Kind) string {
	return filepath.Join(dir, string(kind)+Extension)
}

// OpenSink opens the log for kind in dir, creating it with a header row if it
// does not exist. When the log exists its rows are counted so that the cap
// applies across process restarts. The file is always written in append mode.
//
// The cap is enforced per Sink: only one Sink per log may be open in a
// process, which Recorder guarantees for its own directory.
func OpenSink(dir string, kind Kind, cap int) (*Sink, error) {
	if cap < 0 {
		cap = 0
	}
	path := LogPath(dir, kind)
	s := &Sink{kind: kind, path: path, cap: cap}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0o644)
	if err == nil {
		s.file = file
		if err := s.writeHeader(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	file, err = os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s.file = file
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		if err := s.writeHeader(); err != nil {
			return nil, err
		}
		return s, nil
	}
	count, err := countRows(path)
	if err != nil {
		file.Close()
		return nil, err
	}
	s.count = count
	s.resumed = true
	return s, nil
}

// writeHeader writes the header to a freshly created log, closing the file
// on failure.
func (s *Sink) writeHeader() error {
	if _, err := s.file.WriteString(Header + "\n"); err != nil {
		s.file.Close()
		return fmt.Errorf("write header to %s: %w", s.path, err)
	}
	return nil
}

// countRows returns the number of data rows in an existing log. The log must
// begin with Header and end with a newline; anything else means a previous
// run stopped mid-write and the count could not be trusted.
func countRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	lines := 0
	for {
		line, err := r.ReadBytes('\n')
		if err == io.EOF {
			if len(line) > 0 {
				return 0, fmt.Errorf("%w: %s: last row is incomplete", ErrCorruptLog, path)
			}
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", path, err)
		}
		if lines == 0 && string(bytes.TrimRight(line, "\r\n")) != Header {
			return 0, fmt.Errorf("%w: %s: unexpected header %q", ErrCorruptLog, path,
				bytes.TrimRight(line, "\r\n"))
		}
		lines++
	}
	return lines - 1, nil
}

// Append writes one sample row unless the sink is full. It reports whether
// the row was written.
func (s *Sink) Append(properties []string, elapsed time.Duration) (bool, error) {
	n, err := s.append(properties, elapsed)
	return n > 0, err
}

// append returns the row count after writing, or 0 if the row was dropped.
func (s *Sink) append(properties []string, elapsed time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.count >= s.cap {
		return 0, nil
	}
	// A single write keeps rows whole if the process dies mid-append.
	if _, err := s.file.Write(FormatRow(properties, elapsed)); err != nil {
		return 0, fmt.Errorf("write to %s: %w", s.path, err)
	}
	s.count++
	return s.count, nil
}

// Close closes the underlying file. Appends after Close are dropped.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	return nil
}

// Kind returns the kind this sink records.
func (s *Sink) Kind() Kind { return s.kind }

// Path returns the log file path.
func (s *Sink) Path() string { return s.path }

// Cap returns the maximum number of rows the log will hold.
func (s *Sink) Cap() int { return s.cap }

// Resumed reports whether the sink continued an existing log.
func (s *Sink) Resumed() bool { return s.resumed }

// Count returns the number of rows in the log.
func (s *Sink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Full reports whether the log has reached its cap.
func (s *Sink) Full() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count >= s.cap
}

// FormatRow renders a sample as a newline-terminated log row, for example
// "(2,)",1,1.234000e-4 for properties ["2"] and 123.4µs.
func FormatRow(properties []string, elapsed time.Duration) []byte {
	buf := make([]byte, 0, 32)
	buf = append(buf, `"(`...)
	for _, p := range properties {
		buf = append(buf, p...)
		buf = append(buf, ',')
	}
	buf = append(buf, `)",1,`...)
	buf = appendSeconds(buf, elapsed.Seconds())
	return append(buf, '\n')
}

// appendSeconds formats v in scientific notation with six fractional digits
// and an unpadded exponent: 1.234000e-4, 1.500000e0.
func appendSeconds(buf []byte, v float64) []byte {
	s := strconv.FormatFloat(v, 'e', 6, 64)
	i := len(s) - 1
	for i >= 0 && s[i] != 'e' {
		i--
	}
	buf = append(buf, s[:i+1]...)
	exp, _ := strconv.Atoi(s[i+1:])
	return strconv.AppendInt(buf, int64(exp), 10)
}
