package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultMaxBytes is the rotation threshold for the audit log file.
const DefaultMaxBytes = 10 * 1024 * 1024

// FileLog appends audit entries to a JSONL file with size-based rotation.
type FileLog struct {
	path     string
	maxBytes int64
	now      func() time.Time

	mu sync.Mutex
}

// NewFileLog creates the parent directory and returns a file-backed log.
// maxBytes <= 0 selects DefaultMaxBytes.
func NewFileLog(path string, maxBytes int64) (*FileLog, error) {
	if path == "" {
		return nil, fmt.Errorf("audit log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &FileLog{
		path:     path,
		maxBytes: maxBytes,
		now:      time.Now,
	}, nil
}

// Append stamps the entry with the current time and writes one JSON line.
// Rotation runs first and is best-effort: a failed rotation never blocks
// the append it guards.
func (l *FileLog) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.Timestamp = l.now().UTC()

	l.maybeRotate()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

// maybeRotate renames the current file with a timestamp suffix once it
// exceeds the size threshold. Errors are swallowed.
func (l *FileLog) maybeRotate() {
	info, err := os.Stat(l.path)
	if err != nil || info.Size() < l.maxBytes {
		return
	}
	rotated := fmt.Sprintf("%s.%s", l.path, l.now().UTC().Format("20060102T150405"))
	_ = os.Rename(l.path, rotated)
}

// ReadRecent returns the last n entries in append order. Unparseable lines
// are skipped rather than failing the read.
func (l *FileLog) ReadRecent(n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}

	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// SecurityEventsSince returns recent entries within the window that either
// are security_flag events or carry security flags.
func (l *FileLog) SecurityEventsSince(d time.Duration) ([]Entry, error) {
	recent, err := l.ReadRecent(1000)
	if err != nil {
		return nil, err
	}
	cutoff := l.now().UTC().Add(-d)

	var out []Entry
	for _, e := range recent {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		if e.EventType == EventSecurityFlag || len(e.SecurityFlags) > 0 {
			out = append(out, e)
		}
	}
	return out, nil
}
