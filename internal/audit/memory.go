package audit

import (
	"sync"
	"time"
)

// MemoryLog is an in-memory Store used in tests and as a sink when no
// audit path is configured.
type MemoryLog struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{now: time.Now}
}

func (m *MemoryLog) Append(e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.Timestamp = m.now().UTC()
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryLog) ReadRecent(n int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 {
		return nil, nil
	}
	start := 0
	if len(m.entries) > n {
		start = len(m.entries) - n
	}
	out := make([]Entry, len(m.entries)-start)
	copy(out, m.entries[start:])
	return out, nil
}

func (m *MemoryLog) SecurityEventsSince(d time.Duration) ([]Entry, error) {
	recent, err := m.ReadRecent(1000)
	if err != nil {
		return nil, err
	}
	cutoff := m.now().UTC().Add(-d)
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
