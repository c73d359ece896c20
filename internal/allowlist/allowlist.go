// Package allowlist is a small JSON-backed set of API tokens permitted
// to call the service.
package allowlist

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

type Set struct {
	path string

	mu     sync.RWMutex
	tokens map[string]struct{}
}

// Load reads the allowlist from path. A missing file yields an empty
// set; a malformed file is an error.
func Load(path string) (*Set, error) {
	s := &Set{path: path, tokens: map[string]struct{}{}}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read allowlist: %w", err)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("parse allowlist: %w", err)
	}
	for _, t := range list {
		s.tokens[t] = struct{}{}
	}
	return s, nil
}

func (s *Set) Contains(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[token]
	return ok
}

// Empty reports whether the set has no tokens. An empty set disables
// auth checks.
func (s *Set) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens) == 0
}

func (s *Set) Add(token string) {
	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()
}

func (s *Set) Remove(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// Save writes the set back to its file, sorted for stable diffs.
func (s *Set) Save() error {
	s.mu.RLock()
	list := make([]string, 0, len(s.tokens))
	for t := range s.tokens {
		list = append(list, t)
	}
	s.mu.RUnlock()
	sort.Strings(list)
	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode allowlist: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write allowlist: %w", err)
	}
	return nil
}
