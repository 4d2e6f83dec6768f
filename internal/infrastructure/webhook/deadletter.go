package webhook

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// maxLineSize bounds a single entry; payloads embed full analysis results.
const maxLineSize = 10 * 1024 * 1024

// DeadLetterStore appends failed deliveries to a JSONL file.
type DeadLetterStore struct {
	path string
	mu   sync.Mutex
}

func NewDeadLetterStore(path string) *DeadLetterStore {
	return &DeadLetterStore{path: path}
}

func (s *DeadLetterStore) Path() string { return s.path }

// Append writes one entry as a single JSON line.
func (s *DeadLetterStore) Append(dl DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create dead letter directory: %w", err)
	}
	// #nosec G304 -- path is fixed under the workspace directory
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open dead letter file: %w", err)
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

// ReadAll returns every entry. Lines that fail to decode are skipped. A
// missing file yields nil, nil.
func (s *DeadLetterStore) ReadAll() ([]DeadLetter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// #nosec G304 -- path is fixed under the workspace directory
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []DeadLetter
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var dl DeadLetter
		if err := json.Unmarshal(line, &dl); err != nil {
			continue
		}
		entries = append(entries, dl)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("read dead letters: %w", err)
	}
	return entries, nil
}

// Clear removes the file.
func (s *DeadLetterStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
