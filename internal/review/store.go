package review

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
)

// Review statuses. A decision is created on first human action and updated
// on re-review; it is never deleted.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Decision is one human verdict on a signal, keyed by "<videoId>_<asset>".
type Decision struct {
	Status string    `json:"status"`
	Reason string    `json:"reason,omitempty"`
	Time   time.Time `json:"time"`
}

// Store is a durable JSON mapping from signal key to human decision. Writes
// are whole-file overwrites guarded by an advisory lock; the intended user
// is a single human reviewer, so last-writer-wins is acceptable.
type Store struct {
	path string
	lock *flock.Flock
}

func Open(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Load reads the current decision map. A missing file is an empty store.
// A file that fails strict JSON parsing falls back to the legacy recovery
// pass; whatever it cannot recover is omitted.
func (s *Store) Load() (map[string]Decision, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Decision{}, nil
		}
		return nil, fmt.Errorf("read review store: %w", err)
	}

	var decisions map[string]Decision
	if err := json.Unmarshal(data, &decisions); err != nil {
		recovered := RecoverLegacy(data)
		if len(recovered) == 0 {
			return nil, fmt.Errorf("parse review store: %w", err)
		}
		return recovered, nil
	}
	if decisions == nil {
		decisions = map[string]Decision{}
	}
	return decisions, nil
}

// Set upserts a decision for key under the file lock, always overwriting any
// prior status.
func (s *Store) Set(key, status, reason string) error {
	if err := validStatus(status); err != nil {
		return err
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock review store: %w", err)
	}
	defer s.lock.Unlock()

	decisions, err := s.Load()
	if err != nil {
		return err
	}
	decisions[key] = Decision{
		Status: status,
		Reason: reason,
		Time:   time.Now().UTC(),
	}
	return s.write(decisions)
}

// MergeFrom merges another decision map into the store under the lock. The
// incoming side wins on shared keys.
func (s *Store) MergeFrom(incoming map[string]Decision) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock review store: %w", err)
	}
	defer s.lock.Unlock()

	current, err := s.Load()
	if err != nil {
		return err
	}
	return s.write(Merge(current, incoming))
}

// write persists the full map: marshal indent 2, temp file, rename. The
// rename keeps a concurrent reader from ever seeing a torn file.
func (s *Store) write(decisions map[string]Decision) error {
	data, err := json.MarshalIndent(decisions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal review store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".reviews-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace review store: %w", err)
	}
	return nil
}

// Merge combines two decision maps: b's entries take precedence over a's for
// shared keys; keys present only on one side carry through unchanged.
// Neither input is modified.
func Merge(a, b map[string]Decision) map[string]Decision {
	out := make(map[string]Decision, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Keys returns the store's keys in sorted order, for deterministic listings.
func Keys(decisions map[string]Decision) []string {
	keys := make([]string, 0, len(decisions))
	for k := range decisions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func validStatus(status string) error {
	switch status {
	case StatusPending, StatusApproved, StatusRejected:
		return nil
	}
	return fmt.Errorf("invalid review status %q", status)
}
