package display

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// Store publishes the current Payload as a JSON file that the panel
// renderer polls. A nil Store or an empty path turns every write into a no-op.
type Store struct {
	path string
	now  func() time.Time
}

func New(path string) *Store {
	return &Store{path: strings.TrimSpace(path), now: time.Now}
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) Read() (Payload, error) {
	if s == nil || s.path == "" {
		return Payload{}, errors.New("display state path is empty")
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return Payload{}, err
	}
	var out Payload
	if err := json.Unmarshal(b, &out); err != nil {
		return Payload{}, err
	}
	return out, nil
}

// Show replaces the published payload.
func (s *Store) Show(p Payload) error {
	if s == nil || s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir display dir: %w", err)
	}

	p.Rows = PanelRows(p)
	p.UpdatedAt = s.now().UTC().Format(time.RFC3339Nano)
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal display state: %w", err)
	}

	return withFlock(s.path+".lock", func() error {
		tmp := s.path + ".tmp"
		if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
			return fmt.Errorf("write temp display state: %w", err)
		}
		if err := os.Rename(tmp, s.path); err != nil {
			return fmt.Errorf("rename display state: %w", err)
		}
		return nil
	})
}

// withFlock runs fn while holding an exclusive flock on lockPath, so the
// renderer never sees a half-renamed file.
func withFlock(lockPath string, fn func() error) error {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("lock display state: %w", err)
	}
	defer f.Close()

	fd := int(f.Fd())
	if err := syscall.Flock(fd, syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock display state: %w", err)
	}
	defer syscall.Flock(fd, syscall.LOCK_UN)
	return fn()
}
