package log

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome is how one journaled resolution ended.
type Outcome string

const (
	OutcomeResolved Outcome = "resolved"
	OutcomeNoMatch  Outcome = "no_match"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Entry records one resolution.
type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Input      string    `json:"input"`
	Provider   string    `json:"provider"`
	Identifier string    `json:"identifier,omitempty"`
	Title      string    `json:"title,omitempty"`
	Year       int       `json:"year,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Phase      string    `json:"phase,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// SessionMetadata summarizes a journaled run.
type SessionMetadata struct {
	SessionID   string    `json:"session_id"`
	CommandArgs []string  `json:"command_args"`
	WorkingDir  string    `json:"working_dir"`
	Timestamp   time.Time `json:"timestamp"`
	Total       int       `json:"total"`
	Resolved    int       `json:"resolved"`
	Failed      int       `json:"failed"`
}

// Session is the journal of one run. It is safe for concurrent use.
type Session struct {
	Metadata SessionMetadata `json:"metadata"`
	Entries  []Entry         `json:"entries"`

	mu  sync.Mutex
	dir string
}

// StartSession opens a journal that will be written under dir on Close.
func StartSession(dir, command string, args []string) (*Session, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return &Session{
		Metadata: SessionMetadata{
			SessionID:   uuid.NewString(),
			CommandArgs: append([]string{command}, args...),
			WorkingDir:  wd,
			Timestamp:   time.Now(),
		},
		Entries: []Entry{},
		dir:     dir,
	}, nil
}

// Record appends e, stamping its id and time when unset.
func (s *Session) Record(e Entry) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = fmt.Sprintf("%s_%d", s.Metadata.SessionID, len(s.Entries))
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	s.Entries = append(s.Entries, e)
}

// Close updates the summary and writes the session file. It returns the path
// written.
func (s *Session) Close() (string, error) {
	if s == nil {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updateStats()
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s.%03d.json",
		s.Metadata.Timestamp.Format("2006-01-02_150405"),
		s.Metadata.Timestamp.Nanosecond()/1000000))

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write log file: %w", err)
	}
	return path, nil
}

func (s *Session) updateStats() {
	resolved, failed := 0, 0
	for _, e := range s.Entries {
		switch e.Outcome {
		case OutcomeResolved:
			resolved++
		case OutcomeFailed:
			failed++
		}
	}
	s.Metadata.Total = len(s.Entries)
	s.Metadata.Resolved = resolved
	s.Metadata.Failed = failed
}

// ReadSession loads one session file.
func ReadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// ReadSessions returns up to limit sessions from dir, newest first. Corrupted
// files are skipped.
func ReadSessions(dir string, limit int) ([]*Session, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*Session{}, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list log files: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	sessions := make([]*Session, 0, len(files))
	for _, file := range files {
		session, err := ReadSession(file)
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Cleanup removes session files older than retentionDays. It returns the
// number of files removed.
func Cleanup(dir string, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("failed to list log files: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
