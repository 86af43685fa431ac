package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const fileVersion = 1

// fileEnvelope is the on-disk form of an entry.
type fileEnvelope struct {
	Version int
	Entry   Entry
}

// FileStore keeps one gob file per entry under
// <root>/<category>/<fingerprint[:2]>/<fingerprint>.gob.
type FileStore struct {
	root string
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{root: dir}, nil
}

func (s *FileStore) path(category Category, fingerprint string) string {
	return filepath.Join(s.root, string(category), fingerprint[:2], fingerprint+".gob")
}

// Get looks the fingerprint up in every category. Unreadable or corrupted
// files are removed and reported as a miss.
func (s *FileStore) Get(_ context.Context, fingerprint string) (*Entry, error) {
	if len(fingerprint) < 2 {
		return nil, ErrMiss
	}
	for _, c := range Categories {
		p := s.path(c, fingerprint)
		data, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, ErrMiss
		}
		var env fileEnvelope
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil ||
			env.Version != fileVersion || !env.Entry.Valid(fingerprint) {
			_ = os.Remove(p)
			return nil, ErrMiss
		}
		return &env.Entry, nil
	}
	return nil, ErrMiss
}

// Put writes the entry atomically, replacing any previous file.
func (s *FileStore) Put(_ context.Context, fingerprint string, e *Entry) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(fileEnvelope{Version: fileVersion, Entry: *e}); err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	p := s.path(e.Key.Category, fingerprint)
	return writeFileAtomic(filepath.Dir(p), filepath.Base(p), buf.Bytes())
}

// Clear removes the category directories in scope.
func (s *FileStore) Clear(_ context.Context, scope Scope) (int, error) {
	removed := 0
	for _, c := range Categories {
		if !scope.Includes(c) {
			continue
		}
		dir := filepath.Join(s.root, string(c))
		_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
			if err == nil && !d.IsDir() && filepath.Ext(d.Name()) == ".gob" {
				removed++
			}
			return nil
		})
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("clear %s: %w", c, err)
		}
	}
	return removed, nil
}

func (s *FileStore) Close() error { return nil }

// writeFileAtomic writes data to dir/name through a temporary file in the same
// directory and a rename.
func writeFileAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(dir, name))
}
