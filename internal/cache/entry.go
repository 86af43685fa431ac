package cache

import (
	"crypto/sha256"
	"errors"
	"time"
)

// ErrMiss is returned by stores when no valid entry exists.
var ErrMiss = errors.New("cache miss")

// Payload is what a fetch produces.
type Payload struct {
	Data        []byte
	ContentType string
	URL         string
}

// Entry is a stored payload. Entries are never modified after insertion;
// callers must treat Data as read-only.
type Entry struct {
	Key         Key
	Data        []byte
	ContentType string
	URL         string
	Created     time.Time
	Checksum    [sha256.Size]byte
}

func newEntry(key Key, p Payload, now time.Time) *Entry {
	if p.Data == nil {
		p.Data = []byte{}
	}
	return &Entry{
		Key:         key,
		Data:        p.Data,
		ContentType: p.ContentType,
		URL:         p.URL,
		Created:     now,
		Checksum:    sha256.Sum256(p.Data),
	}
}

// Valid reports whether the checksum matches the data and the key matches
// the fingerprint it was stored under.
func (e *Entry) Valid(fingerprint string) bool {
	return e != nil && e.Checksum == sha256.Sum256(e.Data) && e.Key.Fingerprint() == fingerprint
}
