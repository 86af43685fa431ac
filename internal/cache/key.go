package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Digital-Shane/title-scout/internal/media"
)

// Category groups entries for scoped clearing.
type Category string

const (
	CategoryDocuments Category = "documents" // HTML pages
	CategoryFeeds     Category = "feeds"     // XML and JSON feed bodies
	CategoryImages    Category = "images"    // artwork listings
	CategoryRecords   Category = "records"   // decoded SDK responses
)

// Categories lists every category in a stable order.
var Categories = []Category{CategoryDocuments, CategoryFeeds, CategoryImages, CategoryRecords}

// Scope selects what Clear removes: one category or every entry.
type Scope string

const ScopeAll Scope = "all"

// ParseScope validates a user-supplied scope name.
func ParseScope(s string) (Scope, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == string(ScopeAll) {
		return ScopeAll, nil
	}
	for _, c := range Categories {
		if s == string(c) {
			return Scope(c), nil
		}
	}
	return "", fmt.Errorf("unknown cache scope %q", s)
}

// Includes reports whether c falls inside the scope.
func (s Scope) Includes(c Category) bool {
	return s == ScopeAll || Scope(c) == s
}

// Key identifies one cacheable request.
type Key struct {
	Category  Category
	Provider  string
	Operation string
	Locale    media.Locale
	Resource  string
}

// Fingerprint hashes the key. Each field is length-prefixed, so distinct keys
// never share an encoding.
func (k Key) Fingerprint() string {
	h := sha256.New()
	var n [binary.MaxVarintLen64]byte
	for _, field := range []string{string(k.Category), k.Provider, k.Operation, string(k.Locale), k.Resource} {
		l := binary.PutUvarint(n[:], uint64(len(field)))
		h.Write(n[:l])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", k.Category, k.Provider, k.Operation, k.Locale, k.Resource)
}
