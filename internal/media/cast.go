package media

import "strings"

// Role is the credit a person holds on a title.
type Role string

const (
	RoleActor    Role = "actor"
	RoleDirector Role = "director"
	RoleWriter   Role = "writer"
)

// ParseRole maps provider job labels ("Director", "Actor", "Writer") onto a
// Role. Unknown labels report false.
func ParseRole(job string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(job)) {
	case "actor", "actress", "cast":
		return RoleActor, true
	case "director", "directing":
		return RoleDirector, true
	case "writer", "screenplay", "writing", "author":
		return RoleWriter, true
	}
	return "", false
}

// CastEntry is one credited person.
type CastEntry struct {
	PersonID  string
	Name      string
	Role      Role
	Character string
	Portrait  string
}

// FilterRole returns the entries holding role, preserving order.
func FilterRole(cast []CastEntry, role Role) []CastEntry {
	var out []CastEntry
	for _, c := range cast {
		if c.Role == role {
			out = append(out, c)
		}
	}
	return out
}
