package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewRevisionID returns a UUIDv7 revision id, so revisions of a field sort
// by save time. Panics if the random source fails.
func NewRevisionID() RevisionID {
	return RevisionID(uuid.Must(uuid.NewV7()).String())
}

// ParseRevisionID accepts only version 7 UUIDs.
func ParseRevisionID(s string) (RevisionID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid revision id %q: %w", s, err)
	}
	if u.Version() != 7 {
		return "", fmt.Errorf("invalid revision id %q: version %d", s, u.Version())
	}
	return RevisionID(u.String()), nil
}

// Time returns the save time embedded in the id, or the zero time when id
// is not a UUID.
func (id RevisionID) Time() time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec).UTC()
}
