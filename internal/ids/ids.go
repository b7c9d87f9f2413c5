package ids

import "github.com/segmentio/ksuid"

// New returns a new time-ordered identifier.
func New() string {
	return ksuid.New().String()
}
