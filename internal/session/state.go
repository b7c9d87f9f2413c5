package session

import "stratolift/internal/models"

type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseUnauthenticated
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "uninitialized"
	}
}

// Snapshot is a point-in-time copy of the session. Mutating it does not
// affect the manager.
type Snapshot struct {
	Phase           Phase
	User            *models.User
	Token           string
	IsAuthenticated bool
	IsLoading       bool
}

// Role returns the signed-in user's role, "" when signed out.
func (s Snapshot) Role() models.UserRole {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Image != nil {
		img := *u.Image
		c.Image = &img
	}
	return &c
}
