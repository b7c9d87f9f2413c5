// Package guard decides whether a screen may be shown for the current
// session and where to send the user when it may not.
package guard

import (
	"context"

	"stratolift/internal/models"
	"stratolift/internal/session"
)

const (
	RouteAuthentication = "Authentication"
	RouteTechnician     = "techniciandb"
	RouteUser           = "userdb"
)

type Action int

const (
	Wait Action = iota
	Allow
	Redirect
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	default:
		return "wait"
	}
}

type Decision struct {
	Action Action
	Route  string
}

func (d Decision) String() string {
	if d.Action == Redirect {
		return "redirect:" + d.Route
	}
	return d.Action.String()
}

// LandingRoute is the home screen for a role.
func LandingRoute(role models.UserRole) string {
	if role == models.UserRoleTechnician {
		return RouteTechnician
	}
	return RouteUser
}

// Decide evaluates a snapshot against an optional required role. An empty
// requiredRole admits any signed-in user.
func Decide(s session.Snapshot, requiredRole models.UserRole) Decision {
	switch {
	case s.IsLoading:
		return Decision{Action: Wait}
	case !s.IsAuthenticated:
		return Decision{Action: Redirect, Route: RouteAuthentication}
	case requiredRole != "" && s.Role() != requiredRole:
		return Decision{Action: Redirect, Route: LandingRoute(s.Role())}
	default:
		return Decision{Action: Allow}
	}
}

// Source is the part of *session.Manager the guard reads.
type Source interface {
	State() session.Snapshot
	ExpireIfNeeded(ctx context.Context) bool
}

// Check clears an expired session before deciding, so a redirect to the
// sign-in screen also removes the stale credentials.
func Check(ctx context.Context, src Source, requiredRole models.UserRole) Decision {
	s := src.State()
	if !s.IsLoading && !s.IsAuthenticated && s.Token != "" {
		src.ExpireIfNeeded(ctx)
		s = src.State()
	}
	return Decide(s, requiredRole)
}
