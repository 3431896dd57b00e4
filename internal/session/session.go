// Package session carries the authenticated caller through a request.
//
// The identity provider owns sign-in; this service only reads the
// caller's id, role, enabled flag and specialty from the bearer token it
// issued and passes them explicitly to every service call.
package session

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient    Role = "patient"
	RoleSpecialist Role = "specialist"
	RoleAdmin      Role = "admin"
)

// ParseRole accepts the English role names and the identity provider's
// Spanish user types.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "patient", "paciente":
		return RolePatient, true
	case "specialist", "especialista":
		return RoleSpecialist, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

type Principal struct {
	UserID    uuid.UUID
	Role      Role
	Enabled   bool
	Specialty string
}

func (p Principal) IsPatient() bool    { return p.Role == RolePatient }
func (p Principal) IsSpecialist() bool { return p.Role == RoleSpecialist }
func (p Principal) IsAdmin() bool      { return p.Role == RoleAdmin }

type contextKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}
