// Package policy decides which intervention records a caller may read or
// write.  The caller identity is always passed in explicitly; nothing here
// reads request or session state.
package policy

import "github.com/iliyamo/field-interventions/internal/model"

// Caller is the authenticated principal of an operation.  The zero value is
// an anonymous caller.
type Caller struct {
	ID   uint64
	Role model.Role
}

// Authenticated reports whether the caller carries an identity and a known role.
func (c Caller) Authenticated() bool {
	if c.ID == 0 {
		return false
	}
	_, ok := model.ParseRole(string(c.Role))
	return ok
}

// IsAdmin reports whether the caller is an authenticated administrator.
func (c Caller) IsAdmin() bool { return c.Authenticated() && c.Role == model.RoleAdmin }

// Decision is the explicit outcome of an access check.  The presentation
// layer maps it to a status code or redirect.
type Decision int

const (
	Allowed Decision = iota
	Forbidden
	Unauthenticated
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Forbidden:
		return "forbidden"
	case Unauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// CanRead: administrators read everything, technicians their own records.
func CanRead(c Caller, rec model.Intervention) bool {
	if !c.Authenticated() {
		return false
	}
	return c.Role == model.RoleAdmin || rec.OwnerID == c.ID
}

// CanWrite: only the owner writes, whatever the role.
func CanWrite(c Caller, rec model.Intervention) bool {
	return c.Authenticated() && rec.OwnerID == c.ID
}

// ReadDecision wraps CanRead into a Decision.
func ReadDecision(c Caller, rec model.Intervention) Decision {
	if !c.Authenticated() {
		return Unauthenticated
	}
	if CanRead(c, rec) {
		return Allowed
	}
	return Forbidden
}

// WriteDecision wraps CanWrite into a Decision.
func WriteDecision(c Caller, rec model.Intervention) Decision {
	if !c.Authenticated() {
		return Unauthenticated
	}
	if CanWrite(c, rec) {
		return Allowed
	}
	return Forbidden
}

// CreateDecision: only technicians open new interventions.
func CreateDecision(c Caller) Decision {
	if !c.Authenticated() {
		return Unauthenticated
	}
	if c.Role != model.RoleTech {
		return Forbidden
	}
	return Allowed
}

// ReadScope returns the owner filter the storage layer must apply for c:
// nil for administrators, the caller's own id otherwise.  Repositories add
// it to their WHERE clauses as a second, row-level enforcement.
func ReadScope(c Caller) *uint64 {
	if c.IsAdmin() {
		return nil
	}
	id := c.ID
	return &id
}
