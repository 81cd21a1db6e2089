// Package repository holds the MySQL data access layer.  Sentinel errors
// declared here let the service layer tell storage outcomes apart without
// inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when no row matches the id within the caller's
// scope.  A record owned by someone else is indistinguishable from a
// missing one at this layer.
var ErrNotFound = errors.New("not found")

// ErrNotDraft is returned by the conditional lock when no DRAFT row
// matched: the record was already locked, possibly by a concurrent request.
var ErrNotDraft = errors.New("record is not in DRAFT state")

// ErrEmailExists is returned when inserting a user whose email is taken.
var ErrEmailExists = errors.New("email already exists")
