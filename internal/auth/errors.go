package auth

import (
	"errors"
	"fmt"
)

// ErrAuthenticationMissing means no usable stored credential exists.
var ErrAuthenticationMissing = errors.New("not logged in: run 'fieldops login' first")

// ErrPermissionDenied is matched by every PermissionDenied error.
var ErrPermissionDenied = errors.New("permission denied")

// PermissionDenied is raised locally, before any request is sent, when the
// session's roles do not grant an action.
type PermissionDenied struct {
	Action string
	Roles  RoleSet
}

func (e *PermissionDenied) Error() string {
	return fmt.Sprintf("permission denied: %s is not allowed for roles [%s]", e.Action, e.Roles)
}

// Is makes errors.Is(err, ErrPermissionDenied) succeed.
func (e *PermissionDenied) Is(target error) bool {
	return target == ErrPermissionDenied
}

// Require turns a capability check into an error.
func Require(allowed bool, action string, roles RoleSet) error {
	if allowed {
		return nil
	}
	return &PermissionDenied{Action: action, Roles: roles}
}
