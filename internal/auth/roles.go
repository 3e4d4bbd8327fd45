// Package auth derives UI capabilities from the role claims of the session
// token. Every function here is pure: given the same role set and context it
// returns the same answer and never fails.
package auth

import (
	"sort"
	"strings"

	"github.com/trailblaze/fieldops/internal/models"
)

// Role is a capability tag granted through the session credential.
type Role string

// Known roles.
const (
	RoleSysAdmin Role = "SYSADMIN"
	RoleSysBO    Role = "SYSBO"
	RolePRBO     Role = "PRBO"
	RoleSMBO     Role = "SMBO"
	RoleSDVBO    Role = "SDVBO"
	RolePO       Role = "PO"
	RoleRU       Role = "RU"
)

// RoleSet is an unordered set of roles.
type RoleSet map[Role]struct{}

var (
	manageRoles    = NewRoleSet(RoleSysAdmin, RoleSysBO, RolePRBO)
	exportRoles    = NewRoleSet(RoleSysAdmin, RoleSysBO, RolePRBO, RoleSMBO, RoleSDVBO)
	activityRoles  = NewRoleSet(RoleSysAdmin, RoleSysBO, RolePO)
	allParcelRoles = NewRoleSet(RolePRBO, RoleSMBO, RoleSysAdmin)
	photoRoles     = NewRoleSet(RoleSysAdmin, RoleSysBO, RolePO, RolePRBO)
)

// NewRoleSet builds a set, dropping blank entries.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		r = Role(strings.ToUpper(strings.TrimSpace(string(r))))
		if r != "" {
			set[r] = struct{}{}
		}
	}
	return set
}

// LeastPrivileged is the set every undecodable credential degrades to.
func LeastPrivileged() RoleSet {
	return NewRoleSet(RoleRU)
}

// Has reports whether the set contains role.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// Intersects reports whether the two sets share at least one role.
func (s RoleSet) Intersects(other RoleSet) bool {
	for r := range s {
		if other.Has(r) {
			return true
		}
	}
	return false
}

// Sorted returns the roles in a stable order for display.
func (s RoleSet) Sorted() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// String joins the roles with commas.
func (s RoleSet) String() string {
	parts := make([]string, 0, len(s))
	for _, r := range s.Sorted() {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ",")
}

// CanManage gates creating, editing, assigning and deleting sheets.
func CanManage(roles RoleSet) bool {
	return roles.Intersects(manageRoles)
}

// CanExport gates sheet exports.
func CanExport(roles RoleSet) bool {
	return roles.Intersects(exportRoles)
}

// CanDoActivity gates starting activities and attaching evidence to them.
func CanDoActivity(roles RoleSet) bool {
	return roles.Intersects(activityRoles)
}

// CanStopActivity allows stopping only one's own running activity.
func CanStopActivity(roles RoleSet, activity models.Activity, currentUser string) bool {
	return CanDoActivity(roles) && activity.Running() && activity.OperatorID == currentUser
}

// CanAddActivityInfo allows observations and photos on finished activities only.
func CanAddActivityInfo(roles RoleSet, activity models.Activity) bool {
	return CanDoActivity(roles) && !activity.Running()
}

// CanRemovePhoto gates detaching a photo from an activity: operators plus
// the parcel-responsible back office.
func CanRemovePhoto(roles RoleSet) bool {
	return roles.Intersects(photoRoles)
}

// SeesAllParcels reports whether the role set bypasses parcel assignment filtering.
func SeesAllParcels(roles RoleSet) bool {
	return roles.Intersects(allParcelRoles)
}

// VisibleParcels drops parcels assigned to someone else unless the role set
// is privileged. The privileged path returns the input slice as is.
func VisibleParcels(roles RoleSet, username string, parcels []models.ParcelExecution) []models.ParcelExecution {
	if SeesAllParcels(roles) {
		return parcels
	}
	out := make([]models.ParcelExecution, 0, len(parcels))
	for _, p := range parcels {
		if p.AssignedUsername == "" || p.AssignedUsername == username {
			out = append(out, p)
		}
	}
	return out
}

// VisibleParcelDetails applies VisibleParcels to parcel entries of a sheet tree.
func VisibleParcelDetails(roles RoleSet, username string, parcels []models.ParcelDetail) []models.ParcelDetail {
	if SeesAllParcels(roles) {
		return parcels
	}
	out := make([]models.ParcelDetail, 0, len(parcels))
	for _, p := range parcels {
		assigned := p.ParcelExecution.AssignedUsername
		if assigned == "" || assigned == username {
			out = append(out, p)
		}
	}
	return out
}
