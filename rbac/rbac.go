// Package rbac holds the static role and permission model. Permissions are
// plain "resource:action" strings so they can travel inside JWT claims and
// user records without translation.
package rbac

import "sort"

// Permission names follow the resource:action convention.
const (
	PermReadData   = "read:data"
	PermWriteData  = "write:data"
	PermDeleteData = "delete:data"

	PermReadCollectors    = "read:collectors"
	PermWriteCollectors   = "write:collectors"
	PermExecuteCollectors = "execute:collectors"

	PermReadReports  = "read:reports"
	PermWriteReports = "write:reports"
	PermShareReports = "share:reports"

	PermReadUsers  = "read:users"
	PermWriteUsers = "write:users"
	PermAdminUsers = "admin:users"

	PermReadOrganization  = "read:organization"
	PermWriteOrganization = "write:organization"
	PermAdminOrganization = "admin:organization"

	PermReadSystem  = "read:system"
	PermWriteSystem = "write:system"
	PermAdminSystem = "admin:system"
)

// Role names recognized by the role table.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleAnalyst = "analyst"
	RoleViewer  = "viewer"
	RoleAPIUser = "api_user"
)

// AllPermissions lists every defined permission in declaration order.
var AllPermissions = []string{
	PermReadData, PermWriteData, PermDeleteData,
	PermReadCollectors, PermWriteCollectors, PermExecuteCollectors,
	PermReadReports, PermWriteReports, PermShareReports,
	PermReadUsers, PermWriteUsers, PermAdminUsers,
	PermReadOrganization, PermWriteOrganization, PermAdminOrganization,
	PermReadSystem, PermWriteSystem, PermAdminSystem,
}

var rolePermissions = map[string][]string{
	RoleAdmin: AllPermissions,
	RoleManager: {
		PermReadData, PermWriteData,
		PermReadCollectors, PermWriteCollectors, PermExecuteCollectors,
		PermReadReports, PermWriteReports, PermShareReports,
		PermReadUsers, PermWriteUsers,
		PermReadOrganization,
	},
	RoleAnalyst: {
		PermReadData,
		PermReadCollectors, PermExecuteCollectors,
		PermReadReports, PermWriteReports,
	},
	RoleViewer: {
		PermReadData,
		PermReadCollectors,
		PermReadReports,
	},
	// API users start with no implicit grants; everything comes from
	// custom permissions attached to the account.
	RoleAPIUser: {},
}

// ValidRole reports whether the role exists in the role table.
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// RolePermissions returns a copy of the permission set for the role.
// Unknown roles yield an empty set, never nil.
func RolePermissions(role string) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// EffectivePermissions returns the union of the role's permissions and the
// account's custom grants. The result is deduplicated and sorted so that
// repeated calls produce identical slices for identical inputs.
func EffectivePermissions(role string, custom []string) []string {
	seen := make(map[string]struct{}, len(rolePermissions[role])+len(custom))
	for _, p := range rolePermissions[role] {
		seen[p] = struct{}{}
	}
	for _, p := range custom {
		if p == "" {
			continue
		}
		seen[p] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// HasPermission reports whether required is present in the permission set.
func HasPermission(permissions []string, required string) bool {
	for _, p := range permissions {
		if p == required {
			return true
		}
	}
	return false
}
