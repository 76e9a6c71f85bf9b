package rbac

type Role string
type Action string

const (
	// RoleAdmin is the super-authority: it grants every action on every target.
	RoleAdmin          Role = "ADMIN"
	RoleDirector       Role = "DIRECTOR"
	RoleProjectManager Role = "PROJECT_MANAGER"
	RoleTeamMember     Role = "TEAM_MEMBER"
)

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// MemberRoleManager is the project-scoped member role that carries write
// access on the project and everything it contains.
const MemberRoleManager = "PROJECT_MANAGER"

// Can reports whether a global role grants an action outright, before any
// membership check. Only ADMIN and DIRECTOR grant unconditionally; the other
// roles are decided per project by membership.
func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin, RoleDirector:
		return true
	default:
		return false
	}
}

// HasRole reports whether roles contains the given role.
func HasRole(roles []string, role Role) bool {
	for _, r := range roles {
		if Role(r) == role {
			return true
		}
	}
	return false
}

// Normalize maps an arbitrary role string onto the closed role set,
// defaulting to TEAM_MEMBER.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleAdmin, RoleDirector, RoleProjectManager, RoleTeamMember:
		return Role(role)
	default:
		return RoleTeamMember
	}
}
