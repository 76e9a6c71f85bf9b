package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "admin read", role: RoleAdmin, action: ActionRead, allow: true},
		{name: "admin write", role: RoleAdmin, action: ActionWrite, allow: true},
		{name: "director write", role: RoleDirector, action: ActionWrite, allow: true},
		{name: "manager read", role: RoleProjectManager, action: ActionRead, allow: false},
		{name: "manager write", role: RoleProjectManager, action: ActionWrite, allow: false},
		{name: "team member read", role: RoleTeamMember, action: ActionRead, allow: false},
		{name: "unknown role", role: Role("AUDITOR"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestHasRole(t *testing.T) {
	roles := []string{"TEAM_MEMBER", "PROJECT_MANAGER"}
	if !HasRole(roles, RoleProjectManager) {
		t.Fatalf("expected PROJECT_MANAGER in %v", roles)
	}
	if HasRole(roles, RoleAdmin) {
		t.Fatalf("did not expect ADMIN in %v", roles)
	}
	if HasRole(nil, RoleDirector) {
		t.Fatalf("did not expect DIRECTOR in nil roles")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("DIRECTOR"); got != RoleDirector {
		t.Fatalf("Normalize(DIRECTOR) = %q", got)
	}
	if got := Normalize("intern"); got != RoleTeamMember {
		t.Fatalf("Normalize(intern) = %q, want TEAM_MEMBER", got)
	}
}
