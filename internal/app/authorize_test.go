package app

import (
	"context"
	"database/sql"
	"testing"

	"github.com/hiennvn/vtnet-sample-2025/internal/rbac"
	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

type fakeAuthStore struct {
	members   map[[2]int64]store.ProjectMember
	folders   map[int64]store.Folder
	documents map[int64]store.Document
}

func (f *fakeAuthStore) GetProjectMember(_ context.Context, projectID, userID int64) (store.ProjectMember, error) {
	m, ok := f.members[[2]int64{projectID, userID}]
	if !ok {
		return store.ProjectMember{}, sql.ErrNoRows
	}
	return m, nil
}

func (f *fakeAuthStore) GetFolder(_ context.Context, folderID int64) (store.Folder, error) {
	fo, ok := f.folders[folderID]
	if !ok {
		return store.Folder{}, sql.ErrNoRows
	}
	return fo, nil
}

func (f *fakeAuthStore) GetDocument(_ context.Context, documentID int64) (store.Document, error) {
	d, ok := f.documents[documentID]
	if !ok {
		return store.Document{}, sql.ErrNoRows
	}
	return d, nil
}

func evalStore() *fakeAuthStore {
	return &fakeAuthStore{
		members: map[[2]int64]store.ProjectMember{
			{100, 1}: {ProjectID: 100, UserID: 1, Role: "PROJECT_MANAGER"},
			{100, 2}: {ProjectID: 100, UserID: 2, Role: "TEAM_MEMBER"},
		},
		folders:   map[int64]store.Folder{50: {ID: 50, ProjectID: 100}},
		documents: map[int64]store.Document{70: {ID: 70, FolderID: 50, ProjectID: 100}},
	}
}

func TestAuthorize(t *testing.T) {
	st := evalStore()
	tests := []struct {
		name      string
		principal Principal
		target    TargetType
		targetID  int64
		action    rbac.Action
		want      bool
	}{
		{"admin writes anything", Principal{UserID: 9, Roles: []string{"ADMIN"}}, TargetProject, 100, rbac.ActionWrite, true},
		{"admin reads missing target", Principal{UserID: 9, Roles: []string{"ADMIN"}}, TargetDocument, 999, rbac.ActionRead, true},

		{"user reads self", Principal{UserID: 3, Roles: []string{"TEAM_MEMBER"}}, TargetUser, 3, rbac.ActionRead, true},
		{"user writes self", Principal{UserID: 3, Roles: []string{"TEAM_MEMBER"}}, TargetUser, 3, rbac.ActionWrite, true},
		{"user cannot write another user", Principal{UserID: 3, Roles: []string{"TEAM_MEMBER"}}, TargetUser, 4, rbac.ActionWrite, false},
		{"director writes any user", Principal{UserID: 3, Roles: []string{"DIRECTOR"}}, TargetUser, 4, rbac.ActionWrite, true},
		{"manager reads other users", Principal{UserID: 3, Roles: []string{"PROJECT_MANAGER"}}, TargetUser, 4, rbac.ActionRead, true},
		{"manager cannot write other users", Principal{UserID: 3, Roles: []string{"PROJECT_MANAGER"}}, TargetUser, 4, rbac.ActionWrite, false},

		{"director reads any project", Principal{UserID: 3, Roles: []string{"DIRECTOR"}}, TargetProject, 100, rbac.ActionRead, true},
		{"director writes any project", Principal{UserID: 3, Roles: []string{"DIRECTOR"}}, TargetProject, 100, rbac.ActionWrite, true},
		{"member reads project", Principal{UserID: 2, Roles: []string{"TEAM_MEMBER"}}, TargetProject, 100, rbac.ActionRead, true},
		{"member cannot write project", Principal{UserID: 2, Roles: []string{"TEAM_MEMBER"}}, TargetProject, 100, rbac.ActionWrite, false},
		{"manager member writes project", Principal{UserID: 1, Roles: []string{"TEAM_MEMBER"}}, TargetProject, 100, rbac.ActionWrite, true},
		{"non-member denied", Principal{UserID: 3, Roles: []string{"TEAM_MEMBER"}}, TargetProject, 100, rbac.ActionRead, false},

		{"missing folder denies", Principal{UserID: 1, Roles: []string{"TEAM_MEMBER"}}, TargetFolder, 999, rbac.ActionRead, false},
		{"missing document denies", Principal{UserID: 1, Roles: []string{"TEAM_MEMBER"}}, TargetDocument, 999, rbac.ActionRead, false},
		{"unknown target denies", Principal{UserID: 1, Roles: []string{"DIRECTOR"}}, TargetType("WIDGET"), 1, rbac.ActionRead, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Authorize(context.Background(), st, tc.principal, tc.target, tc.targetID, tc.action)
			if err != nil {
				t.Fatalf("Authorize: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Authorize = %v, want %v", got, tc.want)
			}
		})
	}
}

// A folder or document decision must always equal the decision on its
// project, for every principal and action.
func TestAuthorizeDelegationMatchesProject(t *testing.T) {
	st := evalStore()
	principals := []Principal{
		{UserID: 1, Roles: []string{"TEAM_MEMBER"}},
		{UserID: 2, Roles: []string{"TEAM_MEMBER"}},
		{UserID: 3, Roles: []string{"TEAM_MEMBER"}},
		{UserID: 4, Roles: []string{"DIRECTOR"}},
	}
	for _, p := range principals {
		for _, action := range []rbac.Action{rbac.ActionRead, rbac.ActionWrite} {
			project, err := Authorize(context.Background(), st, p, TargetProject, 100, action)
			if err != nil {
				t.Fatal(err)
			}
			folder, err := Authorize(context.Background(), st, p, TargetFolder, 50, action)
			if err != nil {
				t.Fatal(err)
			}
			document, err := Authorize(context.Background(), st, p, TargetDocument, 70, action)
			if err != nil {
				t.Fatal(err)
			}
			if folder != project || document != project {
				t.Fatalf("user %d action %s: project=%v folder=%v document=%v", p.UserID, action, project, folder, document)
			}
		}
	}
}
