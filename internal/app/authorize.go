package app

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hiennvn/vtnet-sample-2025/internal/rbac"
	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

// TargetType names the kind of entity an authorization check is about.
type TargetType string

const (
	TargetUser     TargetType = "USER"
	TargetProject  TargetType = "PROJECT"
	TargetFolder   TargetType = "FOLDER"
	TargetDocument TargetType = "DOCUMENT"
)

// Principal identifies the caller for authorization decisions.
type Principal struct {
	UserID int64
	Roles  []string
}

// authStore is the subset of the store the evaluator reads.
type authStore interface {
	GetProjectMember(ctx context.Context, projectID, userID int64) (store.ProjectMember, error)
	GetFolder(ctx context.Context, folderID int64) (store.Folder, error)
	GetDocument(ctx context.Context, documentID int64) (store.Document, error)
}

// Authorize decides whether the principal may perform action on the target.
// Folder and document checks delegate upward: a document inherits its
// folder's project, and project access is decided by global role plus
// membership. Unknown targets and missing rows deny rather than error.
func Authorize(ctx context.Context, st authStore, p Principal, target TargetType, targetID int64, action rbac.Action) (bool, error) {
	if rbac.HasRole(p.Roles, rbac.RoleAdmin) {
		return true, nil
	}

	switch target {
	case TargetUser:
		return authorizeUser(p, targetID, action), nil
	case TargetProject:
		return authorizeProject(ctx, st, p, targetID, action)
	case TargetFolder:
		folder, err := st.GetFolder(ctx, targetID)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return authorizeProject(ctx, st, p, folder.ProjectID, action)
	case TargetDocument:
		document, err := st.GetDocument(ctx, targetID)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return authorizeProject(ctx, st, p, document.ProjectID, action)
	}
	return false, nil
}

func authorizeUser(p Principal, targetID int64, action rbac.Action) bool {
	if p.UserID == targetID {
		return true
	}
	if rbac.HasRole(p.Roles, rbac.RoleDirector) {
		return true
	}
	if action == rbac.ActionRead && rbac.HasRole(p.Roles, rbac.RoleProjectManager) {
		return true
	}
	return false
}

func authorizeProject(ctx context.Context, st authStore, p Principal, projectID int64, action rbac.Action) (bool, error) {
	for _, r := range p.Roles {
		if rbac.Can(rbac.Normalize(r), action) {
			return true, nil
		}
	}

	member, err := st.GetProjectMember(ctx, projectID, p.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if action == rbac.ActionWrite {
		return member.Role == rbac.MemberRoleManager, nil
	}
	return true, nil
}
