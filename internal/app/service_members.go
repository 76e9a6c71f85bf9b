package app

import (
	"context"
	"errors"
	"strings"

	"github.com/hiennvn/vtnet-sample-2025/internal/rbac"
	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

var allowedMemberRoles = map[string]struct{}{
	"PROJECT_MANAGER": {},
	"TEAM_MEMBER":     {},
}

type AddMemberInput struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
}

type UpdateMemberRoleInput struct {
	Role string `json:"role"`
}

func memberView(m store.ProjectMember) map[string]any {
	return map[string]any{
		"projectId": m.ProjectID,
		"userId":    m.UserID,
		"userName":  m.UserName,
		"userEmail": m.UserEmail,
		"role":      m.Role,
		"addedAt":   m.AddedAt,
	}
}

func (s *Service) ListProjectMembers(ctx context.Context, session Session, projectID int64) ([]map[string]any, error) {
	if err := s.authorize(ctx, session, TargetProject, projectID, rbac.ActionRead); err != nil {
		return nil, err
	}
	members, err := s.store.ListProjectMembers(ctx, projectID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(members))
	for _, m := range members {
		items = append(items, memberView(m))
	}
	return items, nil
}

func (s *Service) AddProjectMember(ctx context.Context, session Session, projectID int64, input AddMemberInput) (map[string]any, error) {
	if err := s.authorize(ctx, session, TargetProject, projectID, rbac.ActionWrite); err != nil {
		return nil, err
	}
	role, err := normalizeMemberRole(input.Role)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetUserByID(ctx, input.UserID); err != nil {
		if isNoRows(err) {
			return nil, errNotFound("User")
		}
		return nil, err
	}

	err = s.store.AddProjectMember(ctx, store.ProjectMember{
		ProjectID: projectID,
		UserID:    input.UserID,
		Role:      role,
		AddedBy:   session.UserID,
	})
	if errors.Is(err, store.ErrDuplicateMember) {
		return nil, errValidation("user is already a member of this project")
	}
	if err != nil {
		return nil, err
	}

	member, err := s.store.GetProjectMember(ctx, projectID, input.UserID)
	if err != nil {
		return nil, err
	}
	return memberView(member), nil
}

// UpdateProjectMemberRole changes a member's project role. Demoting the only
// manager is rejected.
func (s *Service) UpdateProjectMemberRole(ctx context.Context, session Session, projectID, userID int64, input UpdateMemberRoleInput) (map[string]any, error) {
	if err := s.authorize(ctx, session, TargetProject, projectID, rbac.ActionWrite); err != nil {
		return nil, err
	}
	role, err := normalizeMemberRole(input.Role)
	if err != nil {
		return nil, err
	}

	err = s.store.UpdateProjectMemberRole(ctx, projectID, userID, role)
	if errors.Is(err, store.ErrLastManager) {
		return nil, errInvariantViolation("a project must keep at least one PROJECT_MANAGER")
	}
	if isNoRows(err) {
		return nil, errNotFound("Project member")
	}
	if err != nil {
		return nil, err
	}

	member, err := s.store.GetProjectMember(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	return memberView(member), nil
}

// RemoveProjectMember drops a member. Removing the only manager is rejected.
func (s *Service) RemoveProjectMember(ctx context.Context, session Session, projectID, userID int64) error {
	if err := s.authorize(ctx, session, TargetProject, projectID, rbac.ActionWrite); err != nil {
		return err
	}

	err := s.store.RemoveProjectMember(ctx, projectID, userID)
	if errors.Is(err, store.ErrLastManager) {
		return errInvariantViolation("a project must keep at least one PROJECT_MANAGER")
	}
	if isNoRows(err) {
		return errNotFound("Project member")
	}
	return err
}

func normalizeMemberRole(role string) (string, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if _, ok := allowedMemberRoles[role]; !ok {
		return "", errValidation("role must be PROJECT_MANAGER or TEAM_MEMBER")
	}
	return role, nil
}
