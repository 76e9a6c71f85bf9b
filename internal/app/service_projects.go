package app

import (
	"context"
	"strings"

	"github.com/hiennvn/vtnet-sample-2025/internal/rbac"
	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

var allowedProjectStatuses = map[string]struct{}{
	"ACTIVE":    {},
	"COMPLETED": {},
	"ARCHIVED":  {},
}

type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func projectView(p store.Project) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"status":      p.Status,
		"createdBy":   p.CreatedBy,
		"createdAt":   p.CreatedAt,
		"updatedAt":   p.UpdatedAt,
	}
}

// ListProjects returns every project for directors and admins, and only
// member projects for everyone else.
func (s *Service) ListProjects(ctx context.Context, session Session, status string) ([]map[string]any, error) {
	var (
		projects []store.Project
		err      error
	)
	if rbac.HasRole(session.Roles, rbac.RoleAdmin) || rbac.HasRole(session.Roles, rbac.RoleDirector) {
		projects, err = s.store.ListProjects(ctx, normalizeStatusFilter(status))
	} else {
		projects, err = s.store.ListProjectsForUser(ctx, session.UserID)
	}
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(projects))
	for _, p := range projects {
		items = append(items, projectView(p))
	}
	return items, nil
}

func (s *Service) GetProject(ctx context.Context, session Session, projectID int64) (map[string]any, error) {
	if err := s.authorize(ctx, session, TargetProject, projectID, rbac.ActionRead); err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, projectID)
	if isNoRows(err) {
		return nil, errNotFound("Project")
	}
	if err != nil {
		return nil, err
	}
	return projectView(project), nil
}

func (s *Service) CreateProject(ctx context.Context, session Session, input ProjectInput) (map[string]any, error) {
	if !rbac.HasRole(session.Roles, rbac.RoleAdmin) && !rbac.HasRole(session.Roles, rbac.RoleDirector) {
		return nil, errNotAuthorized()
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errValidation("name is required")
	}
	status := strings.ToUpper(strings.TrimSpace(input.Status))
	if status == "" {
		status = "ACTIVE"
	}
	if _, ok := allowedProjectStatuses[status]; !ok {
		return nil, errValidation("status must be one of ACTIVE, COMPLETED, ARCHIVED")
	}

	projectID, err := s.store.CreateProject(ctx, store.Project{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		CreatedBy:   session.UserID,
	})
	if err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return projectView(project), nil
}

func (s *Service) UpdateProject(ctx context.Context, session Session, projectID int64, input ProjectInput) (map[string]any, error) {
	if err := s.authorize(ctx, session, TargetProject, projectID, rbac.ActionWrite); err != nil {
		return nil, err
	}
	current, err := s.store.GetProject(ctx, projectID)
	if isNoRows(err) {
		return nil, errNotFound("Project")
	}
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = current.Name
	}
	description := strings.TrimSpace(input.Description)
	if input.Description == "" {
		description = current.Description
	}
	status := strings.ToUpper(strings.TrimSpace(input.Status))
	if status == "" {
		status = current.Status
	}
	if _, ok := allowedProjectStatuses[status]; !ok {
		return nil, errValidation("status must be one of ACTIVE, COMPLETED, ARCHIVED")
	}

	if err := s.store.UpdateProject(ctx, projectID, name, description, status); err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return projectView(project), nil
}

func (s *Service) DeleteProject(ctx context.Context, session Session, projectID int64) error {
	if !rbac.HasRole(session.Roles, rbac.RoleAdmin) && !rbac.HasRole(session.Roles, rbac.RoleDirector) {
		return errNotAuthorized()
	}
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		if isNoRows(err) {
			return errNotFound("Project")
		}
		return err
	}
	return s.store.DeleteProject(ctx, projectID)
}

func normalizeStatusFilter(status string) string {
	status = strings.ToUpper(strings.TrimSpace(status))
	if _, ok := allowedProjectStatuses[status]; !ok {
		return ""
	}
	return status
}
