package app

import (
	"context"
	"strings"

	"github.com/hiennvn/vtnet-sample-2025/internal/authpw"
	"github.com/hiennvn/vtnet-sample-2025/internal/rbac"
	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

type CreateUserInput struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

type UpdateUserInput struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

func userView(u store.User) map[string]any {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return map[string]any{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"roles":     roles,
		"createdAt": u.CreatedAt,
	}
}

func (s *Service) ListUsers(ctx context.Context, session Session, query string) ([]map[string]any, error) {
	if !rbac.HasRole(session.Roles, rbac.RoleAdmin) &&
		!rbac.HasRole(session.Roles, rbac.RoleDirector) &&
		!rbac.HasRole(session.Roles, rbac.RoleProjectManager) {
		return nil, errNotAuthorized()
	}
	users, err := s.store.ListUsers(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(users))
	for _, u := range users {
		items = append(items, userView(u))
	}
	return items, nil
}

func (s *Service) GetUser(ctx context.Context, session Session, userID int64) (map[string]any, error) {
	if err := s.authorize(ctx, session, TargetUser, userID, rbac.ActionRead); err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if isNoRows(err) {
		return nil, errNotFound("User")
	}
	if err != nil {
		return nil, err
	}
	return userView(user), nil
}

// CreateUser is restricted to directors and admins; role strings outside the
// closed set are rejected.
func (s *Service) CreateUser(ctx context.Context, session Session, input CreateUserInput) (map[string]any, error) {
	if !rbac.HasRole(session.Roles, rbac.RoleAdmin) && !rbac.HasRole(session.Roles, rbac.RoleDirector) {
		return nil, errNotAuthorized()
	}

	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return nil, errValidation("name and email are required")
	}
	if len(input.Password) < 8 {
		return nil, errValidation("password must be at least 8 characters")
	}
	roles, err := validateRoles(input.Roles)
	if err != nil {
		return nil, err
	}

	hash, err := authpw.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	userID, err := s.store.CreateUser(ctx, store.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}, roles)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userView(user), nil
}

func (s *Service) UpdateUser(ctx context.Context, session Session, userID int64, input UpdateUserInput) (map[string]any, error) {
	if err := s.authorize(ctx, session, TargetUser, userID, rbac.ActionWrite); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errValidation("name is required")
	}

	var roles []string
	if input.Roles != nil {
		// Only directors and admins may reassign roles; a user editing
		// their own profile cannot escalate.
		if !rbac.HasRole(session.Roles, rbac.RoleAdmin) && !rbac.HasRole(session.Roles, rbac.RoleDirector) {
			return nil, errNotAuthorized()
		}
		validated, err := validateRoles(input.Roles)
		if err != nil {
			return nil, err
		}
		roles = validated
	}

	if err := s.store.UpdateUser(ctx, userID, name, roles); err != nil {
		if isNoRows(err) {
			return nil, errNotFound("User")
		}
		return nil, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userView(user), nil
}

func (s *Service) DeleteUser(ctx context.Context, session Session, userID int64) error {
	if !rbac.HasRole(session.Roles, rbac.RoleAdmin) && !rbac.HasRole(session.Roles, rbac.RoleDirector) {
		return errNotAuthorized()
	}
	if session.UserID == userID {
		return errValidation("you cannot delete your own account")
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if isNoRows(err) {
			return errNotFound("User")
		}
		return err
	}
	return s.store.DeleteUser(ctx, userID)
}

func (s *Service) ListRoles(ctx context.Context, session Session) ([]store.Role, error) {
	if !rbac.HasRole(session.Roles, rbac.RoleAdmin) && !rbac.HasRole(session.Roles, rbac.RoleDirector) {
		return nil, errNotAuthorized()
	}
	return s.store.ListRoles(ctx)
}

func validateRoles(roles []string) ([]string, error) {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		role := strings.ToUpper(strings.TrimSpace(r))
		if rbac.Normalize(role) != rbac.Role(role) {
			return nil, errValidation("unknown role: " + r)
		}
		out = append(out, role)
	}
	return out, nil
}
