package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *PostgresStore) CreateProject(ctx context.Context, project Project) (int64, error) {
	var projectID int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO projects (name, description, status, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, project.Name, project.Description, project.Status, project.CreatedBy).Scan(&projectID)
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}
	return projectID, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID int64) (Project, error) {
	var project Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, status, created_by, created_at, updated_at
		FROM projects
		WHERE id=$1
	`, projectID).Scan(
		&project.ID, &project.Name, &project.Description, &project.Status,
		&project.CreatedBy, &project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		return Project{}, err
	}
	return project, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, status string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, status, created_by, created_at, updated_at
		FROM projects
		WHERE $1 = '' OR status = $1
		ORDER BY updated_at DESC
	`, status)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]Project, 0)
	for rows.Next() {
		var project Project
		if err := rows.Scan(
			&project.ID, &project.Name, &project.Description, &project.Status,
			&project.CreatedBy, &project.CreatedAt, &project.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (s *PostgresStore) ListProjectsForUser(ctx context.Context, userID int64) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.status, p.created_by, p.created_at, p.updated_at
		FROM projects p
		JOIN project_members pm ON pm.project_id = p.id
		WHERE pm.user_id = $1
		ORDER BY p.updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects for user: %w", err)
	}
	defer rows.Close()

	projects := make([]Project, 0)
	for rows.Next() {
		var project Project
		if err := rows.Scan(
			&project.ID, &project.Name, &project.Description, &project.Status,
			&project.CreatedBy, &project.CreatedAt, &project.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (s *PostgresStore) UpdateProject(ctx context.Context, projectID int64, name, description, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET name=$2, description=$3, status=$4, updated_at=NOW()
		WHERE id=$1
	`, projectID, name, description, status)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteProject(ctx context.Context, projectID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, projectID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListProjectMembers(ctx context.Context, projectID int64) ([]ProjectMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pm.project_id, pm.user_id, u.name, u.email, pm.role, pm.added_by, pm.added_at
		FROM project_members pm
		JOIN users u ON u.id = pm.user_id
		WHERE pm.project_id = $1
		ORDER BY pm.added_at
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}
	defer rows.Close()

	members := make([]ProjectMember, 0)
	for rows.Next() {
		var m ProjectMember
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.UserName, &m.UserEmail, &m.Role, &m.AddedBy, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("scan project member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *PostgresStore) GetProjectMember(ctx context.Context, projectID, userID int64) (ProjectMember, error) {
	var m ProjectMember
	err := s.db.QueryRowContext(ctx, `
		SELECT pm.project_id, pm.user_id, u.name, u.email, pm.role, pm.added_by, pm.added_at
		FROM project_members pm
		JOIN users u ON u.id = pm.user_id
		WHERE pm.project_id = $1 AND pm.user_id = $2
	`, projectID, userID).Scan(&m.ProjectID, &m.UserID, &m.UserName, &m.UserEmail, &m.Role, &m.AddedBy, &m.AddedAt)
	if err != nil {
		return ProjectMember{}, err
	}
	return m, nil
}

func (s *PostgresStore) AddProjectMember(ctx context.Context, member ProjectMember) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, role, added_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, user_id) DO NOTHING
	`, member.ProjectID, member.UserID, member.Role, member.AddedBy)
	if err != nil {
		return fmt.Errorf("add project member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("add project member: %w", err)
	}
	if affected == 0 {
		return ErrDuplicateMember
	}
	return nil
}

// UpdateProjectMemberRole changes a member's project role. The last-manager
// check runs inside the same transaction, with the manager rows locked, so
// two concurrent demotions cannot both pass the count.
func (s *PostgresStore) UpdateProjectMemberRole(ctx context.Context, projectID, userID int64, role string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update member role: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, managers, err := memberAndManagerCount(ctx, tx, projectID, userID)
	if err != nil {
		return err
	}
	if current == MemberRoleManagerValue && role != MemberRoleManagerValue && managers <= 1 {
		return ErrLastManager
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE project_members SET role=$3 WHERE project_id=$1 AND user_id=$2
	`, projectID, userID, role); err != nil {
		return fmt.Errorf("update member role: %w", err)
	}

	return tx.Commit()
}

// RemoveProjectMember deletes a membership, rejecting removal of the sole
// remaining manager inside the same transaction.
func (s *PostgresStore) RemoveProjectMember(ctx context.Context, projectID, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove member: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, managers, err := memberAndManagerCount(ctx, tx, projectID, userID)
	if err != nil {
		return err
	}
	if current == MemberRoleManagerValue && managers <= 1 {
		return ErrLastManager
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM project_members WHERE project_id=$1 AND user_id=$2
	`, projectID, userID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	return tx.Commit()
}

// MemberRoleManagerValue mirrors rbac.MemberRoleManager; duplicated here so
// store has no dependency on the rbac package.
const MemberRoleManagerValue = "PROJECT_MANAGER"

func memberAndManagerCount(ctx context.Context, tx *sql.Tx, projectID, userID int64) (string, int, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT user_id, role
		FROM project_members
		WHERE project_id = $1 AND role = $2
		FOR UPDATE
	`, projectID, MemberRoleManagerValue)
	if err != nil {
		return "", 0, fmt.Errorf("lock manager rows: %w", err)
	}
	defer rows.Close()

	managers := 0
	currentRole := ""
	for rows.Next() {
		var id int64
		var role string
		if err := rows.Scan(&id, &role); err != nil {
			return "", 0, fmt.Errorf("scan manager row: %w", err)
		}
		managers++
		if id == userID {
			currentRole = role
		}
	}
	if err := rows.Err(); err != nil {
		return "", 0, fmt.Errorf("iterate manager rows: %w", err)
	}

	if currentRole == "" {
		err := tx.QueryRowContext(ctx, `
			SELECT role FROM project_members WHERE project_id=$1 AND user_id=$2
		`, projectID, userID).Scan(&currentRole)
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, sql.ErrNoRows
		}
		if err != nil {
			return "", 0, fmt.Errorf("read member role: %w", err)
		}
	}
	return currentRole, managers, nil
}
