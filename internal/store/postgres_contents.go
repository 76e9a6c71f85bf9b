package store

import (
	"context"
	"fmt"
)

const contentColumns = `
	dc.id, dc.version_id, d.id, d.name, dc.status, dc.content_text, dc.indexed_at
`

func (s *PostgresStore) GetContentByVersion(ctx context.Context, versionID int64) (DocumentContent, error) {
	var c DocumentContent
	err := s.db.QueryRowContext(ctx, `
		SELECT `+contentColumns+`
		FROM document_contents dc
		JOIN document_versions dv ON dv.id = dc.version_id
		JOIN documents d ON d.id = dv.document_id
		WHERE dc.version_id = $1
	`, versionID).Scan(&c.ID, &c.VersionID, &c.DocumentID, &c.DocumentName, &c.Status, &c.ContentText, &c.IndexedAt)
	if err != nil {
		return DocumentContent{}, err
	}
	return c, nil
}

func (s *PostgresStore) SetContentStatus(ctx context.Context, versionID int64, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE document_contents SET status=$2 WHERE version_id=$1
	`, versionID, status)
	if err != nil {
		return fmt.Errorf("set content status: %w", err)
	}
	return nil
}

func (s *PostgresStore) CompleteContent(ctx context.Context, versionID int64, text string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE document_contents
		SET status='COMPLETED', content_text=$2, indexed_at=NOW()
		WHERE version_id=$1
	`, versionID, text)
	if err != nil {
		return fmt.Errorf("complete content: %w", err)
	}
	return nil
}

// ListProjectContents returns the extracted text of the latest completed
// version of every document in a project, ordered by document name so the
// assembled context is deterministic.
func (s *PostgresStore) ListProjectContents(ctx context.Context, projectID int64) ([]DocumentContent, error) {
	return s.listContents(ctx, `WHERE f.project_id = $1`, projectID)
}

// ListAllContents returns the latest completed content of every document.
func (s *PostgresStore) ListAllContents(ctx context.Context) ([]DocumentContent, error) {
	return s.listContents(ctx, ``)
}

func (s *PostgresStore) listContents(ctx context.Context, where string, args ...any) ([]DocumentContent, error) {
	query := `
		SELECT ` + contentColumns + `
		FROM (
			SELECT DISTINCT ON (dv.document_id) dv.id AS version_id
			FROM document_versions dv
			ORDER BY dv.document_id, dv.version_number DESC
		) latest
		JOIN document_contents dc ON dc.version_id = latest.version_id
		JOIN document_versions dv ON dv.id = latest.version_id
		JOIN documents d ON d.id = dv.document_id
		JOIN folders f ON f.id = d.folder_id
		` + where + `
	`
	if where == "" {
		query += ` WHERE dc.status = 'COMPLETED'`
	} else {
		query += ` AND dc.status = 'COMPLETED'`
	}
	query += ` ORDER BY d.name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	defer rows.Close()

	contents := make([]DocumentContent, 0)
	for rows.Next() {
		var c DocumentContent
		if err := rows.Scan(&c.ID, &c.VersionID, &c.DocumentID, &c.DocumentName, &c.Status, &c.ContentText, &c.IndexedAt); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		contents = append(contents, c)
	}
	return contents, rows.Err()
}

// FindLatestContentByName resolves a document by name (case-insensitive),
// optionally scoped to a project, to its latest version's extracted text.
func (s *PostgresStore) FindLatestContentByName(ctx context.Context, name string, projectID *int64) (DocumentContent, error) {
	var c DocumentContent
	err := s.db.QueryRowContext(ctx, `
		SELECT `+contentColumns+`
		FROM documents d
		JOIN folders f ON f.id = d.folder_id
		JOIN document_versions dv ON dv.document_id = d.id
		JOIN document_contents dc ON dc.version_id = dv.id
		WHERE LOWER(d.name) = LOWER($1)
			AND ($2::BIGINT IS NULL OR f.project_id = $2)
			AND dc.status = 'COMPLETED'
		ORDER BY dv.version_number DESC
		LIMIT 1
	`, name, projectID).Scan(&c.ID, &c.VersionID, &c.DocumentID, &c.DocumentName, &c.Status, &c.ContentText, &c.IndexedAt)
	if err != nil {
		return DocumentContent{}, err
	}
	return c, nil
}
