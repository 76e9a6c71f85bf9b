package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) CreateFolder(ctx context.Context, folder Folder) (int64, error) {
	var folderID int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO folders (project_id, parent_id, name, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, folder.ProjectID, folder.ParentID, folder.Name, folder.CreatedBy).Scan(&folderID)
	if err != nil {
		return 0, fmt.Errorf("insert folder: %w", err)
	}
	return folderID, nil
}

func (s *PostgresStore) GetFolder(ctx context.Context, folderID int64) (Folder, error) {
	var folder Folder
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, parent_id, name, created_by, created_at
		FROM folders
		WHERE id=$1
	`, folderID).Scan(&folder.ID, &folder.ProjectID, &folder.ParentID, &folder.Name, &folder.CreatedBy, &folder.CreatedAt)
	if err != nil {
		return Folder{}, err
	}
	return folder, nil
}

// ListFolders returns the root folders of a project when parentID is nil,
// otherwise the children of the given folder.
func (s *PostgresStore) ListFolders(ctx context.Context, projectID int64, parentID *int64) ([]Folder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, parent_id, name, created_by, created_at
		FROM folders
		WHERE project_id = $1
			AND (($2::BIGINT IS NULL AND parent_id IS NULL) OR parent_id = $2)
		ORDER BY name
	`, projectID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := make([]Folder, 0)
	for rows.Next() {
		var folder Folder
		if err := rows.Scan(&folder.ID, &folder.ProjectID, &folder.ParentID, &folder.Name, &folder.CreatedBy, &folder.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

func (s *PostgresStore) DeleteFolder(ctx context.Context, folderID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id=$1`, folderID)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	return nil
}

const documentColumns = `
	d.id, d.folder_id, f.project_id, d.name, d.mime_type, d.size_bytes,
	d.created_by, d.created_at, d.updated_at
`

func (s *PostgresStore) CreateDocument(ctx context.Context, document Document) (int64, error) {
	var documentID int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (folder_id, name, mime_type, size_bytes, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, document.FolderID, document.Name, document.MimeType, document.SizeBytes, document.CreatedBy).Scan(&documentID)
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	return documentID, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID int64) (Document, error) {
	var d Document
	err := s.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents d
		JOIN folders f ON f.id = d.folder_id
		WHERE d.id=$1
	`, documentID).Scan(
		&d.ID, &d.FolderID, &d.ProjectID, &d.Name, &d.MimeType, &d.SizeBytes,
		&d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	return d, nil
}

func (s *PostgresStore) ListDocumentsByFolder(ctx context.Context, folderID int64) ([]Document, error) {
	return s.listDocuments(ctx, `WHERE d.folder_id = $1`, folderID)
}

func (s *PostgresStore) ListDocumentsByProject(ctx context.Context, projectID int64) ([]Document, error) {
	return s.listDocuments(ctx, `WHERE f.project_id = $1`, projectID)
}

func (s *PostgresStore) listDocuments(ctx context.Context, where string, arg any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents d
		JOIN folders f ON f.id = d.folder_id
		`+where+`
		ORDER BY d.name
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	documents := make([]Document, 0)
	for rows.Next() {
		var d Document
		if err := rows.Scan(
			&d.ID, &d.FolderID, &d.ProjectID, &d.Name, &d.MimeType, &d.SizeBytes,
			&d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, d)
	}
	return documents, rows.Err()
}

// SearchDocuments is the ILIKE fallback used when the search index is down.
// A nil projectIDs slice means no project restriction.
func (s *PostgresStore) SearchDocuments(ctx context.Context, query string, projectIDs []int64, limit int) ([]Document, error) {
	scope := ""
	if projectIDs != nil {
		scope = `AND f.project_id = ANY('` + int64Array(projectIDs) + `'::BIGINT[])`
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT `+documentColumns+`
		FROM documents d
		JOIN folders f ON f.id = d.folder_id
		LEFT JOIN document_versions dv ON dv.document_id = d.id
		LEFT JOIN document_contents dc ON dc.version_id = dv.id
		WHERE (d.name ILIKE '%' || $1 || '%'
			OR (dc.status = 'COMPLETED' AND dc.content_text ILIKE '%' || $1 || '%'))
			`+scope+`
		ORDER BY d.name
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	documents := make([]Document, 0)
	for rows.Next() {
		var d Document
		if err := rows.Scan(
			&d.ID, &d.FolderID, &d.ProjectID, &d.Name, &d.MimeType, &d.SizeBytes,
			&d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, d)
	}
	return documents, rows.Err()
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, documentID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, documentID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// AddDocumentVersion appends the next version (count+1) and its pending
// content row in one transaction. The document row is locked so concurrent
// uploads cannot claim the same version number.
func (s *PostgresStore) AddDocumentVersion(ctx context.Context, version DocumentVersion) (DocumentVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return DocumentVersion{}, fmt.Errorf("begin add version: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM documents WHERE id=$1 FOR UPDATE)
	`, version.DocumentID).Scan(&exists); err != nil {
		return DocumentVersion{}, fmt.Errorf("lock document: %w", err)
	}
	if !exists {
		return DocumentVersion{}, fmt.Errorf("document %d not found", version.DocumentID)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO document_versions (document_id, version_number, storage_path, size_bytes, created_by)
		SELECT $1, COALESCE(MAX(version_number), 0) + 1, $2, $3, $4
		FROM document_versions WHERE document_id = $1
		RETURNING id, version_number, created_at
	`, version.DocumentID, version.StoragePath, version.SizeBytes, version.CreatedBy).Scan(
		&version.ID, &version.VersionNumber, &version.CreatedAt,
	)
	if err != nil {
		return DocumentVersion{}, fmt.Errorf("insert version: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO document_contents (version_id, status) VALUES ($1, 'PENDING')
	`, version.ID); err != nil {
		return DocumentVersion{}, fmt.Errorf("insert pending content: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET size_bytes=$2, updated_at=NOW() WHERE id=$1
	`, version.DocumentID, version.SizeBytes); err != nil {
		return DocumentVersion{}, fmt.Errorf("touch document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return DocumentVersion{}, fmt.Errorf("commit add version: %w", err)
	}
	return version, nil
}

func (s *PostgresStore) GetLatestVersion(ctx context.Context, documentID int64) (DocumentVersion, error) {
	var v DocumentVersion
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, version_number, storage_path, size_bytes, created_by, created_at
		FROM document_versions
		WHERE document_id = $1
		ORDER BY version_number DESC
		LIMIT 1
	`, documentID).Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.StoragePath, &v.SizeBytes, &v.CreatedBy, &v.CreatedAt)
	if err != nil {
		return DocumentVersion{}, err
	}
	return v, nil
}

func (s *PostgresStore) ListVersions(ctx context.Context, documentID int64) ([]DocumentVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, version_number, storage_path, size_bytes, created_by, created_at
		FROM document_versions
		WHERE document_id = $1
		ORDER BY version_number DESC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	versions := make([]DocumentVersion, 0)
	for rows.Next() {
		var v DocumentVersion
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.StoragePath, &v.SizeBytes, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
