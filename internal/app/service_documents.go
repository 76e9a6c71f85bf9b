package app

import (
	"context"
	"io"
	"log"
	"strings"

	"github.com/hiennvn/vtnet-sample-2025/internal/rbac"
	"github.com/hiennvn/vtnet-sample-2025/internal/search"
	"github.com/hiennvn/vtnet-sample-2025/internal/storage"
	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

type CreateFolderInput struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parentId"`
}

type UploadInput struct {
	FolderID int64
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
}

func folderView(f store.Folder) map[string]any {
	return map[string]any{
		"id":        f.ID,
		"projectId": f.ProjectID,
		"parentId":  f.ParentID,
		"name":      f.Name,
		"createdAt": f.CreatedAt,
	}
}

func documentView(d store.Document) map[string]any {
	return map[string]any{
		"id":        d.ID,
		"folderId":  d.FolderID,
		"projectId": d.ProjectID,
		"name":      d.Name,
		"mimeType":  d.MimeType,
		"sizeBytes": d.SizeBytes,
		"createdAt": d.CreatedAt,
		"updatedAt": d.UpdatedAt,
	}
}

func versionView(v store.DocumentVersion) map[string]any {
	return map[string]any{
		"id":            v.ID,
		"documentId":    v.DocumentID,
		"versionNumber": v.VersionNumber,
		"sizeBytes":     v.SizeBytes,
		"createdBy":     v.CreatedBy,
		"createdAt":     v.CreatedAt,
	}
}

func (s *Service) CreateFolder(ctx context.Context, session Session, projectID int64, input CreateFolderInput) (map[string]any, error) {
	if err := s.authorize(ctx, session, TargetProject, projectID, rbac.ActionWrite); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errValidation("name is required")
	}
	if input.ParentID != nil {
		parent, err := s.store.GetFolder(ctx, *input.ParentID)
		if isNoRows(err) {
			return nil, errNotFound("Parent folder")
		}
		if err != nil {
			return nil, err
		}
		if parent.ProjectID != projectID {
			return nil, errValidation("parent folder belongs to a different project")
		}
	}

	folderID, err := s.store.CreateFolder(ctx, store.Folder{
		ProjectID: projectID,
		ParentID:  input.ParentID,
		Name:      name,
		CreatedBy: session.UserID,
	})
	if err != nil {
		return nil, err
	}
	folder, err := s.store.GetFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	return folderView(folder), nil
}

// ListFolders returns one level of the tree: root folders when parentID is
// nil, otherwise the children of that folder.
func (s *Service) ListFolders(ctx context.Context, session Session, projectID int64, parentID *int64) ([]map[string]any, error) {
	if err := s.authorize(ctx, session, TargetProject, projectID, rbac.ActionRead); err != nil {
		return nil, err
	}
	folders, err := s.store.ListFolders(ctx, projectID, parentID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(folders))
	for _, f := range folders {
		items = append(items, folderView(f))
	}
	return items, nil
}

func (s *Service) DeleteFolder(ctx context.Context, session Session, folderID int64) error {
	if err := s.authorize(ctx, session, TargetFolder, folderID, rbac.ActionWrite); err != nil {
		return err
	}
	if _, err := s.store.GetFolder(ctx, folderID); err != nil {
		if isNoRows(err) {
			return errNotFound("Folder")
		}
		return err
	}
	return s.store.DeleteFolder(ctx, folderID)
}

// UploadDocument stores the blob, then creates the document on first upload
// or appends a new version when a document of the same name already exists
// in the folder. Extraction runs in the background.
func (s *Service) UploadDocument(ctx context.Context, session Session, input UploadInput) (map[string]any, error) {
	if err := s.authorize(ctx, session, TargetFolder, input.FolderID, rbac.ActionWrite); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errValidation("file name is required")
	}

	folder, err := s.store.GetFolder(ctx, input.FolderID)
	if isNoRows(err) {
		return nil, errNotFound("Folder")
	}
	if err != nil {
		return nil, err
	}

	document, err := s.findDocumentByName(ctx, input.FolderID, name)
	if err != nil {
		return nil, err
	}
	if document == nil {
		documentID, err := s.store.CreateDocument(ctx, store.Document{
			FolderID:  input.FolderID,
			Name:      name,
			MimeType:  input.MimeType,
			SizeBytes: input.Size,
			CreatedBy: session.UserID,
		})
		if err != nil {
			return nil, err
		}
		created, err := s.store.GetDocument(ctx, documentID)
		if err != nil {
			return nil, err
		}
		created.ProjectID = folder.ProjectID
		document = &created
	}

	key := storage.ObjectKey(document.ID, newOpaqueToken(16))
	if err := s.blobs.Put(ctx, key, input.Body, input.Size, input.MimeType); err != nil {
		return nil, err
	}

	version, err := s.store.AddDocumentVersion(ctx, store.DocumentVersion{
		DocumentID:  document.ID,
		StoragePath: key,
		SizeBytes:   input.Size,
		CreatedBy:   session.UserID,
	})
	if err != nil {
		// The uploaded blob is unreferenced once the version insert fails.
		if removeErr := s.blobs.Remove(ctx, key); removeErr != nil {
			log.Printf("upload: orphaned blob %s not removed: %v", key, removeErr)
		}
		return nil, err
	}

	if s.indexer != nil {
		s.indexer.IndexVersionAsync(*document, version)
	}

	view := documentView(*document)
	view["version"] = versionView(version)
	return view, nil
}

func (s *Service) findDocumentByName(ctx context.Context, folderID int64, name string) (*store.Document, error) {
	documents, err := s.store.ListDocumentsByFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	for _, d := range documents {
		if strings.EqualFold(d.Name, name) {
			doc := d
			return &doc, nil
		}
	}
	return nil, nil
}

func (s *Service) GetDocument(ctx context.Context, session Session, documentID int64) (map[string]any, error) {
	if err := s.authorize(ctx, session, TargetDocument, documentID, rbac.ActionRead); err != nil {
		return nil, err
	}
	document, err := s.store.GetDocument(ctx, documentID)
	if isNoRows(err) {
		return nil, errNotFound("Document")
	}
	if err != nil {
		return nil, err
	}
	view := documentView(document)
	if version, err := s.store.GetLatestVersion(ctx, documentID); err == nil {
		view["version"] = versionView(version)
	}
	return view, nil
}

func (s *Service) ListFolderDocuments(ctx context.Context, session Session, folderID int64) ([]map[string]any, error) {
	if err := s.authorize(ctx, session, TargetFolder, folderID, rbac.ActionRead); err != nil {
		return nil, err
	}
	documents, err := s.store.ListDocumentsByFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(documents))
	for _, d := range documents {
		items = append(items, documentView(d))
	}
	return items, nil
}

func (s *Service) ListDocumentVersions(ctx context.Context, session Session, documentID int64) ([]map[string]any, error) {
	if err := s.authorize(ctx, session, TargetDocument, documentID, rbac.ActionRead); err != nil {
		return nil, err
	}
	versions, err := s.store.ListVersions(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(versions))
	for _, v := range versions {
		items = append(items, versionView(v))
	}
	return items, nil
}

// DownloadDocument streams the latest version's bytes. The caller must close
// the reader.
func (s *Service) DownloadDocument(ctx context.Context, session Session, documentID int64) (store.Document, io.ReadCloser, error) {
	if err := s.authorize(ctx, session, TargetDocument, documentID, rbac.ActionRead); err != nil {
		return store.Document{}, nil, err
	}
	document, err := s.store.GetDocument(ctx, documentID)
	if isNoRows(err) {
		return store.Document{}, nil, errNotFound("Document")
	}
	if err != nil {
		return store.Document{}, nil, err
	}
	version, err := s.store.GetLatestVersion(ctx, documentID)
	if isNoRows(err) {
		return store.Document{}, nil, errNotFound("Document version")
	}
	if err != nil {
		return store.Document{}, nil, err
	}
	body, err := s.blobs.Get(ctx, version.StoragePath)
	if err != nil {
		return store.Document{}, nil, err
	}
	return document, body, nil
}

func (s *Service) DeleteDocument(ctx context.Context, session Session, documentID int64) error {
	if err := s.authorize(ctx, session, TargetDocument, documentID, rbac.ActionWrite); err != nil {
		return err
	}
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		if isNoRows(err) {
			return errNotFound("Document")
		}
		return err
	}

	versions, err := s.store.ListVersions(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	for _, v := range versions {
		if err := s.blobs.Remove(ctx, v.StoragePath); err != nil {
			// Orphaned blobs are harmless; the database row is gone.
			continue
		}
	}
	if s.search != nil {
		s.search.DeleteDocument(documentID)
	}
	return nil
}

// SearchDocuments runs a full-text query scoped to the projects the caller
// may read.
func (s *Service) SearchDocuments(ctx context.Context, session Session, query string, limit, offset int) (search.Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return search.Response{Results: []search.Result{}}, nil
	}

	scope, err := s.readableProjectIDs(ctx, session)
	if err != nil {
		return search.Response{}, err
	}
	return s.search.Search(ctx, search.Query{
		Text:       query,
		ProjectIDs: scope,
		Limit:      limit,
		Offset:     offset,
	}), nil
}

// ReindexProject re-extracts and re-indexes the latest version of every
// document in a project.
func (s *Service) ReindexProject(ctx context.Context, session Session, projectID int64) (int, error) {
	if err := s.authorize(ctx, session, TargetProject, projectID, rbac.ActionWrite); err != nil {
		return 0, err
	}
	if s.indexer == nil {
		return 0, nil
	}
	return s.indexer.ReindexProject(ctx, projectID)
}

// RebuildSearchIndex bulk-pushes every extracted document into the search
// backend without re-running extraction.
func (s *Service) RebuildSearchIndex(ctx context.Context, session Session) (int, error) {
	if !rbac.HasRole(session.Roles, rbac.RoleAdmin) && !rbac.HasRole(session.Roles, rbac.RoleDirector) {
		return 0, errNotAuthorized()
	}
	contents, err := s.store.ListAllContents(ctx)
	if err != nil {
		return 0, err
	}
	records := make([]search.DocumentRecord, 0, len(contents))
	for _, c := range contents {
		doc, err := s.store.GetDocument(ctx, c.DocumentID)
		if isNoRows(err) {
			continue
		}
		if err != nil {
			return 0, err
		}
		records = append(records, search.DocumentRecord{
			ID:        doc.ID,
			Name:      doc.Name,
			ProjectID: doc.ProjectID,
			FolderID:  doc.FolderID,
			MimeType:  doc.MimeType,
			Content:   c.ContentText,
		})
	}
	s.search.ReindexAll(records)
	return len(records), nil
}

// readableProjectIDs returns nil for callers who can read everything, and
// the explicit member project set for everyone else.
func (s *Service) readableProjectIDs(ctx context.Context, session Session) ([]int64, error) {
	if rbac.HasRole(session.Roles, rbac.RoleAdmin) || rbac.HasRole(session.Roles, rbac.RoleDirector) {
		return nil, nil
	}
	projects, err := s.store.ListProjectsForUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	return ids, nil
}
