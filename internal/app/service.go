package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hiennvn/vtnet-sample-2025/internal/auth"
	"github.com/hiennvn/vtnet-sample-2025/internal/authpw"
	"github.com/hiennvn/vtnet-sample-2025/internal/chatbot"
	"github.com/hiennvn/vtnet-sample-2025/internal/config"
	"github.com/hiennvn/vtnet-sample-2025/internal/indexing"
	"github.com/hiennvn/vtnet-sample-2025/internal/rbac"
	"github.com/hiennvn/vtnet-sample-2025/internal/search"
	"github.com/hiennvn/vtnet-sample-2025/internal/storage"
	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       int64
	UserName     string
	UserEmail    string
	Roles        []string
	ExpiresAt    time.Time
}

func (s Session) Principal() Principal {
	return Principal{UserID: s.UserID, Roles: s.Roles}
}

// dataStore is everything the service layer asks of the database.
type dataStore interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user store.User, roles []string) (int64, error)
	GetUserByID(ctx context.Context, userID int64) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	ListUsers(ctx context.Context, search string) ([]store.User, error)
	UpdateUser(ctx context.Context, userID int64, name string, roles []string) error
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error
	DeleteUser(ctx context.Context, userID int64) error
	CountUsers(ctx context.Context) (int, error)
	ListRoles(ctx context.Context) ([]store.Role, error)

	CreateProject(ctx context.Context, project store.Project) (int64, error)
	GetProject(ctx context.Context, projectID int64) (store.Project, error)
	ListProjects(ctx context.Context, status string) ([]store.Project, error)
	ListProjectsForUser(ctx context.Context, userID int64) ([]store.Project, error)
	UpdateProject(ctx context.Context, projectID int64, name, description, status string) error
	DeleteProject(ctx context.Context, projectID int64) error

	ListProjectMembers(ctx context.Context, projectID int64) ([]store.ProjectMember, error)
	GetProjectMember(ctx context.Context, projectID, userID int64) (store.ProjectMember, error)
	AddProjectMember(ctx context.Context, member store.ProjectMember) error
	UpdateProjectMemberRole(ctx context.Context, projectID, userID int64, role string) error
	RemoveProjectMember(ctx context.Context, projectID, userID int64) error

	CreateFolder(ctx context.Context, folder store.Folder) (int64, error)
	GetFolder(ctx context.Context, folderID int64) (store.Folder, error)
	ListFolders(ctx context.Context, projectID int64, parentID *int64) ([]store.Folder, error)
	DeleteFolder(ctx context.Context, folderID int64) error

	CreateDocument(ctx context.Context, document store.Document) (int64, error)
	GetDocument(ctx context.Context, documentID int64) (store.Document, error)
	ListDocumentsByFolder(ctx context.Context, folderID int64) ([]store.Document, error)
	ListDocumentsByProject(ctx context.Context, projectID int64) ([]store.Document, error)
	DeleteDocument(ctx context.Context, documentID int64) error
	AddDocumentVersion(ctx context.Context, version store.DocumentVersion) (store.DocumentVersion, error)
	GetLatestVersion(ctx context.Context, documentID int64) (store.DocumentVersion, error)
	ListVersions(ctx context.Context, documentID int64) ([]store.DocumentVersion, error)

	ListProjectContents(ctx context.Context, projectID int64) ([]store.DocumentContent, error)
	ListAllContents(ctx context.Context) ([]store.DocumentContent, error)
}

// SessionStore keeps refresh tokens. Redis in production, the database as
// fallback when Redis is not configured.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (int64, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  SessionStore
	passwords *authpw.Service
	chat      *chatbot.Service
	search    *search.Service
	blobs     storage.ObjectStore
	indexer   *indexing.Indexer
}

func New(cfg config.Config, dataStore *store.PostgresStore, sessions SessionStore, chat *chatbot.Service, searchService *search.Service, blobs storage.ObjectStore, indexer *indexing.Indexer) *Service {
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		sessions:  sessions,
		passwords: authpw.NewService(dataStore),
		chat:      chat,
		search:    searchService,
		blobs:     blobs,
		indexer:   indexer,
	}
}

// Bootstrap seeds the admin account on an empty database.
func (s *Service) Bootstrap(ctx context.Context) error {
	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if s.cfg.AdminPassword == "" {
		log.Println("app: no users and no admin password configured, skipping admin seed")
		return nil
	}

	hash, err := authpw.HashPassword(s.cfg.AdminPassword)
	if err != nil {
		return err
	}
	_, err = s.store.CreateUser(ctx, store.User{
		Name:         "Administrator",
		Email:        s.cfg.AdminEmail,
		PasswordHash: hash,
	}, []string{string(rbac.RoleAdmin)})
	if err != nil {
		return err
	}
	log.Printf("app: seeded admin account %s", s.cfg.AdminEmail)
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.passwords.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates the refresh token: the presented token is revoked and a
// fresh pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
}

func (s *Service) ChangePassword(ctx context.Context, session Session, currentPassword, newPassword string) error {
	err := s.passwords.ChangePassword(ctx, session.UserID, session.UserEmail, currentPassword, newPassword)
	if errors.Is(err, authpw.ErrInvalidCredentials) {
		return errValidation("current password is incorrect")
	}
	return err
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Roles: user.Roles,
		JTI:   newOpaqueToken(8),
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := newOpaqueToken(32)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.Name,
		UserEmail:    user.Email,
		Roles:        user.Roles,
		ExpiresAt:    expiresAt,
	}, nil
}

// SessionFromToken reconstructs a session from a bearer token. Roles come
// from the claims, so a role change takes effect on the next sign-in or
// refresh.
func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserEmail: claims.Email,
		Roles:     claims.Roles,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// authorize runs the evaluator and maps a denial to NOT_AUTHORIZED.
func (s *Service) authorize(ctx context.Context, session Session, target TargetType, targetID int64, action rbac.Action) error {
	allowed, err := Authorize(ctx, s.store, session.Principal(), target, targetID, action)
	if err != nil {
		return fmt.Errorf("authorize %s %d: %w", target, targetID, err)
	}
	if !allowed {
		return errNotAuthorized()
	}
	return nil
}

func newOpaqueToken(bytes int) string {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
