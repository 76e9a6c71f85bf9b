package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// openTestStore connects to the database named by PDMS_TEST_DATABASE_URL,
// resets the public schema and applies every migration. The returned store
// starts from an empty database.
func openTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := strings.TrimSpace(os.Getenv("PDMS_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("PDMS_TEST_DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPostgresStore(db)
}

func seedUser(t *testing.T, st *PostgresStore, name string) int64 {
	t.Helper()
	userID, err := st.CreateUser(context.Background(), User{
		Name:         name,
		Email:        strings.ToLower(name) + "@example.com",
		PasswordHash: "x",
	}, []string{"TEAM_MEMBER"})
	if err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return userID
}

func seedProject(t *testing.T, st *PostgresStore, createdBy int64) int64 {
	t.Helper()
	projectID, err := st.CreateProject(context.Background(), Project{
		Name:      fmt.Sprintf("Project %d", createdBy),
		Status:    "ACTIVE",
		CreatedBy: createdBy,
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return projectID
}

func TestLastManagerGuardPostgres(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, st, "Alice")
	bob := seedUser(t, st, "Bob")
	projectID := seedProject(t, st, alice)

	if err := st.AddProjectMember(ctx, ProjectMember{ProjectID: projectID, UserID: alice, Role: "PROJECT_MANAGER", AddedBy: alice}); err != nil {
		t.Fatalf("add manager: %v", err)
	}

	if err := st.RemoveProjectMember(ctx, projectID, alice); !errors.Is(err, ErrLastManager) {
		t.Fatalf("remove sole manager: err = %v, want ErrLastManager", err)
	}
	if err := st.UpdateProjectMemberRole(ctx, projectID, alice, "TEAM_MEMBER"); !errors.Is(err, ErrLastManager) {
		t.Fatalf("demote sole manager: err = %v, want ErrLastManager", err)
	}

	if err := st.AddProjectMember(ctx, ProjectMember{ProjectID: projectID, UserID: bob, Role: "PROJECT_MANAGER", AddedBy: alice}); err != nil {
		t.Fatalf("add second manager: %v", err)
	}
	if err := st.RemoveProjectMember(ctx, projectID, alice); err != nil {
		t.Fatalf("remove manager with a remaining manager: %v", err)
	}
	if _, err := st.GetProjectMember(ctx, projectID, alice); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("removed member still present: err = %v", err)
	}
}

func TestSaveExchangeUpsertsConversationPostgres(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, st, "Alice")
	projectID := seedProject(t, st, alice)

	folderID, err := st.CreateFolder(ctx, Folder{ProjectID: projectID, Name: "docs", CreatedBy: alice})
	if err != nil {
		t.Fatalf("seed folder: %v", err)
	}
	documentID, err := st.CreateDocument(ctx, Document{FolderID: folderID, Name: "plan.pdf", MimeType: "application/pdf", SizeBytes: 1, CreatedBy: alice})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}

	if _, _, err := st.SaveExchange(ctx, alice, &projectID, "first question", "first answer", nil); err != nil {
		t.Fatalf("first exchange: %v", err)
	}
	if _, _, err := st.SaveExchange(ctx, alice, &projectID, "second question", "second answer", []int64{documentID}); err != nil {
		t.Fatalf("second exchange: %v", err)
	}

	var conversations int
	if err := st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_conversations`).Scan(&conversations); err != nil {
		t.Fatalf("count conversations: %v", err)
	}
	if conversations != 1 {
		t.Fatalf("expected one conversation for the same scope, got %d", conversations)
	}

	// The global scope is a separate conversation.
	if _, _, err := st.SaveExchange(ctx, alice, nil, "global question", "global answer", nil); err != nil {
		t.Fatalf("global exchange: %v", err)
	}
	if err := st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_conversations`).Scan(&conversations); err != nil {
		t.Fatalf("count conversations: %v", err)
	}
	if conversations != 2 {
		t.Fatalf("expected a second conversation for the global scope, got %d", conversations)
	}

	messages, err := st.ListConversationMessages(ctx, alice, &projectID, 10)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(messages))
	}
	// Newest first, and each answer comes before its question even though
	// both rows share the transaction timestamp.
	wantTypes := []string{MessageBot, MessageUser, MessageBot, MessageUser}
	wantContent := []string{"second answer", "second question", "first answer", "first question"}
	for i, m := range messages {
		if m.Type != wantTypes[i] || m.Content != wantContent[i] {
			t.Fatalf("message[%d] = %s %q, want %s %q", i, m.Type, m.Content, wantTypes[i], wantContent[i])
		}
	}
	if len(messages[0].References) != 1 || messages[0].References[0].DocumentName != "plan.pdf" {
		t.Fatalf("references = %+v", messages[0].References)
	}
}

func TestAddDocumentVersionIncrementsPostgres(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, st, "Alice")
	projectID := seedProject(t, st, alice)
	folderID, err := st.CreateFolder(ctx, Folder{ProjectID: projectID, Name: "docs", CreatedBy: alice})
	if err != nil {
		t.Fatalf("seed folder: %v", err)
	}
	documentID, err := st.CreateDocument(ctx, Document{FolderID: folderID, Name: "plan.pdf", MimeType: "application/pdf", SizeBytes: 1, CreatedBy: alice})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}

	first, err := st.AddDocumentVersion(ctx, DocumentVersion{DocumentID: documentID, StoragePath: "a", SizeBytes: 1, CreatedBy: alice})
	if err != nil {
		t.Fatalf("first version: %v", err)
	}
	second, err := st.AddDocumentVersion(ctx, DocumentVersion{DocumentID: documentID, StoragePath: "b", SizeBytes: 1, CreatedBy: alice})
	if err != nil {
		t.Fatalf("second version: %v", err)
	}
	if first.VersionNumber != 1 || second.VersionNumber != 2 {
		t.Fatalf("version numbers = %d, %d, want 1, 2", first.VersionNumber, second.VersionNumber)
	}

	latest, err := st.GetLatestVersion(ctx, documentID)
	if err != nil {
		t.Fatalf("latest version: %v", err)
	}
	if latest.ID != second.ID {
		t.Fatalf("latest = %d, want %d", latest.ID, second.ID)
	}

	content, err := st.GetContentByVersion(ctx, second.ID)
	if err != nil {
		t.Fatalf("content for version: %v", err)
	}
	if content.Status != IndexPending {
		t.Fatalf("content status = %s, want %s", content.Status, IndexPending)
	}
}
