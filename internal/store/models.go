package store

import "time"

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Role struct {
	ID   int64
	Name string
}

type Project struct {
	ID          int64
	Name        string
	Description string
	Status      string
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectMember carries a project-scoped role string, distinct from the
// user's global roles.
type ProjectMember struct {
	ProjectID int64
	UserID    int64
	UserName  string
	UserEmail string
	Role      string
	AddedBy   int64
	AddedAt   time.Time
}

type Folder struct {
	ID        int64
	ProjectID int64
	ParentID  *int64
	Name      string
	CreatedBy int64
	CreatedAt time.Time
}

type Document struct {
	ID        int64
	FolderID  int64
	ProjectID int64
	Name      string
	MimeType  string
	SizeBytes int64
	CreatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DocumentVersion struct {
	ID            int64
	DocumentID    int64
	VersionNumber int
	StoragePath   string
	SizeBytes     int64
	CreatedBy     int64
	CreatedAt     time.Time
}

// DocumentContent holds the text extracted from one version, produced by the
// indexing gateway and read by the chatbot.
type DocumentContent struct {
	ID           int64
	VersionID    int64
	DocumentID   int64
	DocumentName string
	Status       string
	ContentText  string
	IndexedAt    *time.Time
}

// Indexing statuses for DocumentContent.
const (
	IndexPending    = "PENDING"
	IndexProcessing = "PROCESSING"
	IndexCompleted  = "COMPLETED"
	IndexFailed     = "FAILED"
)

// ChatConversation threads a user's exchanges; ProjectID nil means the
// global conversation.
type ChatConversation struct {
	ID            int64
	UserID        int64
	ProjectID     *int64
	StartedAt     time.Time
	LastMessageAt time.Time
}

type ChatMessage struct {
	ID             int64
	ConversationID int64
	Type           string
	Content        string
	SentAt         time.Time
	References     []ChatReference
}

const (
	MessageUser = "USER"
	MessageBot  = "BOT"
)

type ChatReference struct {
	MessageID      int64
	DocumentID     int64
	DocumentName   string
	RelevanceScore float64
}
