package chatbot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

// degradedAnswer masks generation-backend failures. The exchange is still
// persisted so it shows up in history.
const degradedAnswer = "Sorry, there was an error processing your request. Please try again later."

const defaultHistoryLimit = 50

// Generator produces answer text. Implemented by ai.OpenAI.
type Generator interface {
	GenerateAnswer(ctx context.Context, question, promptContext string) (string, error)
	GenerateAnswerWithSources(ctx context.Context, question string, references map[int64]string) (string, error)
}

// dataStore is the subset of the store the chatbot needs.
type dataStore interface {
	ListProjectContents(ctx context.Context, projectID int64) ([]store.DocumentContent, error)
	ListAllContents(ctx context.Context) ([]store.DocumentContent, error)
	FindLatestContentByName(ctx context.Context, name string, projectID *int64) (store.DocumentContent, error)
	GetDocument(ctx context.Context, documentID int64) (store.Document, error)
	GetLatestVersion(ctx context.Context, documentID int64) (store.DocumentVersion, error)
	GetContentByVersion(ctx context.Context, versionID int64) (store.DocumentContent, error)
	SaveExchange(ctx context.Context, userID int64, projectID *int64, question, answer string, citedDocumentIDs []int64) (userMessageID, botMessageID int64, err error)
	ListConversationMessages(ctx context.Context, userID int64, projectID *int64, limit int) ([]store.ChatMessage, error)
}

// Answer is one completed question/answer exchange.
type Answer struct {
	Text    string   `json:"response"`
	Sources []Source `json:"sources"`
}

// Source identifies a document the answer drew on.
type Source struct {
	DocumentID   int64  `json:"documentId"`
	DocumentName string `json:"documentName"`
}

type Service struct {
	store dataStore
	gen   Generator
}

func NewService(st dataStore, gen Generator) *Service {
	return &Service{store: st, gen: gen}
}

// AskProjectQuestion answers a question scoped to one project's documents.
// When the question names a single document it is answered from that document
// alone; otherwise the whole project's extracted text forms the context.
func (s *Service) AskProjectQuestion(ctx context.Context, userID, projectID int64, question string) (Answer, error) {
	if title := ExtractDocumentTitle(question); title != "" {
		return s.askNamedDocument(ctx, userID, &projectID, title, question)
	}

	contents, err := s.store.ListProjectContents(ctx, projectID)
	if err != nil {
		return Answer{}, fmt.Errorf("list project contents: %w", err)
	}
	return s.askWithContents(ctx, userID, &projectID, question, contents)
}

// AskGlobalQuestion answers across every document the caller may read. The
// contents slice is pre-filtered by the caller's authorization layer.
func (s *Service) AskGlobalQuestion(ctx context.Context, userID int64, question string, contents []store.DocumentContent) (Answer, error) {
	if title := ExtractDocumentTitle(question); title != "" {
		return s.askNamedDocument(ctx, userID, nil, title, question)
	}
	return s.askWithContents(ctx, userID, nil, question, contents)
}

// AskDocumentQuestion answers a question about one document by id.
func (s *Service) AskDocumentQuestion(ctx context.Context, userID, documentID int64, question string) (Answer, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return Answer{}, fmt.Errorf("get document: %w", err)
	}
	version, err := s.store.GetLatestVersion(ctx, documentID)
	if err != nil {
		return Answer{}, fmt.Errorf("latest version: %w", err)
	}
	content, err := s.store.GetContentByVersion(ctx, version.ID)
	if err != nil || content.Status != store.IndexCompleted {
		return s.persistAnswer(ctx, userID, &doc.ProjectID, question,
			fmt.Sprintf("Document '%s' not found or you don't have access to it.", doc.Name), nil)
	}
	return s.askSingleDocument(ctx, userID, &doc.ProjectID, question, content)
}

// AskAboutDocument answers a question about one document addressed by name,
// for requests that carry the document name explicitly instead of embedding
// it in the question.
func (s *Service) AskAboutDocument(ctx context.Context, userID int64, projectID *int64, documentName, question string) (Answer, error) {
	return s.askNamedDocument(ctx, userID, projectID, strings.TrimSpace(documentName), question)
}

// History returns the caller's conversation in the given scope, newest first.
func (s *Service) History(ctx context.Context, userID int64, projectID *int64, limit int) ([]store.ChatMessage, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.ListConversationMessages(ctx, userID, projectID, limit)
}

func (s *Service) askNamedDocument(ctx context.Context, userID int64, projectID *int64, title, question string) (Answer, error) {
	content, err := s.store.FindLatestContentByName(ctx, title, projectID)
	if err != nil {
		return s.persistAnswer(ctx, userID, projectID, question,
			fmt.Sprintf("Document '%s' not found or you don't have access to it.", title), nil)
	}
	return s.askSingleDocument(ctx, userID, projectID, question, content)
}

// askSingleDocument grounds the answer in exactly one document, so the
// generator is given the rendered context directly and the lone document is
// the source.
func (s *Service) askSingleDocument(ctx context.Context, userID int64, projectID *int64, question string, content store.DocumentContent) (Answer, error) {
	promptContext, included := BuildContext([]store.DocumentContent{content})

	text, err := s.gen.GenerateAnswer(ctx, question, promptContext)
	if err != nil {
		log.Printf("chatbot: generation failed: %v", err)
		return s.persistAnswer(ctx, userID, projectID, question, degradedAnswer, nil)
	}

	sources := []Source{}
	if name, ok := included[content.DocumentID]; ok {
		sources = append(sources, Source{DocumentID: content.DocumentID, DocumentName: name})
	}
	return s.persistAnswer(ctx, userID, projectID, question, text, sources)
}

func (s *Service) askWithContents(ctx context.Context, userID int64, projectID *int64, question string, contents []store.DocumentContent) (Answer, error) {
	snippets, names := BuildSnippets(contents)

	text, err := s.gen.GenerateAnswerWithSources(ctx, question, snippets)
	if err != nil {
		log.Printf("chatbot: generation failed: %v", err)
		return s.persistAnswer(ctx, userID, projectID, question, degradedAnswer, nil)
	}

	sources := []Source{}
	for _, id := range ExtractCitations(text) {
		name, ok := names[id]
		if !ok {
			continue
		}
		sources = append(sources, Source{DocumentID: id, DocumentName: name})
	}

	return s.persistAnswer(ctx, userID, projectID, question, text, sources)
}

func (s *Service) persistAnswer(ctx context.Context, userID int64, projectID *int64, question, answer string, sources []Source) (Answer, error) {
	if sources == nil {
		sources = []Source{}
	}
	cited := make([]int64, 0, len(sources))
	for _, src := range sources {
		cited = append(cited, src.DocumentID)
	}
	if _, _, err := s.store.SaveExchange(ctx, userID, projectID, question, answer, cited); err != nil {
		return Answer{}, fmt.Errorf("save exchange: %w", err)
	}
	return Answer{Text: answer, Sources: sources}, nil
}
