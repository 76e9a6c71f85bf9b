package app

import (
	"context"
	"strings"

	"github.com/hiennvn/vtnet-sample-2025/internal/chatbot"
	"github.com/hiennvn/vtnet-sample-2025/internal/rbac"
	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

type AskInput struct {
	Question string `json:"question"`
	// DocumentName scopes the question to one document by name, bypassing
	// title detection on the question text.
	DocumentName string `json:"documentName"`
}

func messageView(m store.ChatMessage) map[string]any {
	refs := make([]map[string]any, 0, len(m.References))
	for _, r := range m.References {
		refs = append(refs, map[string]any{
			"documentId":     r.DocumentID,
			"documentName":   r.DocumentName,
			"relevanceScore": r.RelevanceScore,
		})
	}
	return map[string]any{
		"id":         m.ID,
		"type":       m.Type,
		"content":    m.Content,
		"sentAt":     m.SentAt,
		"references": refs,
	}
}

func (s *Service) AskProjectQuestion(ctx context.Context, session Session, projectID int64, input AskInput) (chatbot.Answer, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return chatbot.Answer{}, errValidation("question is required")
	}
	if err := s.authorize(ctx, session, TargetProject, projectID, rbac.ActionRead); err != nil {
		return chatbot.Answer{}, err
	}
	if name := strings.TrimSpace(input.DocumentName); name != "" {
		return s.chat.AskAboutDocument(ctx, session.UserID, &projectID, name, question)
	}
	return s.chat.AskProjectQuestion(ctx, session.UserID, projectID, question)
}

func (s *Service) AskDocumentQuestion(ctx context.Context, session Session, documentID int64, input AskInput) (chatbot.Answer, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return chatbot.Answer{}, errValidation("question is required")
	}
	if err := s.authorize(ctx, session, TargetDocument, documentID, rbac.ActionRead); err != nil {
		return chatbot.Answer{}, err
	}
	return s.chat.AskDocumentQuestion(ctx, session.UserID, documentID, question)
}

// AskGlobalQuestion answers across every document the caller can read:
// everything for directors and admins, member projects for everyone else.
func (s *Service) AskGlobalQuestion(ctx context.Context, session Session, input AskInput) (chatbot.Answer, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return chatbot.Answer{}, errValidation("question is required")
	}
	if name := strings.TrimSpace(input.DocumentName); name != "" {
		return s.chat.AskAboutDocument(ctx, session.UserID, nil, name, question)
	}

	scope, err := s.readableProjectIDs(ctx, session)
	if err != nil {
		return chatbot.Answer{}, err
	}

	var contents []store.DocumentContent
	if scope == nil {
		contents, err = s.store.ListAllContents(ctx)
		if err != nil {
			return chatbot.Answer{}, err
		}
	} else {
		for _, projectID := range scope {
			batch, err := s.store.ListProjectContents(ctx, projectID)
			if err != nil {
				return chatbot.Answer{}, err
			}
			contents = append(contents, batch...)
		}
	}

	return s.chat.AskGlobalQuestion(ctx, session.UserID, question, contents)
}

// ChatHistory returns the caller's conversation, project-scoped when
// projectID is set, newest first.
func (s *Service) ChatHistory(ctx context.Context, session Session, projectID *int64, limit int) ([]map[string]any, error) {
	if projectID != nil {
		if err := s.authorize(ctx, session, TargetProject, *projectID, rbac.ActionRead); err != nil {
			return nil, err
		}
	}
	messages, err := s.chat.History(ctx, session.UserID, projectID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		items = append(items, messageView(m))
	}
	return items, nil
}
