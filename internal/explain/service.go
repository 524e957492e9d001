package explain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pucet-prep/backend/internal/content"
	"github.com/pucet-prep/backend/internal/models"
	"go.uber.org/zap"
)

var (
	ErrUnavailable      = errors.New("explanation service unavailable")
	ErrInvalid          = errors.New("invalid request")
	ErrQuestionNotFound = errors.New("question not found")
)

// QuestionSource reads a single question. *content.Service satisfies it.
type QuestionSource interface {
	GetQuestion(ctx context.Context, id int64) (*models.Question, error)
}

type Service struct {
	questions QuestionSource
	llm       LLMClient
	logger    *zap.Logger
}

// NewService accepts a nil llm; every call then fails with ErrUnavailable.
func NewService(questions QuestionSource, llm LLMClient, logger *zap.Logger) *Service {
	return &Service{questions: questions, llm: llm, logger: logger}
}

func (s *Service) Available() bool { return s.llm != nil }

// Explain asks the model to walk through a question, noting the learner's
// pick when one is given.
func (s *Service) Explain(ctx context.Context, req models.ExplainRequest) (string, error) {
	if req.QuestionID <= 0 {
		return "", fmt.Errorf("%w: question ID is required", ErrInvalid)
	}

	q, err := s.questions.GetQuestion(ctx, req.QuestionID)
	if errors.Is(err, content.ErrNotFound) {
		return "", ErrQuestionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load question: %w", err)
	}
	if req.UserChoice != nil && (*req.UserChoice < 0 || *req.UserChoice >= len(q.Options)) {
		return "", fmt.Errorf("%w: userChoice must be between 0 and %d", ErrInvalid, len(q.Options)-1)
	}

	if s.llm == nil {
		return "", ErrUnavailable
	}

	resp, err := s.llm.Generate(ctx, tutorSystemPrompt, BuildExplainPrompt(q, req.UserChoice))
	if err != nil {
		return "", fmt.Errorf("generate explanation: %w", err)
	}
	s.logger.Debug("explanation generated",
		zap.Int64("question_id", q.ID),
		zap.Int("prompt_tokens", resp.PromptTokens),
		zap.Int("output_tokens", resp.OutputTokens),
	)
	return resp.Content, nil
}

// Assist answers a free-form admin request about content authoring.
func (s *Service) Assist(ctx context.Context, req models.AssistRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", fmt.Errorf("%w: message is required", ErrInvalid)
	}
	if s.llm == nil {
		return "", ErrUnavailable
	}

	resp, err := s.llm.Generate(ctx, BuildAssistSystemPrompt(req.Context), req.Message)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return resp.Content, nil
}
