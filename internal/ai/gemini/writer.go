package gemini

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/autovagas/autovagas/internal/core"
	"github.com/autovagas/autovagas/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	defaultMaxRetries   = 2
	// Boards truncate long messages anyway.
	maxMessageRunes = 1200
)

// Writer drafts a short personalised apply message per listing.
type Writer struct {
	generator  contentGenerator
	maxRetries int
	maxLogLen  int
	logger     *zap.Logger
}

func NewWriter(generator contentGenerator, maxRetries, maxLogLength int, logger *zap.Logger) *Writer {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Writer{
		generator:  generator,
		maxRetries: maxRetries,
		maxLogLen:  maxLogLength,
		logger:     logger,
	}
}

func (w *Writer) WriteMessage(ctx context.Context, job *core.Job, profile *core.CandidateProfile) (string, error) {
	if job == nil {
		return "", fmt.Errorf("job is required")
	}
	if profile == nil {
		return "", fmt.Errorf("profile is required")
	}

	prompt := buildPrompt(job, profile)

	w.logger.Debug("requesting apply message",
		zap.String("job", job.Key().String()),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, w.maxLogLen)),
	)

	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		text, err := w.generator.GenerateContent(ctx, prompt)
		if err != nil {
			lastErr = err
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			lastErr = fmt.Errorf("empty message from model")
			continue
		}

		if utf8.RuneCountInString(text) > maxMessageRunes {
			runes := []rune(text)
			text = string(runes[:maxMessageRunes])
		}

		w.logger.Debug("got apply message",
			zap.String("job", job.Key().String()),
			zap.String("message_preview", utils.TruncateForLog(text, w.maxLogLen)),
		)

		return text, nil
	}

	return "", fmt.Errorf("write message after %d attempts: %w", w.maxRetries+1, lastErr)
}

func buildPrompt(job *core.Job, profile *core.CandidateProfile) string {
	replacer := strings.NewReplacer(
		"{{CANDIDATE_NAME}}", profile.Name,
		"{{CANDIDATE_SKILLS}}", strings.Join(profile.Skills, ", "),
		"{{JOB_TITLE}}", job.Title,
		"{{JOB_COMPANY}}", job.Company,
		"{{JOB_DESCRIPTION}}", job.Description,
	)

	return replacer.Replace(promptTemplate)
}
