// Package codegen turns a task brief into the files of a single-page app:
// it prompts the language model once, extracts the markup from the
// completion and writes a README alongside it.
package codegen

import (
	"context"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/llm"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
)

// Generator produces a FileSet from a brief.
type Generator struct {
	completer   llm.Completer
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// NewGenerator wires a generator to a completion client.
func NewGenerator(completer llm.Completer, cfg config.LLMConfig, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		completer:   completer,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Generate calls the model exactly once. Any upstream failure, including an
// empty completion, is returned as a generation error.
func (g *Generator) Generate(ctx context.Context, brief string, attachments []Attachment, task string) (FileSet, error) {
	resp, err := g.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: BuildPrompt(task, brief, attachments)},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryGeneration, "code generation failed").
			WithContext("task", task).
			Build()
	}

	page := StripFences(resp.Content)
	if strings.TrimSpace(page) == "" {
		return nil, errors.GenerationError("model returned an empty page").
			WithContext("task", task).
			WithContext("finish_reason", resp.FinishReason).
			Build()
	}
	if !LooksLikeHTML(page) {
		g.logger.Warn("Generated page does not look like HTML", logfields.Task(task))
	}
	if resp.FinishReason == "length" {
		g.logger.Warn("Completion was truncated by the token limit", logfields.Task(task))
	}

	var files FileSet
	files.Put(EntryPage, []byte(page+"\n"))
	files.Put(Description, []byte(BuildReadme(task, brief, PageTitle(page))))
	return files, nil
}
