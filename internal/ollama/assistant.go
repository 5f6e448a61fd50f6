package ollama

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// promptTail bounds how much of the book is sent as the prompt.
const promptTail = 4000

// Completer is the text-completion service an Assistant uses.
type Completer interface {
	ListModels(ctx context.Context) ([]Model, error)
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Document is the part of an editing session the Assistant needs.
type Document interface {
	Text() string
	Append(text string) error
}

// Assistant continues documents through a Completer. It keeps an
// availability flag: once the service is found unreachable, calls fail
// fast with ErrRemoteUnavailable until Refresh succeeds. Failures never
// touch the document.
type Assistant struct {
	svc       Completer
	logger    *slog.Logger
	available atomic.Bool

	mu     sync.Mutex
	models []string
	model  string
}

// NewAssistant returns an assistant over svc. It starts as available.
func NewAssistant(svc Completer, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a := &Assistant{svc: svc, logger: logger}
	a.available.Store(true)
	return a
}

// Available reports the availability flag.
func (a *Assistant) Available() bool { return a.available.Load() }

// Refresh reloads the model list and updates the availability flag. The
// first model becomes the selection if none is selected.
func (a *Assistant) Refresh(ctx context.Context) ([]string, error) {
	models, err := a.svc.ListModels(ctx)
	if err != nil {
		a.available.Store(false)
		a.logger.Warn("AI service unavailable", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}

	a.mu.Lock()
	a.models = names
	if a.model == "" && len(names) > 0 {
		a.model = names[0]
	}
	a.mu.Unlock()
	a.available.Store(true)
	return names, nil
}

// Select chooses the model used by Continue.
func (a *Assistant) Select(model string) {
	a.mu.Lock()
	a.model = model
	a.mu.Unlock()
}

// Model returns the selected model.
func (a *Assistant) Model() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model
}

// Continue generates a continuation of doc's text and appends it.
func (a *Assistant) Continue(ctx context.Context, doc Document) (string, error) {
	if !a.available.Load() {
		return "", ErrRemoteUnavailable
	}
	model := a.Model()
	if model == "" {
		return "", fmt.Errorf("%w: no model selected", ErrInvalidRequest)
	}

	prompt := doc.Text()
	if r := []rune(prompt); len(r) > promptTail {
		prompt = string(r[len(r)-promptTail:])
	}
	text, err := a.svc.Generate(ctx, model, prompt)
	if err != nil {
		if errors.Is(err, ErrRemoteUnavailable) {
			a.available.Store(false)
		}
		a.logger.Warn("AI continuation failed", "model", model, "err", err)
		return "", err
	}
	if err := doc.Append(text); err != nil {
		return "", err
	}
	return text, nil
}
