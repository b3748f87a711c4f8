package brief

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// ErrEmptyDocument is returned when the model reply holds no markup.
var ErrEmptyDocument = errors.New("model returned an empty document")

// Generator turns a run date into an HTML brief.
type Generator struct {
	completer    Completer
	lookbackDays int
}

func NewGenerator(c Completer, lookbackDays int) *Generator {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &Generator{completer: c, lookbackDays: lookbackDays}
}

// Window returns the news window for a run at now.
func (g *Generator) Window(now time.Time) Window {
	return NewWindow(now, g.lookbackDays)
}

// Generate composes the prompt for now, requests a completion and extracts
// the HTML document from it.
func (g *Generator) Generate(ctx context.Context, now time.Time) (*Document, error) {
	req := NewRequest(now, g.lookbackDays)
	prompt := ComposePrompt(req)
	log.Printf("Requesting brief for %s to %s (%d prompt chars)", req.Window.StartDate(), req.Window.EndDate(), len(prompt))

	completion, err := g.completer.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	html := ExtractHTML(completion.Content)
	if strings.TrimSpace(html) == "" {
		return nil, fmt.Errorf("brief: %w", ErrEmptyDocument)
	}

	return &Document{
		HTML:        html,
		Window:      req.Window,
		GeneratedAt: now,
		Model:       completion.Model,
		Usage:       completion.Usage,
	}, nil
}
