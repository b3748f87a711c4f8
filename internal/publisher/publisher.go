package publisher

import (
	"context"

	"github.com/ryosukesatoh/ai-daily-brief/internal/brief"
)

// Publisher publishes a brief to some output destination.
type Publisher interface {
	Publish(ctx context.Context, doc *brief.Document) error
}
