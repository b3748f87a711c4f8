package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ryosukesatoh/ai-daily-brief/internal/brief"
	"github.com/ryosukesatoh/ai-daily-brief/internal/history"
	"github.com/ryosukesatoh/ai-daily-brief/internal/publisher"
)

// Generator produces the brief for a run started at now.
type Generator interface {
	Window(now time.Time) brief.Window
	Generate(ctx context.Context, now time.Time) (*brief.Document, error)
}

// Recorder stores the outcome of a run.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Runner orchestrates the generate -> persist -> publish pipeline.
type Runner struct {
	generator  Generator
	output     *publisher.FilePublisher
	publishers []publisher.Publisher
	recorder   Recorder
	now        func() time.Time
}

// New builds a Runner. output is the brief file and must succeed for a run to
// count; pubs are best effort. recorder may be nil.
func New(g Generator, output *publisher.FilePublisher, pubs []publisher.Publisher, recorder Recorder) *Runner {
	return &Runner{
		generator:  g,
		output:     output,
		publishers: pubs,
		recorder:   recorder,
		now:        time.Now,
	}
}

// Run executes the full pipeline once.
func (r *Runner) Run(ctx context.Context) error {
	started := r.now()
	run := history.Run{StartedAt: started, OutputPath: r.output.Path()}

	err := r.run(ctx, started, &run)

	run.DurationMs = time.Since(started).Milliseconds()
	run.Success = err == nil
	if err != nil {
		run.ErrorReason = err.Error()
	}
	r.record(ctx, run)

	return err
}

func (r *Runner) run(ctx context.Context, started time.Time, run *history.Run) error {
	window := r.generator.Window(started)
	run.WindowStart, run.WindowEnd = window.StartDate(), window.EndDate()

	log.Println("Generating brief...")
	doc, err := r.generator.Generate(ctx, started)
	if err != nil {
		return fmt.Errorf("runner: generate failed: %w", err)
	}
	run.WindowStart, run.WindowEnd = doc.Window.StartDate(), doc.Window.EndDate()
	run.Model = doc.Model
	run.PromptTokens = doc.Usage.PromptTokens
	run.CompletionTokens = doc.Usage.CompletionTokens
	log.Printf("Generated brief for %s to %s (%d bytes, %d completion tokens)",
		run.WindowStart, run.WindowEnd, len(doc.HTML), doc.Usage.CompletionTokens)

	if err := r.output.Publish(ctx, doc); err != nil {
		return fmt.Errorf("runner: persist failed: %w", err)
	}
	run.Bytes = int64(len(doc.HTML))

	// Continue with other publishers even if one fails
	var publishErrors []error
	for _, pub := range r.publishers {
		log.Printf("Publishing via %T...", pub)
		if err := pub.Publish(ctx, doc); err != nil {
			publishError := fmt.Errorf("publish via %T failed: %w", pub, err)
			publishErrors = append(publishErrors, publishError)
			log.Printf("WARNING: %v", publishError)
		} else {
			log.Printf("Successfully published via %T", pub)
		}
	}

	if len(publishErrors) > 0 {
		log.Printf("Pipeline completed with %d publisher failures out of %d publishers", len(publishErrors), len(r.publishers))
	} else {
		log.Println("Pipeline completed successfully")
	}

	return nil
}

func (r *Runner) record(ctx context.Context, run history.Run) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Record(ctx, run); err != nil {
		log.Printf("WARNING: failed to record run: %v", err)
	}
}
