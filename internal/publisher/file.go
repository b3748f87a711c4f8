package publisher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ryosukesatoh/ai-daily-brief/internal/brief"
)

// FilePublisher writes the brief to a single HTML file, replacing it
// wholesale on every run.
type FilePublisher struct {
	path string
}

func NewFilePublisher(path string) *FilePublisher {
	return &FilePublisher{path: path}
}

func (p *FilePublisher) Path() string { return p.path }

// Publish writes doc atomically: the content goes to a temp file in the same
// directory which is then renamed over the target. On any error the previous
// file is left as it was.
func (p *FilePublisher) Publish(_ context.Context, doc *brief.Document) error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("file: failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("file: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(doc.HTML); err != nil {
		tmp.Close()
		return fmt.Errorf("file: failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("file: failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file: failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("file: failed to chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		return fmt.Errorf("file: failed to replace %s: %w", p.path, err)
	}

	log.Printf("Wrote brief to %s (%d bytes)", p.path, len(doc.HTML))
	return nil
}
