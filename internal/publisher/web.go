package publisher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ryosukesatoh/ai-daily-brief/internal/brief"
)

const placeholderPage = `<!DOCTYPE html><html><head><meta charset="utf-8"><title>AI Daily Brief</title></head>` +
	`<body><h1>AI Daily Brief</h1><p>No brief available yet. Check back later.</p></body></html>`

// WebPublisher keeps the most recent brief in memory and serves it at "/".
// Responses carry Last-Modified from the brief's generation time, so
// conditional and HEAD requests are answered without resending the page.
type WebPublisher struct {
	srv     *http.Server
	current atomic.Pointer[brief.Document]
}

func NewWebPublisher(addr string) *WebPublisher {
	wp := &WebPublisher{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", wp.serveBrief)
	mux.HandleFunc("GET /healthz", wp.serveHealth)
	wp.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return wp
}

// Start listens on the configured address and serves in the background.
func (wp *WebPublisher) Start() error {
	ln, err := net.Listen("tcp", wp.srv.Addr)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", wp.srv.Addr, err)
	}
	log.Printf("Serving latest brief on http://%s/", ln.Addr())
	go func() {
		if err := wp.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Web publisher stopped: %v", err)
		}
	}()
	return nil
}

func (wp *WebPublisher) Shutdown(ctx context.Context) error {
	return wp.srv.Shutdown(ctx)
}

// Publish swaps in doc as the page served from now on.
func (wp *WebPublisher) Publish(_ context.Context, doc *brief.Document) error {
	wp.current.Store(doc)
	return nil
}

func (wp *WebPublisher) serveBrief(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	doc := wp.current.Load()
	if doc == nil {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeContent(w, r, "index.html", time.Time{}, strings.NewReader(placeholderPage))
		return
	}
	http.ServeContent(w, r, "index.html", doc.GeneratedAt, strings.NewReader(doc.HTML))
}

func (wp *WebPublisher) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if wp.current.Load() == nil {
		fmt.Fprint(w, "ok (no brief yet)")
		return
	}
	fmt.Fprint(w, "ok")
}
