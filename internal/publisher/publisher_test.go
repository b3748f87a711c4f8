package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ryosukesatoh/ai-daily-brief/internal/brief"
)

const sampleHTML = `<!DOCTYPE html><html><head><title>AI Daily Brief | 2025-03-10</title></head><body>
<h2 class="section">🔥 Core <em>Focus</em></h2><div class="card">item</div>
<h2>🛠 Tools &amp; Open Source</h2><div class="card">item</div>
</body></html>`

func sampleDocument() *brief.Document {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	return &brief.Document{
		HTML:        sampleHTML,
		Window:      brief.NewWindow(now, 3),
		GeneratedAt: now,
		Model:       "deepseek-chat",
	}
}

func TestFilePublish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "index.html")
	pub := NewFilePublisher(path)

	if err := pub.Publish(context.Background(), sampleDocument()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if string(data) != sampleHTML {
		t.Errorf("Expected file content to equal the document HTML, got %q", string(data))
	}
}

func TestFilePublishOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte("<html>yesterday, much longer than today</html>"), 0o644); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	doc := sampleDocument()
	doc.HTML = "<html>today</html>"
	if err := NewFilePublisher(path).Publish(context.Background(), doc); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "<html>today</html>" {
		t.Errorf("Expected full overwrite, got %q", string(data))
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("Expected no temp files left behind, found %d entries", len(entries))
	}
}

func TestFilePublishFailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	// The target is a directory, so the final rename must fail.
	path := filepath.Join(dir, "index.html")
	if err := os.MkdirAll(filepath.Join(path, "child"), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	err := NewFilePublisher(path).Publish(context.Background(), sampleDocument())
	if err == nil {
		t.Fatal("Expected error when target cannot be replaced")
	}

	info, statErr := os.Stat(path)
	if statErr != nil || !info.IsDir() {
		t.Errorf("Expected original target to be untouched")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected temp file to be cleaned up, found %d entries", len(entries))
	}
}

func serve(wp *WebPublisher, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	wp.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestWebPublisher(t *testing.T) {
	wp := NewWebPublisher(":0")

	rec := serve(wp, http.MethodGet, "/", nil)
	if !strings.Contains(rec.Body.String(), "No brief available yet") {
		t.Errorf("Expected placeholder page before first publish, got %q", rec.Body.String())
	}
	if rec := serve(wp, http.MethodGet, "/healthz", nil); rec.Body.String() != "ok (no brief yet)" {
		t.Errorf("Unexpected health body before first publish: %q", rec.Body.String())
	}

	doc := sampleDocument()
	if err := wp.Publish(context.Background(), doc); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	rec = serve(wp, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != sampleHTML {
		t.Errorf("Expected latest brief to be served, got %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Unexpected content type %q", ct)
	}
	if lm := rec.Header().Get("Last-Modified"); lm != doc.GeneratedAt.UTC().Format(http.TimeFormat) {
		t.Errorf("Expected Last-Modified from generation time, got %q", lm)
	}

	if rec := serve(wp, http.MethodGet, "/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", rec.Code)
	}
	if rec := serve(wp, http.MethodPost, "/", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST, got %d", rec.Code)
	}
	if rec := serve(wp, http.MethodGet, "/healthz", nil); rec.Body.String() != "ok" {
		t.Errorf("Expected health check 'ok', got %q", rec.Body.String())
	}
}

func TestWebPublisherConditionalGet(t *testing.T) {
	wp := NewWebPublisher(":0")
	doc := sampleDocument()
	wp.Publish(context.Background(), doc)

	header := http.Header{"If-Modified-Since": {doc.GeneratedAt.UTC().Format(http.TimeFormat)}}
	rec := serve(wp, http.MethodGet, "/", header)
	if rec.Code != http.StatusNotModified {
		t.Errorf("Expected 304 for an unchanged brief, got %d", rec.Code)
	}

	newer := sampleDocument()
	newer.GeneratedAt = doc.GeneratedAt.Add(24 * time.Hour)
	newer.HTML = "<html>tomorrow</html>"
	wp.Publish(context.Background(), newer)

	rec = serve(wp, http.MethodGet, "/", header)
	if rec.Code != http.StatusOK || rec.Body.String() != "<html>tomorrow</html>" {
		t.Errorf("Expected the newer brief after republish, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestEmailPublish(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	pub := NewEmailPublisher("smtp.example.com", 587, "user", "pass", "brief@example.com", []string{"a@example.com", "b@example.com"})
	pub.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := pub.Publish(context.Background(), sampleDocument()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if gotAddr != "smtp.example.com:587" {
		t.Errorf("Unexpected SMTP address %q", gotAddr)
	}
	if gotFrom != "brief@example.com" || len(gotTo) != 2 {
		t.Errorf("Unexpected envelope from=%q to=%v", gotFrom, gotTo)
	}
	msg := string(gotMsg)
	for _, want := range []string{
		"Subject: AI Daily Brief - 2025-03-10\r\n",
		"To: a@example.com,b@example.com\r\n",
		"Content-Type: text/html; charset=\"UTF-8\"",
		sampleHTML,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected message to contain %q", want)
		}
	}
}

func TestEmailPublishError(t *testing.T) {
	pub := NewEmailPublisher("smtp.example.com", 587, "", "", "brief@example.com", []string{"a@example.com"})
	pub.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := pub.Publish(context.Background(), sampleDocument())
	if err == nil || !strings.Contains(err.Error(), "email: failed to send") {
		t.Fatalf("Expected wrapped send error, got: %v", err)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		check func(string) bool
		desc  string
	}{
		{
			name:  "short string unchanged",
			input: "hello",
			max:   10,
			check: func(s string) bool { return s == "hello" },
			desc:  "expected 'hello'",
		},
		{
			name:  "long string truncated with ellipsis",
			input: "This is a very long string that should be truncated",
			max:   20,
			check: func(s string) bool { return len([]rune(s)) == 20 && strings.HasSuffix(s, "…") },
			desc:  "expected 20 characters ending with ellipsis",
		},
		{
			name:  "truncation prefers sentence boundary",
			input: "A long enough first sentence. The rest is extra padding text here.",
			max:   40,
			check: func(s string) bool { return s == "A long enough first sentence." },
			desc:  "expected truncation at sentence boundary",
		},
		{
			name:  "multibyte characters are not split",
			input: strings.Repeat("新", 30),
			max:   10,
			check: func(s string) bool { return s == strings.Repeat("新", 9)+"…" },
			desc:  "expected 9 runes plus ellipsis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := truncate(tt.input, tt.max)
			if !tt.check(result) {
				t.Errorf("%s, got %q", tt.desc, result)
			}
		})
	}
}

func TestSectionHeadings(t *testing.T) {
	got := sectionHeadings(sampleHTML)
	want := []string{"🔥 Core Focus", "🛠 Tools & Open Source"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d headings, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("heading[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFormatBulletsEmpty(t *testing.T) {
	if result := formatBullets(nil); result != "" {
		t.Errorf("Expected empty string for nil items, got %q", result)
	}
}

func TestDiscordPublishWithMockWebhook(t *testing.T) {
	var receivedPayloads []discordWebhookPayload

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type application/json, got %q", r.Header.Get("Content-Type"))
		}

		body, _ := io.ReadAll(r.Body)
		var payload discordWebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("Failed to parse webhook payload: %v", err)
		}
		receivedPayloads = append(receivedPayloads, payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	pub := &DiscordPublisher{
		webhookURL: ts.URL,
		pageURL:    "https://example.github.io/ai-daily-news/",
		client:     ts.Client(),
	}

	if err := pub.Publish(context.Background(), sampleDocument()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if len(receivedPayloads) != 1 || len(receivedPayloads[0].Embeds) != 1 {
		t.Fatalf("Expected one payload with one embed, got %+v", receivedPayloads)
	}

	e := receivedPayloads[0].Embeds[0]
	if e.Title != "AI Daily Brief: 2025-03-10" {
		t.Errorf("Unexpected title %q", e.Title)
	}
	if e.URL != "https://example.github.io/ai-daily-news/" {
		t.Errorf("Expected page URL to be linked, got %q", e.URL)
	}
	if !strings.Contains(e.Description, "2025-03-07 to 2025-03-10") {
		t.Errorf("Expected description to carry the window, got %q", e.Description)
	}
	if len(e.Fields) != 1 || !strings.Contains(e.Fields[0].Value, "• 🔥 Core Focus") {
		t.Errorf("Expected section list field, got %+v", e.Fields)
	}
}

func TestDiscordPublishWebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	pub := &DiscordPublisher{
		webhookURL: ts.URL,
		client:     ts.Client(),
	}

	err := pub.Publish(context.Background(), sampleDocument())
	if err == nil {
		t.Fatal("Expected error for webhook failure")
	}
	if !strings.Contains(err.Error(), "unexpected status 400") {
		t.Errorf("Expected 'unexpected status 400' error, got: %v", err)
	}
}
