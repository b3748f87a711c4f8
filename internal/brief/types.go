package brief

import (
	"context"
	"strconv"
	"time"
)

// DateLayout is the format used for window boundaries in prompts and titles.
const DateLayout = "2006-01-02"

// Window is an inclusive range of calendar days.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns the window [now-days, now], truncated to calendar days in
// now's location.
func NewWindow(now time.Time, days int) Window {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return Window{
		Start: end.AddDate(0, 0, -days),
		End:   end,
	}
}

func (w Window) StartDate() string { return w.Start.Format(DateLayout) }

func (w Window) EndDate() string { return w.End.Format(DateLayout) }

// SectionQuota is the number of news items requested for one brief section.
// Min == Max means a fixed count.
type SectionQuota struct {
	Name string
	Min  int
	Max  int
}

// Count renders the quota as "3" or "6-8".
func (q SectionQuota) Count() string {
	if q.Min == q.Max {
		return strconv.Itoa(q.Min)
	}
	return strconv.Itoa(q.Min) + "-" + strconv.Itoa(q.Max)
}

// Request describes one brief to generate. It is built fresh for every run.
type Request struct {
	Window          Window
	StyleDirectives string
	Sections        []SectionQuota
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// Completion is the raw text returned by the model.
type Completion struct {
	Content string
	Model   string
	Usage   Usage
}

// Document is the extracted HTML brief, the only artifact a run persists.
type Document struct {
	HTML        string
	Window      Window
	GeneratedAt time.Time
	Model       string
	Usage       Usage
}

// Completer submits a system and user prompt to a chat-completion model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (*Completion, error)
}
