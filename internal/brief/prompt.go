package brief

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLookbackDays is how far back a brief reaches from the run date.
const DefaultLookbackDays = 3

// SystemPrompt biases the model toward emitting a bare HTML document.
const SystemPrompt = `You are a senior technology editor and front-end designer. ` +
	`You reply with one complete, self-contained HTML5 document and nothing else: ` +
	`no explanations, no Markdown, no commentary before or after the markup.`

// DefaultSections are the section quotas every brief asks for.
var DefaultSections = []SectionQuota{
	{Name: "Core Focus", Min: 3, Max: 3},
	{Name: "Technical Breakthroughs", Min: 6, Max: 8},
	{Name: "Industry & Business", Min: 4, Max: 6},
	{Name: "Research Papers", Min: 3, Max: 5},
	{Name: "Tools & Open Source", Min: 3, Max: 5},
}

// DefaultStyle steers the model's HTML/CSS output.
const DefaultStyle = `Visual style requirements:
- Single HTML file with all CSS inlined in one <style> tag; no external scripts, fonts or images.
- Color palette: background #0f172a, card background #1e293b, primary text #e2e8f0,
  secondary text #94a3b8, accent #38bdf8, highlight #f472b6, borders #334155.
- Layout: centered container max-width 1200px; responsive CSS grid of cards,
  grid-template-columns: repeat(auto-fill, minmax(340px, 1fr)); gap 24px.
- Cards: border-radius 16px; padding 24px; 1px solid border; box-shadow 0 4px 20px rgba(0,0,0,0.25);
  transition: transform 0.3s ease, box-shadow 0.3s ease.
- Card hover: transform: translateY(-6px) scale(1.02); box-shadow 0 12px 32px rgba(56,189,248,0.25).
- Header: gradient banner from #38bdf8 to #818cf8 with the title and the date range.
- Each section gets an <h2> with an emoji marker and a thin accent underline.
- Each item card shows: a bold headline, the publication date, a 2-3 sentence summary,
  a source name and a "Read more" link to the original article opened in a new tab.
- Footer with the generation date and a note that the content was compiled automatically.`

// NewRequest builds the request for a run executed at now.
func NewRequest(now time.Time, lookbackDays int) Request {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	sections := make([]SectionQuota, len(DefaultSections))
	copy(sections, DefaultSections)
	return Request{
		Window:          NewWindow(now, lookbackDays),
		StyleDirectives: DefaultStyle,
		Sections:        sections,
	}
}

// ComposePrompt renders the user prompt for req. Output depends only on req.
func ComposePrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Compile an AI news daily brief covering news published from %s to %s (inclusive).\n\n",
		req.Window.StartDate(), req.Window.EndDate()))

	sb.WriteString("Content requirements:\n")
	for i, s := range req.Sections {
		sb.WriteString(fmt.Sprintf("%d. %s: %s items\n", i+1, s.Name, s.Count()))
	}
	sb.WriteString(`
Only include real, verifiable news from the date range above. Do not repeat the same story
in more than one section. Every item must name its source and link to it.

`)

	sb.WriteString(req.StyleDirectives)
	sb.WriteString(fmt.Sprintf(`

The page title must be "AI Daily Brief | %s".
Return the complete HTML document inside a single `+"```html"+` code block.`, req.Window.EndDate()))

	return sb.String()
}
