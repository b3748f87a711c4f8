package brief

import "strings"

const fence = "```"

// fencedBlock is one opening/closing fence pair. info is the rest of the
// opening line; body runs to the closing fence or to the end of the text.
type fencedBlock struct {
	info string
	body string
}

// ExtractHTML pulls the markup out of a model reply. The first block tagged
// html wins, then the first untagged block; otherwise the reply is returned
// unchanged. Block interiors are trimmed.
func ExtractHTML(text string) string {
	blocks := fencedBlocks(text)
	for _, b := range blocks {
		if strings.EqualFold(b.info, "html") {
			return strings.TrimSpace(b.body)
		}
	}
	for _, b := range blocks {
		if b.info == "" {
			return strings.TrimSpace(b.body)
		}
	}
	return text
}

// fencedBlocks walks text pairing each opening fence with the next closing
// one. A closing fence is never read as an opening fence.
func fencedBlocks(text string) []fencedBlock {
	var blocks []fencedBlock
	rest := text
	for {
		open := strings.Index(rest, fence)
		if open < 0 {
			return blocks
		}
		rest = rest[open+len(fence):]

		var info string
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			info, rest = rest[:nl], rest[nl+1:]
		} else {
			info, rest = rest, ""
		}

		closing := strings.Index(rest, fence)
		if closing < 0 {
			return append(blocks, fencedBlock{info: strings.TrimSpace(info), body: rest})
		}
		blocks = append(blocks, fencedBlock{info: strings.TrimSpace(info), body: rest[:closing]})
		rest = rest[closing+len(fence):]
	}
}
