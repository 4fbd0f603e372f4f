package structurer

import (
	"fmt"
	"strings"

	"github.com/dgallion1/checkgest/internal/doctree"
)

const SystemPrompt = `You convert extracted document text into a checklist tree. Return a single JSON object with this shape:

{
  "title": "document title (string, max 100 characters)",
  "content": "body text that is neither a heading nor an actionable item (string, may be empty)",
  "children": [ <objects of the same shape> ],
  "checklist": [
    {"text": "actionable item (string)", "summary": "optional short form", "detail": "optional detail", "is_checked": false, "score": 1}
  ]
}

Rules:
- Separate headings, checklist items and body text. Headings become children, body text goes to "content".
- Checklist items must be concrete and verifiable actions. Do not invent items that are not in the text.
- Keep the document order. Keep section numbering in titles.
- Nest at most 6 levels deep.
- "is_checked" is always false and "score" is always 1.

Respond with ONLY the JSON object, no other text.`

// EstimateTokens gives a rough token count: about 1.33 tokens per word, and
// never less than one per four runes so unspaced scripts are not undercounted.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	tokens := int(float64(len(strings.Fields(text))) * 1.33)
	if byRunes := len([]rune(text)) / 4; byRunes > tokens {
		tokens = byRunes
	}
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// BuildPrompt lists the fragments with their typography hints. Fragments are
// added in order until maxTokens would be exceeded; the second return value
// reports how many made it in.
func BuildPrompt(title string, frags []doctree.Fragment, maxTokens int) (string, int) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Document: %q\n\nConvert the following text blocks into the checklist tree.\n\n", title)

	budget := maxTokens - EstimateTokens(SystemPrompt) - EstimateTokens(sb.String())
	used := 0
	for i, f := range frags {
		block := formatBlock(i+1, f)
		cost := EstimateTokens(block)
		if maxTokens > 0 && cost > budget {
			break
		}
		budget -= cost
		sb.WriteString(block)
		used++
	}
	return sb.String(), used
}

func formatBlock(n int, f doctree.Fragment) string {
	var hints []string
	if f.FontSize > 0 {
		hints = append(hints, fmt.Sprintf("size=%.1f", f.FontSize))
	}
	if f.Bold {
		hints = append(hints, "bold")
	}
	if f.Style != "" {
		hints = append(hints, fmt.Sprintf("style=%q", f.Style))
	}
	if f.Page > 0 {
		hints = append(hints, fmt.Sprintf("page=%d", f.Page))
	}
	if len(hints) == 0 {
		return fmt.Sprintf("[%d] %s\n", n, f.Text)
	}
	return fmt.Sprintf("[%d] (%s) %s\n", n, strings.Join(hints, ", "), f.Text)
}
