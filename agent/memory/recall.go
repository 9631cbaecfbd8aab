package memory

import (
	"fmt"
	"strings"
)

const DefaultMaxMessages = 10

// RecallOptions selects records for a recall. FullRecall ignores the other fields.
type RecallOptions struct {
	FullRecall  bool
	MaxMessages int
	Keywords    []string
}

// Recall renders the records of doc as the bullet list handed to the model.
func Recall(doc Document, scope Scope, opts RecallOptions) string {
	if len(doc) == 0 {
		if scope.Shared() {
			return "I don't have any memories stored in the shared memory yet."
		}
		return fmt.Sprintf("I don't have any memories stored yet for user ID %s.", scope.Token)
	}

	records := doc.Records()
	if len(records) == 0 {
		return "No memories found for this session."
	}

	if opts.FullRecall {
		return "All memories " + source(scope) + ":\n" + renderLines(records)
	}

	limit := opts.MaxMessages
	if limit <= 0 {
		limit = DefaultMaxMessages
	}

	selected := matchKeywords(records, opts.Keywords)
	if len(selected) == 0 {
		selected = records[:min(limit, len(records))]
	}
	return "Here's what I remember " + source(scope) + ":\n" + renderLines(selected)
}

// FormatLine renders one record as a bullet.
func FormatLine(r Record) string {
	theme := r.Theme
	if theme == "" {
		theme = "Unknown"
	}
	if r.Date != "" && r.Time != "" {
		return fmt.Sprintf("• %s (Theme: %s, Recorded: %s %s)", r.Message, theme, r.Date, r.Time)
	}
	return fmt.Sprintf("• %s (Theme: %s)", r.Message, theme)
}

func renderLines(records []Record) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, FormatLine(r))
	}
	return strings.Join(lines, "\n")
}

// matchKeywords keeps records whose message or theme contains any keyword, case-insensitively.
func matchKeywords(records []Record, keywords []string) []Record {
	needles := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			needles = append(needles, k)
		}
	}
	if len(needles) == 0 {
		return nil
	}

	var out []Record
	for _, r := range records {
		content := strings.ToLower(r.Message)
		theme := strings.ToLower(r.Theme)
		for _, n := range needles {
			if strings.Contains(content, n) || strings.Contains(theme, n) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func source(scope Scope) string {
	if scope.Shared() {
		return "from shared memory"
	}
	return "for user ID " + scope.Token
}
