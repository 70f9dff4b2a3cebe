package tutorial

import (
	"regexp"
	"strings"
)

// ChapterStartTag is the literal delimiter the outline stage asks the model
// to emit between chapters. Splitting is exact-substring, no escaping: a tag
// quoted inside a code block splits there too, an accepted fragility of the
// text contract.
const ChapterStartTag = "<!-- CHAPTER_START -->"

// caseIDPattern finds the first problem token after each "Mapped Case ID"
// label, scanning across line breaks. Non-greedy so consecutive labels each
// claim their own token.
var caseIDPattern = regexp.MustCompile(`(?is)mapped case id.*?(problem_\d+)`)

// SplitByTag splits text on an exact literal tag, trims each segment and
// drops the empty ones.
func SplitByTag(text, tag string) []string {
	parts := strings.Split(text, tag)
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return segments
}

// ExtractCaseIDs returns the case ids a chapter block declares, deduplicated
// in first-seen order.
func ExtractCaseIDs(text string) []string {
	matches := caseIDPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		id := m[1]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// LookupRecord finds the case with the given problem id and reduces it to
// the projection embedded into drafting prompts.
func LookupRecord(records []CaseRecord, problemID string) (EvidenceRecord, bool) {
	for _, r := range records {
		if r.ProblemID == problemID {
			return EvidenceRecord{
				ID:       problemID,
				Question: r.Extracted.Question,
				Workflow: r.Extracted.SimulatedInputFile,
				Result:   r.Extracted.FinalResultSummary,
			}, true
		}
	}
	return EvidenceRecord{}, false
}

// ParseOutline decomposes the raw stage-2 reply into typed chapter blocks so
// later stages never re-parse the text.
func ParseOutline(raw string) Outline {
	segments := SplitByTag(raw, ChapterStartTag)
	outline := Outline{Raw: raw, Blocks: make([]ChapterBlock, 0, len(segments))}
	for _, seg := range segments {
		title, _, _ := strings.Cut(seg, "\n")
		outline.Blocks = append(outline.Blocks, ChapterBlock{
			Title:   strings.TrimSpace(title),
			Content: seg,
			CaseIDs: ExtractCaseIDs(seg),
		})
	}
	return outline
}

// StripFences removes the markdown code-fence markers models habitually wrap
// JSON replies in, then trims surrounding whitespace.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
