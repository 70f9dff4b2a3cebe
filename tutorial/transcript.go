package tutorial

import (
	"regexp"
	"strings"
)

// Sentinels substituted when a transcript resists pattern matching. Parse
// failures never abort a scan; the record is still emitted.
const (
	questionSentinel = "Question not found"
	summarySentinel  = "Summary not found in text output"
)

// The transcripts interleave a conversational log with tool output. The
// user's question appears as a quoted text payload after a "** User says:"
// marker; some producers drop the marker, hence the looser fallback.
var (
	questionPattern         = regexp.MustCompile(`(?s)\*\* User says:.*?\{'text':\s*'(.*?)'\}`)
	questionFallbackPattern = regexp.MustCompile(`'text': '([^']*)'`)
)

const (
	resultsHeader    = "## **Results Summary:**"
	resultsEndMarker = "** abacus_agent"
)

func extractQuestion(content string) (string, bool) {
	if m := questionPattern.FindStringSubmatch(content); m != nil {
		return m[1], true
	}
	if m := questionFallbackPattern.FindStringSubmatch(content); m != nil {
		return m[1], true
	}
	return "", false
}

// extractResultSummary returns the text between the results header and the
// next agent marker (or end of transcript), trimmed.
func extractResultSummary(content string) (string, bool) {
	_, rest, found := strings.Cut(content, resultsHeader)
	if !found {
		return "", false
	}
	summary, _, _ := strings.Cut(rest, resultsEndMarker)
	return strings.TrimSpace(summary), true
}
