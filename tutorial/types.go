// Package tutorial turns a tree of agent-execution transcripts from
// atomistic-simulation runs into a multi-chapter tutorial book: a scanner
// canonicalizes each transcript pair into a case record, and a four-stage
// pipeline (enrich, outline, draft, assemble) generates the book from the
// resulting corpus through an LLM collaborator.
package tutorial

// ToolCall is one entry of a `_function_call_info.json` mapping. The mapping
// key (the call id) is the only temporal signal and is kept outside the
// struct; values decode with json.Number so argument formatting survives.
type ToolCall struct {
	Name   string         `json:"name"`
	Args   map[string]any `json:"args,omitempty"`
	Result map[string]any `json:"result,omitempty"`
}

// SimulatedFileView is the canonical computational recipe of one case,
// reconstructed from its tool-call sequence. Every key present here has
// already survived noise filtering and differential default filtering;
// a missing key means "default or uninteresting", not "unknown".
type SimulatedFileView struct {
	// Structure holds generated structural parameters (element, lattice
	// constant, crystal type, site positions).
	Structure map[string]any `json:"structure,omitempty"`

	// Input holds calculation type and numerical/solver settings.
	Input map[string]any `json:"input,omitempty"`

	// KPoint holds k-space sampling settings (kspacing, kpath, k_points,
	// gamma_only).
	KPoint map[string]any `json:"kpoint,omitempty"`

	// PhysicsSteps are human-readable stage labels in call order, e.g.
	// "Geometry Optimization", "Self-Consistent Field".
	PhysicsSteps []string `json:"physics_steps,omitempty"`
}

// IsEmpty reports whether nothing was reconstructed for the case.
func (v SimulatedFileView) IsEmpty() bool {
	return len(v.Structure) == 0 && len(v.Input) == 0 && len(v.KPoint) == 0 && len(v.PhysicsSteps) == 0
}

// ExtractedData is the transcript-derived payload of a case record.
type ExtractedData struct {
	Question           string            `json:"question"`
	SimulatedInputFile SimulatedFileView `json:"simulated_input_file"`
	FinalResultSummary string            `json:"final_result_summary"`
}

// CaseRecord is one successfully paired transcript, keyed by the shared
// filename stem of the pair. Immutable once written.
type CaseRecord struct {
	ProblemID string        `json:"problem_id"`
	FilePath  string        `json:"file_path"`
	Extracted ExtractedData `json:"extracted_data"`
}

// CorpusSummary is the hand-off artifact between extraction and generation
// (analysis_summary.json). TotalRecords counts successfully paired
// transcripts only; record order is not meaningful.
type CorpusSummary struct {
	RootDirectory string       `json:"root_directory"`
	TotalRecords  int          `json:"total_records"`
	Records       []CaseRecord `json:"records"`
}

// EvidenceRecord is the reduced projection of a CaseRecord embedded into
// drafting prompts, kept small to bound prompt size.
type EvidenceRecord struct {
	ID       string            `json:"id"`
	Question string            `json:"question"`
	Workflow SimulatedFileView `json:"workflow"`
	Result   string            `json:"result"`
}

// ChapterBlock is one delimiter-separated block of the stage-2 outline.
// Blocks without mapped case ids are front matter or appendix material and
// never become chapters.
type ChapterBlock struct {
	// Title is the first line of the block.
	Title string
	// Content is the whole trimmed block, title line included, exactly as
	// the drafting prompt embeds it.
	Content string
	// CaseIDs are the mapped case ids in first-seen order, deduplicated.
	CaseIDs []string
}

// Outline is the typed decomposition of the stage-2 reply. Raw preserves the
// verbatim text for prompt embedding; Blocks is parsed once so later stages
// never re-parse the text.
type Outline struct {
	Raw    string
	Blocks []ChapterBlock
}

// Chapters returns the blocks that carry mapped case ids, in order.
func (o Outline) Chapters() []ChapterBlock {
	var chapters []ChapterBlock
	for _, b := range o.Blocks {
		if len(b.CaseIDs) > 0 {
			chapters = append(chapters, b)
		}
	}
	return chapters
}

// BookMeta is the stage-4 metadata reply: title, preface and appendix
// wrapped around the concatenated chapter drafts.
type BookMeta struct {
	BookTitle        string `json:"book_title" jsonschema_description:"Human-readable title of the assembled book"`
	PrefaceMarkdown  string `json:"preface_markdown" jsonschema_description:"Markdown preface placed before the first chapter"`
	AppendixMarkdown string `json:"appendix_markdown" jsonschema_description:"Markdown appendix placed after the last chapter"`
}
