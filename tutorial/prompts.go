package tutorial

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/materialsim/autotutor/tutorial/fileutils"
)

// Prompt template filenames, resolved under the prompts directory. A missing
// file falls back to the built-in default so a bare checkout still runs;
// operators override wording by materializing the defaults and editing them.
const (
	EnrichPromptFile   = "step1_enrich.txt"
	OutlinePromptFile  = "step2_outline.txt"
	DraftPromptFile    = "step3_drafting.txt"
	AssemblyPromptFile = "step4_assembly.txt"
)

// Placeholder tokens the pipeline substitutes before each LLM call. The token
// set is the interface contract with the templates; wording around them is
// free-form.
const (
	placeholderInsertData       = "[INSERT_DATA]"
	placeholderFullBookOutline  = "{{FULL_BOOK_OUTLINE}}"
	placeholderChapterTitle     = "{{CHAPTER_TITLE}}"
	placeholderChapterOutline   = "{{CHAPTER_OUTLINE}}"
	placeholderEvidenceJSON     = "{{EVIDENCE_JSON}}"
	placeholderChapterSummaries = "{{CHAPTER_SUMMARIES}}"
)

const defaultEnrichPrompt = `You are a senior computational materials scientist reviewing raw records of
ABACUS simulation runs performed by an automated agent.

Below is a JSON list of case records. Each record holds the user's original
question, the reconstructed simulation recipe (structure, input and k-point
parameters plus the physics steps taken) and the final result summary.

For every record, produce an enriched version that adds:
- "concept_tags": the physical concepts the case demonstrates
- "difficulty": one of "beginner", "intermediate", "advanced"
- "teaching_value": one sentence on what a reader learns from this case

Return ONLY a JSON object of the form
{"enriched_records": [ ... one enriched object per input record ... ]}
with each enriched object keeping the original "problem_id". Do not wrap the
JSON in markdown fences and do not add commentary.

Input records:
[INSERT_DATA]
`

const defaultOutlinePrompt = `You are planning a hands-on ABACUS tutorial book built from real simulation
cases. Below is the enriched case corpus as JSON.

Design a chapter outline that orders the cases from basic to advanced and
groups related cases into chapters. Requirements:
- Start every chapter block with the literal line <!-- CHAPTER_START -->
- The first line after the marker is the chapter title
- Inside each chapter, list every case it covers on its own line as
  "Mapped Case ID: problem_N"
- Blocks without any mapped case id are treated as front matter or appendix
  notes and will not become chapters
- For each chapter, sketch the sections a reader should work through

Corpus:
[INSERT_DATA]
`

const defaultDraftPrompt = `You are writing one chapter of a hands-on ABACUS tutorial book.

Full book outline, for context and cross-references:
{{FULL_BOOK_OUTLINE}}

Write the chapter titled "{{CHAPTER_TITLE}}". Its outline block is:
{{CHAPTER_OUTLINE}}

Ground every claim in the evidence records below. Quote the actual input
parameters from the "workflow" field when explaining settings, restate the
user's question as the chapter's motivating problem, and close with the real
result summary. Do not invent parameter values that are not in the evidence.

Evidence records (JSON):
{{EVIDENCE_JSON}}

Return the chapter as plain markdown, starting with a level-2 heading.
`

const defaultAssemblyPrompt = `You are finalizing an ABACUS tutorial book assembled from the drafted
chapters previewed below.

Write the book metadata. Return ONLY a JSON object with exactly these keys:
{"book_title": "...", "preface_markdown": "...", "appendix_markdown": "..."}

The preface should introduce the book's goal and how the chapters build on
each other; the appendix should collect practical tips that apply across
chapters. Do not wrap the JSON in markdown fences.

Chapter previews:
{{CHAPTER_SUMMARIES}}
`

var defaultPrompts = map[string]string{
	EnrichPromptFile:   defaultEnrichPrompt,
	OutlinePromptFile:  defaultOutlinePrompt,
	DraftPromptFile:    defaultDraftPrompt,
	AssemblyPromptFile: defaultAssemblyPrompt,
}

// loadPrompt returns the template from dir when the file exists, the built-in
// default when it does not, and an error only for real read failures.
func loadPrompt(dir, name string) (string, error) {
	fallback, known := defaultPrompts[name]
	if !known {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}
	if dir == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("read prompt template: %w", err)
	}
	return string(data), nil
}

// WriteDefaultPrompts materializes the built-in templates under dir so they
// can be edited. Existing files are left untouched.
func WriteDefaultPrompts(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create prompts dir: %w", err)
	}
	names := []string{EnrichPromptFile, OutlinePromptFile, DraftPromptFile, AssemblyPromptFile}
	var written []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		if fileutils.FileExists(path) {
			continue
		}
		if err := fileutils.WriteTextFileAtomic(path, defaultPrompts[name]); err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}
