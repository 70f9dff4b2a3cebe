package tutorial

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/materialsim/autotutor/tutorial/fileutils"
	"github.com/materialsim/autotutor/tutorial/llm"
)

// fakeClient replays scripted replies in call order, or routes through
// respond when set. Safe for concurrent use.
type fakeClient struct {
	mu      sync.Mutex
	replies []string
	respond func(prompt string) (string, error)
	prompts []string
}

func (f *fakeClient) Chat(_ context.Context, prompt, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.respond != nil {
		return f.respond(prompt)
	}
	if len(f.replies) == 0 {
		return "", errors.New("no scripted reply left")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeClient) prompt(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[i]
}

// structuredFake also implements ChatJSON, recording the schema names it was
// asked for.
type structuredFake struct {
	*fakeClient
	schemaNames []string
}

func (f *structuredFake) ChatJSON(ctx context.Context, prompt, systemRole, name string, _ map[string]any) (string, error) {
	f.mu.Lock()
	f.schemaNames = append(f.schemaNames, name)
	f.mu.Unlock()
	return f.Chat(ctx, prompt, systemRole)
}

func newTestPipeline(t *testing.T, client *fakeClient, concurrency int) (*Pipeline, string, string) {
	t.Helper()
	processed := t.TempDir()
	out := t.TempDir()
	p, err := NewPipeline(PipelineOptions{
		ProcessedDir: processed,
		OutputDir:    out,
		BookName:     "TestBook",
		Concurrency:  concurrency,
	}, client, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p, processed, out
}

func writeSummaryArtifact(t *testing.T, dir string, records []CaseRecord) {
	t.Helper()
	summary := CorpusSummary{RootDirectory: "/data/raw", TotalRecords: len(records), Records: records}
	if err := fileutils.WriteJSONFileAtomic(filepath.Join(dir, AnalysisSummaryFile), summary, true); err != nil {
		t.Fatalf("write summary: %v", err)
	}
}

func testRecord(id, question, result string) CaseRecord {
	return CaseRecord{
		ProblemID: id,
		FilePath:  "/data/raw/batch",
		Extracted: ExtractedData{
			Question:           question,
			SimulatedInputFile: SimulatedFileView{Input: map[string]any{"ecutwfc": 100}},
			FinalResultSummary: result,
		},
	}
}

func TestRunEnrichWritesParsedJSON(t *testing.T) {
	t.Parallel()

	client := &fakeClient{replies: []string{"```json\n{\"enriched_records\": []}\n```"}}
	p, processed, _ := newTestPipeline(t, client, 1)
	writeSummaryArtifact(t, processed, []CaseRecord{testRecord("problem_1", "Q", "R")})

	if err := p.RunEnrich(context.Background()); err != nil {
		t.Fatalf("RunEnrich: %v", err)
	}

	var parsed map[string]any
	if err := fileutils.ReadJSONFile(filepath.Join(processed, EnrichedFile), &parsed); err != nil {
		t.Fatalf("read enriched artifact: %v", err)
	}
	if _, ok := parsed["enriched_records"]; !ok {
		t.Fatalf("artifact got=%v want enriched_records key", parsed)
	}

	prompt := client.prompt(0)
	if !strings.Contains(prompt, `"problem_id": "problem_1"`) {
		t.Fatal("prompt is missing the serialized records")
	}
	if strings.Contains(prompt, placeholderInsertData) {
		t.Fatal("prompt still contains the data placeholder")
	}
}

func TestRunEnrichSavesRawTextOnBadJSON(t *testing.T) {
	t.Parallel()

	client := &fakeClient{replies: []string{"I refuse to answer in JSON."}}
	p, processed, _ := newTestPipeline(t, client, 1)
	writeSummaryArtifact(t, processed, nil)

	if err := p.RunEnrich(context.Background()); err != nil {
		t.Fatalf("RunEnrich: %v", err)
	}
	if fileutils.FileExists(filepath.Join(processed, EnrichedFile)) {
		t.Fatal("unparsable reply must not produce the JSON artifact")
	}
	data, err := os.ReadFile(filepath.Join(processed, EnrichedFallbackFile))
	if err != nil {
		t.Fatalf("read fallback artifact: %v", err)
	}
	if !strings.Contains(string(data), "I refuse to answer in JSON.") {
		t.Fatalf("fallback got=%q want raw reply", data)
	}
}

func TestRunEnrichMissingSummary(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestPipeline(t, &fakeClient{}, 1)
	err := p.RunEnrich(context.Background())
	if !errors.Is(err, ErrMissingArtifact) {
		t.Fatalf("err got=%v want ErrMissingArtifact", err)
	}
}

func TestRunEnrichEmptyReplyFails(t *testing.T) {
	t.Parallel()

	client := &fakeClient{replies: []string{"   \n"}}
	p, processed, _ := newTestPipeline(t, client, 1)
	writeSummaryArtifact(t, processed, nil)

	err := p.RunEnrich(context.Background())
	if !errors.Is(err, llm.ErrEmptyReply) {
		t.Fatalf("err got=%v want ErrEmptyReply", err)
	}
	if fileutils.FileExists(filepath.Join(processed, EnrichedFile)) ||
		fileutils.FileExists(filepath.Join(processed, EnrichedFallbackFile)) {
		t.Fatal("a blank reply must not persist any enrichment artifact")
	}
}

func TestRunOutlineWritesReplyVerbatim(t *testing.T) {
	t.Parallel()

	reply := "# Plan\n" + ChapterStartTag + "\n## Chapter One\nMapped Case ID: problem_1\n"
	client := &fakeClient{replies: []string{reply}}
	p, processed, _ := newTestPipeline(t, client, 1)
	if err := fileutils.WriteJSONFileAtomic(filepath.Join(processed, EnrichedFile), map[string]any{"enriched_records": []any{}}, true); err != nil {
		t.Fatalf("write enriched artifact: %v", err)
	}

	if err := p.RunOutline(context.Background()); err != nil {
		t.Fatalf("RunOutline: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(processed, OutlineFile))
	if err != nil {
		t.Fatalf("read outline: %v", err)
	}
	if string(data) != reply {
		t.Fatalf("outline got=%q want the reply verbatim", data)
	}
}

func TestRunOutlineRequiresEnrichedArtifact(t *testing.T) {
	t.Parallel()

	p, processed, _ := newTestPipeline(t, &fakeClient{}, 1)
	// Only the raw-text fallback exists, as after a failed enrichment parse.
	if err := fileutils.WriteTextFileAtomic(filepath.Join(processed, EnrichedFallbackFile), "raw"); err != nil {
		t.Fatalf("write fallback: %v", err)
	}

	err := p.RunOutline(context.Background())
	if !errors.Is(err, ErrMissingArtifact) {
		t.Fatalf("err got=%v want ErrMissingArtifact", err)
	}
}

func TestRunDraftSkipsBlocksWithoutCases(t *testing.T) {
	t.Parallel()

	outline := ChapterStartTag + "\n## Alpha\nMapped Case ID: problem_1\n" +
		ChapterStartTag + "\n## Interlude\nno cases in this block\n" +
		ChapterStartTag + "\n## Gamma\nMapped Case ID: problem_2\n"

	client := &fakeClient{replies: []string{"alpha draft", "gamma draft"}}
	p, processed, _ := newTestPipeline(t, client, 1)
	writeSummaryArtifact(t, processed, []CaseRecord{
		testRecord("problem_1", "Q1", "R1"),
		testRecord("problem_2", "Q2", "R2"),
	})
	if err := fileutils.WriteTextFileAtomic(filepath.Join(processed, OutlineFile), outline); err != nil {
		t.Fatalf("write outline: %v", err)
	}

	drafts, err := p.RunDraft(context.Background())
	if err != nil {
		t.Fatalf("RunDraft: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("drafts got=%d want=2", len(drafts))
	}

	one, err := os.ReadFile(filepath.Join(processed, "draft_chapter_1.md"))
	if err != nil {
		t.Fatalf("read chapter 1: %v", err)
	}
	if !strings.Contains(string(one), "alpha draft") {
		t.Fatalf("chapter 1 got=%q", one)
	}
	two, err := os.ReadFile(filepath.Join(processed, "draft_chapter_2.md"))
	if err != nil {
		t.Fatalf("read chapter 2: %v", err)
	}
	if !strings.Contains(string(two), "gamma draft") {
		t.Fatalf("chapter 2 got=%q", two)
	}
	if fileutils.FileExists(filepath.Join(processed, "draft_chapter_3.md")) {
		t.Fatal("skipped block must not consume a chapter index")
	}

	// The second call drafted the third block.
	if !strings.Contains(client.prompt(1), "## Gamma") {
		t.Fatal("second draft prompt is missing the third block")
	}
	if !strings.Contains(client.prompt(0), "Q1") {
		t.Fatal("draft prompt is missing the looked-up evidence")
	}
}

func TestRunDraftOmitsUnknownCaseIDs(t *testing.T) {
	t.Parallel()

	outline := ChapterStartTag + "\n## Alpha\nMapped Case ID: problem_1\nMapped Case ID: problem_42\n"
	client := &fakeClient{replies: []string{"draft"}}
	p, processed, _ := newTestPipeline(t, client, 1)
	writeSummaryArtifact(t, processed, []CaseRecord{testRecord("problem_1", "Q1", "R1")})
	if err := fileutils.WriteTextFileAtomic(filepath.Join(processed, OutlineFile), outline); err != nil {
		t.Fatalf("write outline: %v", err)
	}

	drafts, err := p.RunDraft(context.Background())
	if err != nil {
		t.Fatalf("RunDraft: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("drafts got=%d want=1", len(drafts))
	}
	prompt := client.prompt(0)
	if !strings.Contains(prompt, "problem_1") {
		t.Fatal("known case missing from evidence")
	}
	if strings.Contains(prompt, `"id": "problem_42"`) {
		t.Fatal("unknown case must be omitted from evidence")
	}
}

func TestRunDraftZeroChapters(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	p, processed, _ := newTestPipeline(t, client, 1)
	writeSummaryArtifact(t, processed, nil)
	if err := fileutils.WriteTextFileAtomic(filepath.Join(processed, OutlineFile), "just prose, no markers"); err != nil {
		t.Fatalf("write outline: %v", err)
	}

	drafts, err := p.RunDraft(context.Background())
	if err != nil {
		t.Fatalf("RunDraft: %v", err)
	}
	if len(drafts) != 0 {
		t.Fatalf("drafts got=%d want=0", len(drafts))
	}
	if client.callCount() != 0 {
		t.Fatal("no LLM call expected for an outline without chapters")
	}
}

func TestRunDraftConcurrent(t *testing.T) {
	t.Parallel()

	outline := ChapterStartTag + "\n## Alpha\nMapped Case ID: problem_1\n" +
		ChapterStartTag + "\n## Beta\nMapped Case ID: problem_2\n" +
		ChapterStartTag + "\n## Gamma\nMapped Case ID: problem_3\n"

	client := &fakeClient{respond: func(prompt string) (string, error) {
		for _, title := range []string{"Alpha", "Beta", "Gamma"} {
			if strings.Contains(prompt, "\"## "+title+"\"") {
				return "draft for " + title, nil
			}
		}
		return "", errors.New("prompt names no known chapter")
	}}
	p, processed, _ := newTestPipeline(t, client, 3)
	writeSummaryArtifact(t, processed, []CaseRecord{
		testRecord("problem_1", "Q1", "R1"),
		testRecord("problem_2", "Q2", "R2"),
		testRecord("problem_3", "Q3", "R3"),
	})
	if err := fileutils.WriteTextFileAtomic(filepath.Join(processed, OutlineFile), outline); err != nil {
		t.Fatalf("write outline: %v", err)
	}

	drafts, err := p.RunDraft(context.Background())
	if err != nil {
		t.Fatalf("RunDraft: %v", err)
	}
	want := []string{"draft for Alpha", "draft for Beta", "draft for Gamma"}
	for i, w := range want {
		if drafts[i] != w {
			t.Fatalf("drafts[%d] got=%q want=%q", i, drafts[i], w)
		}
		data, err := os.ReadFile(filepath.Join(processed, fmt.Sprintf("draft_chapter_%d.md", i+1)))
		if err != nil {
			t.Fatalf("read chapter %d: %v", i+1, err)
		}
		if !strings.Contains(string(data), w) {
			t.Fatalf("chapter %d got=%q want=%q", i+1, data, w)
		}
	}
}

func TestRunAssembleOrdersChaptersNumerically(t *testing.T) {
	t.Parallel()

	client := &fakeClient{replies: []string{`{"book_title":"Ordered","preface_markdown":"P","appendix_markdown":"A"}`}}
	p, processed, out := newTestPipeline(t, client, 1)
	for n, content := range map[string]string{
		"draft_chapter_9.md":     "NINTH CHAPTER",
		"draft_chapter_10.md":    "TENTH CHAPTER",
		"draft_chapter_notes.md": "NOT A CHAPTER",
	} {
		if err := os.WriteFile(filepath.Join(processed, n), []byte(content), 0o644); err != nil {
			t.Fatalf("write draft: %v", err)
		}
	}

	if err := p.RunAssemble(context.Background()); err != nil {
		t.Fatalf("RunAssemble: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(out, "TestBook_Final.md"))
	if err != nil {
		t.Fatalf("read final doc: %v", err)
	}
	doc := string(data)

	ninth := strings.Index(doc, "NINTH CHAPTER")
	tenth := strings.Index(doc, "TENTH CHAPTER")
	if ninth == -1 || tenth == -1 || ninth > tenth {
		t.Fatalf("chapter order wrong: ninth=%d tenth=%d", ninth, tenth)
	}
	if strings.Contains(doc, "NOT A CHAPTER") {
		t.Fatal("non-numeric draft file leaked into the book")
	}
	if !strings.HasPrefix(doc, "# Ordered\n\n") {
		t.Fatalf("doc got prefix=%q", doc[:20])
	}
}

func TestRunAssembleFallbackMetadata(t *testing.T) {
	t.Parallel()

	client := &fakeClient{replies: []string{"sorry, no JSON today"}}
	p, processed, out := newTestPipeline(t, client, 1)
	if err := os.WriteFile(filepath.Join(processed, "draft_chapter_1.md"), []byte("BODY"), 0o644); err != nil {
		t.Fatalf("write draft: %v", err)
	}

	if err := p.RunAssemble(context.Background()); err != nil {
		t.Fatalf("RunAssemble: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(out, "TestBook_Final.md"))
	if err != nil {
		t.Fatalf("read final doc: %v", err)
	}
	if !strings.Contains(string(data), fallbackBookMeta.BookTitle) {
		t.Fatal("fallback title missing from the final document")
	}
	if !strings.Contains(string(data), "BODY") {
		t.Fatal("chapter body missing from the final document")
	}
}

func TestRunAssembleWithoutDrafts(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestPipeline(t, &fakeClient{}, 1)
	err := p.RunAssemble(context.Background())
	if !errors.Is(err, ErrMissingArtifact) {
		t.Fatalf("err got=%v want ErrMissingArtifact", err)
	}
}

func TestRunAssemblePrefersStructuredClient(t *testing.T) {
	t.Parallel()

	base := &fakeClient{replies: []string{`{"book_title":"Strict","preface_markdown":"P","appendix_markdown":"A"}`}}
	client := &structuredFake{fakeClient: base}
	processed := t.TempDir()
	p, err := NewPipeline(PipelineOptions{ProcessedDir: processed, BookName: "TestBook"}, client, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if err := os.WriteFile(filepath.Join(processed, "draft_chapter_1.md"), []byte("BODY"), 0o644); err != nil {
		t.Fatalf("write draft: %v", err)
	}

	if err := p.RunAssemble(context.Background()); err != nil {
		t.Fatalf("RunAssemble: %v", err)
	}
	if len(client.schemaNames) != 1 || client.schemaNames[0] != "book_meta" {
		t.Fatalf("schema calls got=%v want one book_meta call", client.schemaNames)
	}
	data, err := os.ReadFile(filepath.Join(processed, "TestBook_Final.md"))
	if err != nil {
		t.Fatalf("read final doc: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Strict\n") {
		t.Fatal("structured metadata missing from the final document")
	}
}

func TestRunAllEndToEnd(t *testing.T) {
	t.Parallel()

	outlineReply := "# Plan\n" + ChapterStartTag + "\n## The Only Chapter\nMapped Case ID: problem_1\n"
	client := &fakeClient{replies: []string{
		`{"enriched_records": [{"problem_id": "problem_1", "difficulty": "beginner"}]}`,
		outlineReply,
		"THE DRAFT TEXT",
		`{"book_title":"E2E","preface_markdown":"PREFACE-MARK","appendix_markdown":"APPENDIX-MARK"}`,
	}}
	p, processed, out := newTestPipeline(t, client, 1)
	writeSummaryArtifact(t, processed, []CaseRecord{testRecord("problem_1", "Q", "R")})

	if err := p.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if client.callCount() != 4 {
		t.Fatalf("calls got=%d want=4", client.callCount())
	}

	data, err := os.ReadFile(filepath.Join(out, "TestBook_Final.md"))
	if err != nil {
		t.Fatalf("read final doc: %v", err)
	}
	doc := string(data)
	preface := strings.Index(doc, "PREFACE-MARK")
	body := strings.Index(doc, "THE DRAFT TEXT")
	appendix := strings.Index(doc, "APPENDIX-MARK")
	if preface == -1 || body == -1 || appendix == -1 {
		t.Fatalf("doc is missing sections: %q", doc)
	}
	if !(preface < body && body < appendix) {
		t.Fatalf("section order wrong: preface=%d body=%d appendix=%d", preface, body, appendix)
	}
}

func TestRunAllStopsWithoutDrafts(t *testing.T) {
	t.Parallel()

	client := &fakeClient{replies: []string{
		`{"enriched_records": []}`,
		"an outline with no chapter markers at all",
	}}
	p, processed, out := newTestPipeline(t, client, 1)
	writeSummaryArtifact(t, processed, nil)

	if err := p.RunAll(context.Background()); err == nil {
		t.Fatal("expected RunAll to fail when no drafts are generated")
	}
	if client.callCount() != 2 {
		t.Fatalf("calls got=%d want=2, assembly must not run", client.callCount())
	}
	if fileutils.FileExists(filepath.Join(out, "TestBook_Final.md")) {
		t.Fatal("final document must not exist after an aborted run")
	}
}

func TestRunScanWritesSummaryArtifact(t *testing.T) {
	t.Parallel()

	raw := t.TempDir()
	writeTranscript(t, filepath.Join(raw, "batch"), "problem_1",
		`{"c1": {"name": "run_abacus", "args": {"ecutwfc": 80}}}`, sampleOutput)

	processed := t.TempDir()
	p, err := NewPipeline(PipelineOptions{RawRoot: raw, ProcessedDir: processed}, &fakeClient{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if err := p.RunScan(context.Background()); err != nil {
		t.Fatalf("RunScan: %v", err)
	}

	var summary CorpusSummary
	if err := fileutils.ReadJSONFile(filepath.Join(processed, AnalysisSummaryFile), &summary); err != nil {
		t.Fatalf("read summary artifact: %v", err)
	}
	if summary.TotalRecords != 1 || summary.Records[0].ProblemID != "problem_1" {
		t.Fatalf("summary got=%+v want one problem_1 record", summary)
	}
}
