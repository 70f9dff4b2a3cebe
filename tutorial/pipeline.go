package tutorial

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/materialsim/autotutor/tutorial/fileutils"
	"github.com/materialsim/autotutor/tutorial/llm"
)

// Artifact names under the processed-data directory. Every stage checkpoints
// its output to disk, so any stage can be re-run alone as long as its input
// artifact is present.
const (
	AnalysisSummaryFile  = "analysis_summary.json"
	EnrichedFile         = "step1_result.json"
	EnrichedFallbackFile = "step1_result.json.txt"
	OutlineFile          = "step2_outline.md"

	draftFilePrefix = "draft_chapter_"
	draftFileExt    = ".md"
	finalFileSuffix = "_Final.md"
)

// DefaultBookName names the final document when no book name is configured.
const DefaultBookName = "ABACUS_Tutorial"

// ErrMissingArtifact marks a stage abort caused by an absent upstream
// artifact, distinct from LLM and I/O failures.
var ErrMissingArtifact = errors.New("required artifact missing")

// PipelineOptions configures the directories and generation behavior of a
// Pipeline.
type PipelineOptions struct {
	// RawRoot is the transcript tree the scan stage walks. Only the scan
	// stage reads it.
	RawRoot string
	// ProcessedDir holds the corpus summary, stage artifacts and chapter
	// drafts.
	ProcessedDir string
	// OutputDir receives the final assembled document. Defaults to
	// ProcessedDir.
	OutputDir string
	// PromptsDir optionally overrides the built-in prompt templates.
	PromptsDir string
	// BookName names the final document, <BookName>_Final.md.
	BookName string
	// Concurrency bounds parallel chapter drafting. Values below one run
	// the drafts sequentially.
	Concurrency int
}

// Pipeline drives the four generation stages over one artifact directory.
type Pipeline struct {
	rawRoot      string
	processedDir string
	outputDir    string
	promptsDir   string
	bookName     string
	concurrency  int

	client llm.Client
	log    *zap.Logger
}

func NewPipeline(opts PipelineOptions, client llm.Client, log *zap.Logger) (*Pipeline, error) {
	if client == nil {
		return nil, errors.New("nil LLM client")
	}
	if opts.ProcessedDir == "" {
		return nil, errors.New("processed directory is required")
	}
	if opts.OutputDir == "" {
		opts.OutputDir = opts.ProcessedDir
	}
	if opts.BookName == "" {
		opts.BookName = DefaultBookName
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		rawRoot:      opts.RawRoot,
		processedDir: opts.ProcessedDir,
		outputDir:    opts.OutputDir,
		promptsDir:   opts.PromptsDir,
		bookName:     opts.BookName,
		concurrency:  opts.Concurrency,
		client:       client,
		log:          log,
	}, nil
}

// RunScan walks the raw transcript tree and writes the corpus summary that
// the generation stages consume.
func (p *Pipeline) RunScan(ctx context.Context) error {
	if p.rawRoot == "" {
		return errors.New("raw transcript root is not configured")
	}
	summary, err := NewScanner(p.rawRoot, p.log).Scan(ctx)
	if err != nil {
		return err
	}
	path := p.artifactPath(AnalysisSummaryFile)
	if err := fileutils.WriteJSONFileAtomic(path, summary, true); err != nil {
		return err
	}
	p.log.Info("corpus summary written",
		zap.String("path", path),
		zap.Int("records", summary.TotalRecords))
	return nil
}

// RunAll runs enrich, outline, draft and assemble in order over an existing
// corpus summary. Each stage gates on its upstream artifact; a draft stage
// that produces nothing stops the run before assembly.
func (p *Pipeline) RunAll(ctx context.Context) error {
	if _, err := p.requireArtifact(AnalysisSummaryFile); err != nil {
		return err
	}
	if err := p.RunEnrich(ctx); err != nil {
		return err
	}
	if err := p.RunOutline(ctx); err != nil {
		return err
	}
	drafts, err := p.RunDraft(ctx)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		p.log.Error("no chapter drafts were generated, stopping before assembly")
		return errors.New("draft stage produced no chapters")
	}
	return p.RunAssemble(ctx)
}

func (p *Pipeline) artifactPath(name string) string {
	return filepath.Join(p.processedDir, name)
}

// chat invokes the client and normalizes blank replies into errors, so stages
// never checkpoint an artifact without content.
func (p *Pipeline) chat(ctx context.Context, prompt string) (string, error) {
	reply, err := p.client.Chat(ctx, prompt, "")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("chat: %w", llm.ErrEmptyReply)
	}
	return reply, nil
}

func (p *Pipeline) requireArtifact(name string) (string, error) {
	path := p.artifactPath(name)
	if !fileutils.FileExists(path) {
		return "", fmt.Errorf("%w: %s", ErrMissingArtifact, path)
	}
	return path, nil
}

// jsonForPrompt serializes v for embedding into prompt text, indented and
// without HTML escaping.
func jsonForPrompt(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
