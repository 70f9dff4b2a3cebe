package tutorial

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/materialsim/autotutor/tutorial/fileutils"
	"github.com/materialsim/autotutor/tutorial/llm"
)

// chapterPreviewBudget bounds how much of each chapter the metadata prompt
// sees.
const chapterPreviewBudget = 800

// fallbackBookMeta stands in when the metadata call fails or returns
// unusable JSON. Once chapter drafts exist the final document is always
// produced.
var fallbackBookMeta = BookMeta{
	BookTitle:        "ABACUS Tutorial (Auto-Generated)",
	PrefaceMarkdown:  "## Preface\n\nMetadata generation failed, fill this section in manually.",
	AppendixMarkdown: "## Appendix\n\nMetadata generation failed, fill this section in manually.",
}

// RunAssemble concatenates every chapter draft on disk, in numeric filename
// order, into the final document wrapped in model-generated title, preface
// and appendix.
func (p *Pipeline) RunAssemble(ctx context.Context) error {
	names, err := p.listDraftFiles()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: no %s*%s files under %s",
			ErrMissingArtifact, draftFilePrefix, draftFileExt, p.processedDir)
	}

	chapters := make([]string, 0, len(names))
	previews := make([]string, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(p.artifactPath(name))
		if err != nil {
			return fmt.Errorf("load draft: %w", err)
		}
		content := string(data)
		chapters = append(chapters, content)
		previews = append(previews,
			fmt.Sprintf("--- %s ---\n%s\n", name, fileutils.Truncate(content, chapterPreviewBudget)))
	}

	tmpl, err := loadPrompt(p.promptsDir, AssemblyPromptFile)
	if err != nil {
		return err
	}
	prompt := strings.ReplaceAll(tmpl, placeholderChapterSummaries, strings.Join(previews, "\n"))

	meta := p.requestBookMeta(ctx, prompt)
	doc := renderFinalDocument(meta, chapters)

	outPath := filepath.Join(p.outputDir, p.bookName+finalFileSuffix)
	if err := fileutils.WriteTextFileAtomic(outPath, doc); err != nil {
		return err
	}
	p.log.Info("book assembled",
		zap.String("path", outPath),
		zap.Int("chapters", len(chapters)),
		zap.String("title", meta.BookTitle))
	return nil
}

// listDraftFiles returns chapter draft filenames sorted by numeric suffix,
// so draft_chapter_10.md sorts after draft_chapter_9.md.
func (p *Pipeline) listDraftFiles() ([]string, error) {
	entries, err := os.ReadDir(p.processedDir)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}

	type draft struct {
		name string
		num  int
	}
	var drafts []draft
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, draftFilePrefix) || !strings.HasSuffix(name, draftFileExt) {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, draftFilePrefix), draftFileExt))
		if err != nil {
			p.log.Warn("ignoring draft file without a numeric index", zap.String("name", name))
			continue
		}
		drafts = append(drafts, draft{name: name, num: num})
	}
	sort.Slice(drafts, func(i, j int) bool { return drafts[i].num < drafts[j].num })

	names := make([]string, len(drafts))
	for i, d := range drafts {
		names[i] = d.name
	}
	return names, nil
}

// requestBookMeta asks the model for title, preface and appendix. Clients
// with structured-output support get a strict schema; plain clients fall
// back to fence-stripped JSON parsing. Failures yield the fixed fallback
// metadata, never an error.
func (p *Pipeline) requestBookMeta(ctx context.Context, prompt string) BookMeta {
	var reply string
	var err error
	if sc, ok := p.client.(llm.StructuredClient); ok {
		reply, err = sc.ChatJSON(ctx, prompt, "", "book_meta", llm.GenerateSchema[BookMeta]())
	} else {
		reply, err = p.client.Chat(ctx, prompt, "")
	}
	if err != nil {
		p.log.Warn("metadata call failed, using fallback book metadata", zap.Error(err))
		return fallbackBookMeta
	}

	var meta BookMeta
	if err := fileutils.DecodeModelJSON(StripFences(reply), &meta); err != nil {
		p.log.Warn("metadata reply is not valid JSON, using fallback book metadata", zap.Error(err))
		return fallbackBookMeta
	}
	if meta.BookTitle == "" {
		meta.BookTitle = "ABACUS Tutorial"
	}
	return meta
}

func renderFinalDocument(meta BookMeta, chapters []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", meta.BookTitle)
	fmt.Fprintf(&b, "%s\n\n---\n\n", meta.PrefaceMarkdown)
	for _, chapter := range chapters {
		b.WriteString(chapter)
		b.WriteString("\n\n---\n\n")
	}
	b.WriteString(meta.AppendixMarkdown)
	b.WriteString("\n")
	return b.String()
}
