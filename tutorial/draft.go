package tutorial

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/materialsim/autotutor/tutorial/fileutils"
)

// RunDraft writes one markdown file per outline chapter. Blocks without
// mapped case ids are front matter or appendix notes; they are skipped and
// consume no chapter index. Every draft persists as soon as it is generated,
// so chapters already written survive a later failure. The returned slice
// holds the drafts of this run in chapter order; callers treat an empty
// slice as total stage failure.
func (p *Pipeline) RunDraft(ctx context.Context) ([]string, error) {
	outlinePath, err := p.requireArtifact(OutlineFile)
	if err != nil {
		return nil, err
	}
	summaryPath, err := p.requireArtifact(AnalysisSummaryFile)
	if err != nil {
		return nil, err
	}

	rawOutline, err := os.ReadFile(outlinePath)
	if err != nil {
		return nil, fmt.Errorf("load outline: %w", err)
	}
	var summary CorpusSummary
	if err := fileutils.ReadJSONFile(summaryPath, &summary); err != nil {
		return nil, fmt.Errorf("load corpus summary: %w", err)
	}

	outline := ParseOutline(string(rawOutline))
	for i, block := range outline.Blocks {
		if len(block.CaseIDs) == 0 {
			p.log.Info("skipping outline block without mapped cases, likely front matter or appendix",
				zap.Int("block", i),
				zap.String("title", block.Title))
		}
	}
	chapters := outline.Chapters()
	if len(chapters) == 0 {
		p.log.Warn("outline defines no chapters with mapped case ids")
		return nil, nil
	}

	tmpl, err := loadPrompt(p.promptsDir, DraftPromptFile)
	if err != nil {
		return nil, err
	}

	drafts := make([]string, len(chapters))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, block := range chapters {
		g.Go(func() error {
			text, err := p.draftChapter(gctx, tmpl, outline.Raw, summary.Records, i+1, block)
			if err != nil {
				return err
			}
			drafts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.log.Info("drafting complete", zap.Int("chapters", len(drafts)))
	return drafts, nil
}

func (p *Pipeline) draftChapter(ctx context.Context, tmpl, fullOutline string, records []CaseRecord, chapter int, block ChapterBlock) (string, error) {
	evidence := make([]EvidenceRecord, 0, len(block.CaseIDs))
	for _, id := range block.CaseIDs {
		if rec, ok := LookupRecord(records, id); ok {
			evidence = append(evidence, rec)
		}
	}
	evidenceJSON, err := jsonForPrompt(evidence)
	if err != nil {
		return "", fmt.Errorf("serialize evidence: %w", err)
	}

	prompt := strings.NewReplacer(
		placeholderFullBookOutline, fullOutline,
		placeholderChapterTitle, block.Title,
		placeholderChapterOutline, block.Content,
		placeholderEvidenceJSON, evidenceJSON,
	).Replace(tmpl)

	p.log.Info("drafting chapter",
		zap.Int("chapter", chapter),
		zap.String("title", block.Title),
		zap.Strings("case_ids", block.CaseIDs))
	reply, err := p.chat(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("draft chapter %d: %w", chapter, err)
	}

	path := p.artifactPath(fmt.Sprintf("%s%d%s", draftFilePrefix, chapter, draftFileExt))
	if err := fileutils.WriteTextFileAtomic(path, reply); err != nil {
		return "", err
	}
	return reply, nil
}
