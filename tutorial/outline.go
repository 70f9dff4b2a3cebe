package tutorial

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/materialsim/autotutor/tutorial/fileutils"
)

// RunOutline feeds the enriched corpus into the outline template and stores
// the reply verbatim. The reply is only sanity-checked for the chapter
// delimiter; its absence is a warning rather than an error because the draft
// stage then legitimately discovers zero chapters.
func (p *Pipeline) RunOutline(ctx context.Context) error {
	enrichedPath, err := p.requireArtifact(EnrichedFile)
	if err != nil {
		return err
	}

	var enriched any
	if err := fileutils.ReadJSONFile(enrichedPath, &enriched); err != nil {
		return fmt.Errorf("load enriched corpus: %w", err)
	}
	payload, err := jsonForPrompt(enriched)
	if err != nil {
		return fmt.Errorf("serialize enriched corpus: %w", err)
	}
	tmpl, err := loadPrompt(p.promptsDir, OutlinePromptFile)
	if err != nil {
		return err
	}
	prompt := strings.ReplaceAll(tmpl, placeholderInsertData, payload)

	p.log.Info("generating outline")
	reply, err := p.chat(ctx, prompt)
	if err != nil {
		return fmt.Errorf("outline call: %w", err)
	}

	outPath := p.artifactPath(OutlineFile)
	if err := fileutils.WriteTextFileAtomic(outPath, reply); err != nil {
		return err
	}
	if !strings.Contains(reply, ChapterStartTag) {
		p.log.Warn("outline carries no chapter markers, drafting will find nothing",
			zap.String("path", outPath),
			zap.String("marker", ChapterStartTag))
	}
	p.log.Info("outline complete", zap.String("path", outPath))
	return nil
}
