package tutorial

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/materialsim/autotutor/tutorial/fileutils"
)

// RunEnrich embeds the whole record list into the enrichment template, calls
// the model once and checkpoints the reply. A reply that does not validate
// as JSON is saved raw under an alternate extension; that outcome is not an
// error here, but the outline stage will refuse to start until a valid
// step1_result.json exists.
func (p *Pipeline) RunEnrich(ctx context.Context) error {
	summaryPath, err := p.requireArtifact(AnalysisSummaryFile)
	if err != nil {
		return err
	}

	var summary CorpusSummary
	if err := fileutils.ReadJSONFile(summaryPath, &summary); err != nil {
		return fmt.Errorf("load corpus summary: %w", err)
	}
	if summary.Records == nil {
		summary.Records = []CaseRecord{}
	}

	payload, err := jsonForPrompt(summary.Records)
	if err != nil {
		return fmt.Errorf("serialize records: %w", err)
	}
	tmpl, err := loadPrompt(p.promptsDir, EnrichPromptFile)
	if err != nil {
		return err
	}
	prompt := strings.ReplaceAll(tmpl, placeholderInsertData, payload)

	p.log.Info("enriching corpus", zap.Int("records", len(summary.Records)))
	reply, err := p.chat(ctx, prompt)
	if err != nil {
		return fmt.Errorf("enrichment call: %w", err)
	}

	cleaned := StripFences(reply)
	var parsed any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		fallbackPath := p.artifactPath(EnrichedFallbackFile)
		p.log.Warn("enrichment reply is not valid JSON, saving raw text for manual repair",
			zap.String("path", fallbackPath),
			zap.Error(err))
		return fileutils.WriteTextFileAtomic(fallbackPath, cleaned)
	}

	outPath := p.artifactPath(EnrichedFile)
	if err := fileutils.WriteJSONFileAtomic(outPath, parsed, true); err != nil {
		return err
	}
	p.log.Info("enrichment complete", zap.String("path", outPath))
	return nil
}
