package tutorial

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/materialsim/autotutor/tutorial/fileutils"
)

const (
	callInfoSuffix = "_function_call_info.json"
	outputSuffix   = "_output.txt"
)

// Scanner walks a raw transcript tree and turns every complete
// call-info/output pair into a CaseRecord.
type Scanner struct {
	root string
	log  *zap.Logger
}

func NewScanner(root string, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{root: root, log: log}
}

// Scan walks the root in lexical order so repeated runs over the same tree
// produce identical record ordering. A call-info file whose output sibling
// is missing is skipped with a warning rather than failing the scan.
func (s *Scanner) Scan(ctx context.Context) (CorpusSummary, error) {
	summary := CorpusSummary{RootDirectory: s.root}
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), callInfoSuffix) {
			return nil
		}

		problemID := strings.TrimSuffix(d.Name(), callInfoSuffix)
		dir := filepath.Dir(path)
		outputPath := filepath.Join(dir, problemID+outputSuffix)
		if !fileutils.FileExists(outputPath) {
			s.log.Warn("call-info file has no output sibling, skipping",
				zap.String("problem_id", problemID),
				zap.String("dir", dir))
			return nil
		}

		record, err := s.buildRecord(problemID, dir, path, outputPath)
		if err != nil {
			return err
		}
		summary.Records = append(summary.Records, record)
		return nil
	})
	if err != nil {
		return CorpusSummary{}, fmt.Errorf("scan %s: %w", s.root, err)
	}
	summary.TotalRecords = len(summary.Records)
	s.log.Info("scan complete",
		zap.String("root", s.root),
		zap.Int("records", summary.TotalRecords))
	return summary, nil
}

func (s *Scanner) buildRecord(problemID, dir, callPath, outputPath string) (CaseRecord, error) {
	callData, err := os.ReadFile(callPath)
	if err != nil {
		return CaseRecord{}, fmt.Errorf("read call info: %w", err)
	}
	outputData, err := os.ReadFile(outputPath)
	if err != nil {
		return CaseRecord{}, fmt.Errorf("read output: %w", err)
	}

	view, err := parseToolCalls(callData)
	if err != nil {
		s.log.Warn("tool-call log is unreadable, recording an empty input view",
			zap.String("problem_id", problemID),
			zap.Error(err))
		view = SimulatedFileView{}
	}

	content := string(outputData)
	question, ok := extractQuestion(content)
	if !ok {
		s.log.Warn("transcript has no recognizable question", zap.String("problem_id", problemID))
		question = questionSentinel
	}
	result, ok := extractResultSummary(content)
	if !ok {
		s.log.Warn("transcript has no results summary", zap.String("problem_id", problemID))
		result = summarySentinel
	}

	return CaseRecord{
		ProblemID: problemID,
		FilePath:  dir,
		Extracted: ExtractedData{
			Question:           question,
			SimulatedInputFile: view,
			FinalResultSummary: result,
		},
	}, nil
}
