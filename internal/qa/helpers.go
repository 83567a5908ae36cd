package qa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/TopicQA/internal/config"
	"github.com/akolanti/TopicQA/internal/domain/topicModel"
	"github.com/akolanti/TopicQA/internal/indexer"
	"github.com/akolanti/TopicQA/internal/metrics"
	"github.com/akolanti/TopicQA/pkg/logger_i"
)

// best-effort: a failed FAILED-write is only logged. The pipeline id is
// persisted when one was created so the orphaned pipeline on the external
// service can be identified and cleaned up manually.
func (s *service) markFailed(ctx context.Context, log *logger_i.Logger, topicId string, pipelineId string, cause error) {
	_, err := s.topics.Transition(ctx, topicId, topicModel.Transition{
		From: []topicModel.TopicStatus{topicModel.StatusIndexing, topicModel.StatusPending, topicModel.StatusFailed},
		To:   topicModel.StatusFailed,
		Apply: func(t *topicModel.Topic) {
			if pipelineId != "" {
				t.IndexPipelineId = pipelineId
			}
			t.LastError = cause.Error()
		},
	})
	if err != nil {
		log.Error("Could not persist FAILED state", "error", err)
	}
}

func (s *service) executeRetrievalStep(ctx context.Context, log *logger_i.Logger, pipelineId string, query string, topK int) ([]indexer.Passage, error) {
	log.Debug("Retrieving passages", "topK", topK)
	passages, err := s.retrieval.Retrieve(ctx, pipelineId, query, topK)
	if err != nil {
		log.Error("RETRIEVAL_FAILURE", "error", err)
		return nil, err
	}
	log.Debug("Retrieved passages", "count", len(passages))
	return passages, nil
}

func (s *service) executeSynthesisStep(ctx context.Context, log *logger_i.Logger, query string, passages []indexer.Passage) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("synthesis", time.Since(start)) }()

	userPrompt := fmt.Sprintf("Excerpts:\n%s\n\nUser Question: %s", formatPassages(passages), query)
	answer, err := s.llmProvider.Synthesize(ctx, config.SynthesisSystemPrompt, userPrompt)
	if err != nil {
		log.Error("SYNTHESIS_FAILURE", "error", err)
		return "", err
	}
	return answer, nil
}

// each passage becomes a numbered, page-labeled block
func formatPassages(passages []indexer.Passage) string {
	blocks := make([]string, len(passages))
	for i, p := range passages {
		blocks[i] = fmt.Sprintf("[%d] (Page %s, %s)\n%s", i+1, p.PageLabel, p.FileName, p.Text)
	}
	return strings.Join(blocks, config.BlockSeparator)
}

// citations mirror retrieval order, 1-indexed
func buildCitations(passages []indexer.Passage) []Citation {
	citations := make([]Citation, len(passages))
	for i, p := range passages {
		citations[i] = Citation{
			Ordinal: i + 1,
			Page:    p.PageLabel,
			Source:  p.FileName,
			Excerpt: truncateExcerpt(p.Text),
			Score:   p.Score,
		}
	}
	return citations
}

func truncateExcerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= config.ExcerptLimit {
		return text
	}
	return string(runes[:config.ExcerptLimit]) + "..."
}
