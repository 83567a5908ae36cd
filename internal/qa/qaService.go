package qa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/TopicQA/internal/config"
	"github.com/akolanti/TopicQA/internal/domain/topicModel"
	"github.com/akolanti/TopicQA/internal/indexer"
	"github.com/akolanti/TopicQA/internal/qa/synth"
	"github.com/akolanti/TopicQA/pkg/logger_i"
)

// Service is the topic lifecycle orchestrator. The worker and the handlers
// only see this interface - the gateways and the store stay private.
type Service interface {
	RunIndexing(ctx context.Context, topicId string) IndexOutcome
	AnswerQuery(ctx context.Context, topicId string, query string, topK int) (QueryResult, error)
	Retrieve(ctx context.Context, topicId string, query string, topK int) ([]indexer.Passage, error)
}

type service struct {
	topics       topicModel.TopicStore
	indexGateway indexer.IndexingGateway
	retrieval    indexer.RetrievalGateway
	llmProvider  synth.Provider
	logger       *logger_i.Logger
}

// NewService constructor
func NewService(topics topicModel.TopicStore, gateway indexer.IndexingGateway, retrieval indexer.RetrievalGateway, llm synth.Provider) Service {
	return &service{
		topics:       topics,
		indexGateway: gateway,
		retrieval:    retrieval,
		llmProvider:  llm,
		logger:       logger_i.NewLogger("QA Service"),
	}
}

// IndexOutcome is the result of one indexing attempt. PipelineId is set even
// on failure when the pipeline was created before the failing step.
type IndexOutcome struct {
	Success    bool
	PipelineId string
	FileId     string
	Err        error
}

type Citation struct {
	Ordinal int
	Page    string
	Source  string
	Excerpt string
	Score   float64
}

type QueryMetadata struct {
	TopicTitle     string
	QueriedAt      time.Time
	NodesRetrieved int
}

type QueryResult struct {
	Answer    string
	Citations []Citation
	Metadata  QueryMetadata
}

var (
	ErrTopicNotFound = errors.New("topic not found")
	// READY implies a pipeline id, but status and ids are written in two
	// conceptual steps, so the id is checked explicitly anyway.
	ErrPipelineMissing = errors.New("topic is READY but has no index pipeline configured")
)

type NotReadyError struct {
	Status topicModel.TopicStatus
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("topic is not ready for questions (status: %s)", e.Status)
}

// RunIndexing drives PENDING/FAILED -> INDEXING -> READY/FAILED. The first
// transition is a compare-and-swap, so of two concurrent attempts exactly one
// proceeds and the other gets a status conflict.
func (s *service) RunIndexing(ctx context.Context, topicId string) IndexOutcome {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "topic Id", topicId)

	if _, found := s.topics.GetTopic(ctx, topicId); !found {
		log.Warn("Indexing requested for unknown topic")
		return IndexOutcome{Err: ErrTopicNotFound}
	}

	topic, err := s.topics.Transition(ctx, topicId, topicModel.Transition{
		From:  []topicModel.TopicStatus{topicModel.StatusPending, topicModel.StatusFailed},
		To:    topicModel.StatusIndexing,
		Apply: func(t *topicModel.Topic) { t.LastError = "" },
	})
	if err != nil {
		log.Warn("Could not enter INDEXING", "error", err)
		return IndexOutcome{Err: err}
	}

	result, err := s.indexGateway.BeginIndexing(ctx, topic.Id, topic.BucketRef, topic.RawStorageKey, topic.Title)
	if err != nil {
		log.Error("Indexing failed", "step", indexer.StepOf(err), "error", err)
		s.markFailed(ctx, log, topicId, result.PipelineId, err)
		return IndexOutcome{PipelineId: result.PipelineId, Err: err}
	}

	if _, err = s.topics.Transition(ctx, topicId, topicModel.Transition{
		From: []topicModel.TopicStatus{topicModel.StatusIndexing},
		To:   topicModel.StatusReady,
		Apply: func(t *topicModel.Topic) {
			t.IndexPipelineId = result.PipelineId
			t.IndexFileId = result.FileId
			t.IndexedAt = time.Now()
		},
	}); err != nil {
		log.Error("Could not persist READY state", "error", err)
		return IndexOutcome{PipelineId: result.PipelineId, FileId: result.FileId, Err: err}
	}

	log.Info("Topic indexed", "pipeline Id", result.PipelineId, "file Id", result.FileId)
	return IndexOutcome{Success: true, PipelineId: result.PipelineId, FileId: result.FileId}
}

// AnswerQuery validates readiness, retrieves passages and synthesizes a
// cited answer. Zero retrieved passages short-circuits with the canned
// answer - no LLM call with empty context.
func (s *service) AnswerQuery(ctx context.Context, topicId string, query string, topK int) (QueryResult, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "topic Id", topicId)

	topic, err := s.queryableTopic(ctx, topicId)
	if err != nil {
		return QueryResult{}, err
	}
	if topK <= 0 {
		topK = config.QueryTopK
	}

	passages, err := s.executeRetrievalStep(ctx, log, topic.IndexPipelineId, query, topK)
	if err != nil {
		return QueryResult{}, err
	}

	metadata := QueryMetadata{
		TopicTitle:     topic.Title,
		QueriedAt:      time.Now(),
		NodesRetrieved: len(passages),
	}

	if len(passages) == 0 {
		log.Info("No relevant passages retrieved")
		return QueryResult{
			Answer:    config.NoAnswerText,
			Citations: []Citation{},
			Metadata:  metadata,
		}, nil
	}

	answer, err := s.executeSynthesisStep(ctx, log, query, passages)
	if err != nil {
		return QueryResult{}, err
	}

	return QueryResult{
		Answer:    answer,
		Citations: buildCitations(passages),
		Metadata:  metadata,
	}, nil
}

// Retrieve is the diagnostic path: raw passages, no synthesis.
func (s *service) Retrieve(ctx context.Context, topicId string, query string, topK int) ([]indexer.Passage, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "topic Id", topicId)

	topic, err := s.queryableTopic(ctx, topicId)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = config.DiagnosticTopK
	}
	return s.executeRetrievalStep(ctx, log, topic.IndexPipelineId, query, topK)
}

// preconditions in order: exists, READY, pipeline id present
func (s *service) queryableTopic(ctx context.Context, topicId string) (topicModel.Topic, error) {
	topic, found := s.topics.GetTopic(ctx, topicId)
	if !found {
		return topicModel.Topic{}, ErrTopicNotFound
	}
	if topic.Status != topicModel.StatusReady {
		return topicModel.Topic{}, &NotReadyError{Status: topic.Status}
	}
	if topic.IndexPipelineId == "" {
		return topicModel.Topic{}, ErrPipelineMissing
	}
	return topic, nil
}
