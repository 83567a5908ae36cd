package qa_test

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/TopicQA/internal/domain/topicModel"
	"github.com/akolanti/TopicQA/internal/indexer"
)

// MockTopicStore implements topicModel.TopicStore over a plain map so the
// tests can assert on the stored status after each call.
type MockTopicStore struct {
	mu     sync.Mutex
	Topics map[string]topicModel.Topic
}

func NewMockTopicStore(topics ...topicModel.Topic) *MockTopicStore {
	store := &MockTopicStore{Topics: map[string]topicModel.Topic{}}
	for _, t := range topics {
		store.Topics[t.Id] = t
	}
	return store
}

func (m *MockTopicStore) GetTopic(ctx context.Context, id string) (topicModel.Topic, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	topic, found := m.Topics[id]
	return topic, found
}

func (m *MockTopicStore) SaveTopic(ctx context.Context, topic topicModel.Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Topics[topic.Id] = topic
	return nil
}

func (m *MockTopicStore) ListTopics(ctx context.Context) ([]topicModel.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	topics := make([]topicModel.Topic, 0, len(m.Topics))
	for _, t := range m.Topics {
		topics = append(topics, t)
	}
	return topics, nil
}

func (m *MockTopicStore) Transition(ctx context.Context, id string, tr topicModel.Transition) (topicModel.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	topic, found := m.Topics[id]
	if !found {
		return topicModel.Topic{}, topicModel.ErrTopicMissing
	}
	if !tr.Allows(topic.Status) {
		return topicModel.Topic{}, topicModel.ErrStatusConflict
	}
	topic.Status = tr.To
	if tr.Apply != nil {
		tr.Apply(&topic)
	}
	topic.UpdatedAt = time.Now()
	m.Topics[id] = topic
	return topic, nil
}

// MockIndexingGateway implements indexer.IndexingGateway
type MockIndexingGateway struct {
	OnBeginIndexing func(ctx context.Context, topicId string, bucketRef string, storageKey string, title string) (indexer.IndexResult, error)
}

func (m *MockIndexingGateway) BeginIndexing(ctx context.Context, topicId string, bucketRef string, storageKey string, title string) (indexer.IndexResult, error) {
	if m.OnBeginIndexing != nil {
		return m.OnBeginIndexing(ctx, topicId, bucketRef, storageKey, title)
	}
	return indexer.IndexResult{PipelineId: "pipeline-default", FileId: "file-default"}, nil
}

// MockRetrievalGateway implements indexer.RetrievalGateway
type MockRetrievalGateway struct {
	OnRetrieve func(ctx context.Context, pipelineId string, query string, topK int) ([]indexer.Passage, error)
}

func (m *MockRetrievalGateway) Retrieve(ctx context.Context, pipelineId string, query string, topK int) ([]indexer.Passage, error) {
	if m.OnRetrieve != nil {
		return m.OnRetrieve(ctx, pipelineId, query, topK)
	}
	return []indexer.Passage{{Text: "default passage", PageLabel: "1", FileName: "doc.pdf", Score: 0.5}}, nil
}

// MockLLM implements synth.Provider
type MockLLM struct {
	OnSynthesize func(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

func (m *MockLLM) Synthesize(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	if m.OnSynthesize != nil {
		return m.OnSynthesize(ctx, systemPrompt, userPrompt)
	}
	return "mocked llm response", nil
}
