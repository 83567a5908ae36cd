package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/TopicQA/internal/domain/topicModel"
)

type InMemoryTopicStore struct {
	topicMutex *sync.RWMutex
	topicMap   map[string]topicModel.Topic
}

func InitInMemoryTopicStore() *InMemoryTopicStore {
	return &InMemoryTopicStore{
		topicMutex: new(sync.RWMutex),
		topicMap:   make(map[string]topicModel.Topic),
	}
}

func (store *InMemoryTopicStore) SaveTopic(ctx context.Context, topic topicModel.Topic) error {
	store.topicMutex.Lock()
	defer store.topicMutex.Unlock()
	store.topicMap[topic.Id] = topic
	inMemLogger.Info(topic.Id, " : Saved topic to store")
	return nil
}

func (store *InMemoryTopicStore) GetTopic(ctx context.Context, id string) (topicModel.Topic, bool) {
	store.topicMutex.RLock()
	defer store.topicMutex.RUnlock()
	result, found := store.topicMap[id]
	return result, found
}

func (store *InMemoryTopicStore) ListTopics(ctx context.Context) ([]topicModel.Topic, error) {
	store.topicMutex.RLock()
	defer store.topicMutex.RUnlock()
	topics := make([]topicModel.Topic, 0, len(store.topicMap))
	for _, topic := range store.topicMap {
		topics = append(topics, topic)
	}
	return topics, nil
}

// the mutex gives the same single-writer guarantee the redis store gets from WATCH
func (store *InMemoryTopicStore) Transition(ctx context.Context, id string, tr topicModel.Transition) (topicModel.Topic, error) {
	store.topicMutex.Lock()
	defer store.topicMutex.Unlock()

	topic, found := store.topicMap[id]
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
	store.topicMap[id] = topic
	return topic, nil
}
