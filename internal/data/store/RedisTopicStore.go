package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/akolanti/TopicQA/internal/config"
	"github.com/akolanti/TopicQA/internal/data/redisStore"
	"github.com/akolanti/TopicQA/internal/domain/topicModel"
	"github.com/akolanti/TopicQA/pkg/logger_i"
)

const (
	topicKeyPrefix = "topic:"
	topicIndexKey  = "topics:index"
)

type RedisTopicStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisTopicStore(ctx context.Context) *RedisTopicStore {
	inner := redisStore.GetRedisStore(ctx, config.RedisTopicStore)
	if inner == nil {
		return nil
	}
	return &RedisTopicStore{
		store:  inner,
		logger: logger_i.NewLogger("TopicStore"),
	}
}

func (s *RedisTopicStore) SaveTopic(ctx context.Context, topic topicModel.Topic) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "topic Id", topic.Id)
	data, err := json.Marshal(topic)
	if err != nil {
		return err
	}

	if err = s.store.Set(ctx, topicKeyPrefix+topic.Id, data, config.RedisTopicStoreTTL); err != nil {
		return err
	}
	if err = s.store.SetAdd(ctx, topicIndexKey, topic.Id); err != nil {
		return err
	}
	log.Debug("Saved topic to Redis")
	return nil
}

func (s *RedisTopicStore) GetTopic(ctx context.Context, id string) (topicModel.Topic, bool) {
	var topic topicModel.Topic
	val, err := s.store.Get(ctx, topicKeyPrefix+id)
	if s.store.IsNil(err) {
		return topic, false
	} else if err != nil {
		s.logger.Error("Error reading topic from Redis", "topic Id", id, "error", err)
		return topic, false
	}

	if err = json.Unmarshal([]byte(val), &topic); err != nil {
		s.logger.Error("Corrupt topic record", "topic Id", id, "error", err)
		return topic, false
	}
	return topic, true
}

func (s *RedisTopicStore) ListTopics(ctx context.Context) ([]topicModel.Topic, error) {
	ids, err := s.store.SetMembers(ctx, topicIndexKey)
	if err != nil {
		return nil, err
	}

	topics := make([]topicModel.Topic, 0, len(ids))
	for _, id := range ids {
		if topic, found := s.GetTopic(ctx, id); found {
			topics = append(topics, topic)
		}
	}
	return topics, nil
}

// Transition is the compare-and-swap over the status field. The whole
// read-check-apply-write runs under WATCH so a concurrent indexing attempt
// loses cleanly instead of overwriting pipeline ids.
func (s *RedisTopicStore) Transition(ctx context.Context, id string, tr topicModel.Transition) (topicModel.Topic, error) {
	var updated topicModel.Topic

	err := s.store.UpdateWithLock(ctx, topicKeyPrefix+id, config.RedisTopicStoreTTL, func(current string, found bool) (string, error) {
		if !found {
			return "", topicModel.ErrTopicMissing
		}

		var topic topicModel.Topic
		if err := json.Unmarshal([]byte(current), &topic); err != nil {
			return "", err
		}
		if !tr.Allows(topic.Status) {
			s.logger.Warn("Rejected status transition", "topic Id", id, "current", topic.Status, "wanted", tr.To)
			return "", topicModel.ErrStatusConflict
		}

		topic.Status = tr.To
		if tr.Apply != nil {
			tr.Apply(&topic)
		}
		topic.UpdatedAt = time.Now()

		data, err := json.Marshal(topic)
		if err != nil {
			return "", err
		}
		updated = topic
		return string(data), nil
	})
	if err != nil {
		return topicModel.Topic{}, err
	}
	return updated, nil
}

func TestTopicStore(store *redisStore.Store) *RedisTopicStore {
	return &RedisTopicStore{
		store:  store,
		logger: logger_i.NewLogger("test topic store"),
	}
}
