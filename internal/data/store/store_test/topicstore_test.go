package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/TopicQA/internal/config"
	"github.com/akolanti/TopicQA/internal/data/redisStore"
	"github.com/akolanti/TopicQA/internal/data/store"
	"github.com/akolanti/TopicQA/internal/domain/topicModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTopicStore(t *testing.T) *store.RedisTopicStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return store.TestTopicStore(redisStore.NewTestStore(client))
}

func TestRedisTopicStore_Lifecycle(t *testing.T) {
	topicStore := newTopicStore(t)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")

	testTopic := topicModel.Topic{
		Id:            "topic_abc_123",
		Title:         "Financial Conduct Handbook",
		RawStorageKey: "topics/topic_abc_123/handbook.pdf",
		BucketRef:     "test-bucket",
		Status:        topicModel.StatusPending,
		PageCount:     120,
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		if err := topicStore.SaveTopic(ctx, testTopic); err != nil {
			t.Fatalf("SaveTopic failed: %v", err)
		}

		retrieved, found := topicStore.GetTopic(ctx, testTopic.Id)
		if !found {
			t.Fatal("Topic was saved but not found in Redis")
		}
		if retrieved.Title != testTopic.Title || retrieved.PageCount != 120 {
			t.Errorf("Data mismatch! Got %+v", retrieved)
		}
	})

	t.Run("Get Non-Existent Topic", func(t *testing.T) {
		_, found := topicStore.GetTopic(ctx, "ghost-id")
		if found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("List Includes Saved Topics", func(t *testing.T) {
		second := testTopic
		second.Id = "topic_def_456"
		if err := topicStore.SaveTopic(ctx, second); err != nil {
			t.Fatalf("SaveTopic failed: %v", err)
		}

		topics, err := topicStore.ListTopics(ctx)
		if err != nil {
			t.Fatalf("ListTopics failed: %v", err)
		}
		if len(topics) != 2 {
			t.Errorf("Expected 2 topics, got %d", len(topics))
		}
	})
}

func TestRedisTopicStore_Transition(t *testing.T) {
	topicStore := newTopicStore(t)
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "cas-trace")

	seed := topicModel.Topic{
		Id:     "cas-topic",
		Title:  "Handbook",
		Status: topicModel.StatusPending,
	}
	if err := topicStore.SaveTopic(ctx, seed); err != nil {
		t.Fatalf("SaveTopic failed: %v", err)
	}

	t.Run("Allowed transition applies and persists", func(t *testing.T) {
		updated, err := topicStore.Transition(ctx, seed.Id, topicModel.Transition{
			From:  []topicModel.TopicStatus{topicModel.StatusPending, topicModel.StatusFailed},
			To:    topicModel.StatusIndexing,
			Apply: func(tp *topicModel.Topic) { tp.LastError = "" },
		})
		if err != nil {
			t.Fatalf("Transition failed: %v", err)
		}
		if updated.Status != topicModel.StatusIndexing {
			t.Errorf("Status got %s, want INDEXING", updated.Status)
		}
		if updated.UpdatedAt.IsZero() {
			t.Error("UpdatedAt should be refreshed by the transition")
		}

		stored, _ := topicStore.GetTopic(ctx, seed.Id)
		if stored.Status != topicModel.StatusIndexing {
			t.Errorf("persisted Status got %s, want INDEXING", stored.Status)
		}
	})

	t.Run("Disallowed transition is rejected", func(t *testing.T) {
		_, err := topicStore.Transition(ctx, seed.Id, topicModel.Transition{
			From: []topicModel.TopicStatus{topicModel.StatusPending},
			To:   topicModel.StatusIndexing,
		})
		if !errors.Is(err, topicModel.ErrStatusConflict) {
			t.Errorf("got %v, want ErrStatusConflict", err)
		}

		stored, _ := topicStore.GetTopic(ctx, seed.Id)
		if stored.Status != topicModel.StatusIndexing {
			t.Errorf("Status should be unchanged, got %s", stored.Status)
		}
	})

	t.Run("Apply writes pipeline ids", func(t *testing.T) {
		updated, err := topicStore.Transition(ctx, seed.Id, topicModel.Transition{
			From: []topicModel.TopicStatus{topicModel.StatusIndexing},
			To:   topicModel.StatusReady,
			Apply: func(tp *topicModel.Topic) {
				tp.IndexPipelineId = "pl-1"
				tp.IndexFileId = "f-1"
			},
		})
		if err != nil {
			t.Fatalf("Transition failed: %v", err)
		}
		if updated.IndexPipelineId != "pl-1" || updated.IndexFileId != "f-1" {
			t.Errorf("ids not applied, got %+v", updated)
		}
	})

	t.Run("Missing topic", func(t *testing.T) {
		_, err := topicStore.Transition(ctx, "ghost-id", topicModel.Transition{
			From: []topicModel.TopicStatus{topicModel.StatusPending},
			To:   topicModel.StatusIndexing,
		})
		if !errors.Is(err, topicModel.ErrTopicMissing) {
			t.Errorf("got %v, want ErrTopicMissing", err)
		}
	})
}
