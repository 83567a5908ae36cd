package topicModel

import (
	"context"
	"errors"
	"time"
)

type TopicStatus string

const (
	StatusPending  TopicStatus = "PENDING"
	StatusIndexing TopicStatus = "INDEXING"
	StatusReady    TopicStatus = "READY"
	StatusFailed   TopicStatus = "FAILED"
)

// Topic is one indexed source document. The status field is only ever moved
// through Transition so concurrent writers cannot clobber each other.
type Topic struct {
	Id              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description,omitempty"`
	RawStorageKey   string      `json:"raw_storage_key"`
	BucketRef       string      `json:"bucket_ref"`
	Status          TopicStatus `json:"status"`
	IndexPipelineId string      `json:"index_pipeline_id,omitempty"`
	IndexFileId     string      `json:"index_file_id,omitempty"`
	PageCount       int         `json:"page_count,omitempty"`
	LastError       string      `json:"last_error,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	IndexedAt       time.Time   `json:"indexed_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (t Topic) Queryable() bool {
	return t.Status == StatusReady && t.IndexPipelineId != ""
}

// Transition is a compare-and-swap on the status field: it only applies when
// the stored status is one of From, and Apply runs on the stored record before
// the write. UpdatedAt is refreshed by the store on every transition.
type Transition struct {
	From  []TopicStatus
	To    TopicStatus
	Apply func(t *Topic)
}

func (tr Transition) Allows(current TopicStatus) bool {
	for _, s := range tr.From {
		if s == current {
			return true
		}
	}
	return false
}

var (
	ErrTopicMissing   = errors.New("topic does not exist")
	ErrStatusConflict = errors.New("topic status changed underneath this transition")
)

type TopicStore interface {
	GetTopic(ctx context.Context, id string) (Topic, bool)
	SaveTopic(ctx context.Context, topic Topic) error
	ListTopics(ctx context.Context) ([]Topic, error)
	Transition(ctx context.Context, id string, tr Transition) (Topic, error)
}
