package indexer

import "context"

// Passage is one retrieved excerpt, normalized from whichever response shape
// the retrieval service used. Score is an opaque ranking signal, not a
// probability.
type Passage struct {
	Text      string
	Score     float64
	PageLabel string
	FileName  string
}

// IndexResult carries the identifiers the indexing service handed back.
// On failure PipelineId may still be set when the pipeline was created before
// a later step failed - the caller persists it so the orphan can be cleaned
// up manually.
type IndexResult struct {
	PipelineId string
	FileId     string
}

// IndexingGateway runs the create-pipeline / upload-file / attach-file
// sequence against the external indexing service. The attach call returning
// means indexing was accepted, not that it finished.
type IndexingGateway interface {
	BeginIndexing(ctx context.Context, topicId string, bucketRef string, storageKey string, title string) (IndexResult, error)
}

// RetrievalGateway fetches the topK most relevant passages for a query.
// An empty slice is a valid "nothing relevant" outcome, not an error.
type RetrievalGateway interface {
	Retrieve(ctx context.Context, pipelineId string, query string, topK int) ([]Passage, error)
}
