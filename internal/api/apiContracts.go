package api

import "time"

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	TopicId   string            `json:"topic_id" example:"topic_550"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type Result struct {
	Status      string               `json:"status"`
	IndexResult *IndexResultResponse `json:"index_result,omitempty"`
}

// IndexResultResponse is the caller-facing outcome of the indexing operation.
type IndexResultResponse struct {
	Success    bool   `json:"success"`
	PipelineId string `json:"pipelineId,omitempty"`
	FileId     string `json:"fileId,omitempty"`
	Error      string `json:"error,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	TopicId   string `json:"topic_id"`
	StatusURL string `json:"status_url"`
}

type TopicResponse struct {
	Id              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Status          string `json:"status"`
	IndexPipelineId string `json:"index_pipeline_id,omitempty"`
	IndexFileId     string `json:"index_file_id,omitempty"`
	PageCount       int    `json:"page_count,omitempty"`
	LastError       string `json:"last_error,omitempty"`
	CreatedAt       string `json:"created_at"`
	IndexedAt       string `json:"indexed_at,omitempty"`
	UpdatedAt       string `json:"updated_at"`
}

type TopicListResponse struct {
	Success bool            `json:"success"`
	Topics  []TopicResponse `json:"topics"`
}

type Citation struct {
	Ordinal int     `json:"ordinal"`
	Page    string  `json:"page"`
	Source  string  `json:"source"`
	Excerpt string  `json:"excerpt"`
	Score   float64 `json:"score"`
}

type QueryMetadata struct {
	TopicTitle     string `json:"topicTitle"`
	QueriedAt      string `json:"queriedAt"`
	NodesRetrieved int    `json:"nodesRetrieved"`
}

type QueryResponse struct {
	Success   bool           `json:"success"`
	Answer    string         `json:"answer,omitempty"`
	Citations []Citation     `json:"citations"`
	Metadata  *QueryMetadata `json:"metadata,omitempty"`
	Error     string         `json:"error,omitempty"`
}

type PassageResponse struct {
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
	PageLabel string  `json:"page_label"`
	FileName  string  `json:"file_name"`
}

type RetrieveResponse struct {
	Success  bool              `json:"success"`
	Passages []PassageResponse `json:"passages,omitempty"`
	Error    string            `json:"error,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// requests---------------------

type QueryRequest struct {
	Query string `json:"query" validate:"required"`
	TopK  int    `json:"top_k,omitempty"`
}

type RetrieveRequest struct {
	Query string `json:"query" validate:"required"`
	TopK  int    `json:"top_k,omitempty"`
}
