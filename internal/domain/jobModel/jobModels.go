package jobModel

import (
	"context"
	"time"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	IndexInit      InternalStatus = "Init"
	BlobDownload   InternalStatus = "BlobDownload"
	PipelineCreate InternalStatus = "PipelineCreate"
	FileUpload     InternalStatus = "FileUpload"
	FileAttach     InternalStatus = "FileAttach"
	Error          InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeIndex JobType = "Index"
)

// Job tracks one background indexing attempt for a topic. The record outlives
// the request that enqueued it so /status/{id} can report the outcome.
type Job struct {
	Id          string         `json:"id"`
	TopicId     string         `json:"topic_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	Result      IndexResult    `json:"result"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

// IndexResult is the caller-facing outcome of the indexing operation.
type IndexResult struct {
	Success    bool   `json:"success"`
	PipelineId string `json:"pipelineId,omitempty"`
	FileId     string `json:"fileId,omitempty"`
	Error      string `json:"error,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}
