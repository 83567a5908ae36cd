package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/TopicQA/internal/api"
	"github.com/akolanti/TopicQA/internal/domain/jobModel"
	"github.com/akolanti/TopicQA/internal/domain/topicModel"
	"github.com/akolanti/TopicQA/internal/indexer"
	"github.com/akolanti/TopicQA/internal/qa"
)

func ToInitJobResponse(jobId string, topicId string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        jobId,
		TopicId:   topicId,
		StatusURL: fmt.Sprintf("/status/%s", jobId),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:      string(job.Status),
		IndexResult: ToIndexResultResponse(job),
	}

	return api.JobResponse{
		Id:        job.Id,
		TopicId:   job.TopicId,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToIndexResultResponse(job jobModel.Job) *api.IndexResultResponse {
	if job.Status == jobModel.JobStatusQueued || job.Status == jobModel.JobStatusRunning {
		return nil
	}
	return &api.IndexResultResponse{
		Success:    job.Result.Success,
		PipelineId: job.Result.PipelineId,
		FileId:     job.Result.FileId,
		Error:      job.Result.Error,
	}
}

func ToTopicResponse(topic topicModel.Topic) api.TopicResponse {
	resp := api.TopicResponse{
		Id:              topic.Id,
		Title:           topic.Title,
		Description:     topic.Description,
		Status:          string(topic.Status),
		IndexPipelineId: topic.IndexPipelineId,
		IndexFileId:     topic.IndexFileId,
		PageCount:       topic.PageCount,
		LastError:       topic.LastError,
		CreatedAt:       topic.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       topic.UpdatedAt.Format(time.RFC3339),
	}
	if !topic.IndexedAt.IsZero() {
		resp.IndexedAt = topic.IndexedAt.Format(time.RFC3339)
	}
	return resp
}

func ToTopicListResponse(topics []topicModel.Topic) api.TopicListResponse {
	list := make([]api.TopicResponse, len(topics))
	for i, topic := range topics {
		list[i] = ToTopicResponse(topic)
	}
	return api.TopicListResponse{Success: true, Topics: list}
}

func ToQueryResponse(result qa.QueryResult) api.QueryResponse {
	citations := make([]api.Citation, len(result.Citations))
	for i, c := range result.Citations {
		citations[i] = api.Citation{
			Ordinal: c.Ordinal,
			Page:    c.Page,
			Source:  c.Source,
			Excerpt: c.Excerpt,
			Score:   c.Score,
		}
	}

	return api.QueryResponse{
		Success:   true,
		Answer:    result.Answer,
		Citations: citations,
		Metadata: &api.QueryMetadata{
			TopicTitle:     result.Metadata.TopicTitle,
			QueriedAt:      result.Metadata.QueriedAt.Format(time.RFC3339),
			NodesRetrieved: result.Metadata.NodesRetrieved,
		},
	}
}

func ToRetrieveResponse(passages []indexer.Passage) api.RetrieveResponse {
	out := make([]api.PassageResponse, len(passages))
	for i, p := range passages {
		out[i] = api.PassageResponse{
			Text:      p.Text,
			Score:     p.Score,
			PageLabel: p.PageLabel,
			FileName:  p.FileName,
		}
	}
	return api.RetrieveResponse{Success: true, Passages: out}
}

func ToErrorResponse(message string) api.ErrorResponse {
	return api.ErrorResponse{Success: false, Error: message}
}
