package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/TopicQA/internal/blob"
	"github.com/akolanti/TopicQA/internal/config"
	"github.com/akolanti/TopicQA/internal/domain/jobModel"
	"github.com/akolanti/TopicQA/internal/domain/topicModel"
	"github.com/akolanti/TopicQA/internal/job"
	"github.com/akolanti/TopicQA/internal/metrics"
	"github.com/akolanti/TopicQA/internal/qa"
	"github.com/akolanti/TopicQA/pkg/logger_i"
)

var (
	handlerInstance *TopicHandler //private singleton
	once            sync.Once
	logTH           *logger_i.Logger
	logRH           *logger_i.Logger
)

type TopicHandler struct {
	service   *job.Service
	qaService qa.Service
	topics    topicModel.TopicStore
	blobs     blob.Store
}

func InitTopicHandler(jobService *job.Service, qaService qa.Service, topics topicModel.TopicStore, blobs blob.Store) {
	once.Do(func() {
		handlerInstance = &TopicHandler{
			service:   jobService,
			qaService: qaService,
			topics:    topics,
			blobs:     blobs,
		}

		logTH = logger_i.NewLogger("TopicHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logTH.Info("Starting topic handler")
	})

}

func CreateIndexJob(newJob newJobData) {
	logTH.With("traceId", newJob.traceId, "job id", newJob.id)
	logTH.Info("Queueing indexing job", "topic Id", newJob.topicId)
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

// private methods
func (h *TopicHandler) pushToJobChannel(newJob newJobData) {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.TopicId = newJob.topicId
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued
	_job.JobType = jobModel.JobTypeIndex
	_job.CurrentStep = jobModel.IndexInit

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //blocking send keeps the system from being overwhelmed
	logTH.Info("Created new indexing job")

	//indexing jobs block on external calls for a while, so every one of them
	//signals the dispatcher; idle workers retire on their own
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType == jobModel.JobTypeIndex {
		metrics.StartDispatcherSignalCount() //metrics
		h.service.DispatcherChannel <- true
	}
}
