package worker

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/akolanti/TopicQA/internal/config"
	jobmodel "github.com/akolanti/TopicQA/internal/domain/jobModel"
	"github.com/akolanti/TopicQA/internal/metrics"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	// the indexing sequence is four blocking external calls
	ctx, cancel := context.WithTimeout(ctxTrace, 5*time.Minute)
	defer cancel()
	logger.With("trace Id ", job.TraceId)
	logger.Debug("Processing indexing job", "job Id", job.Id, "topic Id", job.TopicId)

	saveJobState(ctx, job, jobmodel.JobStatusRunning)

	outcome := _qaService.RunIndexing(ctx, job.TopicId)

	job.Result = jobmodel.IndexResult{
		Success:    outcome.Success,
		PipelineId: outcome.PipelineId,
		FileId:     outcome.FileId,
	}

	if outcome.Err != nil {
		// the topic record already went FAILED inside RunIndexing; the job
		// record mirrors it so /status/{id} can show the operation result
		job.Result.Error = outcome.Err.Error()
		job.CurrentStep = jobmodel.Error
		job.Error = jobmodel.JobError{
			Code:    http.StatusInternalServerError,
			Message: outcome.Err.Error(),
			Retry:   true,
		}
		job.EndTime = time.Now()
		saveJobState(ctx, job, jobmodel.JobStatusError)
		return
	}

	job.CurrentStep = jobmodel.Complete
	job.EndTime = time.Now()
	saveJobState(ctx, job, jobmodel.JobStatusComplete)
}

func removeWorker(reason string) {

	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker ", "reason", reason, "workerCount", currentWorkerCount)
	metrics.DecrementActiveWorkerCount()

}

func saveJobState(ctx context.Context, job jobmodel.Job, jobStatus jobmodel.JobStatus) {
	job.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to update job status in store", "err", err)
	}
}
