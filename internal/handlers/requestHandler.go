package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/akolanti/TopicQA/internal/adapter"
	"github.com/akolanti/TopicQA/internal/adapter/utils"
	"github.com/akolanti/TopicQA/internal/api"
	"github.com/akolanti/TopicQA/internal/config"
	"github.com/akolanti/TopicQA/internal/domain/topicModel"
	"github.com/akolanti/TopicQA/internal/qa/preflight"
)

type newJobData struct {
	id      string
	topicId string
	traceId string
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// PostTopicHandler receives a PDF via multipart/form-data, validates it,
// stores the raw bytes in the blob store, creates the Topic record as
// PENDING and queues an indexing job. Upload success is reported even if the
// background indexing later fails - the UI shows a processing state right
// away and polls.
// @Summary      Upload a topic document
// @Tags         Topics
// @Accept       multipart/form-data
// @Produce      json
// @Param        title        formData  string  true   "Topic title"
// @Param        description  formData  string  false  "Topic description"
// @Param        document     formData  file    true   "The PDF to index"
// @Success      202  {object}  api.InitJobResponse
// @Failure      400  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /topics [post]
func PostTopicHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}

	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "File too large or bad request")
		return
	}

	title := r.FormValue("title")
	if title == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	description := r.FormValue("description")

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	raw, err := io.ReadAll(fileReader)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, "Read error")
		return
	}

	pageCount, err := preflight.ValidatePDF(raw)
	if err != nil {
		logRH.Warn("Rejected upload", "file", fileMetadata.Filename, "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "Not a valid PDF: "+err.Error())
		return
	}

	bucket := config.TopicBucketName
	if bucket == "" {
		logRH.Error("TOPIC_GCS_BUCKET_NAME is not set")
		WriteErrorResponse(w, http.StatusInternalServerError, "Storage error")
		return
	}

	topicId := utils.GetNewUUID()
	storageKey := fmt.Sprintf("topics/%s/%d-%s", topicId, time.Now().UnixNano(), fileMetadata.Filename)

	if err = handlerInstance.blobs.Upload(r.Context(), bucket, storageKey, "application/pdf", bytes.NewReader(raw)); err != nil {
		logRH.Error("Blob upload failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Storage error")
		return
	}

	now := time.Now()
	topic := topicModel.Topic{
		Id:            topicId,
		Title:         title,
		Description:   description,
		RawStorageKey: storageKey,
		BucketRef:     bucket,
		Status:        topicModel.StatusPending,
		PageCount:     pageCount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err = handlerInstance.topics.SaveTopic(r.Context(), topic); err != nil {
		logRH.Error("Could not create topic record", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Storage error")
		return
	}

	enqueueIndexJob(w, r, topicId)
}

// PostReindexHandler re-triggers indexing for a PENDING or FAILED topic.
// @Summary      Re-run indexing for a topic
// @Tags         Topics
// @Produce      json
// @Success      202  {object}  api.InitJobResponse
// @Failure      404  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /topics/{id}/index [post]
func PostReindexHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}

	topicId := utils.GetChiURLParam(r, "id")
	topic, found := handlerInstance.topics.GetTopic(r.Context(), topicId)
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, "Topic not found")
		return
	}

	switch topic.Status {
	case topicModel.StatusReady:
		WriteErrorResponse(w, http.StatusConflict, "Topic is already indexed")
		return
	case topicModel.StatusIndexing:
		WriteErrorResponse(w, http.StatusConflict, "An indexing attempt is already in flight")
		return
	}

	enqueueIndexJob(w, r, topicId)
}

// GetTopicHandler returns one topic record.
// @Router /topics/{id} [get]
func GetTopicHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	topicId := utils.GetChiURLParam(r, "id")
	topic, found := handlerInstance.topics.GetTopic(r.Context(), topicId)
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, "Topic not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToTopicResponse(topic))
}

// ListTopicsHandler returns every topic record.
// @Router /topics [get]
func ListTopicsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	topics, err := handlerInstance.topics.ListTopics(r.Context())
	if err != nil {
		logRH.Error("Could not list topics", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToTopicListResponse(topics))
}

// GetStatusHandler retrieves the status of a background indexing job.
// @Router /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(idString, r.Context().Value(config.TRACE_ID_KEY).(string))

	logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// PostQueryHandler answers a question against a READY topic.
// @Summary      Ask a question about a topic
// @Tags         Questions
// @Accept       json
// @Produce      json
// @Param        request  body      api.QueryRequest  true  "Question"
// @Success      200      {object}  api.QueryResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /topics/{id}/query [post]
func PostQueryHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}

	var requestData api.QueryRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || requestData.Query == "" {
		logRH.Warn("Bad Query Request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "query is required")
		return
	}

	topicId := utils.GetChiURLParam(r, "id")
	result, err := handlerInstance.qaService.AnswerQuery(r.Context(), topicId, requestData.Query, requestData.TopK)
	if err != nil {
		WriteErrorResponse(w, queryErrorCode(err), err.Error())
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToQueryResponse(result))
}

// PostRetrieveHandler is the diagnostic path: raw retrieved passages, no
// synthesis, defaulting to a smaller topK.
// @Router /topics/{id}/retrieve [post]
func PostRetrieveHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	var requestData api.RetrieveRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || requestData.Query == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "query is required")
		return
	}

	topicId := utils.GetChiURLParam(r, "id")
	passages, err := handlerInstance.qaService.Retrieve(r.Context(), topicId, requestData.Query, requestData.TopK)
	if err != nil {
		WriteErrorResponse(w, queryErrorCode(err), err.Error())
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToRetrieveResponse(passages))
}

func enqueueIndexJob(w http.ResponseWriter, r *http.Request, topicId string) {
	newJob := newJobData{
		id:      utils.GetNewUUID(),
		topicId: topicId,
		traceId: r.Context().Value(config.TRACE_ID_KEY).(string),
	}
	CreateIndexJob(newJob)
	res := adapter.ToInitJobResponse(newJob.id, topicId)
	writeJsonResponse(w, http.StatusAccepted, res)
}
