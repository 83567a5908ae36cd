package llamaCloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/akolanti/TopicQA/internal/adapter/utils"
	"github.com/akolanti/TopicQA/internal/blob"
	"github.com/akolanti/TopicQA/internal/config"
	"github.com/akolanti/TopicQA/internal/customHttpClient"
	"github.com/akolanti/TopicQA/internal/indexer"
	"github.com/akolanti/TopicQA/internal/metrics"
	"github.com/akolanti/TopicQA/pkg/logger_i"
)

// Client implements both indexer gateways against the Llama Cloud HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	projectId  string
	blobStore  blob.Store
	logger     *logger_i.Logger
}

func NewClient(blobStore blob.Store) *Client {
	return &Client{
		httpClient: customHttpClient.NewPooledClient(config.LlamaCloudTimeout),
		baseURL:    config.LlamaCloudBaseURL(),
		apiKey:     config.LlamaCloudAPIKey,
		projectId:  config.LlamaCloudProjectID,
		blobStore:  blobStore,
		logger:     logger_i.NewLogger("LlamaCloud"),
	}
}

// NewTestClient points the client at a fake server.
func NewTestClient(baseURL string, blobStore blob.Store) *Client {
	c := NewClient(blobStore)
	c.baseURL = baseURL
	c.apiKey = "test-key"
	c.projectId = "test-project"
	return c
}

// BeginIndexing runs download / create pipeline / upload file / attach file
// in order, failing at the first broken step. The returned IndexResult keeps
// PipelineId populated on upload/attach failures so the caller can persist it
// for manual cleanup of the orphaned pipeline.
func (c *Client) BeginIndexing(ctx context.Context, topicId string, bucketRef string, storageKey string, title string) (indexer.IndexResult, error) {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "topic Id", topicId)
	var result indexer.IndexResult

	log.Debug("Downloading raw document", "key", storageKey)
	raw, err := c.downloadRaw(ctx, bucketRef, storageKey)
	if err != nil {
		return result, err
	}

	pipelineId, err := c.createPipeline(ctx, title)
	if err != nil {
		return result, err
	}
	result.PipelineId = pipelineId
	log.Info("Created pipeline", "pipeline Id", pipelineId)

	fileId, err := c.uploadFile(ctx, storageKey, raw)
	if err != nil {
		return result, err
	}
	result.FileId = fileId
	log.Info("Uploaded file", "file Id", fileId)

	if err = c.attachFile(ctx, pipelineId, fileId); err != nil {
		return result, err
	}
	log.Info("Attached file to pipeline - indexing started on the service side")
	return result, nil
}

func (c *Client) downloadRaw(ctx context.Context, bucketRef string, storageKey string) ([]byte, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("blob_download", time.Since(start)) }()

	raw, err := c.blobStore.Download(ctx, bucketRef, storageKey)
	if err != nil {
		return nil, &indexer.ServiceError{Step: indexer.StepStorageRead, Err: err}
	}
	return raw, nil
}

type createPipelineRequest struct {
	Name            string          `json:"name"`
	TransformConfig transformConfig `json:"transform_config"`
}

type transformConfig struct {
	Mode       string `json:"mode"`
	ConfigName string `json:"config_name"`
}

type idResponse struct {
	Id string `json:"id"`
}

func (c *Client) createPipeline(ctx context.Context, title string) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("pipeline_create", time.Since(start)) }()

	// Deliberately no embedding config: the service default is used. Sending
	// an explicit embedding_config requires embedding-provider credentials
	// this deployment does not hold and the service rejects the call with an
	// auth error.
	body := createPipelineRequest{
		Name: utils.Slugify(title) + "-" + strconv.FormatInt(time.Now().Unix(), 10),
		TransformConfig: transformConfig{
			Mode:       "auto",
			ConfigName: "auto",
		},
	}

	status, respBody, err := c.doJSON(ctx, http.MethodPost, "/pipelines", body)
	if err != nil {
		return "", &indexer.ServiceError{Step: indexer.StepPipelineCreate, Err: err}
	}
	if status < 200 || status >= 300 {
		return "", &indexer.ServiceError{Step: indexer.StepPipelineCreate, StatusCode: status, Body: string(respBody)}
	}

	var resp idResponse
	if err = json.Unmarshal(respBody, &resp); err != nil || resp.Id == "" {
		return "", &indexer.ServiceError{Step: indexer.StepPipelineCreate, Err: fmt.Errorf("no pipeline id in response: %s", respBody)}
	}
	return resp.Id, nil
}

func (c *Client) uploadFile(ctx context.Context, storageKey string, raw []byte) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("file_upload", time.Since(start)) }()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	// The field MUST be named upload_file - anything else fails validation.
	part, err := writer.CreateFormFile(config.LlamaCloudUploadField, path.Base(storageKey))
	if err != nil {
		return "", &indexer.ServiceError{Step: indexer.StepFileUpload, Err: err}
	}
	if _, err = part.Write(raw); err != nil {
		return "", &indexer.ServiceError{Step: indexer.StepFileUpload, Err: err}
	}
	if err = writer.Close(); err != nil {
		return "", &indexer.ServiceError{Step: indexer.StepFileUpload, Err: err}
	}

	// Scoped by project_id - the organization id is the wrong identifier here
	// and gets rejected with an authorization error.
	url := c.baseURL + "/files?project_id=" + c.projectId
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", &indexer.ServiceError{Step: indexer.StepFileUpload, Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	status, respBody, err := c.send(req)
	if err != nil {
		return "", &indexer.ServiceError{Step: indexer.StepFileUpload, Err: err}
	}
	if status < 200 || status >= 300 {
		return "", &indexer.ServiceError{Step: indexer.StepFileUpload, StatusCode: status, Body: string(respBody)}
	}

	var resp idResponse
	if err = json.Unmarshal(respBody, &resp); err != nil || resp.Id == "" {
		return "", &indexer.ServiceError{Step: indexer.StepFileUpload, Err: fmt.Errorf("no file id in response: %s", respBody)}
	}
	return resp.Id, nil
}

type attachFileEntry struct {
	FileId string `json:"file_id"`
}

func (c *Client) attachFile(ctx context.Context, pipelineId string, fileId string) error {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("file_attach", time.Since(start)) }()

	// PUT replaces the pipeline's whole file set, which makes the call
	// idempotent. Returning success only means the attachment was accepted -
	// indexing continues asynchronously on the service side.
	status, respBody, err := c.doJSON(ctx, http.MethodPut, "/pipelines/"+pipelineId+"/files", []attachFileEntry{{FileId: fileId}})
	if err != nil {
		return &indexer.ServiceError{Step: indexer.StepFileAttach, Err: err}
	}
	if status < 200 || status >= 300 {
		return &indexer.ServiceError{Step: indexer.StepFileAttach, StatusCode: status, Body: string(respBody)}
	}
	return nil
}

type retrieveRequest struct {
	Query          string `json:"query"`
	SimilarityTopK int    `json:"similarity_top_k"`
}

func (c *Client) Retrieve(ctx context.Context, pipelineId string, query string, topK int) ([]indexer.Passage, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieval", time.Since(start)) }()

	status, respBody, err := c.doJSON(ctx, http.MethodPost, "/pipelines/"+pipelineId+"/retrieve",
		retrieveRequest{Query: query, SimilarityTopK: topK})
	if err != nil {
		return nil, &indexer.ServiceError{Step: indexer.StepRetrieve, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &indexer.ServiceError{Step: indexer.StepRetrieve, StatusCode: status, Body: string(respBody)}
	}

	passages, err := normalizeRetrieval(respBody)
	if err != nil {
		return nil, &indexer.ServiceError{Step: indexer.StepRetrieve, Err: err}
	}
	return passages, nil
}

func (c *Client) doJSON(ctx context.Context, method string, endpoint string, body any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.send(req)
}

func (c *Client) send(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
