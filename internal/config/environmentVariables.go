package config

import (
	"log/slog"
	"os"
	"time"
)

const (
	IS_PROD                         = false
	LOG_LEVEL_PROD                  = slog.LevelInfo
	FALLBACK_REDIS_TO_INTERNALSTORE = true //if redis init fails, it falls back to an in-memory store
	NoAuthBypass                    = false
	TRACE_ID_KEY                    = "traceId"
	RATE_LIMIT_PER_SECOND           = 2
	BURST_RATE_LIMIT_PER_SECOND     = 5

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 60 * time.Second //query path waits on retrieval + synthesis
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//uploads
	MaxUploadSize int64 = 32 << 20 //32mb

	//llama cloud indexing service
	DefaultLlamaCloudBaseURL = "https://api.cloud.llamaindex.ai/api/v1"
	LlamaCloudTimeout        = 60 * time.Second
	//the multipart field name the file endpoint expects - any other name is rejected with a validation error
	LlamaCloudUploadField = "upload_file"

	//retrieval
	QueryTopK      = 10
	DiagnosticTopK = 5

	//citations
	ExcerptLimit   = 300
	UnknownPage    = "Unknown"
	NoAnswerText   = "No relevant information was found in this document for your question."
	BlockSeparator = "\n\n---\n\n"

	//llm synthesis
	AnthropicModelName       = "claude-sonnet-4-20250514"
	SynthesisMaxTokens int64 = 1024
	SynthesisSystemPrompt    = "You are an assistant answering questions about a regulatory document. " +
		"Answer only from the numbered excerpts provided. " +
		"Every claim must cite its source page inline in the form (Page N), " +
		"using the page shown on the excerpt you took it from. " +
		"If the excerpts do not contain the answer, say so."

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost     = "127.0.0.1"
	redisPort     = "6379"
	RedisAddr     = redisHost + ":" + redisPort
	RedisPassword = ""

	//redis has 16 DB we can use
	RedisTopicStore = 0
	RedisJobStore   = 1

	//redis timeouts - topics never expire, job records do
	RedisTopicStoreTTL time.Duration = 0
	RedisJobStoreTTL                 = 24 * time.Hour
)

// secrets and deployment-specific values come from the environment
var (
	AuthToken           = os.Getenv("AUTH_TOKEN")
	LlamaCloudAPIKey    = os.Getenv("LLAMA_CLOUD_API_KEY")
	LlamaCloudProjectID = os.Getenv("LLAMA_CLOUD_PROJECT_ID") //project id, NOT the organization id
	AnthropicAPIKey     = os.Getenv("ANTHROPIC_API_KEY")
	TopicBucketName     = os.Getenv("TOPIC_GCS_BUCKET_NAME")
)

func LlamaCloudBaseURL() string {
	if url := os.Getenv("LLAMA_CLOUD_BASE_URL"); url != "" {
		return url
	}
	return DefaultLlamaCloudBaseURL
}
