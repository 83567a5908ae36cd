// @title           Topic QA API
// @version         1.0
// @description     Upload PDF topics, index them, and ask cited questions
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/TopicQA/internal/blob/gcsBlob"
	"github.com/akolanti/TopicQA/internal/config"
	"github.com/akolanti/TopicQA/internal/data/store"
	"github.com/akolanti/TopicQA/internal/domain/jobModel"
	"github.com/akolanti/TopicQA/internal/domain/topicModel"
	"github.com/akolanti/TopicQA/internal/handlers"
	"github.com/akolanti/TopicQA/internal/indexer/llamaCloud"
	"github.com/akolanti/TopicQA/internal/job"
	"github.com/akolanti/TopicQA/internal/qa"
	"github.com/akolanti/TopicQA/internal/qa/synth/anthropicLLM"
	"github.com/akolanti/TopicQA/internal/server"
	"github.com/akolanti/TopicQA/internal/worker"
	"github.com/akolanti/TopicQA/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobModel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}
	logger.Info("Starting job service")

	var topicStore topicModel.TopicStore
	redisJobs := store.GetRedisJobStore(serviceContext)
	redisTopics := store.GetRedisTopicStore(serviceContext)
	if redisJobs == nil || redisTopics == nil {
		logger.Error("Redis stores are offline")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		topicStore = store.InitInMemoryTopicStore()
	} else {
		serviceConfig.JobStore = redisJobs
		topicStore = redisTopics
	}
	service := job.InitJobService(serviceConfig)

	blobStore, err := gcsBlob.NewStore(serviceContext)
	if err != nil {
		logger.Error("Blob storage failed to initialize. Shutting down.", "err", err)
		return
	}

	indexerClient := llamaCloud.NewClient(blobStore)
	llmProvider := anthropicLLM.NewClient(config.AnthropicAPIKey, config.AnthropicModelName)

	if llmProvider == nil {
		logger.Error("LLM provider failed to initialize. Shutting down.")
		return
	}

	qaService := qa.NewService(topicStore, indexerClient, indexerClient, llmProvider)

	handlers.InitTopicHandler(service, qaService, topicStore, blobStore)

	//init worker pool
	worker.InitServices(service, qaService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
