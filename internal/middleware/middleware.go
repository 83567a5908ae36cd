package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/TopicQA/internal/handlers"
	"github.com/akolanti/TopicQA/internal/metrics"
	"github.com/akolanti/TopicQA/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var GetHandler = Wrap(handlers.GetHandler)

var PostTopicHandler = Wrap(handlers.PostTopicHandler)
var PostReindexHandler = Wrap(handlers.PostReindexHandler)
var GetTopicHandler = Wrap(handlers.GetTopicHandler)
var ListTopicsHandler = Wrap(handlers.ListTopicsHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)
var PostQueryHandler = Wrap(handlers.PostQueryHandler)
var PostRetrieveHandler = Wrap(handlers.PostRetrieveHandler)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc() //metrics
	}
}
func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Info("New request received")
	re = injectTrace(re)
	re = authenticate(re)
	if re.badRequest.isBadRequest {
		return re //stop if auth fails
	}
	re = rateLimiter(re)

	return re
}
