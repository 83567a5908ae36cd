package indexer

import (
	"errors"
	"fmt"
)

type Step string

const (
	StepStorageRead    Step = "STORAGE_READ"
	StepPipelineCreate Step = "PIPELINE_CREATE"
	StepFileUpload     Step = "FILE_UPLOAD"
	StepFileAttach     Step = "FILE_ATTACH"
	StepRetrieve       Step = "RETRIEVAL"
)

// ServiceError tags a failure with the step it happened in and, for HTTP
// rejections, the upstream status and body text.
type ServiceError struct {
	Step       Step
	StatusCode int
	Body       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s: service returned %d: %s", e.Step, e.StatusCode, e.Body)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// StepOf returns the failing step, or "" when err is not a ServiceError.
func StepOf(err error) Step {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}
