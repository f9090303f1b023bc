package entity

import "net/http"

// ResultBody is the payload of a PipelineResult. Success carries
// NotifyTarget and DownloadLink; failure carries Message.
type ResultBody struct {
	Message      string `json:"message,omitempty"`
	NotifyTarget string `json:"notifyTarget,omitempty"`
	DownloadLink string `json:"downloadLink,omitempty"`
}

// PipelineResult is the sole outcome of a pipeline run.
type PipelineResult struct {
	StatusCode int        `json:"statusCode"`
	Body       ResultBody `json:"body"`
}

func SuccessResult(notifyTarget, downloadLink string) PipelineResult {
	return PipelineResult{
		StatusCode: http.StatusOK,
		Body:       ResultBody{NotifyTarget: notifyTarget, DownloadLink: downloadLink},
	}
}

// FailureResult maps err to its status code and requester-facing message.
func FailureResult(err error) PipelineResult {
	return PipelineResult{
		StatusCode: KindOf(err).StatusCode(),
		Body:       ResultBody{Message: PublicMessage(err)},
	}
}

func (r PipelineResult) Succeeded() bool {
	return r.StatusCode == http.StatusOK
}

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Notification is what the requester is told about a finished run. It never
// carries error detail.
type Notification struct {
	NotifyTarget string  `json:"notifyTarget"`
	Outcome      Outcome `json:"status"`
	DownloadLink string  `json:"downloadLink,omitempty"`
	SourceID     string  `json:"sourceId,omitempty"`
}

// ResultMessage is a PipelineResult published for the trigger layer,
// correlated with the request that produced it.
type ResultMessage struct {
	SourceID string `json:"sourceId,omitempty"`
	OwnerID  string `json:"ownerId,omitempty"`
	PipelineResult
}
