package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobType names a deferred job kind
type JobType string

const (
	JobSendEmail JobType = "email.send"
	JobSendSMS   JobType = "sms.send"
)

// Job is the wire envelope for one deferred job.
// Execution is at-least-once; payloads must be safe to re-process.
type Job struct {
	Type       JobType         `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// EmailJob carries one email delivery request
type EmailJob struct {
	Recipient string            `json:"recipient"`
	Subject   string            `json:"subject"`
	Template  string            `json:"template"`
	Context   map[string]string `json:"context"`
}

// SMSJob carries one SMS delivery request
type SMSJob struct {
	ToNumber string `json:"to_number"`
	Message  string `json:"message"`
}

func newJob(jobType JobType, payload any) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", jobType, err)
	}
	return &Job{
		Type:       jobType,
		Payload:    raw,
		EnqueuedAt: time.Now(),
	}, nil
}
