package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Queue is a durable task queue.
type Queue interface {
	Publish(ctx context.Context, task *Task) error
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}

// Handler processes one task. A returned error triggers a retry or the DLQ.
type Handler func(ctx context.Context, task *Task) error

type TaskType string

const (
	TaskTypeSendEmail TaskType = "send_email"
)

// Task represents a unit of work in the queue
type Task struct {
	ID         string                 `json:"id"`
	Type       TaskType               `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	CreatedAt  time.Time              `json:"created_at"`
	Attempts   int                    `json:"attempts"`
	MaxRetries int                    `json:"max_retries"`
	LastError  string                 `json:"last_error,omitempty"`
}

// Validate checks if the task is valid
func (t *Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("task ID is required")
	}
	if strings.TrimSpace(string(t.Type)) == "" {
		return fmt.Errorf("task type is required")
	}
	if t.Data == nil {
		t.Data = make(map[string]interface{})
	}
	return nil
}

// GetString returns a string value from task data
func (t *Task) GetString(key string) string {
	if val, ok := t.Data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetStringMap returns a map[string]string from task data. JSON round trips
// turn it into map[string]interface{}.
func (t *Task) GetStringMap(key string) map[string]string {
	out := make(map[string]string)
	switch v := t.Data[key].(type) {
	case map[string]string:
		for k, s := range v {
			out[k] = s
		}
	case map[string]interface{}:
		for k, raw := range v {
			if s, ok := raw.(string); ok {
				out[k] = s
			} else if raw != nil {
				out[k] = fmt.Sprint(raw)
			}
		}
	}
	return out
}
