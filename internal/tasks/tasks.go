package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// Alert scan tasks. A scan carries an optional article ID: empty means
	// a full scan of every article.
	TypeAlertScan = "alerts:scan"

	// Audit log retention purge
	TypeAuditPurge = "audit:purge"
)

// AlertScanPayload is the payload for alert scan tasks
type AlertScanPayload struct {
	ArticleID string `json:"article_id,omitempty"`
}

// NewAlertScanTask creates a task that re-evaluates a single article's stock
// level. Movements enqueue one of these for the article they touched.
func NewAlertScanTask(articleID string) (*asynq.Task, error) {
	payload, err := json.Marshal(AlertScanPayload{ArticleID: articleID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeAlertScan, payload), nil
}

// NewFullAlertScanTask creates a task that re-evaluates every article.
// Enqueued by the periodic scheduler.
func NewFullAlertScanTask() (*asynq.Task, error) {
	return NewAlertScanTask("")
}

// NewAuditPurgeTask creates a task that deletes audit entries past retention
func NewAuditPurgeTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeAuditPurge, nil), nil
}

// ParseAlertScanPayload parses an alert scan payload from an Asynq task
func ParseAlertScanPayload(task *asynq.Task) (AlertScanPayload, error) {
	var payload AlertScanPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
