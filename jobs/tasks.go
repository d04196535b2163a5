package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGLIntegrity recomputes the trial balance and reports imbalances.
	TaskGLIntegrity = "gl:integrity"
	// TaskInventoryReconcile rebuilds inventory balances from the transaction log.
	TaskInventoryReconcile = "inventory:reconcile"
)

// TaskNames lists the task types the worker serves, in trigger order.
var TaskNames = []string{TaskGLIntegrity, TaskInventoryReconcile}

// OrgPayload scopes a task to one organisation. Zero means every organisation.
type OrgPayload struct {
	OrgID int64 `json:"org_id,omitempty"`
}

// NewOrgTask builds a task of the given type for orgID.
func NewOrgTask(taskType string, orgID int64) (*asynq.Task, error) {
	if !knownTask(taskType) {
		return nil, fmt.Errorf("jobs: unknown task %q", taskType)
	}
	data, err := json.Marshal(OrgPayload{OrgID: orgID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

func decodeOrgPayload(t *asynq.Task) (OrgPayload, error) {
	var payload OrgPayload
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return payload, nil
}

func knownTask(taskType string) bool {
	for _, name := range TaskNames {
		if name == taskType {
			return true
		}
	}
	return false
}
