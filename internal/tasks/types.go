package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeDeprovision = "identity:deprovision"
)

// DeprovisionPayload identifies the external account still awaiting
// provider-side deletion after its local membership was removed.
type DeprovisionPayload struct {
	ExternalID string `json:"external_id"`
}

func NewDeprovisionTask(payload DeprovisionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDeprovision, data, asynq.MaxRetry(10), asynq.Queue("critical")), nil
}
