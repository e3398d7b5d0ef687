package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskLeadView = "leads.view"

type LeadViewPayload struct {
	LeadID string `json:"leadId"`
}

func NewLeadViewTask(payload LeadViewPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadView, data), nil
}

func ParseLeadViewPayload(task *asynq.Task) (LeadViewPayload, error) {
	var payload LeadViewPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadViewPayload{}, err
	}
	return payload, nil
}
