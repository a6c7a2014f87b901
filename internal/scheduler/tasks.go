package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"sales_crm_backend/internal/leads/ports"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskLeadScoreRecalculate = "leads.score.recalculate"

type LeadScorePayload struct {
	LeadID         string    `json:"leadId"`
	OrganizationID string    `json:"organizationId"`
	EnqueuedAt     time.Time `json:"enqueuedAt"`
}

func NewLeadScoreTask(payload LeadScorePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadScoreRecalculate, data), nil
}

func ParseLeadScorePayload(task *asynq.Task) (LeadScorePayload, error) {
	var payload LeadScorePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadScorePayload{}, err
	}
	return payload, nil
}

// Job converts the wire payload into a processor job.
func (p LeadScorePayload) Job() (ports.ScoreJob, error) {
	leadID, err := uuid.Parse(p.LeadID)
	if err != nil {
		return ports.ScoreJob{}, fmt.Errorf("lead id: %w", err)
	}
	orgID, err := uuid.Parse(p.OrganizationID)
	if err != nil {
		return ports.ScoreJob{}, fmt.Errorf("organization id: %w", err)
	}
	return ports.ScoreJob{LeadID: leadID, OrganizationID: orgID, EnqueuedAt: p.EnqueuedAt}, nil
}
