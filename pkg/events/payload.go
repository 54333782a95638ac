// Package events carries job status changes from the runner to streaming
// subscribers: an in-process bus for same-process listeners, bridged to a
// redis pub/sub channel for external ones.
package events

import "time"

// ChannelJobUpdates is the pub/sub channel all job transitions publish on.
const ChannelJobUpdates = "job_updates"

// JobUpdate is the payload published on every job or stage transition.
type JobUpdate struct {
	JobID        string    `json:"job_id"`
	Status       string    `json:"status"`
	CurrentStage string    `json:"current_stage,omitempty"`
	Error        string    `json:"error,omitempty"`
	CostEstimate float64   `json:"cost_estimate"`
	StageDetail  string    `json:"stage_detail,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
