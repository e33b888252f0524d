package models

import "time"

// JobStatus is the lifecycle state of a production job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in-progress"
	JobStatusCompleted  JobStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusInProgress, JobStatusCompleted:
		return true
	default:
		return false
	}
}

type Job struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Client         string    `json:"client"`
	Date           Date      `json:"date"`
	Status         JobStatus `json:"status"`
	EquipmentCount int       `json:"equipmentCount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
