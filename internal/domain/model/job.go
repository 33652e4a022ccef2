package model

import "time"

// JobState tracks an upload through the analysis pipeline.
type JobState string

// Job states.
const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobDone       JobState = "done"
	JobFailed     JobState = "failed"
	// JobSuperseded means the upload was analysed but a newer upload of the
	// same session had already replaced the dataset.
	JobSuperseded JobState = "superseded"
)

// Job is an upload waiting to be parsed and classified.
type Job struct {
	ID          string    // uuid assigned at submission
	SessionID   string    // owner of the dataset slot
	Seq         uint64    // monotonically increasing submission order
	Filename    string    // original filename, drives format detection
	ContentType string    // declared MIME type, may be empty
	Payload     []byte    // raw upload bytes
	SubmittedAt time.Time // submission time
}

// JobStatus is the externally visible view of a job.
type JobStatus struct {
	ID          string    `json:"job_id"`
	SessionID   string    `json:"session_id"`
	State       JobState  `json:"status"`
	Progress    int       `json:"progress"`
	DatasetID   string    `json:"dataset_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
}

// Finished reports whether the job reached a terminal state.
func (s JobStatus) Finished() bool {
	return s.State == JobDone || s.State == JobFailed || s.State == JobSuperseded
}
