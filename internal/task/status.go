package task

// Status is the lifecycle state of a task: pending → running → completed|error.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

func (s Status) String() string { return string(s) }

// IsFinished reports whether s is terminal.
func (s Status) IsFinished() bool {
	return s == StatusCompleted || s == StatusError
}

// Type names the kind of job a task tracks.
type Type string

const (
	TypeBatchCheck  Type = "batch_channel_check"
	TypeUpdateLive  Type = "update_live_sources"
	TypeCheckPosted Type = "check_live_sources"
)
