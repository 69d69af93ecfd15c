package bulkcache

// Status is the warm-up lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Progress reports warm-up state to subscribers. One step completes per raw
// dataset fetched.
type Progress struct {
	Status         Status `json:"status"`
	CompletedSteps int    `json:"completedSteps"`
	TotalSteps     int    `json:"totalSteps"`
	Message        string `json:"message"`
	Error          string `json:"error,omitempty"`
}
