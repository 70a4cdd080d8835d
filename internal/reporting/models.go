package reporting

import "time"

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummary aggregates calls created in a range.
type CallsSummary struct {
	Range TimeRange `json:"range"`

	TotalCalls      int `json:"total_calls"`
	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`
	NoAnswerCalls   int `json:"no_answer_calls"`
	BusyCalls       int `json:"busy_calls"`
	CanceledCalls   int `json:"canceled_calls"`
	InProgressCalls int `json:"in_progress_calls"`

	TotalDurationSeconds   int    `json:"total_duration_seconds"`
	AverageDurationSeconds int    `json:"average_duration_seconds"`
	AverageDuration        string `json:"average_duration"`

	// ByAgent counts calls per agent id; unattributed calls use "".
	ByAgent map[string]int `json:"by_agent"`
}
