package domain

import "time"

// RecordStatus is the raw status value written by the extraction pipeline
// into the prefilter tracking table.
type RecordStatus string

const (
	StatusNotProcessed RecordStatus = "NOT PROCESSED"
	StatusProcessed    RecordStatus = "PROCESSED"
	StatusFailed       RecordStatus = "FAILED"
)

// Model is one document-processing pipeline configuration resolved from the
// model metadata table. Immutable within a session; edited only through the
// settings editor.
type Model struct {
	Name             string `json:"name"`
	FlattenedTable   string `json:"flattened_table"`
	ValidatedTable   string `json:"validated_table"`
	ScoreFailedTable string `json:"score_failed_table"`
	FolderName       string `json:"folder_name"`
}

// DocumentRecord is a row in the prefilter tracking table. Rows are created
// and advanced by the upstream extraction pipeline; this system only ever
// deletes them as the terminal step of a manual transition.
type DocumentRecord struct {
	Filename         string       `json:"filename"`
	Status           RecordStatus `json:"status"`
	ModelName        string       `json:"model_name"`
	DateCreated      time.Time    `json:"date_created"`
	ProcessStartTime *time.Time   `json:"process_start_time,omitempty"`
	ProcessEndTime   *time.Time   `json:"process_end_time,omitempty"`
}

// AuditLogEntry is the append-only record written for every manual
// transition. Entries are never updated or deleted.
type AuditLogEntry struct {
	Filename  string    `json:"filename"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Comment   string    `json:"comment"`
}

// TransitionAction is an operator command against a document awaiting manual
// review.
type TransitionAction string

const (
	ActionReprocess TransitionAction = "reprocess"
	ActionDiscard   TransitionAction = "discard"
)

// ActionLabel is the audit log action text recorded for a transition.
func (a TransitionAction) ActionLabel() string {
	if a == ActionReprocess {
		return "Moved back to source"
	}
	return "Ignored and moved to archive"
}

// Destination names the stage kind a relocated file ends up in.
type Destination string

const (
	DestinationSource  Destination = "source"
	DestinationArchive Destination = "archive"
)

// TimeWindow is a closed interval used by the status queries.
type TimeWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// LastDays returns the window covering the last n days ending now.
func LastDays(now time.Time, n int) TimeWindow {
	return TimeWindow{From: now.AddDate(0, 0, -n), To: now}
}

// ScoreFailure is one aggregated row of the score-failure history.
type ScoreFailure struct {
	ScoreName    string  `json:"score_name"`
	FailureCount int64   `json:"failure_count"`
	MaxScore     float64 `json:"max_score_value"`
}

// LatencySummary aggregates processing durations for one pipeline stage.
// Records missing either timestamp, or with start after end, are excluded
// from both fields.
type LatencySummary struct {
	TotalSeconds int64 `json:"total_seconds"`
	RecordCount  int64 `json:"record_count"`
}

// AverageSeconds is 0 when no records qualified.
func (l LatencySummary) AverageSeconds() float64 {
	if l.RecordCount == 0 {
		return 0
	}
	return float64(l.TotalSeconds) / float64(l.RecordCount)
}

// ScoreThreshold is one configured minimum confidence value, unique per
// (model_name, score_name).
type ScoreThreshold struct {
	ModelName  string  `json:"model_name"`
	ScoreName  string  `json:"score_name"`
	ScoreValue float64 `json:"score_value"`
}

// ModelMetadata is one editable row of the model metadata table. Nil string
// fields serialize as SQL NULL, never as an empty string.
type ModelMetadata struct {
	ModelName        string  `json:"model_name"`
	FlattenedTable   *string `json:"flattened_table"`
	ValidatedTable   *string `json:"validated_table"`
	ScoreFailedTable *string `json:"score_failed_table"`
	FolderName       *string `json:"folder_name"`
}

// ValidatedRecord is a row of a model's validated table surfaced in the
// recent-records view and the workbook export.
type ValidatedRecord struct {
	Filename         string     `json:"filename"`
	RelativePath     string     `json:"relative_path"`
	DateCreated      time.Time  `json:"date_created"`
	ProcessStartTime *time.Time `json:"process_start_time,omitempty"`
	ProcessEndTime   *time.Time `json:"process_end_time,omitempty"`
}
