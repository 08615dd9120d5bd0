package domain

const EmailQueue = "email_queue"

const (
	MailTypeTimetableGenerated = "timetable_generated"
	MailTypeTimetableFailed    = "timetable_failed"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type TimetableGeneratedMailData struct {
	FullName      string `json:"fullName"`
	JobID         string `json:"jobID"`
	TimetableName string `json:"timetableName"`
	TimetableID   int64  `json:"timetableID"`
	Fitness       int    `json:"fitness"`
	HardConflicts int    `json:"hardConflicts"`
	Unscheduled   int    `json:"unscheduled"`
}

type TimetableFailedMailData struct {
	FullName string `json:"fullName"`
	JobID    string `json:"jobID"`
	Name     string `json:"name"`
	Reason   string `json:"reason"`
}
