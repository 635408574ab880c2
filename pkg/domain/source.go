package domain

import "time"

// Course represents an enrolled course for the current sync session. Courses
// are fetched fresh on every sync and never mutated locally; they exist to
// resolve term membership and course labels for downstream records.
type Course struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Code         string   `json:"code"`
	Term         string   `json:"term,omitempty"` // empty when the API carries no term
	Instructor   string   `json:"instructor,omitempty"`
	CurrentScore *float64 `json:"current_score,omitempty"`
	CurrentGrade string   `json:"current_grade,omitempty"`
	FinalScore   *float64 `json:"final_score,omitempty"`
	FinalGrade   string   `json:"final_grade,omitempty"`
	GradesURL    string   `json:"grades_url,omitempty"`
}

// Label returns the course display label, preferring the short code
func (c *Course) Label() string {
	if c.Code != "" {
		return c.Code
	}
	return c.Name
}

// Assignment is a raw per-course assignment record with its embedded
// submission state
type Assignment struct {
	ID             int64
	CourseID       int64
	Name           string
	DueAt          *time.Time
	PointsPossible *float64
	Score          *float64
	SubmittedAt    *time.Time
	WorkflowState  string // not-submitted, submitted, graded; empty when unknown
	URL            string
}

// Announcement is a raw announcement record; Message may carry HTML
type Announcement struct {
	ID       int64
	CourseID int64 // resolved from the owning context code
	Title    string
	Message  string
	PostedAt *time.Time
	URL      string
}

// CalendarEvent is a raw LMS calendar event record
type CalendarEvent struct {
	ID          int64
	CourseID    int64 // zero for user-calendar events
	Title       string
	Description string
	StartAt     *time.Time
	ContextName string
	URL         string
}

// EmptySentinel marks an absent date or time field on an ad-hoc notification
const EmptySentinel = "EMPTY"

// Notification is a user-created ad-hoc notification, persisted externally.
// Read-only from the pipeline's perspective except for the completion toggle.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"-"`
	Source    string    `json:"source"`     // course code or "Personal"
	Category  string    `json:"category"`   // announcement, assignment, exam, event, personal
	EventDate string    `json:"event_date"` // "2026-01-31" or EmptySentinel
	EventTime string    `json:"event_time"` // "11:59 PM PST" or EmptySentinel
	Urgency   string    `json:"urgency"`    // urgent, medium, low
	Link      string    `json:"link"`       // URL or EmptySentinel
	Summary   string    `json:"summary"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// EmailMessage is a bounded summary of an inbox message
type EmailMessage struct {
	ID      string
	Subject string
	From    string // raw header, usually `"Name" <addr>`
	Snippet string
	Date    time.Time
	URL     string
	Unread  bool
}
