package lms

import "time"

// raw wire shapes of the LMS REST API; field names follow the server schema
// and are mapped to domain records at the client boundary

type apiTerm struct {
	Name string `json:"name"`
}

type apiTeacher struct {
	DisplayName string `json:"display_name"`
}

type apiGrades struct {
	CurrentScore *float64 `json:"current_score"`
	FinalScore   *float64 `json:"final_score"`
	CurrentGrade string   `json:"current_grade"`
	FinalGrade   string   `json:"final_grade"`
	HTMLURL      string   `json:"html_url"`
}

type apiEnrollment struct {
	ComputedCurrentScore *float64  `json:"computed_current_score"`
	ComputedFinalScore   *float64  `json:"computed_final_score"`
	ComputedCurrentGrade string    `json:"computed_current_grade"`
	ComputedFinalGrade   string    `json:"computed_final_grade"`
	Grades               apiGrades `json:"grades"`
}

type apiCourse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	CourseCode  string          `json:"course_code"`
	Term        *apiTerm        `json:"term"`
	Teachers    []apiTeacher    `json:"teachers"`
	Enrollments []apiEnrollment `json:"enrollments"`
}

type apiSubmission struct {
	Score         *float64   `json:"score"`
	SubmittedAt   *time.Time `json:"submitted_at"`
	WorkflowState string     `json:"workflow_state"`
}

type apiAssignment struct {
	ID             int64          `json:"id"`
	CourseID       int64          `json:"course_id"`
	Name           string         `json:"name"`
	DueAt          *time.Time     `json:"due_at"`
	PointsPossible *float64       `json:"points_possible"`
	HTMLURL        string         `json:"html_url"`
	Submission     *apiSubmission `json:"submission"`
}

type apiAnnouncement struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	PostedAt    *time.Time `json:"posted_at"`
	ContextCode string     `json:"context_code"`
	HTMLURL     string     `json:"html_url"`
}

type apiCalendarEvent struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartAt     *time.Time `json:"start_at"`
	ContextCode string     `json:"context_code"`
	ContextName string     `json:"context_name"`
	HTMLURL     string     `json:"html_url"`
}
