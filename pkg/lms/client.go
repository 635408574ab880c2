package lms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tritonhub/tritonhub/pkg/domain"
)

// Client talks to the LMS course-data REST API. All collection endpoints go
// through the Pager so multi-page results are transparent to callers.
type Client struct {
	pager   *Pager
	baseURL string
	perPage int
}

// NewClient creates an LMS API client for the given base origin and bearer credential
func NewClient(baseURL, token string, perPage int, timeout time.Duration) *Client {
	return &Client{
		pager:   NewPager(token, timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
		perPage: perPage,
	}
}

// ListCourses fetches active-enrollment courses with embedded scores, teachers
// and term data
func (c *Client) ListCourses(ctx context.Context) ([]domain.Course, error) {
	q := url.Values{}
	q.Set("enrollment_type", "student")
	q.Set("enrollment_state", "active")
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Add("include[]", "total_scores")
	q.Add("include[]", "teachers")
	q.Add("include[]", "term")
	q.Add("include[]", "enrollments")

	raw, err := c.pager.FetchAll(ctx, "courses", c.baseURL+"/api/v1/courses?"+q.Encode())
	if err != nil {
		return nil, err
	}

	courses := make([]domain.Course, 0, len(raw))
	for _, msg := range raw {
		var ac apiCourse
		if err := json.Unmarshal(msg, &ac); err != nil {
			return nil, fmt.Errorf("decode course record: %w", err)
		}
		courses = append(courses, toCourse(ac))
	}
	return courses, nil
}

// ListAssignments fetches one course's assignments with embedded submission state
func (c *Client) ListAssignments(ctx context.Context, courseID int64) ([]domain.Assignment, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("order_by", "due_at")
	q.Add("include[]", "submission")

	collURL := fmt.Sprintf("%s/api/v1/courses/%d/assignments?%s", c.baseURL, courseID, q.Encode())
	raw, err := c.pager.FetchAll(ctx, "assignments", collURL)
	if err != nil {
		return nil, err
	}

	assignments := make([]domain.Assignment, 0, len(raw))
	for _, msg := range raw {
		var aa apiAssignment
		if err := json.Unmarshal(msg, &aa); err != nil {
			return nil, fmt.Errorf("decode assignment record: %w", err)
		}
		a := domain.Assignment{
			ID:             aa.ID,
			CourseID:       aa.CourseID,
			Name:           aa.Name,
			DueAt:          aa.DueAt,
			PointsPossible: aa.PointsPossible,
			URL:            aa.HTMLURL,
		}
		if a.CourseID == 0 {
			a.CourseID = courseID
		}
		if aa.Submission != nil {
			a.Score = aa.Submission.Score
			a.SubmittedAt = aa.Submission.SubmittedAt
			a.WorkflowState = aa.Submission.WorkflowState
		}
		assignments = append(assignments, a)
	}
	return assignments, nil
}

// ListAnnouncements fetches announcements for the given course contexts
func (c *Client) ListAnnouncements(ctx context.Context, courseIDs []int64) ([]domain.Announcement, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(c.perPage))
	for _, id := range courseIDs {
		q.Add("context_codes[]", fmt.Sprintf("course_%d", id))
	}

	raw, err := c.pager.FetchAll(ctx, "announcements", c.baseURL+"/api/v1/announcements?"+q.Encode())
	if err != nil {
		return nil, err
	}

	announcements := make([]domain.Announcement, 0, len(raw))
	for _, msg := range raw {
		var aa apiAnnouncement
		if err := json.Unmarshal(msg, &aa); err != nil {
			return nil, fmt.Errorf("decode announcement record: %w", err)
		}
		announcements = append(announcements, domain.Announcement{
			ID:       aa.ID,
			CourseID: contextCourseID(aa.ContextCode),
			Title:    aa.Title,
			Message:  aa.Message,
			PostedAt: aa.PostedAt,
			URL:      aa.HTMLURL,
		})
	}
	return announcements, nil
}

// ListCalendarEvents fetches calendar events within the given date range
func (c *Client) ListCalendarEvents(ctx context.Context, start, end time.Time) ([]domain.CalendarEvent, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("start_date", start.Format("2006-01-02"))
	q.Set("end_date", end.Format("2006-01-02"))

	raw, err := c.pager.FetchAll(ctx, "calendar events", c.baseURL+"/api/v1/calendar_events?"+q.Encode())
	if err != nil {
		return nil, err
	}

	events := make([]domain.CalendarEvent, 0, len(raw))
	for _, msg := range raw {
		var ae apiCalendarEvent
		if err := json.Unmarshal(msg, &ae); err != nil {
			return nil, fmt.Errorf("decode calendar event record: %w", err)
		}
		events = append(events, domain.CalendarEvent{
			ID:          ae.ID,
			CourseID:    contextCourseID(ae.ContextCode),
			Title:       ae.Title,
			Description: ae.Description,
			StartAt:     ae.StartAt,
			ContextName: ae.ContextName,
			URL:         ae.HTMLURL,
		})
	}
	return events, nil
}

// toCourse maps an API course to the domain shape, preferring the computed
// enrollment scores over the nested grade object
func toCourse(ac apiCourse) domain.Course {
	course := domain.Course{
		ID:   ac.ID,
		Name: ac.Name,
		Code: ac.CourseCode,
	}
	if ac.Term != nil {
		course.Term = ac.Term.Name
	}
	if len(ac.Teachers) > 0 {
		course.Instructor = ac.Teachers[0].DisplayName
	}
	if len(ac.Enrollments) > 0 {
		e := ac.Enrollments[0]
		course.CurrentScore = firstScore(e.ComputedCurrentScore, e.Grades.CurrentScore)
		course.FinalScore = firstScore(e.ComputedFinalScore, e.Grades.FinalScore)
		course.CurrentGrade = firstGrade(e.ComputedCurrentGrade, e.Grades.CurrentGrade)
		course.FinalGrade = firstGrade(e.ComputedFinalGrade, e.Grades.FinalGrade)
		course.GradesURL = e.Grades.HTMLURL
	}
	return course
}

func firstScore(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstGrade(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// contextCourseID resolves an owning-context identifier like "course_1234"
// to the course id, zero when the context is not a course
func contextCourseID(code string) int64 {
	id, err := strconv.ParseInt(strings.TrimPrefix(code, "course_"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
