package feed

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tritonhub/tritonhub/pkg/domain"
)

// examKeywords reclassify an assignment as an exam by title match
var examKeywords = []string{"exam", "midterm", "final", "quiz", "test", "assessment"}

// subCategoryRules is an ordered keyword table; the first matching rule wins,
// so "final exam" classifies as Exam rather than falling through to the
// generic default
var subCategoryRules = []struct {
	keywords []string
	label    domain.SubCategory
}{
	{[]string{"quiz", "test"}, domain.SubQuiz},
	{[]string{"midterm", "final", "exam"}, domain.SubExam},
	{[]string{"project"}, domain.SubProject},
	{[]string{"lab"}, domain.SubLab},
	{[]string{"homework"}, domain.SubHomework},
}

// clockTime matches "H:MM AM" style time strings, ignoring any trailing
// timezone abbreviation
var clockTime = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*(AM|PM)`)

// Overrides carries local UI state merged into derived items at build time.
// The id sets never mutate the source records.
type Overrides struct {
	Read      map[string]struct{} // item ids the user marked read
	Completed map[string]struct{} // assignment item ids locally marked done
}

func (o Overrides) read(id string) bool {
	_, ok := o.Read[id]
	return ok
}

func (o Overrides) completed(id string) bool {
	_, ok := o.Completed[id]
	return ok
}

// Normalizer maps every source-local record shape into the canonical FeedItem.
// The clock is injected so the "now" fallbacks documented below stay
// deterministic under test; items carry no other hidden wall-clock dependency.
type Normalizer struct {
	now       func() time.Time
	loc       *time.Location
	overrides Overrides
}

// NewNormalizer creates a normalizer with the given clock and local overrides.
// A nil clock defaults to time.Now and a nil location to time.Local.
func NewNormalizer(now func() time.Time, loc *time.Location, overrides Overrides) *Normalizer {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{now: now, loc: loc, overrides: overrides}
}

// Assignment builds a feed item from a raw assignment. Title keywords decide
// exam vs assignment category; completion is derived from submission state or
// a local override; a missing due timestamp stays absent rather than
// defaulting, so downstream logic can tell "no due date" from "past due".
func (n *Normalizer) Assignment(a domain.Assignment, courseLabel string) domain.FeedItem {
	category := domain.CategoryAssignment
	if isExamTitle(a.Name) {
		category = domain.CategoryExam
	}

	id := fmt.Sprintf("%s-%d", domain.SourceLMSAssignment, a.ID)
	completed := a.SubmittedAt != nil || a.WorkflowState == "graded" || n.overrides.completed(id)

	ts := n.now()
	if a.DueAt != nil {
		ts = *a.DueAt
	}

	item := domain.FeedItem{
		ID:          id,
		Source:      domain.SourceLMSAssignment,
		Category:    category,
		SubCategory: subCategory(a.Name),
		Title:       a.Name,
		Snippet:     assignmentSnippet(a, courseLabel),
		Course:      courseLabel,
		URL:         a.URL,
		Timestamp:   ts,
		DueDate:     a.DueAt,
		Unread:      !n.overrides.read(id),
		Completed:   completed,
	}
	item.Urgency = assignmentTier(item.DueDate, n.now())
	return item
}

// Announcement builds a feed item from a raw announcement, stripping HTML
// from the body for the snippet
func (n *Normalizer) Announcement(a domain.Announcement, courseLabel string) domain.FeedItem {
	id := fmt.Sprintf("%s-%d", domain.SourceLMSAnnouncement, a.ID)

	ts := n.now()
	if a.PostedAt != nil {
		ts = *a.PostedAt
	}

	item := domain.FeedItem{
		ID:        id,
		Source:    domain.SourceLMSAnnouncement,
		Category:  domain.CategoryAnnouncement,
		Title:     a.Title,
		Snippet:   Snippet(a.Message),
		Course:    courseLabel,
		URL:       a.URL,
		Timestamp: ts,
		Unread:    !n.overrides.read(id),
	}
	item.Urgency = announcementTier(item.Title, item.Unread)
	return item
}

// Grade builds a synthetic grade feed item for a course. Emitted only when
// the course carries a current grade or score; the second return reports
// whether an item was produced.
func (n *Normalizer) Grade(c domain.Course) (domain.FeedItem, bool) {
	if c.CurrentGrade == "" && c.CurrentScore == nil {
		return domain.FeedItem{}, false
	}

	id := fmt.Sprintf("%s-%d", domain.SourceLMSGrade, c.ID)
	item := domain.FeedItem{
		ID:        id,
		Source:    domain.SourceLMSGrade,
		Category:  domain.CategoryGrade,
		Title:     fmt.Sprintf("Grade update: %s", c.Label()),
		Snippet:   gradeSnippet(c),
		Course:    c.Label(),
		URL:       c.GradesURL,
		Timestamp: n.now(),
		Unread:    !n.overrides.read(id),
	}
	item.Urgency = gradeTier(item.Unread)
	return item, true
}

// Notification builds a feed item from an ad-hoc user notification, parsing
// its loosely structured date and time fields into the canonical instant
func (n *Normalizer) Notification(notif domain.Notification) domain.FeedItem {
	id := fmt.Sprintf("%s-%d", domain.SourceAdHoc, notif.ID)
	category := domain.CategoryFromTag(notif.Category)

	eventTime, hasEvent := n.parseEventInstant(notif)
	ts := notif.CreatedAt
	if ts.IsZero() {
		ts = n.now()
	}
	var dueDate *time.Time
	if hasEvent {
		ts = eventTime
		if category == domain.CategoryAssignment || category == domain.CategoryExam {
			due := eventTime
			dueDate = &due
		}
	}

	link := notif.Link
	if link == domain.EmptySentinel {
		link = ""
	}

	item := domain.FeedItem{
		ID:        id,
		Source:    domain.SourceAdHoc,
		Category:  category,
		Title:     notif.Summary,
		Snippet:   Snippet(notif.Summary),
		Course:    notif.Source,
		URL:       link,
		Timestamp: ts,
		DueDate:   dueDate,
		Unread:    !n.overrides.read(id),
		Completed: notif.Completed || n.overrides.completed(id),
	}
	item.Urgency = adHocTier(notif.Urgency, category, dueDate, n.now())
	return item
}

// Email builds a feed item from an inbox message summary. The sender display
// name is extracted from the `"Name" <addr>` header form.
func (n *Normalizer) Email(m domain.EmailMessage) domain.FeedItem {
	id := fmt.Sprintf("%s-%s", domain.SourceEmail, m.ID)

	title := m.Subject
	if title == "" {
		title = "(no subject)"
	}

	ts := m.Date
	if ts.IsZero() {
		ts = n.now()
	}

	snippet := "From: " + senderName(m.From)
	if m.Snippet != "" {
		snippet += " - " + Snippet(m.Snippet)
	}

	item := domain.FeedItem{
		ID:        id,
		Source:    domain.SourceEmail,
		Category:  domain.CategoryAnnouncement,
		Title:     title,
		Snippet:   snippet,
		URL:       m.URL,
		Timestamp: ts,
		Unread:    m.Unread && !n.overrides.read(id),
	}
	item.Urgency = announcementTier(item.Title, item.Unread)
	return item
}

// Event builds a feed item from an LMS calendar event
func (n *Normalizer) Event(e domain.CalendarEvent, courseLabel string) domain.FeedItem {
	id := fmt.Sprintf("%s-%d", domain.SourceLMSEvent, e.ID)

	ts := n.now()
	if e.StartAt != nil {
		ts = *e.StartAt
	}
	if courseLabel == "" {
		courseLabel = e.ContextName
	}

	// the start time lives in Timestamp only, a calendar event has no due
	// date; proximity still drives the tier
	return domain.FeedItem{
		ID:        id,
		Source:    domain.SourceLMSEvent,
		Category:  domain.CategoryEvent,
		Title:     e.Title,
		Snippet:   Snippet(e.Description),
		Course:    courseLabel,
		URL:       e.URL,
		Timestamp: ts,
		Unread:    !n.overrides.read(id),
		Urgency:   assignmentTier(e.StartAt, n.now()),
	}
}

// parseEventInstant resolves a notification's event_date and event_time into
// a single instant. An absent date falls back to nothing (the caller uses the
// creation timestamp); an absent or unparseable time means midnight of the
// event date. Parse failures never escape this function.
func (n *Normalizer) parseEventInstant(notif domain.Notification) (time.Time, bool) {
	if notif.EventDate == "" || notif.EventDate == domain.EmptySentinel {
		return time.Time{}, false
	}

	day, err := time.ParseInLocation("2006-01-02", notif.EventDate, n.loc)
	if err != nil {
		return time.Time{}, false
	}

	if notif.EventTime == "" || notif.EventTime == domain.EmptySentinel {
		return day, true
	}

	m := clockTime.FindStringSubmatch(notif.EventTime)
	if m == nil {
		return day, true // unparseable time, keep midnight
	}

	hours := atoi(m[1])
	minutes := atoi(m[2])
	period := strings.ToUpper(m[3])
	if period == "PM" && hours != 12 {
		hours += 12
	}
	if period == "AM" && hours == 12 {
		hours = 0
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hours, minutes, 0, 0, n.loc), true
}

// isExamTitle reports whether an assignment title marks it as an exam
func isExamTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range examKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// subCategory derives the finer assignment label from the title, first
// matching rule wins
func subCategory(title string) domain.SubCategory {
	lower := strings.ToLower(title)
	for _, rule := range subCategoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.label
			}
		}
	}
	return domain.SubAssignment
}

// assignmentSnippet reports points and course, matching the dashboard card text
func assignmentSnippet(a domain.Assignment, courseLabel string) string {
	points := "No points"
	if a.PointsPossible != nil {
		points = fmt.Sprintf("%g pts", *a.PointsPossible)
	}
	if courseLabel == "" {
		return points
	}
	return points + " · " + courseLabel
}

// gradeSnippet reports letter grade and percentage with one decimal place,
// using an em-dash placeholder for missing values
func gradeSnippet(c domain.Course) string {
	grade := "—"
	if c.CurrentGrade != "" {
		grade = c.CurrentGrade
	}
	score := "—"
	if c.CurrentScore != nil {
		score = fmt.Sprintf("%.1f%%", *c.CurrentScore)
	}
	return grade + " · " + score
}

// senderName extracts the display name from a `"Name" <addr>` header,
// falling back to the raw header when no name portion exists
func senderName(from string) string {
	name := from
	if idx := strings.Index(from, "<"); idx > 0 {
		name = from[:idx]
	}
	name = strings.TrimSpace(strings.ReplaceAll(name, `"`, ""))
	if name == "" {
		return strings.Trim(from, "<> ")
	}
	return name
}

func atoi(s string) int {
	v := 0
	for _, r := range s {
		v = v*10 + int(r-'0')
	}
	return v
}
