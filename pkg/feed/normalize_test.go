package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tritonhub/tritonhub/pkg/domain"
)

var testNow = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func testNormalizer(overrides Overrides) *Normalizer {
	return NewNormalizer(func() time.Time { return testNow }, time.UTC, overrides)
}

func TestNormalizer_Assignment(t *testing.T) {
	t.Run("plain assignment", func(t *testing.T) {
		due := testNow.Add(30 * time.Hour)
		points := 100.0
		a := domain.Assignment{
			ID:             5001,
			Name:           "Homework 3: B+ Trees",
			DueAt:          &due,
			PointsPossible: &points,
			URL:            "https://lms.edu/a/5001",
		}

		it := testNormalizer(Overrides{}).Assignment(a, "CSE 132A")
		assert.Equal(t, "lms-assignment-5001", it.ID)
		assert.Equal(t, domain.CategoryAssignment, it.Category)
		assert.Equal(t, domain.SubHomework, it.SubCategory)
		assert.Equal(t, "100 pts · CSE 132A", it.Snippet)
		assert.True(t, it.Timestamp.Equal(due))
		require.NotNil(t, it.DueDate)
		assert.False(t, it.Completed)
		assert.Equal(t, domain.UrgencyUrgent, it.Urgency) // 30h out
	})

	t.Run("exam title reclassifies", func(t *testing.T) {
		a := domain.Assignment{ID: 1, Name: "CS101 Final Exam Review"}
		it := testNormalizer(Overrides{}).Assignment(a, "CS101")
		assert.Equal(t, domain.CategoryExam, it.Category)
		assert.Equal(t, domain.SubExam, it.SubCategory)
	})

	t.Run("quiz beats exam in sub-category order", func(t *testing.T) {
		a := domain.Assignment{ID: 2, Name: "Quiz 4 (pre-final)"}
		it := testNormalizer(Overrides{}).Assignment(a, "")
		assert.Equal(t, domain.SubQuiz, it.SubCategory)
	})

	t.Run("lab sub-category", func(t *testing.T) {
		a := domain.Assignment{ID: 3, Name: "Lab 3: Assembly"}
		it := testNormalizer(Overrides{}).Assignment(a, "")
		assert.Equal(t, domain.SubLab, it.SubCategory)
	})

	t.Run("submission marks completed", func(t *testing.T) {
		submitted := testNow.Add(-time.Hour)
		a := domain.Assignment{ID: 4, Name: "Essay draft", SubmittedAt: &submitted}
		it := testNormalizer(Overrides{}).Assignment(a, "")
		assert.True(t, it.Completed)
	})

	t.Run("local override marks completed", func(t *testing.T) {
		a := domain.Assignment{ID: 5, Name: "Reading response"}
		ov := Overrides{Completed: map[string]struct{}{"lms-assignment-5": {}}}
		it := testNormalizer(ov).Assignment(a, "")
		assert.True(t, it.Completed)
	})

	t.Run("no due date falls back to now and stays low", func(t *testing.T) {
		a := domain.Assignment{ID: 6, Name: "Extra credit"}
		it := testNormalizer(Overrides{}).Assignment(a, "")
		assert.True(t, it.Timestamp.Equal(testNow))
		assert.Nil(t, it.DueDate)
		assert.Equal(t, domain.UrgencyLow, it.Urgency)
	})

	t.Run("idempotent", func(t *testing.T) {
		due := testNow.Add(24 * time.Hour)
		a := domain.Assignment{ID: 7, Name: "Project milestone", DueAt: &due}
		n := testNormalizer(Overrides{})
		assert.Equal(t, n.Assignment(a, "CSE 110"), n.Assignment(a, "CSE 110"))
	})
}

func TestNormalizer_Announcement(t *testing.T) {
	posted := testNow.Add(-2 * time.Hour)
	a := domain.Announcement{
		ID:       9001,
		Title:    "Important: midterm room change",
		Message:  "<p>We moved to <b>hall B</b></p>",
		PostedAt: &posted,
	}

	it := testNormalizer(Overrides{}).Announcement(a, "CSE 132A")
	assert.Equal(t, "lms-announcement-9001", it.ID)
	assert.Equal(t, domain.CategoryAnnouncement, it.Category)
	assert.Equal(t, "We moved to hall B", it.Snippet)
	assert.True(t, it.Unread)
	assert.Equal(t, domain.UrgencyUrgent, it.Urgency) // "important" keyword

	// read override flips both unread and urgency
	ov := Overrides{Read: map[string]struct{}{"lms-announcement-9001": {}}}
	it = testNormalizer(ov).Announcement(a, "CSE 132A")
	assert.False(t, it.Unread)
	assert.Equal(t, domain.UrgencyLow, it.Urgency)
}

func TestNormalizer_Grade(t *testing.T) {
	t.Run("emitted with grade data", func(t *testing.T) {
		score := 93.4
		c := domain.Course{ID: 101, Code: "CSE 132A", CurrentGrade: "A", CurrentScore: &score}
		it, ok := testNormalizer(Overrides{}).Grade(c)
		require.True(t, ok)
		assert.Equal(t, "lms-grade-101", it.ID)
		assert.Equal(t, "Grade update: CSE 132A", it.Title)
		assert.Equal(t, "A · 93.4%", it.Snippet)
		assert.Equal(t, domain.UrgencyUrgent, it.Urgency)
	})

	t.Run("score only", func(t *testing.T) {
		score := 88.1
		c := domain.Course{ID: 102, Code: "CSE 12", CurrentScore: &score}
		it, ok := testNormalizer(Overrides{}).Grade(c)
		require.True(t, ok)
		assert.Equal(t, "— · 88.1%", it.Snippet)
	})

	t.Run("not emitted without grade data", func(t *testing.T) {
		c := domain.Course{ID: 103, Code: "CSE 190"}
		_, ok := testNormalizer(Overrides{}).Grade(c)
		assert.False(t, ok)
	})
}

func TestNormalizer_Notification(t *testing.T) {
	t.Run("full date and time parse in location", func(t *testing.T) {
		notif := domain.Notification{
			ID:        42,
			Source:    "CSE 132A",
			Category:  "assignment",
			EventDate: "2026-01-31",
			EventTime: "11:59 PM PST",
			Urgency:   "high",
			Link:      "https://lms.edu/a/1",
			Summary:   "Submit project proposal",
		}

		it := testNormalizer(Overrides{}).Notification(notif)
		assert.Equal(t, "ad-hoc-42", it.ID)
		assert.Equal(t, domain.CategoryAssignment, it.Category)
		want := time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC)
		assert.True(t, it.Timestamp.Equal(want))
		require.NotNil(t, it.DueDate)
		assert.True(t, it.DueDate.Equal(want))
		assert.Equal(t, domain.UrgencyUrgent, it.Urgency)
	})

	t.Run("EMPTY time means midnight", func(t *testing.T) {
		notif := domain.Notification{
			ID: 43, Category: "exam", EventDate: "2026-03-15", EventTime: "EMPTY", Summary: "Midterm",
		}
		it := testNormalizer(Overrides{}).Notification(notif)
		want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
		assert.True(t, it.Timestamp.Equal(want))
	})

	t.Run("unparseable time keeps midnight", func(t *testing.T) {
		notif := domain.Notification{
			ID: 44, Category: "event", EventDate: "2026-03-15", EventTime: "sometime soon", Summary: "Club fair",
		}
		it := testNormalizer(Overrides{}).Notification(notif)
		want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
		assert.True(t, it.Timestamp.Equal(want))
	})

	t.Run("EMPTY date falls back to creation time", func(t *testing.T) {
		created := testNow.Add(-48 * time.Hour)
		notif := domain.Notification{
			ID: 45, Category: "personal", EventDate: "EMPTY", EventTime: "EMPTY",
			Summary: "Call advisor", CreatedAt: created,
		}
		it := testNormalizer(Overrides{}).Notification(notif)
		assert.True(t, it.Timestamp.Equal(created))
		assert.Nil(t, it.DueDate)
		assert.Equal(t, domain.CategoryEvent, it.Category) // personal displays as event
	})

	t.Run("12 AM and 12 PM edge cases", func(t *testing.T) {
		n := testNormalizer(Overrides{})

		notif := domain.Notification{ID: 46, Category: "event", EventDate: "2026-03-15", EventTime: "12:00 AM", Summary: "x"}
		it := n.Notification(notif)
		assert.Equal(t, 0, it.Timestamp.Hour())

		notif.EventTime = "12:30 PM"
		it = n.Notification(notif)
		assert.Equal(t, 12, it.Timestamp.Hour())
		assert.Equal(t, 30, it.Timestamp.Minute())
	})

	t.Run("EMPTY link stripped", func(t *testing.T) {
		notif := domain.Notification{ID: 47, Category: "event", Link: "EMPTY", Summary: "x"}
		it := testNormalizer(Overrides{}).Notification(notif)
		assert.Empty(t, it.URL)
	})

	t.Run("non-assignment category carries no due date", func(t *testing.T) {
		notif := domain.Notification{ID: 48, Category: "event", EventDate: "2026-03-15", Summary: "Seminar"}
		it := testNormalizer(Overrides{}).Notification(notif)
		assert.Nil(t, it.DueDate)
	})
}

func TestNormalizer_Email(t *testing.T) {
	t.Run("sender name extracted", func(t *testing.T) {
		m := domain.EmailMessage{
			ID:      "uid-7",
			Subject: "Scholarship deadline",
			From:    `"Financial Aid Office" <finaid@example.edu>`,
			Snippet: "Apply by Friday",
			Date:    testNow.Add(-time.Hour),
			Unread:  true,
		}
		it := testNormalizer(Overrides{}).Email(m)
		assert.Equal(t, "email-uid-7", it.ID)
		assert.Equal(t, domain.CategoryAnnouncement, it.Category)
		assert.Equal(t, "From: Financial Aid Office - Apply by Friday", it.Snippet)
		assert.True(t, it.Unread)
	})

	t.Run("bare address sender", func(t *testing.T) {
		m := domain.EmailMessage{ID: "uid-8", Subject: "hi", From: "<noreply@example.edu>"}
		it := testNormalizer(Overrides{}).Email(m)
		assert.Equal(t, "From: noreply@example.edu", it.Snippet)
	})

	t.Run("missing subject", func(t *testing.T) {
		m := domain.EmailMessage{ID: "uid-9", From: "a@b.c"}
		it := testNormalizer(Overrides{}).Email(m)
		assert.Equal(t, "(no subject)", it.Title)
	})

	t.Run("seen message stays low even with keywords", func(t *testing.T) {
		m := domain.EmailMessage{ID: "uid-10", Subject: "URGENT action required", Unread: false}
		it := testNormalizer(Overrides{}).Email(m)
		assert.False(t, it.Unread)
		assert.Equal(t, domain.UrgencyLow, it.Urgency)
	})
}

func TestNormalizer_Event(t *testing.T) {
	start := testNow.Add(24 * time.Hour)
	e := domain.CalendarEvent{
		ID:          7001,
		CourseID:    101,
		Title:       "Review session",
		Description: "<p>Bring questions</p>",
		StartAt:     &start,
		ContextName: "Introduction to Databases",
	}

	it := testNormalizer(Overrides{}).Event(e, "CSE 132A")
	assert.Equal(t, "lms-event-7001", it.ID)
	assert.Equal(t, domain.CategoryEvent, it.Category)
	assert.Equal(t, "CSE 132A", it.Course)
	assert.Equal(t, "Bring questions", it.Snippet)
	assert.Equal(t, domain.UrgencyUrgent, it.Urgency) // starts within 48h
	assert.True(t, it.Timestamp.Equal(start))
	assert.Nil(t, it.DueDate) // due dates belong to assignment-like items only

	// context name is the fallback label
	it = testNormalizer(Overrides{}).Event(e, "")
	assert.Equal(t, "Introduction to Databases", it.Course)
}

func TestSubCategory(t *testing.T) {
	tests := []struct {
		title string
		want  domain.SubCategory
	}{
		{"Quiz 2", domain.SubQuiz},
		{"Unit test review", domain.SubQuiz},
		{"Midterm 1", domain.SubExam},
		{"CS101 Final Exam Review", domain.SubExam},
		{"Project proposal", domain.SubProject},
		{"Lab 3: Assembly", domain.SubLab},
		{"Homework 5", domain.SubHomework},
		{"Weekly reading", domain.SubAssignment},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, subCategory(tt.title))
		})
	}
}
