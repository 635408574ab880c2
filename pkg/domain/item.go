package domain

import "time"

// SourceKind identifies the upstream system a feed item was derived from
type SourceKind string

// known source kinds
const (
	SourceLMSAssignment   SourceKind = "lms-assignment"
	SourceLMSAnnouncement SourceKind = "lms-announcement"
	SourceLMSGrade        SourceKind = "lms-grade"
	SourceLMSEvent        SourceKind = "lms-event"
	SourceAdHoc           SourceKind = "ad-hoc"
	SourceEmail           SourceKind = "email"
)

// Category is the display category of a feed item. Every item has exactly one
// category; it may differ from the source kind (an ad-hoc item tagged "personal"
// is displayed under "event").
type Category string

// known categories
const (
	CategoryAssignment   Category = "assignment"
	CategoryAnnouncement Category = "announcement"
	CategoryExam         Category = "exam"
	CategoryEvent        Category = "event"
	CategoryGrade        Category = "grade"
	CategoryPersonal     Category = "personal"
)

// CategoryFromTag maps a loosely-typed source tag to a Category. "personal"
// items display as events; unrecognized tags default to CategoryEvent so an
// invalid tag never propagates downstream.
func CategoryFromTag(tag string) Category {
	switch Category(tag) {
	case CategoryAnnouncement, CategoryAssignment, CategoryExam, CategoryEvent, CategoryGrade:
		return Category(tag)
	case CategoryPersonal:
		return CategoryEvent
	default:
		return CategoryEvent
	}
}

// UrgencyTier is the derived urgency classification of a feed item,
// distinct from any source-declared priority field
type UrgencyTier string

// urgency tiers, most severe first
const (
	UrgencyUrgent UrgencyTier = "urgent"
	UrgencyMedium UrgencyTier = "medium"
	UrgencyLow    UrgencyTier = "low"
)

// Rank returns the sort weight of the tier, lower is more severe
func (u UrgencyTier) Rank() int {
	switch u {
	case UrgencyUrgent:
		return 0
	case UrgencyMedium:
		return 1
	default:
		return 2
	}
}

// ParseUrgencyTier maps a tier name to an UrgencyTier, reporting whether the
// name was recognized
func ParseUrgencyTier(s string) (UrgencyTier, bool) {
	switch UrgencyTier(s) {
	case UrgencyUrgent, UrgencyMedium, UrgencyLow:
		return UrgencyTier(s), true
	}
	return UrgencyLow, false
}

// SubCategory is a finer assignment-only label derived from the title
type SubCategory string

// assignment sub-categories
const (
	SubExam       SubCategory = "Exam"
	SubQuiz       SubCategory = "Quiz"
	SubProject    SubCategory = "Project"
	SubLab        SubCategory = "Lab"
	SubHomework   SubCategory = "Homework"
	SubAssignment SubCategory = "Assignment"
)

// FeedItem is the canonical unified entity produced by normalization.
// Everything downstream (urgency classification, ranking, calendar bucketing,
// display) consumes only this shape. Items are derived, never persisted:
// each sync cycle rebuilds them from the raw source records.
type FeedItem struct {
	ID          string      `json:"id"`                     // namespaced by source kind, collision-free across sources
	Source      SourceKind  `json:"source"`                 //
	Category    Category    `json:"category"`               //
	SubCategory SubCategory `json:"sub_category,omitempty"` // assignment-category items only, empty otherwise
	Title       string      `json:"title"`                  //
	Snippet     string      `json:"snippet,omitempty"`      // plain text, HTML already stripped
	Course      string      `json:"course,omitempty"`       // display label (code or name), optional
	URL         string      `json:"url,omitempty"`          // external detail link, possibly empty
	Timestamp   time.Time   `json:"timestamp"`              // canonical instant used for ordering, always valid
	DueDate     *time.Time  `json:"due_date,omitempty"`     // nil means no due date, distinct from past-due
	Unread      bool        `json:"unread"`                 // still needs attention (non-assignment items)
	Completed   bool        `json:"completed"`              // submission made or local override (assignments)
	Urgency     UrgencyTier `json:"urgency"`                //
}

// Pending reports whether the item still requires the user's attention:
// uncompleted for assignment-category items, unread for everything else
func (it *FeedItem) Pending() bool {
	if it.Category == CategoryAssignment || it.Category == CategoryExam {
		return !it.Completed
	}
	return it.Unread
}
