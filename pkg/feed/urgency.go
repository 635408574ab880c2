package feed

import (
	"strings"
	"time"

	"github.com/tritonhub/tritonhub/pkg/domain"
)

// urgency windows for assignment-like items
const (
	urgentWindow = 48 * time.Hour
	mediumWindow = 168 * time.Hour // one week
)

// announcement title keywords that escalate an unread announcement to urgent
var escalationKeywords = []string{"urgent", "important", "due", "action required", "reminder"}

// assignmentTier classifies an assignment-like item by temporal distance from
// now to its due date. Overdue counts as urgent: an item past its due time
// still demands attention. No due date means low, never "due now".
func assignmentTier(dueDate *time.Time, now time.Time) domain.UrgencyTier {
	if dueDate == nil {
		return domain.UrgencyLow
	}
	delta := dueDate.Sub(now)
	switch {
	case delta < urgentWindow: // includes negative deltas
		return domain.UrgencyUrgent
	case delta < mediumWindow:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

// announcementTier is low by default, urgent when the title carries an
// escalation keyword and the announcement is still unread
func announcementTier(title string, unread bool) domain.UrgencyTier {
	if !unread {
		return domain.UrgencyLow
	}
	lower := strings.ToLower(title)
	for _, kw := range escalationKeywords {
		if strings.Contains(lower, kw) {
			return domain.UrgencyUrgent
		}
	}
	return domain.UrgencyLow
}

// gradeTier surfaces a fresh grade posting prominently until it is read
func gradeTier(unread bool) domain.UrgencyTier {
	if unread {
		return domain.UrgencyUrgent
	}
	return domain.UrgencyLow
}

// declaredTier mirrors an ad-hoc notification's own urgency field
func declaredTier(urgency string) domain.UrgencyTier {
	switch strings.ToLower(urgency) {
	case "high", "urgent":
		return domain.UrgencyUrgent
	case "medium":
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

// adHocTier mirrors the declared urgency, except assignment-category items
// with a parsed due date get the same due-date-proximity escalation as LMS
// assignments when the deadline is inside the urgent window
func adHocTier(urgency string, category domain.Category, dueDate *time.Time, now time.Time) domain.UrgencyTier {
	tier := declaredTier(urgency)
	if category != domain.CategoryAssignment && category != domain.CategoryExam {
		return tier
	}
	if dueDate != nil && assignmentTier(dueDate, now) == domain.UrgencyUrgent {
		return domain.UrgencyUrgent
	}
	return tier
}
