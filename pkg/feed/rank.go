package feed

import (
	"sort"
	"time"

	"github.com/tritonhub/tritonhub/pkg/domain"
)

// Rank orders items in place with the single shared comparator. Every view
// (full feed, single category, single course) filters first and then applies
// this same total order; no call site re-derives its own sort semantics.
//
// The order is: pending urgent items, then the remaining pending items, then
// everything read or completed. Within the pending group, nearest-in-time
// first by absolute distance from now, so an overdue-but-pending item ranks
// as near as an upcoming one. Assignment-like items with no due date are not
// actionable by date and drop to the bottom of the group.
// Non-pending items order by timestamp descending, most recent first.
func Rank(items []domain.FeedItem, now time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return less(&items[i], &items[j], now)
	})
}

func less(a, b *domain.FeedItem, now time.Time) bool {
	ap, bp := a.Pending(), b.Pending()
	if ap != bp {
		return ap
	}

	if !ap { // both settled: most recent first
		return a.Timestamp.After(b.Timestamp)
	}

	au := a.Urgency == domain.UrgencyUrgent
	bu := b.Urgency == domain.UrgencyUrgent
	if au != bu {
		return au
	}

	ad, bd := dateless(a), dateless(b)
	if ad != bd {
		return bd // the dated item wins
	}
	if ad {
		return false // both dateless, keep input order
	}

	return absDistance(a.Timestamp, now) < absDistance(b.Timestamp, now)
}

// dateless reports an assignment-like item with no genuine due date
func dateless(it *domain.FeedItem) bool {
	if it.Category != domain.CategoryAssignment && it.Category != domain.CategoryExam {
		return false
	}
	return it.DueDate == nil
}

func absDistance(t, now time.Time) time.Duration {
	d := t.Sub(now)
	if d < 0 {
		return -d
	}
	return d
}
