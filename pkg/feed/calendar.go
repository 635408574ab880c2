package feed

import (
	"sort"
	"time"

	"github.com/tritonhub/tritonhub/pkg/domain"
)

// CalendarFilter holds the two independent calendar filter axes. Zero values
// mean "all". Filters apply before bucketing, never to the bucketing itself.
type CalendarFilter struct {
	Type    domain.Category
	Urgency domain.UrgencyTier
}

func (f CalendarFilter) match(it *domain.FeedItem) bool {
	if f.Type != "" && it.Category != f.Type {
		return false
	}
	if f.Urgency != "" && it.Urgency != f.Urgency {
		return false
	}
	return true
}

// CalendarMonth buckets items of the target month by calendar day, keyed by
// day of month. Placement uses local-date equality of each item's timestamp,
// not instant equality.
func CalendarMonth(items []domain.FeedItem, year int, month time.Month, loc *time.Location, f CalendarFilter) map[int][]domain.FeedItem {
	if loc == nil {
		loc = time.Local
	}

	days := make(map[int][]domain.FeedItem)
	for _, it := range items {
		if !f.match(&it) {
			continue
		}
		local := it.Timestamp.In(loc)
		if local.Year() != year || local.Month() != month {
			continue
		}
		days[local.Day()] = append(days[local.Day()], it)
	}

	for day := range days {
		sortByUrgency(days[day])
	}
	return days
}

// CalendarDay returns the items falling on the given local date, sorted by
// urgency tier alone. The day panel prioritizes severity over staleness since
// everything shown already shares one day; the full ranking comparator is
// deliberately not used here.
func CalendarDay(items []domain.FeedItem, day time.Time, f CalendarFilter) []domain.FeedItem {
	loc := day.Location()

	var out []domain.FeedItem
	for _, it := range items {
		if !f.match(&it) {
			continue
		}
		local := it.Timestamp.In(loc)
		if local.Year() == day.Year() && local.YearDay() == day.YearDay() {
			out = append(out, it)
		}
	}

	sortByUrgency(out)
	return out
}

func sortByUrgency(items []domain.FeedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Urgency.Rank() < items[j].Urgency.Rank()
	})
}
