package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/tritonhub/tritonhub/pkg/domain"
	"github.com/tritonhub/tritonhub/pkg/feed"
	"github.com/tritonhub/tritonhub/pkg/lms"
)

// LMSClient interface for course data retrieval
type LMSClient interface {
	ListCourses(ctx context.Context) ([]domain.Course, error)
	ListAssignments(ctx context.Context, courseID int64) ([]domain.Assignment, error)
	ListAnnouncements(ctx context.Context, courseIDs []int64) ([]domain.Announcement, error)
	ListCalendarEvents(ctx context.Context, start, end time.Time) ([]domain.CalendarEvent, error)
}

// NotificationStore interface for ad-hoc notifications and item state
type NotificationStore interface {
	ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error)
	GetOverrides(ctx context.Context, userID string) (feed.Overrides, error)
}

// EmailSource interface for inbox retrieval
type EmailSource interface {
	ListMessages(ctx context.Context, limit int) ([]domain.EmailMessage, error)
}

// Config holds pipeline configuration
type Config struct {
	UserID     string
	MaxWorkers int
	EmailLimit int
	Location   *time.Location
	Now        func() time.Time
}

// Pipeline runs a single aggregation cycle: fetch all sources, normalize
// everything into feed items, classify urgency and rank.
type Pipeline struct {
	lms        LMSClient
	store      NotificationStore
	email      EmailSource // nil when email source is disabled
	userID     string
	maxWorkers int
	emailLimit int
	loc        *time.Location
	now        func() time.Time
}

// Snapshot is the result of one completed sync cycle
type Snapshot struct {
	Items    []domain.FeedItem
	Courses  []domain.Course
	Term     string
	SyncedAt time.Time
}

// courseData holds the per-course fetch results joined after fan-out
type courseData struct {
	assignments   []domain.Assignment
	announcements []domain.Announcement
}

// NewPipeline creates an aggregation pipeline. Email source may be nil.
func NewPipeline(lmsClient LMSClient, store NotificationStore, email EmailSource, cfg Config) *Pipeline {
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 5
	}
	if cfg.EmailLimit == 0 {
		cfg.EmailLimit = 50
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.UserID == "" {
		cfg.UserID = "default"
	}

	return &Pipeline{
		lms:        lmsClient,
		store:      store,
		email:      email,
		userID:     cfg.UserID,
		maxWorkers: cfg.MaxWorkers,
		emailLimit: cfg.EmailLimit,
		loc:        cfg.Location,
		now:        cfg.Now,
	}
}

// Sync runs one full aggregation cycle. The course list is the backbone:
// if it cannot be fetched the cycle fails. Any other source failing degrades
// to an empty contribution with a warning.
func (p *Pipeline) Sync(ctx context.Context) (*Snapshot, error) {
	now := p.now()

	courses, err := p.lms.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	term := lms.ResolveCurrentTerm(courses)
	courses = lms.FilterCurrentTerm(courses)
	lgr.Printf("[INFO] syncing %d courses, term %q", len(courses), term)

	overrides, err := p.store.GetOverrides(ctx, p.userID)
	if err != nil {
		lgr.Printf("[WARN] failed to load item state overrides: %v", err)
		overrides = feed.Overrides{}
	}

	perCourse := p.fetchCourses(ctx, courses)

	norm := feed.NewNormalizer(p.now, p.loc, overrides)
	items := make([]domain.FeedItem, 0, 64)

	for _, c := range courses {
		data := perCourse[c.ID]
		for _, a := range data.assignments {
			items = append(items, norm.Assignment(a, c.Label()))
		}
		for _, an := range data.announcements {
			items = append(items, norm.Announcement(an, c.Label()))
		}
		if it, ok := norm.Grade(c); ok {
			items = append(items, it)
		}
	}

	items = append(items, p.fetchEvents(ctx, norm, courses, now)...)
	items = append(items, p.fetchNotifications(ctx, norm)...)
	items = append(items, p.fetchEmail(ctx, norm)...)

	feed.Rank(items, now)

	lgr.Printf("[INFO] sync completed, %d items", len(items))
	return &Snapshot{Items: items, Courses: courses, Term: term, SyncedAt: now}, nil
}

// fetchCourses fans out assignment and announcement retrieval per course.
// A failed course contributes an empty list, other courses are unaffected.
func (p *Pipeline) fetchCourses(ctx context.Context, courses []domain.Course) map[int64]courseData {
	result := make(map[int64]courseData, len(courses))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxWorkers)

	for _, c := range courses {
		g.Go(func() error {
			assignments, err := p.lms.ListAssignments(gctx, c.ID)
			if err != nil {
				lgr.Printf("[WARN] failed to fetch assignments for %s: %v", c.Label(), err)
				assignments = nil
			}
			announcements, err := p.lms.ListAnnouncements(gctx, []int64{c.ID})
			if err != nil {
				lgr.Printf("[WARN] failed to fetch announcements for %s: %v", c.Label(), err)
				announcements = nil
			}
			mu.Lock()
			result[c.ID] = courseData{assignments: assignments, announcements: announcements}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait() // workers never return errors, failures degrade per course
	return result
}

// fetchEvents retrieves calendar events around the current date and keeps
// only the ones belonging to a current-term course or the user calendar.
func (p *Pipeline) fetchEvents(ctx context.Context, norm *feed.Normalizer, courses []domain.Course, now time.Time) []domain.FeedItem {
	start := now.AddDate(0, 0, -7)
	end := now.AddDate(0, 0, 60)

	events, err := p.lms.ListCalendarEvents(ctx, start, end)
	if err != nil {
		lgr.Printf("[WARN] failed to fetch calendar events: %v", err)
		return nil
	}

	labels := make(map[int64]string, len(courses))
	for _, c := range courses {
		labels[c.ID] = c.Label()
	}

	items := make([]domain.FeedItem, 0, len(events))
	for _, ev := range events {
		label := ""
		if ev.CourseID != 0 {
			l, ok := labels[ev.CourseID]
			if !ok {
				continue // event from a past-term course
			}
			label = l
		}
		items = append(items, norm.Event(ev, label))
	}
	return items
}

// fetchNotifications loads ad-hoc notifications from the store
func (p *Pipeline) fetchNotifications(ctx context.Context, norm *feed.Normalizer) []domain.FeedItem {
	notifications, err := p.store.ListNotifications(ctx, p.userID)
	if err != nil {
		lgr.Printf("[WARN] failed to load notifications: %v", err)
		return nil
	}
	items := make([]domain.FeedItem, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, norm.Notification(n))
	}
	return items
}

// fetchEmail pulls recent inbox messages when the email source is configured
func (p *Pipeline) fetchEmail(ctx context.Context, norm *feed.Normalizer) []domain.FeedItem {
	if p.email == nil {
		return nil
	}
	messages, err := p.email.ListMessages(ctx, p.emailLimit)
	if err != nil {
		lgr.Printf("[WARN] failed to fetch email: %v", err)
		return nil
	}
	items := make([]domain.FeedItem, 0, len(messages))
	for _, m := range messages {
		items = append(items, norm.Email(m))
	}
	return items
}

// FilterItems applies feed query filters to a ranked item list, preserving order
func FilterItems(items []domain.FeedItem, category, course, search string, urgentOnly bool) []domain.FeedItem {
	out := make([]domain.FeedItem, 0, len(items))
	for _, it := range items {
		if category != "" && string(it.Category) != category {
			continue
		}
		if course != "" && it.Course != course {
			continue
		}
		if urgentOnly && it.Urgency != domain.UrgencyUrgent {
			continue
		}
		if search != "" && !matchesSearch(it, search) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func matchesSearch(it domain.FeedItem, q string) bool {
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(it.Title), q) ||
		strings.Contains(strings.ToLower(it.Snippet), q) ||
		strings.Contains(strings.ToLower(it.Course), q)
}

// SortCourses orders courses by label for stable presentation
func SortCourses(courses []domain.Course) {
	sort.Slice(courses, func(i, j int) bool { return courses[i].Label() < courses[j].Label() })
}
