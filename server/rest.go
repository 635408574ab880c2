package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/tritonhub/tritonhub/pkg/domain"
	"github.com/tritonhub/tritonhub/pkg/feed"
	"github.com/tritonhub/tritonhub/pkg/pipeline"
)

// userIDHeader selects the acting user, single-user deployments omit it
const userIDHeader = "X-User-ID"

func userID(r *http.Request) string {
	if id := r.Header.Get(userIDHeader); id != "" {
		return id
	}
	return "default"
}

// statusHandler returns server status and sync state
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
	}

	if snap, err := s.feed.Snapshot(); err == nil {
		status["synced_at"] = snap.SyncedAt.UTC()
		status["term"] = snap.Term
		status["items"] = len(snap.Items)
		status["courses"] = len(snap.Courses)
	}
	if err := s.feed.LastError(); err != nil {
		status["last_error"] = err.Error()
	}

	renderJSON(w, r, http.StatusOK, status)
}

// syncHandler triggers an immediate sync cycle and returns the fresh snapshot summary
func (s *Server) syncHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.feed.SyncNow(r.Context())
	if err != nil {
		log.Printf("[ERROR] on-demand sync failed: %v", err)
		renderError(w, r, err, http.StatusBadGateway)
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]interface{}{
		"synced_at": snap.SyncedAt.UTC(),
		"term":      snap.Term,
		"items":     len(snap.Items),
		"courses":   len(snap.Courses),
	})
}

// feedHandler returns the ranked feed, optionally filtered by category,
// course, urgency or a search term
func (s *Server) feedHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.feed.Snapshot()
	if err != nil {
		renderError(w, r, err, http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	items := pipeline.FilterItems(snap.Items, q.Get("category"), q.Get("course"), q.Get("search"), q.Get("urgent") == "true")

	if q.Get("pending") == "true" {
		pending := make([]domain.FeedItem, 0, len(items))
		for _, it := range items {
			if it.Pending() {
				pending = append(pending, it)
			}
		}
		items = pending
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit >= 0 && limit < len(items) {
			items = items[:limit]
		}
	}

	renderJSON(w, r, http.StatusOK, map[string]interface{}{
		"synced_at": snap.SyncedAt.UTC(),
		"items":     items,
	})
}

// coursesHandler returns the current-term course list with grade summaries
func (s *Server) coursesHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.feed.Snapshot()
	if err != nil {
		renderError(w, r, err, http.StatusServiceUnavailable)
		return
	}

	courses := make([]domain.Course, len(snap.Courses))
	copy(courses, snap.Courses)
	pipeline.SortCourses(courses)

	renderJSON(w, r, http.StatusOK, map[string]interface{}{
		"term":    snap.Term,
		"courses": courses,
	})
}

// calendarHandler returns feed items bucketed by local calendar date.
// Without a day parameter it returns the whole month keyed by day number.
func (s *Server) calendarHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.feed.Snapshot()
	if err != nil {
		renderError(w, r, err, http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	now := time.Now().In(s.loc)

	year := now.Year()
	if v := q.Get("year"); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			renderError(w, r, fmt.Errorf("invalid year"), http.StatusBadRequest)
			return
		}
	}

	month := now.Month()
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			renderError(w, r, fmt.Errorf("invalid month"), http.StatusBadRequest)
			return
		}
		month = time.Month(m)
	}

	filter := feed.CalendarFilter{}
	if v := q.Get("type"); v != "" {
		filter.Type = domain.Category(v)
	}
	if v := q.Get("urgency"); v != "" {
		tier, ok := domain.ParseUrgencyTier(v)
		if !ok {
			renderError(w, r, fmt.Errorf("invalid urgency"), http.StatusBadRequest)
			return
		}
		filter.Urgency = tier
	}

	if v := q.Get("day"); v != "" {
		dayNum, err := strconv.Atoi(v)
		if err != nil || dayNum < 1 || dayNum > 31 {
			renderError(w, r, fmt.Errorf("invalid day"), http.StatusBadRequest)
			return
		}
		day := time.Date(year, month, dayNum, 0, 0, 0, 0, s.loc)
		renderJSON(w, r, http.StatusOK, map[string]interface{}{
			"date":  day.Format("2006-01-02"),
			"items": feed.CalendarDay(snap.Items, day, filter),
		})
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]interface{}{
		"year":  year,
		"month": int(month),
		"days":  feed.CalendarMonth(snap.Items, year, month, s.loc, filter),
	})
}

// listNotificationsHandler returns stored ad-hoc notifications for the user
func (s *Server) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	notifications, err := s.store.ListNotifications(r.Context(), userID(r))
	if err != nil {
		log.Printf("[ERROR] failed to list notifications: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]interface{}{"notifications": notifications})
}

// createNotificationHandler stores a single ad-hoc notification
func (s *Server) createNotificationHandler(w http.ResponseWriter, r *http.Request) {
	var n domain.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}
	if n.Summary == "" {
		renderError(w, r, fmt.Errorf("summary is required"), http.StatusBadRequest)
		return
	}
	n.UserID = userID(r)

	if err := s.store.CreateNotification(r.Context(), &n); err != nil {
		log.Printf("[ERROR] failed to create notification: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusCreated, n)
}

// parseNotificationsHandler turns free-form text into structured notifications
// via the LLM parser and stores the result
func (s *Server) parseNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	if s.parser == nil {
		renderError(w, r, fmt.Errorf("notification parser is not configured"), http.StatusNotImplemented)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		renderError(w, r, fmt.Errorf("text is required"), http.StatusBadRequest)
		return
	}

	parsed, err := s.parser.Parse(r.Context(), req.Text)
	if err != nil {
		log.Printf("[ERROR] failed to parse notifications: %v", err)
		renderError(w, r, err, http.StatusBadGateway)
		return
	}

	uid := userID(r)
	created := make([]domain.Notification, 0, len(parsed))
	for _, n := range parsed {
		n.UserID = uid
		if err := s.store.CreateNotification(r.Context(), &n); err != nil {
			log.Printf("[ERROR] failed to store parsed notification: %v", err)
			renderError(w, r, err, http.StatusInternalServerError)
			return
		}
		created = append(created, n)
	}

	renderJSON(w, r, http.StatusCreated, map[string]interface{}{"notifications": created})
}

// completeNotificationHandler marks an ad-hoc notification done
func (s *Server) completeNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		renderError(w, r, fmt.Errorf("invalid notification ID"), http.StatusBadRequest)
		return
	}

	if err := s.store.SetNotificationCompleted(r.Context(), userID(r), id, true); err != nil {
		log.Printf("[ERROR] failed to complete notification %d: %v", id, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]string{"status": "completed"})
}

// markItemReadHandler records a read override for a feed item
func (s *Server) markItemReadHandler(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")
	if itemID == "" {
		renderError(w, r, fmt.Errorf("item ID is required"), http.StatusBadRequest)
		return
	}

	if err := s.store.MarkItemRead(r.Context(), userID(r), itemID); err != nil {
		log.Printf("[ERROR] failed to mark item %s read: %v", itemID, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]string{"status": "read"})
}

// markItemCompletedHandler records a completion override for a feed item
func (s *Server) markItemCompletedHandler(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")
	if itemID == "" {
		renderError(w, r, fmt.Errorf("item ID is required"), http.StatusBadRequest)
		return
	}

	if err := s.store.MarkItemCompleted(r.Context(), userID(r), itemID); err != nil {
		log.Printf("[ERROR] failed to mark item %s completed: %v", itemID, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]string{"status": "completed"})
}
