package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/moodlog/internal/formatter"
	"github.com/desertthunder/moodlog/internal/models"
	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/desertthunder/moodlog/internal/tasks"
)

// EntryDeleter soft-deletes a user's entry. Implemented by the mood entry repository.
type EntryDeleter interface {
	Delete(ctx context.Context, userID, id string) error
}

type moodOption struct {
	Label string `json:"label"`
	Emoji string `json:"emoji"`
}

// MoodOptions serves the selectable label set.
func MoodOptions(w http.ResponseWriter, r *http.Request) {
	moods := models.Moods()
	opts := make([]moodOption, 0, len(moods))
	for _, m := range moods {
		opts = append(opts, moodOption{Label: m.String(), Emoji: m.Emoji()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"moods": opts, "default": models.AutoSaveMood})
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// MoodsHandler serves a user's history.
type MoodsHandler struct {
	history *tasks.HistoryEngine
	entries EntryDeleter
	loc     *time.Location
}

func NewMoodsHandler(history *tasks.HistoryEngine, entries EntryDeleter, loc *time.Location) *MoodsHandler {
	if loc == nil {
		loc = time.Local
	}
	return &MoodsHandler{history: history, entries: entries, loc: loc}
}

func (h *MoodsHandler) Routes() []string {
	return []string{
		"GET /moods",
		"GET /moods/summary",
		"DELETE /moods/{id}",
	}
}

func (h *MoodsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, shared.ErrNotAuthenticated)
		return
	}

	switch r.Pattern {
	case "GET /moods":
		h.list(w, r, userID)
	case "GET /moods/summary":
		h.summary(w, r, userID)
	case "DELETE /moods/{id}":
		h.delete(w, r, userID)
	default:
		http.NotFound(w, r)
	}
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", shared.ErrInvalidArgument, name)
	}
	return n, nil
}

// sinceParam accepts a calendar date in loc or an RFC 3339 timestamp.
func sinceParam(r *http.Request, loc *time.Location) (time.Time, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, raw, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: since must be YYYY-MM-DD or RFC 3339", shared.ErrInvalidArgument)
	}
	return t, nil
}

func (h *MoodsHandler) list(w http.ResponseWriter, r *http.Request, userID string) {
	loc, err := viewerLocation(r, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	q := r.URL.Query()
	opts := tasks.HistoryOpts{Location: loc}

	if opts.Since, err = sinceParam(r, loc); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if opts.Limit, err = intParam(r, "limit"); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if opts.Days, err = intParam(r, "days"); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if raw := q.Get("mood"); raw != "" {
		if opts.Mood, err = models.ParseMood(raw); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	}

	format, err := formatter.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	history, err := h.history.History(r.Context(), userID, opts)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	data, err := formatter.Render(history, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *MoodsHandler) summary(w http.ResponseWriter, r *http.Request, userID string) {
	loc, err := viewerLocation(r, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	days, err := intParam(r, "days")
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	summary, err := h.history.Summarize(r.Context(), nil, userID, loc, days)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// delete soft-deletes an entry; deleting today's entry means the next visit prompts again.
func (h *MoodsHandler) delete(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.entries.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
