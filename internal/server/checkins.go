package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlog/internal/gate"
	"github.com/desertthunder/moodlog/internal/models"
	"github.com/desertthunder/moodlog/internal/shared"
)

// TimezoneHeader names the viewer's IANA zone. The tz query parameter is accepted too.
const TimezoneHeader = "X-Timezone"

// viewerLocation resolves the zone a request's "today" is judged in.
func viewerLocation(r *http.Request, fallback *time.Location) (*time.Location, error) {
	name := r.Header.Get(TimezoneHeader)
	if name == "" {
		name = r.URL.Query().Get("tz")
	}
	if strings.TrimSpace(name) == "" {
		return fallback, nil
	}
	return shared.LoadLocation(name)
}

type activationView struct {
	ID         string            `json:"id"`
	Decision   gate.Decision     `json:"decision"`
	State      gate.State        `json:"state"`
	Timezone   string            `json:"timezone"`
	AutoSaveAt *time.Time        `json:"auto_save_at,omitempty"`
	AutoSaved  bool              `json:"auto_saved"`
	Entry      *models.MoodEntry `json:"entry,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func viewActivation(a *gate.Activation) activationView {
	out := a.Outcome()
	v := activationView{
		ID:        a.ID(),
		Decision:  out.Decision,
		State:     a.State(),
		Timezone:  a.Location().String(),
		AutoSaved: out.AutoSaved,
		Entry:     out.Entry,
	}
	if at := a.AutoSaveAt(); !at.IsZero() && v.State == gate.Armed {
		at = at.UTC()
		v.AutoSaveAt = &at
	}
	if out.Err != nil {
		v.Error = out.Err.Error()
	}
	return v
}

type submitRequest struct {
	Mood string `json:"mood"`
	Note string `json:"note"`
}

// CheckinHandler drives gate activations: one per page visit.
type CheckinHandler struct {
	gate     *gate.Gate
	registry *Registry
	loc      *time.Location
	logger   *log.Logger
}

// NewCheckinHandler creates a [CheckinHandler]. loc is the zone used when a request names none.
func NewCheckinHandler(g *gate.Gate, registry *Registry, loc *time.Location, logger *log.Logger) *CheckinHandler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CheckinHandler{gate: g, registry: registry, loc: loc, logger: logger}
}

func (h *CheckinHandler) Routes() []string {
	return []string{
		"POST /checkins",
		"GET /checkins/{id}",
		"POST /checkins/{id}/submit",
		"DELETE /checkins/{id}",
	}
}

func (h *CheckinHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, shared.ErrNotAuthenticated)
		return
	}

	switch r.Pattern {
	case "POST /checkins":
		h.create(w, r, userID)
	case "GET /checkins/{id}":
		h.status(w, r, userID)
	case "POST /checkins/{id}/submit":
		h.submit(w, r, userID)
	case "DELETE /checkins/{id}":
		h.dispose(w, r, userID)
	default:
		http.NotFound(w, r)
	}
}

// create starts and evaluates a new activation, superseding the user's unfinished one.
// A read failure discards it so the client can retry.
func (h *CheckinHandler) create(w http.ResponseWriter, r *http.Request, userID string) {
	loc, err := viewerLocation(r, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	act := h.gate.Activate(userID, gate.InLocation(loc))
	if _, err := act.Evaluate(r.Context()); err != nil {
		act.Dispose()
		writeError(w, statusFor(err), err)
		return
	}

	h.registry.Add(act)
	writeJSON(w, http.StatusOK, viewActivation(act))
}

func (h *CheckinHandler) status(w http.ResponseWriter, r *http.Request, userID string) {
	act, err := h.registry.Get(userID, r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, viewActivation(act))
}

func (h *CheckinHandler) submit(w http.ResponseWriter, r *http.Request, userID string) {
	act, err := h.registry.Get(userID, r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	entry, err := act.Submit(r.Context(), models.Mood(req.Mood), req.Note)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// dispose tears the activation down, e.g. when the user navigates away.
func (h *CheckinHandler) dispose(w http.ResponseWriter, r *http.Request, userID string) {
	act, err := h.registry.Get(userID, r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	act.Dispose()
	h.registry.Remove(act.ID())
	w.WriteHeader(http.StatusNoContent)
}
