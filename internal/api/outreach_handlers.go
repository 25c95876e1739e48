package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/loadpoint/broker-outreach/internal/auth"
	"github.com/loadpoint/broker-outreach/internal/compliance"
	"github.com/loadpoint/broker-outreach/internal/pkg/httputil"
	"github.com/loadpoint/broker-outreach/internal/service/outreach"
)

// InitiateOutreach starts an outreach sequence for a broker: step 1 is
// dispatched synchronously and the follow-up steps are scheduled. The
// response carries the step with its dispatch outcome.
//
//	POST /api/outreach
func (h *Handlers) InitiateOutreach(w http.ResponseWriter, r *http.Request) {
	var in outreach.InitiateInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	// The authenticated carrier always wins over whatever the body says.
	if id := auth.CarrierID(r.Context()); id != "" {
		in.CarrierID = id
	}

	step, err := h.outreach.Initiate(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Created(w, step)
}

// MarkResponded records an inbound reply from a broker and cancels the
// remaining scheduled steps.
//
//	POST /api/brokers/{brokerID}/responded
func (h *Handlers) MarkResponded(w http.ResponseWriter, r *http.Request) {
	res, err := h.outreach.MarkResponded(r.Context(), auth.CarrierID(r.Context()), chi.URLParam(r, "brokerID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, res)
}

// TriggerSweep runs one due-step sweep immediately instead of waiting for
// the background worker's next tick.
//
//	POST /api/outreach/sweep
func (h *Handlers) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	sum, err := h.outreach.Sweep(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, sum)
}

// CheckCompliance reports whether a call to the given state is allowed
// right now, with the state's local time and governing rule.
//
//	GET /api/compliance/{state}?at=RFC3339
func (h *Handlers) CheckCompliance(w http.ResponseWriter, r *http.Request) {
	state := strings.ToUpper(chi.URLParam(r, "state"))

	at := time.Now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.BadRequest(w, "at must be RFC3339")
			return
		}
		at = parsed
	}

	httputil.OK(w, compliance.Check(state, at))
}
