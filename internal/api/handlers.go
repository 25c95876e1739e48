package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/loadpoint/broker-outreach/internal/auth"
	"github.com/loadpoint/broker-outreach/internal/domain"
	"github.com/loadpoint/broker-outreach/internal/pkg/httputil"
	"github.com/loadpoint/broker-outreach/internal/scoring"
	"github.com/loadpoint/broker-outreach/internal/service/broker"
	"github.com/loadpoint/broker-outreach/internal/service/outreach"
)

// BrokerService is the slice of the broker service the handlers use.
type BrokerService interface {
	Create(ctx context.Context, carrierID string, in broker.CreateInput) (*domain.Broker, error)
	Get(ctx context.Context, carrierID, id string) (*domain.Broker, error)
	List(ctx context.Context, carrierID string, f broker.ListFilter) ([]domain.Broker, error)
	ListLeads(ctx context.Context, carrierID string, states []string, limit int) ([]domain.BrokerLead, error)
	Update(ctx context.Context, carrierID, id string, in broker.UpdateInput) (*domain.Broker, error)
	Delete(ctx context.Context, carrierID, id string) error
	Score(ctx context.Context, carrierID, id string) (*scoring.RelationshipResult, error)
	RankTargets(ctx context.Context, carrierID string, limit int) ([]broker.TargetCandidate, error)
	NeedsAttention(ctx context.Context, carrierID string, limit int) ([]domain.Broker, error)
}

// OutreachService is the slice of the outreach service the handlers use.
type OutreachService interface {
	Initiate(ctx context.Context, in outreach.InitiateInput) (*domain.OutreachStep, error)
	MarkResponded(ctx context.Context, carrierID, brokerID string) (*outreach.ResponseResult, error)
	Sweep(ctx context.Context) (outreach.SweepSummary, error)
}

// Handlers holds the HTTP handlers and their service dependencies.
type Handlers struct {
	brokers  BrokerService
	outreach OutreachService
	health   *HealthChecker
}

// NewHandlers creates the handler set. health may be nil.
func NewHandlers(brokers BrokerService, outreachSvc OutreachService, health *HealthChecker) *Handlers {
	return &Handlers{
		brokers:  brokers,
		outreach: outreachSvc,
		health:   health,
	}
}

// writeServiceError maps service-layer sentinel errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, broker.ErrNotFound) || errors.Is(err, outreach.ErrNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, broker.ErrDuplicateBroker) || errors.Is(err, outreach.ErrDuplicateOutreach):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, broker.ErrInvalidInput) || errors.Is(err, outreach.ErrInvalidInput) ||
		errors.Is(err, broker.ErrInvalidTransition):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, outreach.ErrBrokerBlacklisted):
		httputil.Forbidden(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}

// queryLimit parses the optional ?limit query parameter.
func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

// CreateBroker adds a broker to the carrier's CRM.
//
//	POST /api/brokers
func (h *Handlers) CreateBroker(w http.ResponseWriter, r *http.Request) {
	var in broker.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	b, err := h.brokers.Create(r.Context(), auth.CarrierID(r.Context()), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Created(w, b)
}

// GetBroker returns a single broker.
//
//	GET /api/brokers/{brokerID}
func (h *Handlers) GetBroker(w http.ResponseWriter, r *http.Request) {
	b, err := h.brokers.Get(r.Context(), auth.CarrierID(r.Context()), chi.URLParam(r, "brokerID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, b)
}

// ListBrokers returns the carrier's brokers, optionally filtered.
//
//	GET /api/brokers?status=&state=&limit=
func (h *Handlers) ListBrokers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := broker.ListFilter{
		Status: domain.OutreachStatus(q.Get("status")),
		State:  q.Get("state"),
		Limit:  queryLimit(r),
	}

	list, err := h.brokers.List(r.Context(), auth.CarrierID(r.Context()), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"brokers": list, "count": len(list)})
}

// ListLeads returns shared pool leads, defaulting to the carrier's target
// regions when no states are given.
//
//	GET /api/leads?states=NJ,PA&limit=
func (h *Handlers) ListLeads(w http.ResponseWriter, r *http.Request) {
	var states []string
	if raw := r.URL.Query().Get("states"); raw != "" {
		states = strings.Split(raw, ",")
	}

	leads, err := h.brokers.ListLeads(r.Context(), auth.CarrierID(r.Context()), states, queryLimit(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"leads": leads, "count": len(leads)})
}

// UpdateBroker patches broker fields and validates status transitions.
//
//	PUT /api/brokers/{brokerID}
func (h *Handlers) UpdateBroker(w http.ResponseWriter, r *http.Request) {
	var in broker.UpdateInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	b, err := h.brokers.Update(r.Context(), auth.CarrierID(r.Context()), chi.URLParam(r, "brokerID"), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, b)
}

// DeleteBroker removes a broker from the CRM.
//
//	DELETE /api/brokers/{brokerID}
func (h *Handlers) DeleteBroker(w http.ResponseWriter, r *http.Request) {
	if err := h.brokers.Delete(r.Context(), auth.CarrierID(r.Context()), chi.URLParam(r, "brokerID")); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.NoContent(w)
}

// ScoreBroker recomputes and persists the broker's relationship score,
// returning the full factor breakdown.
//
//	POST /api/brokers/{brokerID}/score
func (h *Handlers) ScoreBroker(w http.ResponseWriter, r *http.Request) {
	res, err := h.brokers.Score(r.Context(), auth.CarrierID(r.Context()), chi.URLParam(r, "brokerID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, res)
}

// RankTargets returns the merged, scored target list from the CRM and the
// lead pool for the carrier's operating region.
//
//	GET /api/targets?limit=
func (h *Handlers) RankTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.brokers.RankTargets(r.Context(), auth.CarrierID(r.Context()), queryLimit(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"targets": targets, "count": len(targets)})
}

// NeedsAttention returns brokers awaiting a human touch, replies first.
//
//	GET /api/brokers/attention?limit=
func (h *Handlers) NeedsAttention(w http.ResponseWriter, r *http.Request) {
	list, err := h.brokers.NeedsAttention(r.Context(), auth.CarrierID(r.Context()), queryLimit(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"brokers": list, "count": len(list)})
}
