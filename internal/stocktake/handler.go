package stocktake

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dentaflow/dentaflow-stock/internal/platform/httpx"
	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// Handler wires HTTP endpoints for count sessions.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the stocktake handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers stocktake routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}/items/{itemID}/count", h.count)
	r.Post("/{id}/adjustments", h.adjust)
	r.Post("/{id}/cancel", h.cancel)
}

type createRequest struct {
	Number      string     `json:"number" validate:"required"`
	Date        *time.Time `json:"date"`
	Type        string     `json:"type" validate:"required,oneof=GENERAL PARTIAL CYCLIC"`
	Responsible string     `json:"responsible" validate:"required"`
	CategoryID  *string    `json:"category_id" validate:"omitempty,uuid4"`
	ProductIDs  []string   `json:"product_ids" validate:"omitempty,dive,uuid4"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())

	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	in := CreateInput{
		Number:      req.Number,
		Type:        SessionType(req.Type),
		Responsible: req.Responsible,
		Scope:       Scope{CategoryID: req.CategoryID, ProductIDs: req.ProductIDs},
	}
	if req.Date != nil {
		in.Date = *req.Date
	}

	session, err := h.service.CreateSession(r.Context(), actor.ClinicID, in)
	if err != nil {
		h.logger.Error("create stocktake failed", slog.Any("error", err), slog.String("number", req.Number))
		httpx.RespondError(w, err)
		return
	}

	h.logger.Info("stocktake created",
		slog.String("session_id", session.ID),
		slog.String("number", session.Number),
		slog.Int("items", session.TotalItems))
	httpx.JSON(w, http.StatusCreated, session)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	sessions, err := h.service.List(r.Context(), actor.ClinicID, shared.NewPagination(page, perPage, 0))
	if err != nil {
		h.logger.Error("list stocktakes failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if sessions == nil {
		sessions = []Session{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": sessions})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	sessionID := chi.URLParam(r, "id")

	session, items, err := h.service.Get(r.Context(), actor.ClinicID, sessionID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"session": session, "items": items})
}

type countRequest struct {
	PhysicalQuantity float64 `json:"physical_quantity" validate:"gte=0"`
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	sessionID := chi.URLParam(r, "id")
	itemID := chi.URLParam(r, "itemID")

	var req countRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	item, err := h.service.RecordCount(r.Context(), actor.ClinicID, sessionID, itemID, req.PhysicalQuantity, actor.UserID)
	if err != nil {
		h.logger.Error("record count failed",
			slog.Any("error", err),
			slog.String("session_id", sessionID),
			slog.String("item_id", itemID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	sessionID := chi.URLParam(r, "id")

	report, err := h.service.ApplyAdjustments(r.Context(), actor.ClinicID, sessionID, actor.UserID)
	if err != nil {
		h.logger.Error("apply adjustments failed", slog.Any("error", err), slog.String("session_id", sessionID))
		httpx.RespondError(w, err)
		return
	}

	h.logger.Info("adjustments applied",
		slog.String("session_id", sessionID),
		slog.Int("applied", len(report.Applied)),
		slog.Int("failed", len(report.Failed)),
		slog.Bool("completed", report.Completed))
	// Partial failures still return the report; 207 flags them.
	status := http.StatusOK
	if len(report.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	httpx.JSON(w, status, report)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	sessionID := chi.URLParam(r, "id")

	if err := h.service.CancelSession(r.Context(), actor.ClinicID, sessionID, actor.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
