package ledger

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

// Handler wires HTTP endpoints for the movement ledger.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers ledger routes under the products subtree.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{id}/movements", h.record)
	r.Get("/{id}/movements", h.history)
}

type movementRequest struct {
	Type          string     `json:"type" validate:"required,oneof=ENTRADA SAIDA AJUSTE DEVOLUCAO PERDA"`
	Quantity      float64    `json:"quantity" validate:"gte=0"`
	Reason        string     `json:"reason" validate:"required"`
	Lot           *string    `json:"lot"`
	ExpiryDate    *time.Time `json:"expiry_date"`
	UnitValue     *float64   `json:"unit_value" validate:"omitempty,gte=0"`
	SupplierID    *string    `json:"supplier_id" validate:"omitempty,uuid4"`
	InvoiceNumber *string    `json:"invoice_number"`
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	productID := chi.URLParam(r, "id")

	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.RecordMovement(r.Context(), RecordInput{
		ClinicID:      actor.ClinicID,
		ProductID:     productID,
		Type:          MovementType(req.Type),
		Quantity:      req.Quantity,
		Reason:        req.Reason,
		Lot:           req.Lot,
		ExpiryDate:    req.ExpiryDate,
		UnitValue:     req.UnitValue,
		SupplierID:    req.SupplierID,
		InvoiceNumber: req.InvoiceNumber,
		PerformedBy:   actor.UserID,
	})
	if err != nil {
		h.logger.Error("record movement failed",
			slog.Any("error", err),
			slog.String("product_id", productID),
			slog.String("type", req.Type))
		httpx.RespondError(w, err)
		return
	}

	h.logger.Info("movement recorded",
		slog.String("movement_id", result.Movement.ID),
		slog.String("product_id", productID),
		slog.String("type", req.Type),
		slog.Float64("balance", result.Product.CurrentQuantity))
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	productID := chi.URLParam(r, "id")
	q := r.URL.Query()

	var filter HistoryFilter
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid from date")
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid to date")
			return
		}
		// End of day.
		filter.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	movements, err := h.service.History(r.Context(), actor.ClinicID, productID, filter)
	if err != nil {
		h.logger.Error("list movements failed", slog.Any("error", err), slog.String("product_id", productID))
		httpx.RespondError(w, err)
		return
	}
	if movements == nil {
		movements = []Movement{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": movements})
}
