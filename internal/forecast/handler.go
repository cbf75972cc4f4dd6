package forecast

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dentaflow/dentaflow-stock/internal/platform/httpx"
	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// Handler wires the replenishment suggestion endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the forecast handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers forecast routes under the products subtree.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{id}/forecast", h.suggest)
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	productID := chi.URLParam(r, "id")

	suggestion, err := h.service.Suggest(r.Context(), actor.ClinicID, productID)
	if err != nil {
		h.logger.Error("forecast failed", slog.Any("error", err), slog.String("product_id", productID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, suggestion)
}
