package catalog

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

// Handler wires HTTP endpoints for the product catalog.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
}

type productRequest struct {
	Name            string     `json:"name" validate:"required"`
	Code            string     `json:"code" validate:"required"`
	CategoryID      *string    `json:"category_id" validate:"omitempty,uuid4"`
	SupplierID      *string    `json:"supplier_id" validate:"omitempty,uuid4"`
	Unit            string     `json:"unit" validate:"required"`
	MinimumQuantity float64    `json:"minimum_quantity" validate:"gte=0"`
	PurchasePrice   float64    `json:"purchase_price" validate:"gte=0"`
	SalePrice       float64    `json:"sale_price" validate:"gte=0"`
	Lot             *string    `json:"lot"`
	ExpiryDate      *time.Time `json:"expiry_date"`
	IsActive        *bool      `json:"is_active"`
}

type listResponse struct {
	Items      []Product         `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 20
	}

	filters := ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	}
	if v := q.Get("category_id"); v != "" {
		filters.CategoryID = &v
	}
	if v := q.Get("supplier_id"); v != "" {
		filters.SupplierID = &v
	}
	if v := q.Get("is_active"); v != "" {
		active := v == "true"
		filters.IsActive = &active
	}

	products, total, err := h.service.List(r.Context(), actor.ClinicID, filters)
	if err != nil {
		h.logger.Error("list products failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: products, Pagination: shared.NewPagination(page, limit, total)})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	product, err := h.service.Get(r.Context(), actor.ClinicID, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	product, err := h.service.Create(r.Context(), productFromRequest(actor.ClinicID, req))
	if err != nil {
		h.logger.Error("create product failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("product created", slog.String("product_id", product.ID), slog.String("clinic_id", product.ClinicID))
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.service.Update(r.Context(), actor.ClinicID, id, productFromRequest(actor.ClinicID, req)); err != nil {
		h.logger.Error("update product failed", slog.Any("error", err), slog.String("product_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), actor.ClinicID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func productFromRequest(clinicID string, req productRequest) Product {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return Product{
		ClinicID:        clinicID,
		Name:            req.Name,
		Code:            req.Code,
		CategoryID:      req.CategoryID,
		SupplierID:      req.SupplierID,
		Unit:            req.Unit,
		MinimumQuantity: req.MinimumQuantity,
		PurchasePrice:   req.PurchasePrice,
		SalePrice:       req.SalePrice,
		Lot:             req.Lot,
		ExpiryDate:      req.ExpiryDate,
		IsActive:        active,
	}
}
