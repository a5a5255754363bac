package httppresentation

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	appinventory "github.com/Zhima-Mochi/minishop-inventory/internal/application/inventory"
	domproduct "github.com/Zhima-Mochi/minishop-inventory/internal/domain/product"

	"github.com/shopspring/decimal"
)

type createProductRequest struct {
	SKU   string          `json:"sku"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type updateProductRequest struct {
	SKU   *string          `json:"sku"`
	Name  *string          `json:"name"`
	Price *decimal.Decimal `json:"price"`
	Stock *int             `json:"stock"`
}

type productResponse struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toProductResponse(p *domproduct.Product) productResponse {
	return productResponse{
		ID:        p.ID,
		SKU:       p.SKU,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.uc.CreateProduct.Execute(r.Context(), appinventory.CreateProductInput{
		SKU:   req.SKU,
		Name:  req.Name,
		Price: req.Price,
		Stock: req.Stock,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pagination(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	products, err := h.uc.ListProducts.Execute(r.Context(), appinventory.ListProductsInput{
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.uc.GetProduct.Execute(r.Context(), appinventory.GetProductInput{ID: r.PathValue("id")})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.uc.UpdateProduct.Execute(r.Context(), appinventory.UpdateProductInput{
		ID:    r.PathValue("id"),
		SKU:   req.SKU,
		Name:  req.Name,
		Price: req.Price,
		Stock: req.Stock,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if _, err := h.uc.DeleteProduct.Execute(r.Context(), appinventory.DeleteProductInput{ID: r.PathValue("id")}); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pagination reads offset (alias skip) and limit; absent values are zero.
func pagination(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	offsetRaw := q.Get("offset")
	if offsetRaw == "" {
		offsetRaw = q.Get("skip")
	}
	offset, err := intParam("offset", offsetRaw)
	if err != nil {
		return 0, 0, err
	}
	limit, err := intParam("limit", q.Get("limit"))
	if err != nil {
		return 0, 0, err
	}
	return offset, limit, nil
}

func intParam(name, raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, application.Validation(name + " must be an integer")
	}
	return v, nil
}
