package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/plantevern/internal/catalog"
	"github.com/eugenenazirov/plantevern/internal/units"
)

// handleListProducts returns every approved product, or the name matches
// when ?q= is given.
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	var (
		products []catalog.Product
		err      error
	)
	if query == "" {
		products, err = h.catalog.Products(r.Context())
	} else {
		products, err = h.catalog.Search(r.Context(), query)
	}
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, productsResponse{
		Query:    query,
		Products: products,
		Count:    len(products),
	})
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(r.Context(), r.PathValue("regNr"))
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) handleDoseSuggestion(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(r.Context(), r.PathValue("regNr"))
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}

	dose, unit := catalog.DefaultDose(product)
	writeJSON(w, http.StatusOK, doseSuggestionResponse{
		RegNr:       product.RegNr,
		Category:    catalog.ParseCategory(product.Group).String(),
		UnitKind:    product.UnitKind().String(),
		Suggestion:  catalog.SuggestionFor(product),
		DefaultDose: dose,
		DefaultUnit: unit,
	})
}

func (h *Handler) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, catalog.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, "Product not found", err.Error(),
			"Search /api/products?q= for the registration number")
		return
	}
	h.logger.Warn("product catalog unavailable",
		zap.Error(err),
		zap.String("request_id", requestIDFromContext(r.Context())),
	)
	writeError(w, http.StatusServiceUnavailable, "Product catalog unavailable", err.Error(), "Retry in a moment")
}

type productsResponse struct {
	Query    string            `json:"query,omitempty"`
	Products []catalog.Product `json:"products"`
	Count    int               `json:"count"`
}

type doseSuggestionResponse struct {
	RegNr       string             `json:"regNr"`
	Category    string             `json:"category"`
	UnitKind    string             `json:"unitKind"`
	Suggestion  catalog.Suggestion `json:"suggestion"`
	DefaultDose float64            `json:"defaultDose"`
	DefaultUnit units.DoseUnit     `json:"defaultUnit"`
}
