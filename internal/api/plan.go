package api

import (
	"errors"
	"net/http"

	"github.com/eugenenazirov/plantevern/internal/catalog"
	"github.com/eugenenazirov/plantevern/internal/planner"
	"github.com/eugenenazirov/plantevern/internal/storage"
	"github.com/eugenenazirov/plantevern/internal/units"
)

func (h *Handler) handleListPlots(w http.ResponseWriter, r *http.Request) {
	_ = r
	plots, _ := h.store.Snapshot()
	writeJSON(w, http.StatusOK, plotsResponse{Plots: plots})
}

func (h *Handler) handleCreatePlot(w http.ResponseWriter, r *http.Request) {
	var req plotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	plot, err := h.store.AddPlot(r.Context(), req.Name, req.Area)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plot)
}

func (h *Handler) handleUpdatePlot(w http.ResponseWriter, r *http.Request) {
	var req plotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	plot, err := h.store.UpdatePlot(r.Context(), r.PathValue("id"), req.Name, req.Area)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plot)
}

// handleDeletePlot removes the plot and every treatment applied to it.
func (h *Handler) handleDeletePlot(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemovePlot(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListTreatments(w http.ResponseWriter, r *http.Request) {
	_ = r
	_, treatments := h.store.Snapshot()
	writeJSON(w, http.StatusOK, treatmentsResponse{Treatments: treatments})
}

// handleCreateTreatment resolves the product from the catalog and records the
// treatment. Dose and unit default to the product's suggestion when omitted.
func (h *Handler) handleCreateTreatment(w http.ResponseWriter, r *http.Request) {
	var req treatmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}
	if req.PlotID == "" || req.RegNr == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "plotId and regNr are required")
		return
	}

	product, err := h.catalog.Get(r.Context(), req.RegNr)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}

	defaultDose, defaultUnit := catalog.DefaultDose(product)
	dose := defaultDose
	if req.Dose != nil {
		dose = *req.Dose
	}
	unit := defaultUnit
	if req.DoseUnit != "" {
		parsed, ok := units.ParseDoseUnit(req.DoseUnit)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid dose unit", "doseUnit must be ml or g")
			return
		}
		unit = parsed
	}

	treatment, err := h.store.AddTreatment(r.Context(), req.PlotID, product, dose, unit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, treatment)
}

func (h *Handler) handleDeleteTreatment(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveTreatment(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrPlotNotFound):
		writeError(w, http.StatusNotFound, "Plot not found", err.Error())
	case errors.Is(err, storage.ErrTreatmentNotFound):
		writeError(w, http.StatusNotFound, "Treatment not found", err.Error())
	case errors.Is(err, storage.ErrInvalidDose):
		writeError(w, http.StatusBadRequest, "Invalid dose", err.Error(), "Dose must be greater than zero")
	case errors.Is(err, storage.ErrInvalidArea),
		errors.Is(err, storage.ErrInvalidDoseUnit),
		errors.Is(err, storage.ErrInvalidProduct):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	default:
		writeInternalError(w, err)
	}
}

type plotRequest struct {
	Name string  `json:"name"`
	Area float64 `json:"area"`
}

type treatmentRequest struct {
	PlotID   string   `json:"plotId"`
	RegNr    string   `json:"regNr"`
	Dose     *float64 `json:"dose"`
	DoseUnit string   `json:"doseUnit"`
}

type plotsResponse struct {
	Plots []planner.Plot `json:"plots"`
}

type treatmentsResponse struct {
	Treatments []planner.Treatment `json:"treatments"`
}
