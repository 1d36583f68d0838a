package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/eugenenazirov/plantevern/internal/export"
	"github.com/eugenenazirov/plantevern/internal/planner"
	"github.com/eugenenazirov/plantevern/internal/report"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportBaseName  = "innkjopsliste"
	maxQRSize       = 1024
)

func (h *Handler) buildShoppingList() ([]planner.ShoppingListItem, error) {
	plots, treatments := h.store.Snapshot()
	return planner.BuildShoppingList(plots, treatments, h.packer)
}

func (h *Handler) handleShoppingList(w http.ResponseWriter, r *http.Request) {
	_ = r
	items, err := h.buildShoppingList()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shoppingListResponse{
		Items:       items,
		GeneratedAt: h.clock(),
	})
}

func (h *Handler) handleShoppingListText(w http.ResponseWriter, r *http.Request) {
	_ = r
	items, err := h.buildShoppingList()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, report.Format(items))
}

func (h *Handler) handleShoppingListXLSX(w http.ResponseWriter, r *http.Request) {
	h.writeDocument(w, r, contentTypeXLSX, "xlsx", export.WriteXLSX)
}

func (h *Handler) handleShoppingListPDF(w http.ResponseWriter, r *http.Request) {
	h.writeDocument(w, r, "application/pdf", "pdf", export.WritePDF)
}

// handleShoppingListQR encodes the text report as a PNG QR code. ?size= sets
// the edge length in pixels.
func (h *Handler) handleShoppingListQR(w http.ResponseWriter, r *http.Request) {
	size := export.DefaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxQRSize {
			writeError(w, http.StatusBadRequest, "Invalid size", fmt.Sprintf("size must be between 1 and %d", maxQRSize))
			return
		}
		size = parsed
	}

	items, err := h.buildShoppingList()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	png, err := export.QRCode(report.Format(items), size)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Cannot encode QR code", err.Error(),
			"Use the text or PDF export for long shopping lists")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// writeDocument renders into a buffer first so a failure can still be
// reported as a JSON error.
func (h *Handler) writeDocument(w http.ResponseWriter, r *http.Request, contentType, ext string,
	render func(io.Writer, []planner.ShoppingListItem) error) {
	_ = r
	items, err := h.buildShoppingList()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, items); err != nil {
		if errors.Is(err, export.ErrEmptyList) {
			writeError(w, http.StatusUnprocessableEntity, "Shopping list is empty", err.Error(),
				"Add a treatment to a plot before exporting")
			return
		}
		writeInternalError(w, err)
		return
	}

	filename := fmt.Sprintf("%s-%s.%s", exportBaseName, h.clock().Format(time.DateOnly), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type shoppingListResponse struct {
	Items       []planner.ShoppingListItem `json:"items"`
	GeneratedAt time.Time                  `json:"generatedAt"`
}
