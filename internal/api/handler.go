package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/plantevern/internal/calculator"
	"github.com/eugenenazirov/plantevern/internal/catalog"
	"github.com/eugenenazirov/plantevern/internal/metrics"
	"github.com/eugenenazirov/plantevern/internal/storage"
	"github.com/eugenenazirov/plantevern/internal/units"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ProductCatalog is the read side of the product registry used by handlers.
type ProductCatalog interface {
	Products(ctx context.Context) ([]catalog.Product, error)
	Get(ctx context.Context, regNr string) (catalog.Product, error)
	Search(ctx context.Context, query string) ([]catalog.Product, error)
}

// Handler wires the catalog, plan store and packer into HTTP handlers.
type Handler struct {
	catalog ProductCatalog
	store   storage.Storage
	packer  calculator.Packer

	metrics *metrics.Metrics
	logger  *zap.Logger
	clock   func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithMetrics records packer timings and enables the /metrics endpoint.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithLogger sets the logger used for upstream failures.
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(products ProductCatalog, store storage.Storage, packer calculator.Packer, opts ...HandlerOption) *Handler {
	h := &Handler{
		catalog: products,
		store:   store,
		logger:  zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.packer = &instrumentedPacker{packer: packer, metrics: h.metrics}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePack(w http.ResponseWriter, r *http.Request) {
	var req packRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	unit, ok := units.ParseDoseUnit(req.DoseUnit)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid request", "doseUnit must be ml or g")
		return
	}

	start := time.Now()
	result, err := h.packer.Pack(req.Quantity, unit.Kind())
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, calculator.ErrInvalidQuantity) {
			writeError(w, http.StatusBadRequest, "Invalid request", "quantity must be a non-negative number",
				"Enter the total amount in ml or g, for example 27300")
			return
		}
		writeInternalError(w, err)
		return
	}

	resp := packResponse{
		Quantity:          req.Quantity,
		DoseUnit:          unit,
		Results:           result,
		TotalContainers:   result.TotalContainers(),
		Capacity:          result.Capacity(),
		CalculationTimeMs: elapsed.Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

// instrumentedPacker times every packer run.
type instrumentedPacker struct {
	packer  calculator.Packer
	metrics *metrics.Metrics
}

func (p *instrumentedPacker) Pack(totalQuantity float64, kind units.Kind) (calculator.Result, error) {
	start := time.Now()
	result, err := p.packer.Pack(totalQuantity, kind)
	if err == nil {
		p.metrics.ObservePack(result.UnitLabel, result.TotalInCanonicalUnit, time.Since(start))
	}
	return result, err
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type packRequest struct {
	Quantity float64 `json:"quantity"`
	DoseUnit string  `json:"doseUnit"`
}

type packResponse struct {
	Quantity          float64           `json:"quantity"`
	DoseUnit          units.DoseUnit    `json:"doseUnit"`
	Results           calculator.Result `json:"results"`
	TotalContainers   int               `json:"totalContainers"`
	Capacity          int               `json:"capacity"`
	CalculationTimeMs int64             `json:"calculationTimeMs"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
