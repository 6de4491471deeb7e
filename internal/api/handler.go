package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/basket-splitter/internal/catalog"
	"github.com/eugenenazirov/basket-splitter/internal/metrics"
	"github.com/eugenenazirov/basket-splitter/internal/splitter"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// SplitterFactory builds a splitter for the current eligibility table.
type SplitterFactory func(table catalog.Table) splitter.Splitter

// ResultCache stores complete split results per table generation.
type ResultCache interface {
	Get(generation uint64, items []string) (splitter.Result, bool)
	Put(generation uint64, items []string, res splitter.Result) error
}

// Handler wires the eligibility store and splitter into HTTP handlers.
type Handler struct {
	store         catalog.Store
	newSplitter   SplitterFactory
	metrics       metrics.Collector
	cache         ResultCache
	logger        *zap.Logger
	searchTimeout time.Duration

	clock func() time.Time

	mu             sync.RWMutex
	tableUpdatedAt time.Time
	generation     uint64
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithSplitterOptions applies opts to every splitter built by the handler.
func WithSplitterOptions(opts ...splitter.Option) HandlerOption {
	return func(h *Handler) {
		h.newSplitter = func(table catalog.Table) splitter.Splitter {
			return splitter.New(table, opts...)
		}
	}
}

// WithSplitterFactory replaces the splitter constructor.
func WithSplitterFactory(factory SplitterFactory) HandlerOption {
	return func(h *Handler) {
		h.newSplitter = factory
	}
}

// WithMetrics records split outcomes to collector.
func WithMetrics(collector metrics.Collector) HandlerOption {
	return func(h *Handler) {
		h.metrics = collector
	}
}

// WithResultCache serves repeated baskets from cache until the table changes.
func WithResultCache(cache ResultCache) HandlerOption {
	return func(h *Handler) {
		h.cache = cache
	}
}

// WithSearchTimeout bounds each split search. Zero disables the bound.
func WithSearchTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.searchTimeout = d
	}
}

// WithHandlerLogger sets the logger used for search diagnostics.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store catalog.Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		store: store,
		newSplitter: func(table catalog.Table) splitter.Splitter {
			return splitter.New(table)
		},
		metrics: metrics.NewNop(),
		logger:  zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.tableUpdatedAt = h.clock()
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

func (h *Handler) handleGetDeliveryOptions(w http.ResponseWriter, r *http.Request) {
	_ = r
	table, err := h.store.Table()
	if err != nil {
		h.writeTableError(w, err)
		return
	}

	resp := deliveryOptionsResponse{
		DeliveryOptions: table,
		Items:           table.Len(),
		UpdatedAt:       h.currentTableUpdatedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutDeliveryOptions(w http.ResponseWriter, r *http.Request) {
	var req deliveryOptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if len(req.DeliveryOptions) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid delivery options", "deliveryOptions must contain at least one item")
		return
	}

	if err := h.store.SetTable(req.DeliveryOptions); err != nil {
		if errors.Is(err, catalog.ErrInvalidTable) {
			writeError(w, http.StatusBadRequest, "Invalid delivery options", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markTableUpdated()

	table, err := h.store.Table()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := deliveryOptionsResponse{
		DeliveryOptions: table,
		Items:           table.Len(),
		UpdatedAt:       h.currentTableUpdatedAt(),
		Message:         "Delivery options updated successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSplit(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if req.Items == nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "items must be a list of product names")
		return
	}

	// The generation is read before the table so a concurrent update can
	// only leave results under a generation that is already retired.
	generation := h.currentGeneration()
	table, err := h.store.Table()
	if err != nil {
		h.writeTableError(w, err)
		return
	}

	if h.cache != nil {
		start := time.Now()
		if result, ok := h.cache.Get(generation, req.Items); ok {
			elapsed := time.Since(start)
			h.metrics.RecordSplit(metrics.OutcomeCached, elapsed, result.Nodes, result.Groups.Len())
			writeJSON(w, http.StatusOK, newSplitResponse(result, elapsed, true))
			return
		}
	}

	ctx := r.Context()
	if h.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.searchTimeout)
		defer cancel()
	}

	start := time.Now()
	result, splitErr := h.newSplitter(table).SplitDetailed(ctx, req.Items)
	elapsed := time.Since(start)

	if splitErr != nil {
		var unfulfillable *splitter.UnfulfillableItemError
		switch {
		case errors.As(splitErr, &unfulfillable):
			h.metrics.RecordSplit(metrics.OutcomeUnfulfillable, elapsed, 0, 0)
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error:      "Cannot deliver basket",
				Details:    splitErr.Error(),
				Suggestion: "Remove the listed products or add delivery options for them",
				Items:      unfulfillable.Items,
			})
		case errors.Is(splitErr, context.Canceled), errors.Is(splitErr, context.DeadlineExceeded):
			h.metrics.RecordSplit(metrics.OutcomeError, elapsed, 0, 0)
			writeError(w, http.StatusServiceUnavailable, "Request cancelled", splitErr.Error())
		default:
			h.metrics.RecordSplit(metrics.OutcomeError, elapsed, 0, 0)
			writeInternalError(w, splitErr)
		}
		return
	}

	outcome := metrics.OutcomeOK
	if !result.Complete {
		outcome = metrics.OutcomeDegraded
		h.logger.Warn("split search stopped before exhausting the search space",
			zap.Int("items", len(req.Items)),
			zap.Int("nodes", result.Nodes),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", requestIDFromContext(r.Context())),
		)
	}
	h.metrics.RecordSplit(outcome, elapsed, result.Nodes, result.Groups.Len())

	if h.cache != nil {
		if err := h.cache.Put(generation, req.Items, result); err != nil {
			h.logger.Warn("failed to cache split result", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, newSplitResponse(result, elapsed, false))
}

func newSplitResponse(result splitter.Result, elapsed time.Duration, cached bool) splitResponse {
	return splitResponse{
		Groups:            result.Groups,
		TotalGroups:       result.Groups.Len(),
		LargestGroup:      result.Groups.MaxGroupSize(),
		TotalItems:        result.Groups.ItemCount(),
		Complete:          result.Complete,
		Cached:            cached,
		SearchNodes:       result.Nodes,
		CalculationTimeMs: elapsed.Milliseconds(),
	}
}

func (h *Handler) writeTableError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNoTable) {
		writeError(w, http.StatusServiceUnavailable, "No delivery options", err.Error(), "Upload delivery options with PUT /api/delivery-options")
		return
	}
	writeInternalError(w, err)
}

func (h *Handler) currentTableUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tableUpdatedAt
}

func (h *Handler) currentGeneration() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.generation
}

func (h *Handler) markTableUpdated() {
	h.mu.Lock()
	h.tableUpdatedAt = h.clock()
	h.generation++
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type deliveryOptionsRequest struct {
	DeliveryOptions catalog.Table `json:"deliveryOptions"`
}

type splitRequest struct {
	Items []string `json:"items"`
}

type splitResponse struct {
	Groups            splitter.Grouping `json:"groups"`
	TotalGroups       int               `json:"totalGroups"`
	LargestGroup      int               `json:"largestGroup"`
	TotalItems        int               `json:"totalItems"`
	Complete          bool              `json:"complete"`
	Cached            bool              `json:"cached"`
	SearchNodes       int               `json:"searchNodes"`
	CalculationTimeMs int64             `json:"calculationTimeMs"`
}

type deliveryOptionsResponse struct {
	DeliveryOptions catalog.Table `json:"deliveryOptions"`
	Items           int           `json:"items"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	Message         string        `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string   `json:"error"`
	Details    string   `json:"details,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
	Items      []string `json:"items,omitempty"`
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
