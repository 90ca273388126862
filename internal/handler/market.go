package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/exchange"
)

// MarketHandler serves read-only views of the instrument registry.
type MarketHandler struct {
	registry *exchange.Registry
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(registry *exchange.Registry) *MarketHandler {
	return &MarketHandler{registry: registry}
}

// listResponse is the JSON response for GET /instruments.
type listResponse struct {
	Instruments []domain.Instrument `json:"instruments"`
	Count       int                 `json:"count"`
}

// List handles GET /instruments. Instruments come back in symbol order.
func (h *MarketHandler) List(w http.ResponseWriter, r *http.Request) {
	snaps := h.registry.SnapshotAll()
	WriteJSON(w, http.StatusOK, listResponse{
		Instruments: snaps,
		Count:       len(snaps),
	})
}

// Get handles GET /instruments/{symbol}.
func (h *MarketHandler) Get(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	inst, err := h.registry.Get(symbol)
	if err != nil {
		if errors.Is(err, domain.ErrInstrumentNotFound) {
			WriteError(w, http.StatusNotFound, "instrument_not_found", err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	WriteJSON(w, http.StatusOK, inst)
}
