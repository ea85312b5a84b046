package shophttp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"shopprice/internal/fetcher"
)

type handler struct {
	source fetcher.PriceSource
	logger *slog.Logger
}

// NewHandler serves source at PricePath
func NewHandler(source fetcher.PriceSource, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{source: source, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PricePath, h.handlePrice)
	return mux
}

func (h *handler) handlePrice(w http.ResponseWriter, r *http.Request) {
	product := r.URL.Query().Get("product")

	price, err := h.source.Price(r.Context(), product)
	if err != nil {
		status := statusFor(err)
		h.logger.Debug("price lookup failed",
			"product", product,
			"status", status,
			"error", err)
		writeJSON(w, status, PriceResponse{Product: product, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, PriceResponse{Product: product, Price: &price})
}

func statusFor(err error) int {
	var fe *fetcher.FetchError
	if !errors.As(err, &fe) {
		return http.StatusInternalServerError
	}

	switch fe.Type {
	case fetcher.ErrorTypeInvalidInput:
		return http.StatusBadRequest
	case fetcher.ErrorTypeInterrupted:
		return fetcher.StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body PriceResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
