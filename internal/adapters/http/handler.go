package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"payment-router/internal/core/domain"
	"payment-router/internal/core/ports"
)

// Inbound bodies are tiny; anything bigger is not a payment.
const maxBodyBytes = 64 * 1024

// PaymentHandler serves the payment and audit endpoints.
type PaymentHandler struct {
	service ports.PaymentService
	ledger  ports.AuditLedger
	timeout time.Duration
	logger  *slog.Logger
}

func NewPaymentHandler(service ports.PaymentService, ledger ports.AuditLedger, timeout time.Duration, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		ledger:  ledger,
		timeout: timeout,
		logger:  logger,
	}
}

type submitPaymentRequest struct {
	CorrelationID *string      `json:"correlationId"`
	Amount        *json.Number `json:"amount"`
}

// HandleSubmitPayment validates the body, applies the per-request deadline,
// and runs the payment through the engine. The raw body travels with the
// request so the upstream receives it unchanged.
func (h *PaymentHandler) HandleSubmitPayment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSONError(w, "failed to read request body", http.StatusBadRequest, h.logger)
		return
	}

	var req submitPaymentRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest, h.logger)
		return
	}
	if req.CorrelationID == nil || *req.CorrelationID == "" || req.Amount == nil {
		writeJSONError(w, "correlationId and amount are required", http.StatusBadRequest, h.logger)
		return
	}
	cents, err := parseAmountCents(string(*req.Amount))
	if err != nil {
		writeJSONError(w, "amount must be a non-negative number", http.StatusBadRequest, h.logger)
		return
	}

	// The deadline holds whether or not the caller hangs up; a duplicate
	// waiting on an in-flight attempt is bounded by the same clock.
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	_, err = h.service.Process(ctx, domain.PaymentRequest{
		CorrelationID: *req.CorrelationID,
		AmountCents:   cents,
		Raw:           body,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUpstreamRejected),
			errors.Is(err, domain.ErrUpstreamsUnavailable),
			errors.Is(err, context.DeadlineExceeded):
			writeJSONError(w, "payment could not be processed", http.StatusUnprocessableEntity, h.logger)
		default:
			h.logger.Error("unexpected error processing payment", "error", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError, h.logger)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"message": "payment processed successfully"}); err != nil {
		h.logger.Error("failed to write json response", "error", err)
	}
}

type upstreamTotalsResponse struct {
	TotalRequests int64       `json:"total_requests"`
	TotalAmount   json.Number `json:"total_amount"`
}

type summaryResponse struct {
	Default  upstreamTotalsResponse `json:"default"`
	Fallback upstreamTotalsResponse `json:"fallback"`
}

// HandleSummary returns the audit snapshot. Each upstream's pair is read
// atomically; the two upstreams are read independently.
func (h *PaymentHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	resp := summaryResponse{
		Default:  totalsResponse(h.ledger.Snapshot(domain.UpstreamDefault)),
		Fallback: totalsResponse(h.ledger.Snapshot(domain.UpstreamFallback)),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to write summary response", "error", err)
	}
}

func totalsResponse(t domain.UpstreamTotals) upstreamTotalsResponse {
	return upstreamTotalsResponse{
		TotalRequests: t.TotalRequests,
		TotalAmount:   json.Number(strconv.FormatFloat(float64(t.TotalCents)/100, 'f', 2, 64)),
	}
}

// parseAmountCents converts a JSON number literal with two significant
// fractional digits into integer cents.
func parseAmountCents(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || math.IsInf(f, 0) {
		return 0, domain.ErrMalformedRequest
	}
	return int64(math.Round(f * 100)), nil
}

func writeJSONError(w http.ResponseWriter, message string, status int, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logger.Error("failed to write JSON error response", "error", err)
	}
}
