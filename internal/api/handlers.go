/**
 * @description
 * This file contains the HTTP handlers for the payments-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @notes
 * - Write failures (the charge itself) are always surfaced to the caller with
 *   the processor's message when one exists. Secondary reads (saved methods,
 *   history, earnings) degrade to an empty list or zeroed summary instead of
 *   failing the page.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jamii/payments-service/internal/app"
	"github.com/jamii/payments-service/internal/domain"
	"github.com/jamii/payments-service/internal/store"
)

// PaymentHandlers holds the application service that handlers will use.
type PaymentHandlers struct {
	service *app.Service
}

// NewPaymentHandlers creates a new instance of PaymentHandlers.
func NewPaymentHandlers(service *app.Service) *PaymentHandlers {
	return &PaymentHandlers{service: service}
}

type errorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (h *PaymentHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func (h *PaymentHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Message: message})
}

// resolveUser turns the bearer subject on the request into the internal user UUID.
func (h *PaymentHandlers) resolveUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	subject, ok := GetAuthSubject(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return uuid.Nil, false
	}

	internalID, err := h.service.ResolveInternalUserID(r.Context(), subject)
	if err != nil {
		log.Printf("level=warn component=api outcome=reject reason=user_resolution_failed auth_subject=%s err=%v", subject, err)
		h.writeError(w, http.StatusBadRequest, "User not found")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(internalID)
	if err != nil {
		log.Printf("level=error component=api msg=\"internal user id is not a uuid\" value=%q err=%v", internalID, err)
		h.writeError(w, http.StatusInternalServerError, "Invalid user identity")
		return uuid.Nil, false
	}
	return userID, true
}

// ProcessPaymentHandler handles checkout charge submissions.
func (h *PaymentHandlers) ProcessPaymentHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	var req domain.ProcessPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.ProcessPayment(r.Context(), customerID, req)
	if err != nil {
		var verr *app.ValidationError
		switch {
		case errors.As(err, &verr):
			h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: verr.Message, Field: verr.Field})
		case errors.Is(err, app.ErrRateLimited):
			h.writeError(w, http.StatusTooManyRequests, "Too many charge attempts. Please wait and try again.")
		case errors.Is(err, app.ErrChargeDeclined):
			// Surface the processor's message verbatim.
			h.writeError(w, http.StatusPaymentRequired, strings.TrimPrefix(err.Error(), app.ErrChargeDeclined.Error()+": "))
		default:
			log.Printf("level=error component=api endpoint=process_payment msg=\"charge processing failed\" customer_id=%s err=%v", customerID, err)
			h.writeError(w, http.StatusInternalServerError, "Payment failed")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, resp)
}

// ListPaymentMethodsHandler returns the caller's saved payment methods.
// A read failure degrades to an empty list.
func (h *PaymentHandlers) ListPaymentMethodsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	methods, err := h.service.ListPaymentMethods(r.Context(), userID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=list_payment_methods msg=\"read degraded to empty list\" user_id=%s err=%v", userID, err)
		methods = nil
	}
	if methods == nil {
		methods = []domain.PaymentMethod{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"paymentMethods": methods})
}

// SavePaymentMethodHandler tokenizes and stores a new card.
func (h *PaymentHandlers) SavePaymentMethodHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	var card domain.NewCard
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	method, err := h.service.SavePaymentMethod(r.Context(), userID, card)
	if err != nil {
		var verr *app.ValidationError
		switch {
		case errors.As(err, &verr):
			h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: verr.Message, Field: verr.Field})
		case errors.Is(err, app.ErrChargeDeclined):
			h.writeError(w, http.StatusPaymentRequired, strings.TrimPrefix(err.Error(), app.ErrChargeDeclined.Error()+": "))
		default:
			log.Printf("level=error component=api endpoint=save_payment_method msg=\"save failed\" user_id=%s err=%v", userID, err)
			h.writeError(w, http.StatusInternalServerError, "Could not save payment method")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, method)
}

// DeletePaymentMethodHandler removes a saved method.
func (h *PaymentHandlers) DeletePaymentMethodHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	methodID, err := uuid.Parse(chi.URLParam(r, "methodID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid payment method id")
		return
	}

	if err := h.service.DeletePaymentMethod(r.Context(), userID, methodID); err != nil {
		if errors.Is(err, store.ErrPaymentMethodNotFound) {
			h.writeError(w, http.StatusNotFound, "Payment method not found")
			return
		}
		log.Printf("level=error component=api endpoint=delete_payment_method msg=\"delete failed\" user_id=%s method_id=%s err=%v", userID, methodID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not delete payment method")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetDefaultPaymentMethodHandler marks a saved method as the default.
func (h *PaymentHandlers) SetDefaultPaymentMethodHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	methodID, err := uuid.Parse(chi.URLParam(r, "methodID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid payment method id")
		return
	}

	if err := h.service.SetDefaultPaymentMethod(r.Context(), userID, methodID); err != nil {
		if errors.Is(err, store.ErrPaymentMethodNotFound) {
			h.writeError(w, http.StatusNotFound, "Payment method not found")
			return
		}
		log.Printf("level=error component=api endpoint=set_default_payment_method msg=\"update failed\" user_id=%s method_id=%s err=%v", userID, methodID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not update payment method")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func listOptionsFromQuery(r *http.Request) (role string, opts domain.TransactionListOptions) {
	q := r.URL.Query()
	role = strings.TrimSpace(q.Get("role"))
	if role != "helper" {
		role = "customer"
	}
	opts.Status = strings.TrimSpace(q.Get("status"))
	opts.Search = strings.TrimSpace(q.Get("search"))
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		opts.Offset = offset
	}
	return role, opts
}

// ListTransactionsHandler returns the caller's transaction history.
// A read failure degrades to an empty list.
func (h *PaymentHandlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	role, opts := listOptionsFromQuery(r)
	transactions, err := h.service.ListTransactions(r.Context(), userID, role, opts)
	if err != nil {
		log.Printf("level=warn component=api endpoint=list_transactions msg=\"read degraded to empty list\" user_id=%s role=%s err=%v", userID, role, err)
		transactions = nil
	}
	if transactions == nil {
		transactions = []domain.Transaction{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": transactions})
}

// ExportTransactionsHandler streams the caller's history as CSV.
func (h *PaymentHandlers) ExportTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	role, opts := listOptionsFromQuery(r)
	csv, err := h.service.ExportTransactionsCSV(r.Context(), userID, role, opts)
	if err != nil {
		log.Printf("level=error component=api endpoint=export_transactions msg=\"export failed\" user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not export payment history")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="payment-history.csv"`)
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, csv)
}

// EarningsHandler returns the caller's earnings summary as a helper.
// A read failure degrades to a zeroed summary.
func (h *PaymentHandlers) EarningsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	summary, err := h.service.EarningsSummary(r.Context(), userID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=earnings msg=\"read degraded to zeroed summary\" user_id=%s err=%v", userID, err)
		summary = domain.EarningsSummary{}
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// ListTiersHandler returns the static tier table. Public: anonymous
// marketplace browse shows tier pricing.
func (h *PaymentHandlers) ListTiersHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"tiers": domain.Tiers()})
}

// GetTierHandler returns one tier row by id (canonical or legacy alias).
func (h *PaymentHandlers) GetTierHandler(w http.ResponseWriter, r *http.Request) {
	tier, err := domain.GetTier(chi.URLParam(r, "tierID"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "Tier not found")
		return
	}
	h.writeJSON(w, http.StatusOK, tier)
}
