// Package httpapi is the BFF surface the storefront UI talks to. Handlers
// shape requests for the per-session controllers and translate their
// failures into the error taxonomy the UI expects: field-specific 400s for
// client-side validation, the backend's verbatim message for remote
// rejections, and a generic fallback for transport failures.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/quyennx102/storefront-bff/internal/backend"
	"github.com/quyennx102/storefront-bff/internal/cart"
	"github.com/quyennx102/storefront-bff/internal/checkout"
	"github.com/quyennx102/storefront-bff/internal/discount"
	"github.com/quyennx102/storefront-bff/internal/domain"
	"github.com/quyennx102/storefront-bff/internal/notify"
	"github.com/quyennx102/storefront-bff/internal/session"
)

const profileTTL = 15 * time.Minute

type Handler struct {
	registry     *Registry
	hub          *notify.Hub
	store        session.Store
	pushEnabled  bool
	pollInterval time.Duration
	logger       *slog.Logger

	cartMutations metric.Int64Counter
	checkouts     metric.Int64Counter
}

func NewHandler(registry *Registry, hub *notify.Hub, store session.Store, pushEnabled bool, pollInterval time.Duration, logger *slog.Logger) *Handler {
	meter := otel.Meter("storefront/httpapi")
	cartMutations, _ := meter.Int64Counter("storefront_cart_mutations_total")
	checkouts, _ := meter.Int64Counter("storefront_checkout_submissions_total")

	return &Handler{
		registry:      registry,
		hub:           hub,
		store:         store,
		pushEnabled:   pushEnabled,
		pollInterval:  pollInterval,
		logger:        logger,
		cartMutations: cartMutations,
		checkouts:     checkouts,
	}
}

// cartView is what every cart endpoint returns: the reconciled snapshot,
// the active grant and totals derived from both.
type cartView struct {
	Cart     *domain.Cart          `json:"cart"`
	Discount *domain.DiscountGrant `json:"discount,omitempty"`
	Totals   domain.Totals         `json:"totals"`
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		h.writeError(w, http.StatusBadRequest, "missing session id")
		return nil, false
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	sess, err := h.registry.Session(r.Context(), sessionID, token)
	if errors.Is(err, errNoToken) {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to resolve session", "error", err, "session_id", sessionID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	return sess, true
}

func (h *Handler) view(sess *Session, cartSnapshot *domain.Cart) cartView {
	grant := sess.Discount.Grant()
	return cartView{
		Cart:     cartSnapshot,
		Discount: grant,
		Totals:   sess.Cart.Totals(grant),
	}
}

func (h *Handler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	snapshot, err := sess.Cart.Refresh(r.Context())
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.view(sess, snapshot))
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Stock     int    `json:"stock"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snapshot, err := sess.Cart.AddItem(r.Context(), req.ProductID, req.Quantity, req.Stock)
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	h.countMutation(r.Context(), "add")
	h.writeJSON(w, http.StatusOK, h.view(sess, snapshot))
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	itemID := r.PathValue("id")
	if itemID == "" {
		h.writeError(w, http.StatusBadRequest, "missing item id")
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snapshot, err := sess.Cart.UpdateQuantity(r.Context(), itemID, req.Quantity)
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	h.countMutation(r.Context(), "update")
	h.writeJSON(w, http.StatusOK, h.view(sess, snapshot))
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	itemID := r.PathValue("id")
	if itemID == "" {
		h.writeError(w, http.StatusBadRequest, "missing item id")
		return
	}

	ctx := withConfirmation(r.Context(), r.URL.Query().Get("confirm") == "true")
	snapshot, err := sess.Cart.RemoveItem(ctx, itemID)
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	h.countMutation(r.Context(), "remove")
	h.writeJSON(w, http.StatusOK, h.view(sess, snapshot))
}

func (h *Handler) HandleClearCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	ctx := withConfirmation(r.Context(), r.URL.Query().Get("confirm") == "true")
	snapshot, err := sess.Cart.Clear(ctx)
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	h.countMutation(r.Context(), "clear")
	h.writeJSON(w, http.StatusOK, h.view(sess, snapshot))
}

type applyDiscountRequest struct {
	Code string `json:"code"`
}

func (h *Handler) HandleApplyDiscount(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req applyDiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snapshot := sess.Cart.Snapshot()
	if snapshot == nil {
		var err error
		snapshot, err = sess.Cart.Refresh(r.Context())
		if err != nil {
			h.writeOpError(w, err)
			return
		}
	}

	if _, err := sess.Discount.Apply(r.Context(), snapshot, req.Code); err != nil {
		h.writeOpError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.view(sess, snapshot))
}

func (h *Handler) HandleRemoveDiscount(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := sess.Discount.Remove(r.Context()); err != nil {
		h.writeOpError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.view(sess, sess.Cart.Snapshot()))
}

// HandleDiscountHandoff runs immediately before the UI navigates from the
// cart page to checkout.
func (h *Handler) HandleDiscountHandoff(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := sess.Discount.Handoff(r.Context()); err != nil {
		h.writeOpError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// checkoutView is the checkout page's mount payload: a draft pre-filled
// from the profile, the cart, and totals under the carried grant.
type checkoutView struct {
	Draft    domain.OrderDraft     `json:"draft"`
	Cart     *domain.Cart          `json:"cart"`
	Discount *domain.DiscountGrant `json:"discount,omitempty"`
	Totals   domain.Totals         `json:"totals"`
}

// HandleCheckoutPage consumes the handoff slot exactly once. Mounting the
// page again without a fresh handoff finds the slot empty and drops any
// previously carried grant.
func (h *Handler) HandleCheckoutPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	grant, err := sess.Discount.ConsumeHandoff(r.Context())
	if err != nil {
		h.writeOpError(w, err)
		return
	}
	sess.SetCarried(grant)

	snapshot, err := sess.Cart.Refresh(r.Context())
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	profile, err := h.profile(r.Context(), sess)
	if err != nil {
		h.logger.Error("failed to load profile for draft", "error", err)
		profile = nil
	}

	h.writeJSON(w, http.StatusOK, checkoutView{
		Draft:    profile.NewDraft(),
		Cart:     snapshot,
		Discount: grant,
		Totals:   sess.Cart.Totals(grant),
	})
}

type checkoutResponse struct {
	Orders      []domain.Order `json:"orders"`
	RedirectURL string         `json:"redirect_url,omitempty"`
}

func (h *Handler) HandleSubmitCheckout(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var draft domain.OrderDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snapshot := sess.Cart.Snapshot()
	if snapshot == nil {
		var err error
		snapshot, err = sess.Cart.Refresh(r.Context())
		if err != nil {
			h.writeOpError(w, err)
			return
		}
	}

	result, err := sess.Checkout.Submit(r.Context(), draft, snapshot.Items, sess.Carried())
	if err != nil {
		h.countCheckout(r.Context(), "failed")
		h.writeCheckoutError(w, err)
		return
	}

	// The draft and the carried grant are both spent now.
	sess.SetCarried(nil)
	if err := sess.Discount.Remove(r.Context()); err != nil {
		h.logger.Error("failed to discard grant after submission", "error", err)
	}

	h.countCheckout(r.Context(), "submitted")
	h.writeJSON(w, http.StatusCreated, checkoutResponse{
		Orders:      result.Orders,
		RedirectURL: result.RedirectURL,
	})
}

func (h *Handler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	orders, err := sess.API.ListOrders(r.Context())
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	notifications, err := sess.API.ListNotifications(r.Context(), time.Time{})
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, notifications)
}

type rememberEmailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) HandleRememberEmail(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req rememberEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.Set(r.Context(), session.RememberedEmailKey(sess.ID), []byte(req.Email), 0); err != nil {
		h.writeOpError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRememberedEmail(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	email, err := h.store.Get(r.Context(), session.RememberedEmailKey(sess.ID))
	if errors.Is(err, session.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "no remembered email")
		return
	}
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"email": string(email)})
}

// profile returns the session's user profile, cached in the session store.
func (h *Handler) profile(ctx context.Context, sess *Session) (*domain.Profile, error) {
	cached, err := h.store.Get(ctx, session.ProfileKey(sess.ID))
	if err == nil {
		var profile domain.Profile
		if json.Unmarshal(cached, &profile) == nil {
			return &profile, nil
		}
	}

	profile, err := sess.API.GetProfile(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(profile); err == nil {
		if err := h.store.Set(ctx, session.ProfileKey(sess.ID), data, profileTTL); err != nil {
			h.logger.Error("failed to cache profile", "error", err)
		}
	}
	return profile, nil
}

func (h *Handler) countMutation(ctx context.Context, op string) {
	h.cartMutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (h *Handler) countCheckout(ctx context.Context, result string) {
	h.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// writeOpError maps controller failures onto the wire taxonomy.
func (h *Handler) writeOpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrQuantityTooLow),
		errors.Is(err, cart.ErrInsufficientStock),
		errors.Is(err, discount.ErrEmptyCode),
		errors.Is(err, discount.ErrEmptyCart):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, cart.ErrConfirmationDeclined):
		h.writeError(w, http.StatusPreconditionRequired, "confirmation required")
	case errors.Is(err, cart.ErrMutationInFlight),
		errors.Is(err, discount.ErrApplyInFlight):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.writeBackendError(w, err)
	}
}

func (h *Handler) writeCheckoutError(w http.ResponseWriter, err error) {
	var fieldErr *checkout.FieldError
	if errors.As(err, &fieldErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fieldErr.Message,
			"field": fieldErr.Field,
		})
		return
	}
	if errors.Is(err, checkout.ErrEmptyCart) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var pending *checkout.PendingPaymentError
	if errors.As(err, &pending) {
		// The orders exist; the UI must show them alongside the failure.
		h.writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":  "payment initiation failed, order is awaiting payment",
			"orders": pending.Orders,
		})
		return
	}

	h.writeBackendError(w, err)
}

func (h *Handler) writeBackendError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		h.writeError(w, apiErr.Status, apiErr.Message)
		return
	}
	if errors.Is(err, backend.ErrUnavailable) {
		h.writeError(w, http.StatusBadGateway, backend.RejectionMessage(err))
		return
	}

	h.logger.Error("unhandled operation error", "error", err)
	h.writeError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
