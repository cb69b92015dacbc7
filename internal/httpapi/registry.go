package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/quyennx102/storefront-bff/internal/backend"
	"github.com/quyennx102/storefront-bff/internal/cart"
	"github.com/quyennx102/storefront-bff/internal/checkout"
	"github.com/quyennx102/storefront-bff/internal/discount"
	"github.com/quyennx102/storefront-bff/internal/domain"
	"github.com/quyennx102/storefront-bff/internal/session"
)

// Session bundles the per-session controllers. Each session owns exactly
// one cart controller, one discount reconciler and one checkout submitter,
// constructed once and threaded through the handlers explicitly.
type Session struct {
	ID       string
	token    string
	API      *backend.Client
	Cart     *cart.Controller
	Discount *discount.Reconciler
	Checkout *checkout.Submitter

	mu      sync.Mutex
	carried *domain.DiscountGrant
}

// SetCarried records the grant consumed from the handoff slot on checkout
// mount. A nil grant clears it, so a consumed slot never resurfaces.
func (s *Session) SetCarried(grant *domain.DiscountGrant) {
	s.mu.Lock()
	s.carried = grant
	s.mu.Unlock()
}

func (s *Session) Carried() *domain.DiscountGrant {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carried == nil {
		return nil
	}
	copied := *s.carried
	return &copied
}

// Registry maps session ids to their controller bundles. Tokens are cached
// in the session store so a request without an Authorization header can
// resume an established session.
type Registry struct {
	base     *backend.Client
	payments *backend.PaymentClient
	store    session.Store
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(base *backend.Client, payments *backend.PaymentClient, store session.Store, logger *slog.Logger) *Registry {
	return &Registry{
		base:     base,
		payments: payments,
		store:    store,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

var errNoToken = errors.New("no auth token for session")

// Session returns the bundle for sessionID, creating or rebinding it when
// the bearer token changes. An empty token falls back to the stored one.
func (r *Registry) Session(ctx context.Context, sessionID, token string) (*Session, error) {
	if token == "" {
		stored, err := r.store.Get(ctx, session.TokenKey(sessionID))
		if errors.Is(err, session.ErrNotFound) {
			return nil, errNoToken
		}
		if err != nil {
			return nil, err
		}
		token = string(stored)
	} else {
		if err := r.store.Set(ctx, session.TokenKey(sessionID), []byte(token), 0); err != nil {
			r.logger.Error("failed to cache session token", "error", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[sessionID]; ok && existing.tokenMatches(token) {
		return existing, nil
	}

	api := r.base.WithToken(token)
	sess := &Session{ID: sessionID, API: api}
	sess.token = token
	sess.Discount = discount.NewReconciler(api, r.store, sessionID, r.logger)
	sess.Cart = cart.NewController(api, confirmFromContext, sess.Discount.Remove, r.logger)
	sess.Checkout = checkout.NewSubmitter(api, r.payments, r.store, sessionID, r.logger)

	r.sessions[sessionID] = sess
	return sess, nil
}

func (s *Session) tokenMatches(token string) bool {
	return s.token == token
}

// confirmFromContext is the ConfirmFunc for the HTTP surface: the UI shows
// the blocking prompt and replays the request with confirm=true.
func confirmFromContext(ctx context.Context, _ string) bool {
	return confirmed(ctx)
}

type confirmKey struct{}

func withConfirmation(ctx context.Context, ok bool) context.Context {
	return context.WithValue(ctx, confirmKey{}, ok)
}

func confirmed(ctx context.Context) bool {
	ok, _ := ctx.Value(confirmKey{}).(bool)
	return ok
}
