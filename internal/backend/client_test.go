package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_GetCart(t *testing.T) {
	t.Run("decodes snapshot and sends bearer token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.URL.Path != "/carts" {
				t.Errorf("expected GET /carts, got %s %s", r.Method, r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"user_id":"u-1","items":[{"id":"li-1","product_id":"p-1","store_id":"s-1","unit_price":2500,"quantity":2,"stock":7,"subtotal":5000}]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), testLogger()).WithToken("tok-1")

		cart, err := client.GetCart(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cart.Items) != 1 {
			t.Fatalf("expected 1 item, got %d", len(cart.Items))
		}
		if cart.Items[0].Subtotal != 5000 {
			t.Errorf("expected subtotal 5000, got %d", cart.Items[0].Subtotal)
		}
		if cart.StoreID() != "s-1" {
			t.Errorf("expected store s-1, got %s", cart.StoreID())
		}
	})

	t.Run("surfaces server message verbatim on rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"token expired"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), testLogger())

		_, err := client.GetCart(context.Background())
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %v", err)
		}
		if apiErr.Message != "token expired" {
			t.Errorf("expected verbatim message, got %q", apiErr.Message)
		}
		if RejectionMessage(err) != "token expired" {
			t.Errorf("RejectionMessage() = %q", RejectionMessage(err))
		}
	})

	t.Run("wraps transport failures as unavailable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", &http.Client{}, testLogger())

		_, err := client.GetCart(context.Background())
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
		if RejectionMessage(err) != "something went wrong, please try again" {
			t.Errorf("expected generic fallback, got %q", RejectionMessage(err))
		}
	})
}

func TestClient_CartMutations(t *testing.T) {
	type recorded struct {
		method string
		path   string
		body   map[string]any
	}

	var last recorded
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = recorded{method: r.Method, path: r.URL.Path}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&last.body)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client(), testLogger())
	ctx := context.Background()

	t.Run("add item", func(t *testing.T) {
		if err := client.AddCartItem(ctx, "p-1", 2); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if last.method != http.MethodPost || last.path != "/carts/add" {
			t.Errorf("expected POST /carts/add, got %s %s", last.method, last.path)
		}
		if last.body["quantity"].(float64) != 2 {
			t.Errorf("expected quantity 2, got %v", last.body["quantity"])
		}
	})

	t.Run("update quantity", func(t *testing.T) {
		if err := client.UpdateCartItem(ctx, "li-9", 3); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if last.method != http.MethodPut || last.path != "/carts/li-9" {
			t.Errorf("expected PUT /carts/li-9, got %s %s", last.method, last.path)
		}
	})

	t.Run("remove item", func(t *testing.T) {
		if err := client.RemoveCartItem(ctx, "li-9"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if last.method != http.MethodDelete || last.path != "/carts/li-9" {
			t.Errorf("expected DELETE /carts/li-9, got %s %s", last.method, last.path)
		}
	})

	t.Run("clear cart", func(t *testing.T) {
		if err := client.ClearCart(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if last.method != http.MethodDelete || last.path != "/carts" {
			t.Errorf("expected DELETE /carts, got %s %s", last.method, last.path)
		}
	})
}

func TestClient_ValidateDiscount(t *testing.T) {
	t.Run("maps grant response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["code"] != "SAVE10" || req["store_id"] != "s-1" || req["subtotal"].(float64) != 5000 {
				t.Errorf("unexpected request payload: %v", req)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"code":"SAVE10","store_id":"s-1","discount_amount":1000,"message":"Applied SAVE10: -10.00"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), testLogger())

		grant, err := client.ValidateDiscount(context.Background(), "SAVE10", "s-1", 5000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if grant.Amount != 1000 {
			t.Errorf("expected amount 1000, got %d", grant.Amount)
		}
		if grant.Message == "" {
			t.Error("expected confirmation message")
		}
	})

	t.Run("rejection reason is verbatim", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"minimum order value not met"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), testLogger())

		_, err := client.ValidateDiscount(context.Background(), "SAVE10", "s-1", 100)
		if RejectionMessage(err) != "minimum order value not met" {
			t.Errorf("expected verbatim rejection, got %q", RejectionMessage(err))
		}
	})
}
