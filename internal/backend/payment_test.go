package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quyennx102/storefront-bff/internal/domain"
)

func TestPaymentClient_CreateSession(t *testing.T) {
	t.Run("momo reads payUrl", func(t *testing.T) {
		momo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/create" {
				t.Errorf("expected /create, got %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"payUrl":"https://pay.momo.example/session/abc"}`))
		}))
		defer momo.Close()

		client := NewPaymentClient(momo.URL, "http://unused", momo.Client(), testLogger())

		url, err := client.CreateSession(context.Background(), domain.PaymentMomo, "ord-1", 4400)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if url != "https://pay.momo.example/session/abc" {
			t.Errorf("unexpected url: %s", url)
		}
	})

	t.Run("zalopay reads order_url", func(t *testing.T) {
		zalopay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"order_url":"https://zalopay.example/session/xyz"}`))
		}))
		defer zalopay.Close()

		client := NewPaymentClient("http://unused", zalopay.URL, zalopay.Client(), testLogger())

		url, err := client.CreateSession(context.Background(), domain.PaymentZaloPay, "ord-1", 4400)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if url != "https://zalopay.example/session/xyz" {
			t.Errorf("unexpected url: %s", url)
		}
	})

	t.Run("missing url field is an error", func(t *testing.T) {
		momo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}))
		defer momo.Close()

		client := NewPaymentClient(momo.URL, "http://unused", momo.Client(), testLogger())

		if _, err := client.CreateSession(context.Background(), domain.PaymentMomo, "ord-1", 4400); err == nil {
			t.Fatal("expected error for missing payUrl field")
		}
	})

	t.Run("cash on delivery has no provider", func(t *testing.T) {
		client := NewPaymentClient("http://unused", "http://unused", http.DefaultClient, testLogger())

		if _, err := client.CreateSession(context.Background(), domain.PaymentCashOnDelivery, "ord-1", 4400); err == nil {
			t.Fatal("expected error for cod")
		}
	})
}
