package stripe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

type capturedRequest struct {
	path        string
	auth        string
	idempotency string
	form        url.Values
}

func newTestClient(t *testing.T, status int, body string) (*Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		captured.idempotency = r.Header.Get("Idempotency-Key")
		captured.form, _ = url.ParseQuery(string(raw))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{
		SecretKey:         "sk_test_123",
		BaseURL:           server.URL,
		SuccessURL:        "https://app.example.com/ok",
		CancelURL:         "https://app.example.com/cancel",
		ConnectReturnURL:  "https://app.example.com/seller",
		ConnectRefreshURL: "https://app.example.com/seller/refresh",
	}, server.Client())
	return client, captured
}

func TestCreateCheckoutSession(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, `{"id":"cs_1","url":"https://checkout.stripe.com/c/cs_1"}`)

	session, err := client.CreateCheckoutSession(context.Background(), CheckoutParams{
		ProductName:       "The Sunken Crypt",
		AmountCents:       1500,
		Currency:          "usd",
		ClientReferenceID: "buyer-1",
		Metadata:          map[string]string{"kind": "campaign", "listing_id": "c1"},
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.ID != "cs_1" || session.URL == "" {
		t.Fatalf("session = %+v", session)
	}
	if captured.path != "/v1/checkout/sessions" || captured.auth != "Bearer sk_test_123" {
		t.Fatalf("request path/auth = %s / %s", captured.path, captured.auth)
	}
	checks := map[string]string{
		"mode":                                          "payment",
		"line_items[0][price_data][unit_amount]":        "1500",
		"line_items[0][price_data][currency]":           "usd",
		"line_items[0][price_data][product_data][name]": "The Sunken Crypt",
		"client_reference_id":                           "buyer-1",
		"metadata[listing_id]":                          "c1",
		"payment_intent_data[metadata][kind]":           "campaign",
		"success_url":                                   "https://app.example.com/ok?session_id={CHECKOUT_SESSION_ID}",
	}
	for key, want := range checks {
		if got := captured.form.Get(key); got != want {
			t.Errorf("form[%s] = %q, want %q", key, got, want)
		}
	}
}

func TestCreateTransferSendsIdempotencyKey(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, `{"id":"tr_1","amount":900,"created":1767225600}`)

	transfer, err := client.CreateTransfer(context.Background(), TransferParams{
		AmountCents:    900,
		Currency:       "usd",
		Destination:    "acct_1",
		TransferGroup:  "tx-1",
		IdempotencyKey: "payout:tx-1",
	})
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}
	if transfer.ID != "tr_1" || transfer.CreatedAt().Year() != 2026 {
		t.Fatalf("transfer = %+v", transfer)
	}
	if captured.idempotency != "payout:tx-1" || captured.form.Get("destination") != "acct_1" || captured.form.Get("amount") != "900" {
		t.Fatalf("captured = %+v", captured)
	}
}

func TestConnectOnboarding(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, `{"id":"acct_9"}`)
	accountID, err := client.CreateConnectAccount(context.Background(), "gm@example.com")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if accountID != "acct_9" || captured.form.Get("type") != "express" || captured.form.Get("capabilities[transfers][requested]") != "true" {
		t.Fatalf("account = %s form = %v", accountID, captured.form)
	}

	linkClient, linkCaptured := newTestClient(t, http.StatusOK, `{"url":"https://connect.stripe.com/setup/x","expires_at":1}`)
	link, err := linkClient.CreateAccountLink(context.Background(), "acct_9")
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	if link != "https://connect.stripe.com/setup/x" || linkCaptured.form.Get("type") != "account_onboarding" {
		t.Fatalf("link = %s form = %v", link, linkCaptured.form)
	}
}

func TestAPIErrors(t *testing.T) {
	client, _ := newTestClient(t, http.StatusBadRequest, `{"error":{"type":"invalid_request_error","code":"amount_too_small","message":"Amount must be at least 50 cents"}}`)
	_, err := client.CreateTransfer(context.Background(), TransferParams{AmountCents: 1, Currency: "usd", Destination: "acct_1"})
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != "amount_too_small" || apiErr.Retryable() {
		t.Fatalf("api error = %+v", apiErr)
	}

	unavailable, _ := newTestClient(t, http.StatusServiceUnavailable, `{"error":{"type":"api_error","message":"upstream down"}}`)
	_, err = unavailable.CreateConnectAccount(context.Background(), "")
	if !errors.As(err, &apiErr) || !apiErr.Retryable() || apiErr.Message != "upstream down" {
		t.Fatalf("unavailable err = %v", err)
	}

	garbled, _ := newTestClient(t, http.StatusBadGateway, `upstream down`)
	_, err = garbled.CreateConnectAccount(context.Background(), "")
	if err == nil || errors.As(err, &apiErr) {
		t.Fatalf("non-JSON failure should surface as a plain error, got %v", err)
	}
}

func TestClientRequiresSecretKey(t *testing.T) {
	client := NewClient(Config{}, nil)
	if _, err := client.CreateConnectAccount(context.Background(), ""); err == nil {
		t.Fatal("expected configuration error")
	}
}
