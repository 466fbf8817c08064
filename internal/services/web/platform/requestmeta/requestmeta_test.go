package requestmeta

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHasSameOriginProofWithPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		target  string
		headers map[string]string
		policy  SchemePolicy
		want    bool
	}{
		{name: "matching origin", target: "http://play.example.test/api/items", headers: map[string]string{"Origin": "http://play.example.test"}, want: true},
		{name: "referer fallback", target: "http://play.example.test/api/items", headers: map[string]string{"Referer": "http://play.example.test/market"}, want: true},
		{name: "explicit default port", target: "http://play.example.test/api/items", headers: map[string]string{"Origin": "http://play.example.test:80"}, want: true},
		{name: "other host", target: "http://play.example.test/api/items", headers: map[string]string{"Origin": "http://evil.test"}},
		{name: "other port", target: "http://play.example.test:8080/api/items", headers: map[string]string{"Origin": "http://play.example.test"}},
		{name: "scheme mismatch", target: "http://play.example.test/api/items", headers: map[string]string{"Origin": "https://play.example.test"}},
		{name: "no proof", target: "http://play.example.test/api/items"},
		{
			name:    "untrusted forwarded proto is ignored",
			target:  "https://play.example.test/api/items",
			headers: map[string]string{"Origin": "http://play.example.test", "X-Forwarded-Proto": "http"},
		},
		{
			name:    "trusted forwarded proto is used",
			target:  "https://play.example.test/api/items",
			headers: map[string]string{"Origin": "http://play.example.test", "X-Forwarded-Proto": "http"},
			policy:  SchemePolicy{TrustForwardedProto: true},
			want:    true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, tc.target, nil)
			for key, value := range tc.headers {
				req.Header.Set(key, value)
			}
			if got := HasSameOriginProofWithPolicy(req, tc.policy); got != tc.want {
				t.Fatalf("HasSameOriginProofWithPolicy() = %v, want %v", got, tc.want)
			}
		})
	}
	if HasSameOriginProofWithPolicy(nil, SchemePolicy{}) {
		t.Fatal("nil request must not prove origin")
	}
}

func TestIsHTTPSWithPolicy(t *testing.T) {
	t.Parallel()

	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	if IsHTTPSWithPolicy(plain, SchemePolicy{}) {
		t.Fatal("plain request reported as https")
	}
	secure := httptest.NewRequest(http.MethodGet, "/", nil)
	secure.TLS = &tls.ConnectionState{}
	if !IsHTTPSWithPolicy(secure, SchemePolicy{}) {
		t.Fatal("tls request not reported as https")
	}
	proxied := httptest.NewRequest(http.MethodGet, "/", nil)
	proxied.Header.Set("X-Forwarded-Proto", "https")
	if IsHTTPSWithPolicy(proxied, SchemePolicy{}) {
		t.Fatal("forwarded proto trusted without policy")
	}
	if !IsHTTPSWithPolicy(proxied, SchemePolicy{TrustForwardedProto: true}) {
		t.Fatal("forwarded proto ignored with policy")
	}
}
