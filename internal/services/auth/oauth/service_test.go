package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	authsqlite "github.com/louisbranch/roleandroll/internal/services/auth/storage/sqlite"
	"github.com/louisbranch/roleandroll/internal/services/auth/user"
)

type fakeGoogle struct {
	t        *testing.T
	server   *httptest.Server
	profile  Profile
	verifier string
}

func newFakeGoogle(t *testing.T, profile Profile) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{t: t, profile: profile}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token form: %v", err)
		}
		if got := r.PostForm.Get("client_id"); got != "client-1" {
			t.Errorf("client_id = %q", got)
		}
		if got := r.PostForm.Get("code"); got != "code-1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		f.verifier = r.PostForm.Get("code_verifier")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.profile)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGoogle) config() Config {
	return Config{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURL:  "http://localhost:8080/auth/google/callback",
		AuthURL:      f.server.URL + "/auth",
		TokenURL:     f.server.URL + "/token",
		UserInfoURL:  f.server.URL + "/userinfo",
		AdminEmails:  []string{"Admin@Example.com"},
	}
}

func newTestService(t *testing.T, f *fakeGoogle) *Service {
	t.Helper()
	store, err := authsqlite.Open(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	cfg := f.config()
	return NewService(cfg, NewGoogle(cfg, f.server.Client()), store)
}

func startState(t *testing.T, svc *Service, redirect string) (string, url.Values) {
	t.Helper()
	authURL, err := svc.Start(context.Background(), redirect)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	query := parsed.Query()
	return query.Get("state"), query
}

func TestStartBuildsPKCEAuthorizationURL(t *testing.T) {
	f := newFakeGoogle(t, Profile{})
	svc := newTestService(t, f)

	state, query := startState(t, svc, "/market")
	if state == "" {
		t.Fatal("expected state")
	}
	if query.Get("code_challenge_method") != "S256" || query.Get("code_challenge") == "" {
		t.Fatalf("missing PKCE params: %v", query)
	}
	if query.Get("client_id") != "client-1" || query.Get("response_type") != "code" {
		t.Fatalf("unexpected query: %v", query)
	}
	if query.Get("scope") != "openid email profile" {
		t.Fatalf("scope = %q", query.Get("scope"))
	}
}

func TestCompleteCreatesUserAndLinksIdentity(t *testing.T) {
	f := newFakeGoogle(t, Profile{Subject: "sub-1", Email: "mira@example.com", EmailVerified: true, Name: "Mira", Picture: "https://img.example.com/m.png"})
	svc := newTestService(t, f)

	state, query := startState(t, svc, "/rooms/1")
	u, redirect, err := svc.Complete(context.Background(), state, "code-1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if redirect != "/rooms/1" {
		t.Fatalf("redirect = %q", redirect)
	}
	if u.Email != "mira@example.com" || u.DisplayName != "Mira" || u.Role != user.RoleUser {
		t.Fatalf("user = %+v", u)
	}
	if got := oauth2.S256ChallengeFromVerifier(f.verifier); got != query.Get("code_challenge") {
		t.Fatalf("verifier does not match challenge")
	}

	// Second sign-in resolves the same user through the linked identity.
	state, _ = startState(t, svc, "")
	again, redirect, err := svc.Complete(context.Background(), state, "code-1")
	if err != nil {
		t.Fatalf("complete again: %v", err)
	}
	if again.ID != u.ID {
		t.Fatalf("user id = %q, want %q", again.ID, u.ID)
	}
	if redirect != "/" {
		t.Fatalf("redirect = %q, want /", redirect)
	}
}

func TestCompletePromotesAdminEmails(t *testing.T) {
	f := newFakeGoogle(t, Profile{Subject: "sub-2", Email: "admin@example.com", EmailVerified: true})
	svc := newTestService(t, f)

	state, _ := startState(t, svc, "")
	u, _, err := svc.Complete(context.Background(), state, "code-1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !u.IsAdmin() {
		t.Fatalf("role = %q, want admin", u.Role)
	}
}

func TestCompleteRejectsBadInput(t *testing.T) {
	f := newFakeGoogle(t, Profile{Subject: "sub-3", Email: "x@example.com", EmailVerified: false})
	svc := newTestService(t, f)

	if _, _, err := svc.Complete(context.Background(), "", "code-1"); apperrors.CodeOf(err) != apperrors.CodeInvalidArgument {
		t.Fatalf("missing state err = %v", err)
	}
	if _, _, err := svc.Complete(context.Background(), "unknown", "code-1"); apperrors.CodeOf(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("unknown state err = %v", err)
	}

	state, _ := startState(t, svc, "")
	if _, _, err := svc.Complete(context.Background(), state, "bad-code"); apperrors.CodeOf(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("bad code err = %v", err)
	}
	// State is single use even when the exchange fails.
	if _, _, err := svc.Complete(context.Background(), state, "code-1"); apperrors.CodeOf(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("reused state err = %v", err)
	}

	state, _ = startState(t, svc, "")
	if _, _, err := svc.Complete(context.Background(), state, "code-1"); apperrors.CodeOf(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("unverified email err = %v", err)
	}
}

func TestCompleteRejectsExpiredState(t *testing.T) {
	f := newFakeGoogle(t, Profile{Subject: "sub-4", Email: "y@example.com", EmailVerified: true})
	svc := newTestService(t, f)
	start := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return start }

	state, _ := startState(t, svc, "")
	svc.clock = func() time.Time { return start.Add(time.Hour) }
	if _, _, err := svc.Complete(context.Background(), state, "code-1"); apperrors.CodeOf(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("expired state err = %v", err)
	}
}

func TestSafeRedirectPath(t *testing.T) {
	tests := map[string]string{
		"":                     "/",
		"/market":              "/market",
		"//evil.example.com":   "/",
		"https://evil.example": "/",
		`/\evil`:               "/",
	}
	for input, want := range tests {
		if got := SafeRedirectPath(input); got != want {
			t.Fatalf("SafeRedirectPath(%q) = %q, want %q", input, got, want)
		}
	}
}
