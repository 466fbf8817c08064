package requestctx

import (
	"context"
	"testing"
)

func TestViewerRoundTrip(t *testing.T) {
	ctx := WithViewer(context.Background(), Viewer{UserID: "user-42", Admin: true})
	viewer, ok := ViewerFromContext(ctx)
	if !ok {
		t.Fatal("expected viewer in context")
	}
	if viewer.UserID != "user-42" || !viewer.Admin {
		t.Fatalf("viewer = %+v", viewer)
	}
	if got := UserIDFromContext(ctx); got != "user-42" {
		t.Fatalf("UserIDFromContext = %q, want %q", got, "user-42")
	}
}

func TestViewerFromContextAnonymous(t *testing.T) {
	if _, ok := ViewerFromContext(context.Background()); ok {
		t.Fatal("expected no viewer")
	}
	if _, ok := ViewerFromContext(WithViewer(context.Background(), Viewer{})); ok {
		t.Fatal("expected empty viewer to be anonymous")
	}
}

func TestViewerNilContext(t *testing.T) {
	if got := UserIDFromContext(nil); got != "" {
		t.Fatalf("expected empty string for nil context, got %q", got)
	}
	ctx := WithViewer(nil, Viewer{UserID: "user-99"})
	if got := UserIDFromContext(ctx); got != "user-99" {
		t.Fatalf("UserIDFromContext = %q, want %q", got, "user-99")
	}
}
