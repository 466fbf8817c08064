// Package requestctx carries the signed-in viewer through request contexts.
package requestctx

import "context"

type viewerContextKey struct{}

// Viewer is the authenticated caller of a request.
type Viewer struct {
	UserID string
	Email  string
	Name   string
	Admin  bool
}

// WithViewer stores the request viewer in context.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, viewerContextKey{}, viewer)
}

// ViewerFromContext returns the viewer stored in context, if any.
func ViewerFromContext(ctx context.Context) (Viewer, bool) {
	if ctx == nil {
		return Viewer{}, false
	}
	viewer, ok := ctx.Value(viewerContextKey{}).(Viewer)
	if !ok || viewer.UserID == "" {
		return Viewer{}, false
	}
	return viewer, true
}

// UserIDFromContext returns the viewer's user id, or empty when anonymous.
func UserIDFromContext(ctx context.Context) string {
	viewer, _ := ViewerFromContext(ctx)
	return viewer.UserID
}
