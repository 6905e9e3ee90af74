package testutil

import (
	"net/http"

	id "onboard/pkg/domain"
	"onboard/pkg/requestcontext"
)

// WithPrincipal adds the authenticated user and role to the request context,
// the way the auth middleware does. A nil user ID is left out so tests can
// exercise the unauthenticated path.
func WithPrincipal(req *http.Request, userID id.UserID, role string) *http.Request {
	ctx := req.Context()
	if !userID.IsNil() {
		ctx = requestcontext.WithUserID(ctx, userID)
	}
	if role != "" {
		ctx = requestcontext.WithRole(ctx, role)
	}
	return req.WithContext(ctx)
}

// PrincipalMiddleware injects the principal returned by fn on every request.
// Handler suites mount it in place of the JWT middleware.
func PrincipalMiddleware(fn func() (id.UserID, string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, role := fn()
			next.ServeHTTP(w, WithPrincipal(r, userID, role))
		})
	}
}
