package access

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/shelfd-tech/shelfd/core/csql"
	"github.com/shelfd-tech/shelfd/core/errs"
	"github.com/shelfd-tech/shelfd/core/logger"
)

// NewMiddleware returns the authentication middleware for protected
// routes. It resolves the credential from the request into a school id,
// injects it into the request context and stamps the context logger with
// the tenant identity. On failure it short-circuits with 401 and the
// authentication challenge.
func NewMiddleware(db *csql.DB) mux.MiddlewareFunc {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rlog := logger.FromContext(r.Context())
			cred, err := CredentialsFromRequest(r)
			if err != nil {
				errs.Write(w, rlog, err)
				return
			}
			schoolID, err := VerifyToken(db, cred)
			if err != nil {
				errs.Write(w, rlog, err)
				return
			}
			ctx := ContextWithSchoolID(r.Context(), schoolID)
			ctx, _ = logger.ContextWithLoggerIdentity(ctx, "school-"+strconv.FormatInt(schoolID, 10))
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
