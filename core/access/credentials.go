/*Package access provides the token credential model and the authentication
middleware that resolves a credential into a tenant (school) identity.
*/
package access

import (
	"context"
	"net/http"
	"strconv"

	"github.com/shelfd-tech/shelfd/core/errs"
)

// contextKey is the type for context keys. Go linter does not like plain strings
type contextKey string

const contextKeySchoolID contextKey = "_school_id_"

// Credentials is the two-part opaque bearer credential. It travels as HTTP
// basic authentication: the token id as username, the secret as password.
type Credentials struct {
	TokenID int64
	Secret  string
}

// CredentialsFromRequest extracts the credential pair from the request's
// basic authentication header. A missing header or a non-numeric token id
// is an authentication failure, not a bad request.
func CredentialsFromRequest(r *http.Request) (Credentials, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return Credentials{}, errs.Unauthorized()
	}
	tokenID, err := strconv.ParseInt(username, 10, 64)
	if err != nil {
		return Credentials{}, errs.Unauthorized()
	}
	return Credentials{TokenID: tokenID, Secret: password}, nil
}

// ContextWithSchoolID returns a new context carrying the resolved tenant id.
func ContextWithSchoolID(ctx context.Context, schoolID int64) context.Context {
	return context.WithValue(ctx, contextKeySchoolID, schoolID)
}

// SchoolIDFromContext retrieves the resolved tenant id from the context.
// The second return value is false for unauthenticated requests.
func SchoolIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(contextKeySchoolID).(int64)
	return id, ok
}
