/*Package errs defines the closed set of failure kinds the backend can
produce and their one and only translation to HTTP responses.

Every model and middleware function returns an *Error; Write is the single
place that turns one into a status code and optional header. Handlers never
construct raw status codes themselves.
*/
package errs

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Kind is the discriminant of the error taxonomy. The set is closed:
// Write handles every kind, anything else is a programming error.
type Kind int

const (
	// KindBadRequest covers malformed ids, wrong content type and
	// malformed JSON payloads.
	KindBadRequest Kind = iota + 1
	// KindUnauthorized covers missing or invalid credentials and wrong
	// passwords.
	KindUnauthorized
	// KindNotFound covers a tenant-scoped lookup that matched no row.
	KindNotFound
	// KindUnsupportedInclude covers an include tag the route cannot honor.
	KindUnsupportedInclude
	// KindInternal covers storage, pool and serialization failures. It is
	// never supposed to reach the client as anything but a 500.
	KindInternal
)

// Challenge is the WWW-Authenticate value sent alongside every 401.
const Challenge = `Basic: realm="Token and secret"`

// Error is a typed backend failure.
type Error struct {
	Kind   Kind
	Entity string // entity name for KindNotFound
	Reason string // client-visible message for KindBadRequest
	Tag    string // offending tag for KindUnsupportedInclude
	Op     string // operation context for KindInternal
	Cause  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindBadRequest:
		return e.Reason
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return e.Entity + " not found"
	case KindUnsupportedInclude:
		return "unsupported include: " + e.Tag
	case KindInternal:
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// BadRequest returns an error that translates to 400 with the given reason.
func BadRequest(reason string) *Error {
	return &Error{Kind: KindBadRequest, Reason: reason}
}

// Unauthorized returns an error that translates to 401 with the
// authentication challenge header.
func Unauthorized() *Error {
	return &Error{Kind: KindUnauthorized}
}

// NotFound returns an error that translates to 404, except for the
// entity "School" which translates to 401 so that failed-login lookups
// and wrong passwords are indistinguishable to the client.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity}
}

// UnsupportedInclude returns an error that translates to 400 with a fixed
// message naming no tag, so routes leak nothing about their relations.
func UnsupportedInclude(tag string) *Error {
	return &Error{Kind: KindUnsupportedInclude, Tag: tag}
}

// Internal wraps a storage or serialization failure with operation context.
func Internal(op string, cause error) *Error {
	return &Error{Kind: KindInternal, Op: op, Cause: cause}
}

// IsNotFound reports whether err is a KindNotFound error.
func IsNotFound(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindNotFound
}

// Write translates err into an HTTP response. The mapping is total over
// the taxonomy; errors that are not *Error count as internal. A Kind
// outside the closed set panics, a silent fall-through would be worse.
func Write(w http.ResponseWriter, rlog *logrus.Entry, err error) {
	e, ok := err.(*Error)
	if !ok {
		e = Internal("unclassified error", err)
	}

	switch e.Kind {
	case KindInternal:
		rlog.WithError(e.Cause).Errorln(e.Op)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	case KindUnauthorized:
		w.Header().Set("WWW-Authenticate", Challenge)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case KindNotFound:
		// a failed school lookup must look exactly like a wrong password
		if e.Entity == "School" {
			rlog.Infoln("school not found")
			w.Header().Set("WWW-Authenticate", Challenge)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		rlog.Infoln(e.Entity, "not found")
		http.Error(w, e.Entity+" not found", http.StatusNotFound)
	case KindUnsupportedInclude:
		rlog.Infoln("unsupported include:", e.Tag)
		http.Error(w, "the relation to be included is not supported by this route", http.StatusBadRequest)
	case KindBadRequest:
		rlog.Infoln("bad request:", e.Reason)
		http.Error(w, e.Reason, http.StatusBadRequest)
	default:
		panic(fmt.Sprintf("unhandled error kind %d", e.Kind))
	}
}
