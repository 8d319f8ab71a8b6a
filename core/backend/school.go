package backend

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/gorilla/mux"

	"github.com/shelfd-tech/shelfd/core/access"
	"github.com/shelfd-tech/shelfd/core/errs"
	"github.com/shelfd-tech/shelfd/core/logger"
	"github.com/shelfd-tech/shelfd/core/model"
)

// passwordChange and nameChange are the two candidate shapes of the
// school edit route. Fields are pointers so an incoming body can be
// matched against a shape before any side effect runs; the first shape
// whose fields are all present wins.
type passwordChange struct {
	OldPassword *string `json:"old_password"`
	NewPassword *string `json:"new_password"`
}

type nameChange struct {
	Name *string `json:"name"`
}

type deletion struct {
	Password string `json:"password"`
}

// handleSchoolRoutes mounts the routes that do not carry the
// authentication middleware: school signup and the session routes.
// Signup and login both issue a fresh token whose secret appears in the
// response and nowhere else, ever.
func (b *Backend) handleSchoolRoutes() {
	nillog := logger.FromContext(nil)
	nillog.Debugln("  handle route: /schools POST")
	nillog.Debugln("  handle route: /sessions POST,DELETE")

	schools := model.NewSchools(b.db)

	b.router.HandleFunc("/schools", func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		rlog.Debugln("called route for", r.URL, r.Method)

		var auth model.AuthData
		if err := decodeBody(r, &auth); err != nil {
			errs.Write(w, rlog, err)
			return
		}
		id, err := schools.Create(auth)
		if err != nil {
			errs.Write(w, rlog, err)
			return
		}
		token, err := access.IssueToken(b.db, id)
		if err != nil {
			errs.Write(w, rlog, err)
			return
		}
		rlog.Infoln("created school", id)
		writeJSON(w, rlog, http.StatusCreated, token)
	}).Methods(http.MethodPost)

	b.router.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		rlog.Debugln("called route for", r.URL, r.Method)

		var auth model.AuthData
		if err := decodeBody(r, &auth); err != nil {
			errs.Write(w, rlog, err)
			return
		}
		id, err := schools.Login(auth)
		if err != nil {
			errs.Write(w, rlog, err)
			return
		}
		token, err := access.IssueToken(b.db, id)
		if err != nil {
			errs.Write(w, rlog, err)
			return
		}
		writeJSON(w, rlog, http.StatusCreated, token)
	}).Methods(http.MethodPost)

	// logout verifies and revokes in one step; the middleware's
	// non-destructive verify must not run here
	b.router.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		rlog.Debugln("called route for", r.URL, r.Method)

		cred, err := access.CredentialsFromRequest(r)
		if err != nil {
			errs.Write(w, rlog, err)
			return
		}
		if err := access.VerifyAndDeleteToken(b.db, cred); err != nil {
			errs.Write(w, rlog, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)
}

// handleProtectedSchoolRoutes mounts the school edit and deletion routes
// behind the authentication middleware.
func (b *Backend) handleProtectedSchoolRoutes(router *mux.Router) {
	nillog := logger.FromContext(nil)
	nillog.Debugln("  handle route: /schools PUT,DELETE")

	schools := model.NewSchools(b.db)

	router.HandleFunc("/schools", func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		rlog.Debugln("called route for", r.URL, r.Method)

		schoolID, ok := access.SchoolIDFromContext(r.Context())
		if !ok {
			errs.Write(w, rlog, errs.Unauthorized())
			return
		}
		if err := checkContentType(r); err != nil {
			errs.Write(w, rlog, err)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			errs.Write(w, rlog, errs.BadRequest("cannot read request body"))
			return
		}

		// ordered candidate shapes: password change first, then name
		// change; commit only once a shape has fully matched
		var pw passwordChange
		if err := json.Unmarshal(body, &pw); err == nil && pw.OldPassword != nil && pw.NewPassword != nil {
			if err := schools.ChangePassword(schoolID, *pw.OldPassword, *pw.NewPassword); err != nil {
				errs.Write(w, rlog, err)
				return
			}
			rlog.Infoln("changed password of school", schoolID)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		var name nameChange
		if err := json.Unmarshal(body, &name); err == nil && name.Name != nil {
			if err := schools.Rename(schoolID, *name.Name); err != nil {
				errs.Write(w, rlog, err)
				return
			}
			rlog.Infoln("renamed school", schoolID)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		errs.Write(w, rlog, errs.BadRequest("cannot parse request body"))
	}).Methods(http.MethodPut)

	router.HandleFunc("/schools", func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		rlog.Debugln("called route for", r.URL, r.Method)

		schoolID, ok := access.SchoolIDFromContext(r.Context())
		if !ok {
			errs.Write(w, rlog, errs.Unauthorized())
			return
		}
		var del deletion
		if err := decodeBody(r, &del); err != nil {
			errs.Write(w, rlog, err)
			return
		}
		if err := schools.Delete(schoolID, del.Password); err != nil {
			errs.Write(w, rlog, err)
			return
		}
		rlog.Infoln("deleted school", schoolID)
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)
}

// decodeBody enforces the JSON content type and decodes the body into v.
func decodeBody(r *http.Request, v interface{}) error {
	if err := checkContentType(r); err != nil {
		return err
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.BadRequest("cannot parse request body")
	}
	return nil
}
