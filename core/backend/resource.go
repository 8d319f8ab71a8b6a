package backend

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/shelfd-tech/shelfd/core/access"
	"github.com/shelfd-tech/shelfd/core/errs"
	"github.com/shelfd-tech/shelfd/core/include"
	"github.com/shelfd-tech/shelfd/core/logger"
	"github.com/shelfd-tech/shelfd/core/model"
)

// The mount functions below are the whole request engine. Eight resources
// share them; a resource gets exactly the verbs its routes mount and
// nothing else. Every handler follows the same sequence: content type,
// path id, include parameter, model call, serialization - with errs.Write
// as the only failure exit.

// mountList adds GET /<plural>. Responses are compressed because
// collection listings are the only bodies that grow with the data set.
func mountList[T any](router *mux.Router, resource string, m model.Finder[T]) {
	route := listRoute(resource)
	logger.FromContext(nil).Debugln("  handle route:", route, "GET")

	router.Handle(route, handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		rlog.Debugln("called route for", r.URL, r.Method)

		schoolID, ok := access.SchoolIDFromContext(r.Context())
		if !ok {
			errs.Write(w, rlog, errs.Unauthorized())
			return
		}
		result, err := m.FindAll(schoolID, include.ParseQuery(r.URL.RawQuery))
		if err != nil {
			errs.Write(w, rlog, err)
			return
		}
		writeJSON(w, rlog, http.StatusOK, result)
	}))).Methods(http.MethodGet)
}

// mountRead adds GET /<plural>/{id}.
func mountRead[T any](router *mux.Router, resource string, m model.Finder[T]) {
	route := itemRoute(resource)
	logger.FromContext(nil).Debugln("  handle route:", route, "GET")

	router.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		rlog.Debugln("called route for", r.URL, r.Method)

		schoolID, ok := access.SchoolIDFromContext(r.Context())
		if !ok {
			errs.Write(w, rlog, errs.Unauthorized())
			return
		}
		id, err := idFromRequest(r)
		if err != nil {
			errs.Write(w, rlog, err)
			return
		}
		result, err := m.FindByID(id, schoolID, include.ParseQuery(r.URL.RawQuery))
		if err != nil {
			errs.Write(w, rlog, err)
			return
		}
		writeJSON(w, rlog, http.StatusOK, result)
	}).Methods(http.MethodGet)
}

// mountUpdate adds PUT /<plural>/{id}.
func mountUpdate[T any](router *mux.Router, resource string, m model.Saver[T]) {
	route := itemRoute(resource)
	logger.FromContext(nil).Debugln("  handle route:", route, "PUT")

	router.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
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
		id, err := idFromRequest(r)
		if err != nil {
			errs.Write(w, rlog, err)
			return
		}
		var in T
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			errs.Write(w, rlog, errs.BadRequest("cannot parse request body"))
			return
		}
		result, err := m.Save(&id, schoolID, in)
		if err != nil {
			errs.Write(w, rlog, err)
			return
		}
		writeJSON(w, rlog, http.StatusOK, result)
	}).Methods(http.MethodPut)
}

// mountCreate adds POST /<plural>. With bulk enabled the endpoint accepts
// either one object or an array; array elements are saved independently
// and best-effort, failed elements are silently dropped from the 201
// response. That partial-success policy is deliberate.
func mountCreate[T any](router *mux.Router, resource string, m model.Saver[T], bulk bool) {
	route := listRoute(resource)
	logger.FromContext(nil).Debugln("  handle route:", route, "POST")

	router.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
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

		// single object shape first, array shape only as fallback
		var single T
		if err := json.Unmarshal(body, &single); err == nil {
			result, err := m.Save(nil, schoolID, single)
			if err != nil {
				errs.Write(w, rlog, err)
				return
			}
			writeJSON(w, rlog, http.StatusCreated, result)
			return
		}
		if !bulk {
			errs.Write(w, rlog, errs.BadRequest("cannot parse request body"))
			return
		}

		var elements []json.RawMessage
		if err := json.Unmarshal(body, &elements); err != nil {
			errs.Write(w, rlog, errs.BadRequest("cannot parse request body"))
			return
		}
		created := []T{}
		for _, element := range elements {
			var in T
			if err := json.Unmarshal(element, &in); err != nil {
				rlog.Infoln("dropping malformed element:", err)
				continue
			}
			result, err := m.Save(nil, schoolID, in)
			if err != nil {
				rlog.WithError(err).Infoln("dropping element that failed to save")
				continue
			}
			created = append(created, result)
		}
		writeJSON(w, rlog, http.StatusCreated, created)
	}).Methods(http.MethodPost)
}

// mountDelete adds DELETE /<plural>/{id}.
func mountDelete(router *mux.Router, resource string, m model.Deleter) {
	route := itemRoute(resource)
	logger.FromContext(nil).Debugln("  handle route:", route, "DELETE")

	router.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		rlog.Debugln("called route for", r.URL, r.Method)

		schoolID, ok := access.SchoolIDFromContext(r.Context())
		if !ok {
			errs.Write(w, rlog, errs.Unauthorized())
			return
		}
		id, err := idFromRequest(r)
		if err != nil {
			errs.Write(w, rlog, err)
			return
		}
		if err := m.Delete(id, schoolID); err != nil {
			errs.Write(w, rlog, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)
}

// checkContentType verifies that a mutating request declares a JSON body.
func checkContentType(r *http.Request) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errs.BadRequest("Content-Type needs to be application/json")
	}
	return nil
}

// idFromRequest parses the id path parameter of an id-scoped route.
func idFromRequest(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, errs.BadRequest("the id needs to be an integer")
	}
	return id, nil
}

// writeJSON serializes v and responds with the given success status.
// Serialization failures are infrastructure failures, not client errors.
func writeJSON(w http.ResponseWriter, rlog *logrus.Entry, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		errs.Write(w, rlog, errs.Internal("serializing response", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
