package backend

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shelfd-tech/shelfd/core/logger"
)

// Version is the version of the current build. It is meant to be set at
// build time with -ldflags "-X .../core/backend.Version=...".
var Version = "unset"

func (b *Backend) handleVersion(router *mux.Router) {
	logger.FromContext(nil).Debugln("  handle route: /version GET")
	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		writeJSON(w, rlog, http.StatusOK, map[string]string{"version": Version})
	}).Methods(http.MethodGet)
}
