package backend

import (
	"github.com/gorilla/mux"

	"github.com/shelfd-tech/shelfd/core"
	"github.com/shelfd-tech/shelfd/core/access"
	"github.com/shelfd-tech/shelfd/core/csql"
	"github.com/shelfd-tech/shelfd/core/logger"
	"github.com/shelfd-tech/shelfd/core/model"
)

// Backend is the school library rest backend
type Backend struct {
	db     *csql.DB
	router *mux.Router
}

// Builder is a builder helper for the Backend
type Builder struct {
	// DB is a postgres database. This is mandatory.
	DB *csql.DB
	// Router is a mux router. This is mandatory.
	Router *mux.Router
}

// New realizes the actual backend. It creates the sql relations (if they
// do not exist) and adds the actual routes to the router
func New(bb *Builder) *Backend {
	if bb.DB == nil {
		panic("DB is missing")
	}
	if bb.Router == nil {
		panic("Router is missing")
	}

	b := &Backend{
		db:     bb.DB,
		router: bb.Router,
	}

	b.createTables()
	logger.AddRequestID(b.router)
	b.handleCORS()
	b.handleRoutes()
	return b
}

// handleRoutes adds all routes: the public school and session routes
// first, then one protected subrouter carrying the authentication
// middleware and the per-resource engine routes.
func (b *Backend) handleRoutes() {
	nillog := logger.FromContext(nil)
	nillog.Debugln("backend: handle routes")

	b.handleVersion(b.router)
	b.handleSchoolRoutes()

	protected := b.router.PathPrefix("/").Subrouter()
	protected.Use(access.NewMiddleware(b.db))
	b.handleProtectedSchoolRoutes(protected)

	students := model.NewStudents(b.db)
	mountList(protected, "student", students)
	mountRead(protected, "student", students)
	mountUpdate(protected, "student", students)
	mountCreate(protected, "student", students, true)
	mountDelete(protected, "student", students)

	teachers := model.NewTeachers(b.db)
	mountList(protected, "teacher", teachers)
	mountRead(protected, "teacher", teachers)
	mountUpdate(protected, "teacher", teachers)
	mountCreate(protected, "teacher", teachers, false)
	mountDelete(protected, "teacher", teachers)

	books := model.NewBooks(b.db)
	mountList(protected, "book", books)
	mountRead(protected, "book", books)
	mountUpdate(protected, "book", books)
	mountCreate(protected, "book", books, false)
	mountDelete(protected, "book", books)

	aliases := model.NewAliases(b.db)
	mountList(protected, "alias", aliases)
	mountUpdate(protected, "alias", aliases)
	mountCreate(protected, "alias", aliases, false)
	mountDelete(protected, "alias", aliases)

	lendings := model.NewLendings(b.db)
	mountCreate(protected, "lending", lendings, true)
	mountDelete(protected, "lending", lendings)

	baseSets := model.NewBaseSets(b.db)
	mountCreate(protected, "base_set", baseSets, true)
	mountDelete(protected, "base_set", baseSets)
}

func listRoute(resource string) string {
	return "/" + core.Plural(resource)
}

func itemRoute(resource string) string {
	return "/" + core.Plural(resource) + "/{id}"
}
