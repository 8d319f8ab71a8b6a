/*Package backend implements the school library REST backend.

The backend mounts one generic request engine per resource. The engine is
parameterized over the tenant-scoped model contract from core/model; a
resource gets exactly the verbs its routes mount. Authentication runs as
middleware on the protected subrouter, the error taxonomy of core/errs is
translated to HTTP in exactly one place.

Usage:

	db := csql.OpenWithSchema(dataSourceName, "library")
	router := mux.NewRouter()
	backend.New(&backend.Builder{
		DB:     db,
		Router: router,
	})
	http.ListenAndServe(":3000", router)
*/
package backend
