package routes

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"DataLink.piwebapi/internal/controller"
)

// Controllers groups the handlers mounted by SetupRouter.
type Controllers struct {
	Query   *controller.QueryController
	Tags    *controller.TagController
	Catalog *controller.CatalogController
}

// SetupRouter defines all API routes. auth guards everything under /api;
// /health and /metrics stay open.
func SetupRouter(c Controllers, auth func(http.Handler) http.Handler) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	if auth != nil {
		api.Use(auth)
	}
	SetupQueryRoutes(api, c.Query)
	SetupTagRoutes(api, c.Tags)
	SetupCatalogRoutes(api, c.Catalog)

	return router
}

// SetupQueryRoutes registers the parameter query routes.
func SetupQueryRoutes(router *mux.Router, c *controller.QueryController) {
	router.HandleFunc("/query/preview", c.HandlePreview).Methods(http.MethodPost)
	router.HandleFunc("/query/execute", c.HandleExecute).Methods(http.MethodPost)
	router.HandleFunc("/query/fetch", c.HandleFetch).Methods(http.MethodPost)
}

// SetupTagRoutes registers the per-tag stream routes.
func SetupTagRoutes(router *mux.Router, c *controller.TagController) {
	router.HandleFunc("/tags/{tag}", c.HandleResolve).Methods(http.MethodGet)
	router.HandleFunc("/tags/{tag}/value", c.HandleValue).Methods(http.MethodGet)
	router.HandleFunc("/tags/{tag}/recorded", c.HandleRecorded).Methods(http.MethodGet)
	router.HandleFunc("/tags/{tag}/interpolated", c.HandleInterpolated).Methods(http.MethodGet)
	router.HandleFunc("/tags/{tag}/summary", c.HandleSummary).Methods(http.MethodGet)
}

// SetupCatalogRoutes registers the catalog and preset routes.
func SetupCatalogRoutes(router *mux.Router, c *controller.CatalogController) {
	router.HandleFunc("/catalog", c.HandleCatalog).Methods(http.MethodGet)
	router.HandleFunc("/presets/dates/{preset}", c.HandleDatePreset).Methods(http.MethodGet)
	router.HandleFunc("/presets/intervals/{preset}", c.HandleIntervalPreset).Methods(http.MethodGet)
}
