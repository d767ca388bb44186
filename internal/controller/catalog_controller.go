package controller

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"DataLink.piwebapi/internal/config"
	"DataLink.piwebapi/internal/presets"
	"DataLink.piwebapi/internal/utils"
)

// CatalogController serves the selectable device values and presets.
type CatalogController struct {
	catalog config.Catalog
	now     func() time.Time
}

// NewCatalogController creates a new CatalogController.
func NewCatalogController(catalog config.Catalog) *CatalogController {
	return &CatalogController{catalog: catalog, now: time.Now}
}

// CatalogResponse is the body of the catalog call.
type CatalogResponse struct {
	config.Catalog
	DatePresets     []presets.Option `json:"date_presets"`
	IntervalPresets []presets.Option `json:"interval_presets"`
}

// HandleCatalog returns the device catalog and the preset choices.
func (c *CatalogController) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, CatalogResponse{
		Catalog:         c.catalog,
		DatePresets:     presets.DatePresets,
		IntervalPresets: presets.IntervalPresets,
	})
}

// HandleDatePreset resolves a date preset, or a previous range label, to
// start and end dates.
func (c *CatalogController) HandleDatePreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["preset"]
	if prev, ok := c.catalog.Range(name); ok {
		utils.RespondWithJSON(w, http.StatusOK, presets.Range{Start: prev.Start, End: prev.End})
		return
	}
	rng, err := presets.DateRange(name, c.now())
	if err != nil {
		utils.RespondWithErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, rng)
}

// HandleIntervalPreset resolves an interval preset to a magnitude and unit.
func (c *CatalogController) HandleIntervalPreset(w http.ResponseWriter, r *http.Request) {
	interval, err := presets.IntervalFor(mux.Vars(r)["preset"])
	if err != nil {
		utils.RespondWithErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, interval)
}
