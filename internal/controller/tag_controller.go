package controller

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"DataLink.piwebapi/internal/models"
	"DataLink.piwebapi/internal/repository"
	"DataLink.piwebapi/internal/service"
	"DataLink.piwebapi/internal/utils"
)

// TagController serves per-tag stream reads.
type TagController struct {
	service *service.DataService
	logger  *zap.Logger
}

// NewTagController creates a new TagController.
func NewTagController(service *service.DataService, logger *zap.Logger) *TagController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagController{service: service, logger: logger}
}

// TagRowsResponse wraps tidy rows of one tag.
type TagRowsResponse struct {
	Tag     string           `json:"tag"`
	Columns []string         `json:"columns"`
	Rows    []models.TidyRow `json:"rows"`
}

func tagVar(w http.ResponseWriter, r *http.Request) (string, bool) {
	tag := mux.Vars(r)["tag"]
	if tag == "" {
		apiErr := models.NewAPIError(models.ErrorCodeMissingParameter, "tag is required", nil, http.StatusBadRequest)
		utils.RespondWithError(w, apiErr)
		return "", false
	}
	return tag, true
}

func requireRange(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	if start == "" || end == "" {
		apiErr := models.NewAPIError(models.ErrorCodeMissingParameter, "start and end are required", nil, http.StatusBadRequest)
		utils.RespondWithError(w, apiErr)
		return "", "", false
	}
	return start, end, true
}

func respondRows(w http.ResponseWriter, tag string, rows []models.TidyRow) {
	if rows == nil {
		rows = []models.TidyRow{}
	}
	utils.RespondWithJSON(w, http.StatusOK, TagRowsResponse{Tag: tag, Columns: models.Columns(rows), Rows: rows})
}

// HandleResolve returns the WebId of a tag.
func (c *TagController) HandleResolve(w http.ResponseWriter, r *http.Request) {
	tag, ok := tagVar(w, r)
	if !ok {
		return
	}
	webID, err := c.service.Resolve(r.Context(), tag)
	if err != nil {
		utils.RespondWithErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"tag": tag, "web_id": webID})
}

// HandleValue returns the value at ?time= (now when omitted).
func (c *TagController) HandleValue(w http.ResponseWriter, r *http.Request) {
	tag, ok := tagVar(w, r)
	if !ok {
		return
	}
	rows, err := c.service.Value(r.Context(), tag, r.URL.Query().Get("time"))
	if err != nil {
		utils.RespondWithErr(w, err)
		return
	}
	respondRows(w, tag, rows)
}

// HandleRecorded returns stored events between ?start= and ?end=, with
// optional ?boundary= and ?max=.
func (c *TagController) HandleRecorded(w http.ResponseWriter, r *http.Request) {
	tag, ok := tagVar(w, r)
	if !ok {
		return
	}
	start, end, ok := requireRange(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	maxPoints := 0
	if v := q.Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			apiErr := models.NewAPIError(models.ErrorCodeInvalidFormat, "max must be a non-negative integer", map[string]string{"field": "max"}, http.StatusBadRequest)
			utils.RespondWithError(w, apiErr)
			return
		}
		maxPoints = n
	}
	rows, err := c.service.Recorded(r.Context(), tag, start, end, repository.BoundaryType(q.Get("boundary")), maxPoints)
	if err != nil {
		utils.RespondWithErr(w, err)
		return
	}
	respondRows(w, tag, rows)
}

// HandleInterpolated returns samples every ?interval= between ?start= and
// ?end=.
func (c *TagController) HandleInterpolated(w http.ResponseWriter, r *http.Request) {
	tag, ok := tagVar(w, r)
	if !ok {
		return
	}
	start, end, ok := requireRange(w, r)
	if !ok {
		return
	}
	rows, err := c.service.Interpolated(r.Context(), tag, start, end, r.URL.Query().Get("interval"))
	if err != nil {
		utils.RespondWithErr(w, err)
		return
	}
	respondRows(w, tag, rows)
}

// HandleSummary returns aggregates between ?start= and ?end=. Repeat ?type=
// for several summary types; ?interval= switches to per-interval rollups.
func (c *TagController) HandleSummary(w http.ResponseWriter, r *http.Request) {
	tag, ok := tagVar(w, r)
	if !ok {
		return
	}
	start, end, ok := requireRange(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	opts := repository.SummaryOptions{
		Types:            q["type"],
		CalculationBasis: q.Get("basis"),
		SampleInterval:   q.Get("interval"),
		TimeType:         q.Get("time_type"),
	}
	rows, err := c.service.Summary(r.Context(), tag, start, end, opts)
	if err != nil {
		utils.RespondWithErr(w, err)
		return
	}
	respondRows(w, tag, rows)
}
