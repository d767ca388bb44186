package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"DataLink.piwebapi/internal/export"
	"DataLink.piwebapi/internal/middleware"
	"DataLink.piwebapi/internal/models"
	"DataLink.piwebapi/internal/resample"
	"DataLink.piwebapi/internal/service"
	"DataLink.piwebapi/internal/utils"
)

// maxBodyBytes caps query request bodies.
const maxBodyBytes = 1 << 20

// QueryController handles HTTP requests for parameter queries.
type QueryController struct {
	service *service.DataService
	logger  *zap.Logger
}

// NewQueryController creates a new QueryController.
func NewQueryController(service *service.DataService, logger *zap.Logger) *QueryController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryController{service: service, logger: logger}
}

// PreviewResponse is the body of a preview call.
type PreviewResponse struct {
	Parameters map[string]string `json:"parameters"`
	URL        string            `json:"url"`
	Preview    string            `json:"preview"`
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (models.QueryParameters, bool) {
	var req models.QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		apiErr := models.NewAPIError(models.ErrorCodeBadRequest, fmt.Sprintf("Invalid request payload: %v", err), nil, http.StatusBadRequest)
		utils.RespondWithError(w, apiErr)
		return models.QueryParameters{}, false
	}
	return models.NewQueryParameters(req), true
}

// HandlePreview renders the query that would be sent without sending it.
func (c *QueryController) HandlePreview(w http.ResponseWriter, r *http.Request) {
	params, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	text, err := c.service.Preview(params)
	if err != nil {
		utils.RespondWithErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, PreviewResponse{
		Parameters: params.QueryMap(),
		URL:        params.ComposeURL(c.service.BaseURL()),
		Preview:    text,
	})
}

// HandleExecute sends the query and relays the provider's body.
func (c *QueryController) HandleExecute(w http.ResponseWriter, r *http.Request) {
	params, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	body, err := c.service.Execute(r.Context(), params)
	if err != nil {
		utils.RespondWithErr(w, err)
		return
	}
	contentType := "text/plain; charset=utf-8"
	if json.Valid(body) {
		contentType = "application/json"
	}
	utils.RespondWithText(w, http.StatusOK, contentType, body)
}

// HandleFetch sends the query and returns tidy rows as JSON or CSV.
// Query options: resample (interval), how (mean|sum|min|max), format
// (json|csv) and nocache.
func (c *QueryController) HandleFetch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var opts service.FetchOptions
	if v := q.Get("resample"); v != "" {
		d, err := resample.ParseInterval(v)
		if err != nil {
			apiErr := models.NewAPIError(models.ErrorCodeInvalidFormat, err.Error(), map[string]string{"field": "resample"}, http.StatusBadRequest)
			utils.RespondWithError(w, apiErr)
			return
		}
		opts.Resample = d
	}
	opts.How = resample.ParseAggregator(q.Get("how"))
	if v := q.Get("nocache"); v != "" {
		noCache, err := strconv.ParseBool(v)
		if err != nil {
			apiErr := models.NewAPIError(models.ErrorCodeInvalidFormat, "nocache must be a boolean", map[string]string{"field": "nocache"}, http.StatusBadRequest)
			utils.RespondWithError(w, apiErr)
			return
		}
		opts.NoCache = noCache
	}
	format := q.Get("format")
	if format != "" && format != "json" && format != "csv" {
		apiErr := models.NewAPIError(models.ErrorCodeInvalidFormat, "format must be json or csv", map[string]string{"field": "format"}, http.StatusBadRequest)
		utils.RespondWithError(w, apiErr)
		return
	}

	params, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	result, err := c.service.Fetch(r.Context(), params, opts)
	if err != nil {
		utils.RespondWithErr(w, err)
		return
	}
	c.logger.Debug("fetch served",
		zap.String("subject", middleware.Subject(r.Context())),
		zap.String("cache_key", result.CacheKey),
		zap.Int("rows", len(result.Rows)))

	if format == "csv" {
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, result.Rows); err != nil {
			utils.RespondWithErr(w, err)
			return
		}
		w.Header().Set("X-Cache-Key", result.CacheKey)
		utils.RespondWithText(w, http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, result)
}
