package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"

	"github.com/deploywatch/scanner-qualys/pkg/http/api"
	"github.com/deploywatch/scanner-qualys/pkg/image"
	"github.com/deploywatch/scanner-qualys/pkg/job"
	"github.com/deploywatch/scanner-qualys/pkg/persistence"
	"github.com/deploywatch/scanner-qualys/pkg/queue"
	"github.com/deploywatch/scanner-qualys/pkg/report"
)

const (
	pathAPIPrefix   = "/api/v1"
	pathScan        = "/scan"
	pathScanRecords = "/scans/{image}"
	pathScanPayload = "/scans/{image}/payloads/{scan_id}"
	pathVarImage    = "image"
	pathVarScanID   = "scan_id"

	pathProbeHealthy = "/probe/healthy"
	pathProbeReady   = "/probe/ready"
)

var queryDecoder = schema.NewDecoder()

func init() {
	queryDecoder.IgnoreUnknownKeys(true)
	queryDecoder.RegisterConverter(time.Duration(0), func(value string) reflect.Value {
		d, err := time.ParseDuration(value)
		if err != nil {
			return reflect.Value{}
		}
		return reflect.ValueOf(d)
	})
}

// listScansQuery is decoded from the query string of the scan records
// endpoint. The zero value of Since means no timestamp filter.
type listScansQuery struct {
	Since time.Duration `schema:"since"`
	Limit int           `schema:"limit"`
}

type scanResponse struct {
	ID string `json:"id"`
}

type requestHandler struct {
	enqueuer queue.Enqueuer
	store    persistence.Store
	api.BaseHandler
}

func NewAPIHandler(enqueuer queue.Enqueuer, store persistence.Store) http.Handler {
	handler := &requestHandler{
		enqueuer: enqueuer,
		store:    store,
	}

	// Image references are path segments, so clients URL encode them and
	// the router must not decode %2F before matching.
	router := mux.NewRouter().UseEncodedPath()
	v1Router := router.PathPrefix(pathAPIPrefix).Subrouter()

	v1Router.Methods(http.MethodPost).Path(pathScan).HandlerFunc(handler.AcceptScanRequest)
	v1Router.Methods(http.MethodGet).Path(pathScanPayload).HandlerFunc(handler.GetScanPayload)
	v1Router.Methods(http.MethodGet).Path(pathScanRecords).HandlerFunc(handler.ListScanRecords)

	probeRouter := router.PathPrefix("/probe").Subrouter()
	probeRouter.Methods(http.MethodGet).Path("/healthy").HandlerFunc(handler.GetHealthy)
	probeRouter.Methods(http.MethodGet).Path("/ready").HandlerFunc(handler.GetReady)

	return router
}

func (h *requestHandler) AcceptScanRequest(res http.ResponseWriter, req *http.Request) {
	scanRequest := job.ScanRequest{}
	err := json.NewDecoder(req.Body).Decode(&scanRequest)
	if err != nil {
		slog.Error("Error while unmarshalling scan request", slog.String("err", err.Error()))
		h.WriteJSONError(res, api.Error{
			HTTPCode: http.StatusBadRequest,
			Message:  fmt.Sprintf("unmarshalling scan request: %s", err.Error()),
		})
		return
	}

	if len(scanRequest.Images) == 0 {
		h.WriteJSONError(res, api.Error{
			HTTPCode: http.StatusUnprocessableEntity,
			Message:  "missing images",
		})
		return
	}

	scanJob, err := h.enqueuer.Enqueue(req.Context(), scanRequest)
	if err != nil {
		slog.Error("Error while enqueuing scan job", slog.String("err", err.Error()))
		h.WriteJSONError(res, api.Error{
			HTTPCode: http.StatusInternalServerError,
			Message:  fmt.Sprintf("enqueuing scan job: %s", err.Error()),
		})
		return
	}
	slog.Debug("Enqueued scan job", slog.String("scan_job_id", scanJob.ID))

	h.WriteJSON(res, scanResponse{ID: scanJob.ID}, http.StatusAccepted)
}

func (h *requestHandler) ListScanRecords(res http.ResponseWriter, req *http.Request) {
	ref, ok := h.imageRef(res, req)
	if !ok {
		return
	}

	var query listScansQuery
	if err := queryDecoder.Decode(&query, req.URL.Query()); err != nil {
		h.WriteJSONError(res, api.Error{
			HTTPCode: http.StatusBadRequest,
			Message:  fmt.Sprintf("decoding query: %s", err.Error()),
		})
		return
	}

	records, err := h.store.ListRecords(req.Context(), ref.PartitionKey())
	if err != nil {
		slog.Error("Error while listing scan records",
			slog.String("partition_key", ref.PartitionKey()),
			slog.String("err", err.Error()),
		)
		h.WriteJSONError(res, api.Error{
			HTTPCode: http.StatusInternalServerError,
			Message:  fmt.Sprintf("listing scan records: %v", err),
		})
		return
	}

	records = filterRecords(records, query)

	h.WriteJSON(res, records, http.StatusOK)
}

func (h *requestHandler) GetScanPayload(res http.ResponseWriter, req *http.Request) {
	ref, ok := h.imageRef(res, req)
	if !ok {
		return
	}
	scanID := mux.Vars(req)[pathVarScanID]

	objectPath := report.ObjectPath(ref.PartitionKey(), scanID)
	payload, err := h.store.GetPayload(req.Context(), objectPath)
	if err != nil {
		slog.Error("Error while getting scan payload",
			slog.String("object_path", objectPath),
			slog.String("err", err.Error()),
		)
		h.WriteJSONError(res, api.Error{
			HTTPCode: http.StatusInternalServerError,
			Message:  fmt.Sprintf("getting scan payload: %v", err),
		})
		return
	}
	if payload == nil {
		h.WriteJSONError(res, api.Error{
			HTTPCode: http.StatusNotFound,
			Message:  fmt.Sprintf("cannot find scan payload: %s", objectPath),
		})
		return
	}

	res.Header().Set(api.HeaderContentType, api.MimeTypeJSON)
	res.WriteHeader(http.StatusOK)
	_, _ = res.Write(payload)
}

func (h *requestHandler) GetHealthy(res http.ResponseWriter, _ *http.Request) {
	res.WriteHeader(http.StatusOK)
}

func (h *requestHandler) GetReady(res http.ResponseWriter, _ *http.Request) {
	res.WriteHeader(http.StatusOK)
}

// imageRef resolves the URL encoded image path variable to a parsed
// reference.
func (h *requestHandler) imageRef(res http.ResponseWriter, req *http.Request) (image.Reference, bool) {
	encoded, ok := mux.Vars(req)[pathVarImage]
	if !ok || encoded == "" {
		h.WriteJSONError(res, api.Error{
			HTTPCode: http.StatusBadRequest,
			Message:  "missing image",
		})
		return image.Reference{}, false
	}

	imageString, err := url.PathUnescape(encoded)
	if err != nil {
		h.WriteJSONError(res, api.Error{
			HTTPCode: http.StatusBadRequest,
			Message:  fmt.Sprintf("invalid image: %s", err.Error()),
		})
		return image.Reference{}, false
	}

	return image.Parse(imageString), true
}

func filterRecords(records []report.ScanRecord, query listScansQuery) []report.ScanRecord {
	// Newest first. RFC3339 UTC timestamps sort lexicographically.
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})

	if query.Since > 0 {
		cutoff := time.Now().UTC().Add(-query.Since)
		filtered := make([]report.ScanRecord, 0, len(records))
		for _, record := range records {
			ts, err := time.Parse(time.RFC3339, record.Timestamp)
			if err != nil {
				continue
			}
			if ts.After(cutoff) {
				filtered = append(filtered, record)
			}
		}
		records = filtered
	}

	if query.Limit > 0 && len(records) > query.Limit {
		records = records[:query.Limit]
	}

	return records
}
