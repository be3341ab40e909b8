package contextengine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/context-store/internal/render"
	"github.com/ziadkadry99/context-store/internal/storage"
)

// maxBodyBytes bounds request bodies on write endpoints.
const maxBodyBytes = 8 << 20

// RegisterRoutes mounts the context API routes.
func RegisterRoutes(r chi.Router, svc *Service) {
	renderer := render.New()

	r.Route("/api/contexts", func(r chi.Router) {
		r.Post("/", handleIngest(svc))
		r.Get("/", handleQuery(svc))
		r.Post("/batch", handleBatch(svc))
		r.Get("/count", handleCount(svc))
		r.Get("/stats", handleStats(svc))
		r.Get("/{id}", handleRetrieve(svc))
		r.Patch("/{id}", handleUpdate(svc))
		r.Delete("/{id}", handleDelete(svc))
		r.Get("/{id}/similar", handleSimilar(svc))
		r.Get("/{id}/render", handleRender(svc, renderer))
	})
}

func handleIngest(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p storage.ContextPayload
		if err := decodeBody(w, r, &p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		id, err := svc.Ingest(r.Context(), &p)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

type batchRequest struct {
	Contexts []storage.ContextPayload `json:"contexts"`
}

// handleBatch accepts either {"contexts": [...]} or a bare array.
func handleBatch(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var raw json.RawMessage
		if err := decodeBody(w, r, &raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		var req batchRequest
		var err error
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
			err = json.Unmarshal(trimmed, &req.Contexts)
		} else {
			err = json.Unmarshal(raw, &req)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := svc.BatchIngest(r.Context(), req.Contexts)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		status := http.StatusOK
		switch {
		case res.Partial:
			status = http.StatusMultiStatus
		case !res.Success:
			status = http.StatusBadRequest
		}
		writeJSON(w, status, res)
	}
}

func handleQuery(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parseQueryParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := svc.Query(r.Context(), params)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleCount(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parseQueryParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var filter *storage.QueryParams
		if hasFilter(params) {
			filter = &params
		}
		n, err := svc.Count(r.Context(), filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"count": n})
	}
}

func handleStats(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func handleRetrieve(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Retrieve(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleUpdate(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var patch storage.ContextPatch
		if err := decodeBody(w, r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ok, err := svc.Update(r.Context(), id, patch)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "context not found")
			return
		}

		p, err := svc.Retrieve(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleDelete(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, err := svc.Delete(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "context not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleSimilar(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		results, err := svc.FindSimilar(r.Context(), chi.URLParam(r, "id"), limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}

func handleRender(svc *Service, renderer *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Retrieve(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		page, err := renderer.Page(p)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
	}
}

// parseQueryParams reads filters from the URL. List filters accept both
// comma-separated values and repeated parameters.
func parseQueryParams(r *http.Request) (storage.QueryParams, error) {
	q := r.URL.Query()
	params := storage.QueryParams{
		Tags:         splitList(q["tags"]),
		ContractType: q.Get("contractType"),
		Query:        q.Get("q"),
	}
	for _, t := range splitList(q["types"]) {
		params.Types = append(params.Types, storage.ContextType(t))
	}

	var err error
	if params.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return params, err
	}
	if params.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return params, err
	}
	return params, nil
}

func hasFilter(p storage.QueryParams) bool {
	return len(p.Types) > 0 || len(p.Tags) > 0 || p.ContractType != "" || strings.TrimSpace(p.Query) != ""
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case storage.IsStorageError(err):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
