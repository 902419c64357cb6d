package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"jdbuilder/application/ports"
	"jdbuilder/domain/jd"
	"jdbuilder/pkg/auth"
	"jdbuilder/pkg/common"
	"jdbuilder/pkg/observability"
	"jdbuilder/pkg/utils"
)

// AnalysisHandler serves CRUD and export for saved analyses.
type AnalysisHandler struct {
	store    ports.AnalysisStore
	exporter ports.Exporter
	metrics  *observability.Collector
	logger   *zap.Logger
}

// NewAnalysisHandler creates the handler.
func NewAnalysisHandler(store ports.AnalysisStore, exporter ports.Exporter, metrics *observability.Collector, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{store: store, exporter: exporter, metrics: metrics, logger: logger}
}

// SaveAnalysisRequest is the body for POST /analyses. A zero Version with
// an empty ID creates a new analysis; a non-empty ID updates an existing
// one and must carry the version the client last saw.
type SaveAnalysisRequest struct {
	ID       string       `json:"id,omitempty"`
	Title    string       `json:"title" validate:"required,min=1,max=200"`
	Document *jd.Document `json:"document" validate:"required"`
	Version  int          `json:"version,omitempty"`
}

// Save handles POST /analyses.
func (h *AnalysisHandler) Save(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req SaveAnalysisRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	analysis := &ports.Analysis{
		ID:       req.ID,
		OwnerID:  user.UserID,
		Title:    req.Title,
		Document: req.Document,
		Version:  req.Version,
	}

	id, err := h.store.Save(r.Context(), analysis)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	h.metrics.AnalysesPersisted.Inc()

	common.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":      id,
		"version": analysis.Version,
	})
}

// Get handles GET /analyses/{analysisID}.
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	analysis, err := h.store.GetByID(r.Context(), user.UserID, chi.URLParam(r, "analysisID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, analysis)
}

// List handles GET /analyses with optional search, limit, and cursor
// query parameters.
func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	filter := ports.ListFilter{
		Search: r.URL.Query().Get("search"),
		Cursor: r.URL.Query().Get("cursor"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			common.RespondError(w, http.StatusBadRequest, "limit must be between 1 and 100", "")
			return
		}
		filter.Limit = limit
	}

	page, err := h.store.ListByOwner(r.Context(), user.UserID, filter)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, page)
}

// Delete handles DELETE /analyses/{analysisID}.
func (h *AnalysisHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	id := chi.URLParam(r, "analysisID")
	if err := h.store.DeleteByID(r.Context(), user.UserID, id); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// Export handles GET /analyses/{analysisID}/export.
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	id := chi.URLParam(r, "analysisID")
	analysis, err := h.store.GetByID(r.Context(), user.UserID, id)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	data, contentType, err := h.exporter.Render(analysis.Document)
	if err != nil {
		h.logger.Error("export rendering failed",
			zap.String("analysisID", id),
			zap.Error(err),
		)
		common.RespondError(w, http.StatusInternalServerError, "export failed", "")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", analysis.Title+".txt"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
