package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"jdbuilder/application/generation"
	"jdbuilder/application/refinement"
	"jdbuilder/pkg/auth"
	"jdbuilder/pkg/common"
	"jdbuilder/pkg/utils"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// JDHandler serves job-description generation and refinement.
type JDHandler struct {
	generator *generation.Service
	refiner   *refinement.Service
	logger    *zap.Logger
}

// NewJDHandler creates the handler.
func NewJDHandler(generator *generation.Service, refiner *refinement.Service, logger *zap.Logger) *JDHandler {
	return &JDHandler{generator: generator, refiner: refiner, logger: logger}
}

// Generate handles POST /jd/generate.
func (h *JDHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var intake generation.Intake
	if err := common.ParseJSONBody(w, r, &intake, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := utils.ValidateStruct(intake); err != nil {
		common.RespondError(w, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	result, err := h.generator.Generate(r.Context(), intake)
	if err != nil {
		h.logger.Warn("generation failed",
			zap.String("userID", user.UserID),
			zap.Error(err),
		)
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// Refine handles POST /jd/refine.
func (h *JDHandler) Refine(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req refinement.Request
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.refiner.Refine(r.Context(), req)
	if err != nil {
		h.logger.Warn("refinement failed",
			zap.String("userID", user.UserID),
			zap.Error(err),
		)
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}
