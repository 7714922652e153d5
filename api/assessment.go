package api

import (
	"net/http"

	"healthscreen/models"
	"healthscreen/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StartAssessmentRequest is the body of POST /api/assessments.
type StartAssessmentRequest struct {
	UserID          string          `json:"user_id" binding:"required"`
	QuestionnaireID string          `json:"questionnaire_id" binding:"required"`
	Language        models.Language `json:"language"`
}

// SubmitAnswerRequest is the body of POST /api/assessments/:sessionID/answers.
// Values holds the raw input: one entry for single-choice, numeric and text questions,
// any number for multi-choice.
type SubmitAnswerRequest struct {
	QuestionID string   `json:"question_id" binding:"required"`
	Values     []string `json:"values"`
}

// StartAssessmentHandler starts or resumes a session and returns its current question.
func (h *APIHandler) StartAssessmentHandler(c *gin.Context) {
	var req StartAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid request format.", err)
		return
	}
	lang := models.ParseLanguage(string(req.Language), h.defaultLanguage)

	view, err := h.assessmentService.StartAssessment(req.UserID, req.QuestionnaireID, lang)
	if err != nil {
		h.respondError(c, "Failed to start assessment.", err)
		return
	}
	utils.SendJSON(c, "Assessment started", view)
}

// GetSessionHandler returns a session and its current question.
func (h *APIHandler) GetSessionHandler(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	view, err := h.assessmentService.GetSession(id)
	if err != nil {
		h.respondError(c, "Failed to load assessment.", err)
		return
	}
	utils.SendJSON(c, "success", view)
}

// SubmitAnswerHandler records the answer to the current question and advances.
func (h *APIHandler) SubmitAnswerHandler(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid request: question_id is required.", err)
		return
	}

	view, err := h.assessmentService.SubmitAnswer(id, req.QuestionID, req.Values)
	if err != nil {
		h.respondError(c, "Failed to save answer.", err)
		return
	}
	utils.SendJSON(c, "Answer recorded", view)
}

// GoBackHandler moves the session to the previous question.
func (h *APIHandler) GoBackHandler(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	view, err := h.assessmentService.GoBack(id)
	if err != nil {
		h.respondError(c, "Failed to go back.", err)
		return
	}
	utils.SendJSON(c, "success", view)
}

// SubmitAssessmentHandler scores, analyses and stores a completed session.
func (h *APIHandler) SubmitAssessmentHandler(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	result, err := h.assessmentService.CompleteAssessment(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Failed to submit assessment.", err)
		return
	}
	h.log.Info("Assessment submitted",
		zap.String("session_id", id.String()),
		zap.String("questionnaire_id", result.QuestionnaireID),
		zap.String("risk_level", string(result.RiskLevel)))
	utils.SendJSON(c, "Assessment submitted", result)
}

// ListResultsHandler lists a user's results, newest first.
func (h *APIHandler) ListResultsHandler(c *gin.Context) {
	results, err := h.assessmentService.ListResults(c.Request.Context(), c.Param("userID"))
	if err != nil {
		h.respondError(c, "Failed to fetch results.", err)
		return
	}
	utils.SendJSON(c, "success", results)
}

// GetResultHandler returns one stored result.
func (h *APIHandler) GetResultHandler(c *gin.Context) {
	resultID, err := parseUint(c.Param("resultID"))
	if err != nil {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid ResultID parameter.", err)
		return
	}
	result, err := h.assessmentService.GetResult(c.Request.Context(), resultID)
	if err != nil {
		h.respondError(c, "Failed to fetch result.", err)
		return
	}
	utils.SendJSON(c, "success", result)
}

// GetGuestResultHandler returns a guest's latest result for one questionnaire.
func (h *APIHandler) GetGuestResultHandler(c *gin.Context) {
	guestID := c.Param("guestID")
	if !utils.IsGuestID(guestID) {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Not a guest ID.", nil)
		return
	}
	result, err := h.assessmentService.GetGuestResult(guestID, c.Param("questionnaireID"))
	if err != nil {
		h.respondError(c, "Failed to fetch result.", err)
		return
	}
	utils.SendJSON(c, "success", result)
}

// ClearGuestResultsHandler ends a guest session: results, open sessions and chat history go.
// The chat quota is kept.
func (h *APIHandler) ClearGuestResultsHandler(c *gin.Context) {
	guestID := c.Param("guestID")
	if !utils.IsGuestID(guestID) {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Not a guest ID.", nil)
		return
	}
	removed := h.assessmentService.ClearGuestResults(guestID)
	h.chatService.ClearHistory(guestID)
	utils.SendJSON(c, "Guest data cleared", gin.H{"removed": removed})
}
