package api

import (
	"net/http"
	"time"

	"healthscreen/models"
	"healthscreen/utils"

	"github.com/gin-gonic/gin"
)

// --- Plan Management Handlers ---

// GeneratePlanHandler builds a follow-up plan from a stored result.
// POST /api/plan/generate
// Request body: { "user_id": "string", "result_id": 1 }
func (h *APIHandler) GeneratePlanHandler(c *gin.Context) {
	var req struct {
		UserID   string `json:"user_id" binding:"required"`
		ResultID uint   `json:"result_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid request format.", err)
		return
	}

	plan, err := h.planService.GeneratePlan(c.Request.Context(), req.UserID, req.ResultID)
	if err != nil {
		h.respondError(c, "Failed to generate plan.", err)
		return
	}
	utils.SendJSON(c, "Plan generated successfully", plan)
}

// GetPlansForUserHandler handles requests to get all plans for a specific user.
// GET /api/plan/user/:userID
func (h *APIHandler) GetPlansForUserHandler(c *gin.Context) {
	plans, err := h.planService.ListPlans(c.Param("userID"))
	if err != nil {
		h.respondError(c, "Failed to fetch plans.", err)
		return
	}
	utils.SendJSON(c, "Plans retrieved successfully", plans)
}

// GetActivePlanHandler returns the user's most recent active plan, or null.
// GET /api/plan/user/:userID/active
func (h *APIHandler) GetActivePlanHandler(c *gin.Context) {
	plan, err := h.planService.GetActivePlanForUser(c.Param("userID"))
	if err != nil {
		h.respondError(c, "Failed to fetch plan.", err)
		return
	}
	utils.SendJSON(c, "success", plan)
}

// GetPlanDetailsHandler handles requests to get details for a specific plan.
// GET /api/plan/:planID?userID=
func (h *APIHandler) GetPlanDetailsHandler(c *gin.Context) {
	planID, err := parseUint(c.Param("planID"))
	if err != nil {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid PlanID parameter.", err)
		return
	}
	userID := c.Query("userID")
	if userID == "" {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "userID query parameter is required.", nil)
		return
	}

	plan, err := h.planService.GetPlanDetails(planID, userID)
	if err != nil {
		h.respondError(c, "Failed to fetch plan details.", err)
		return
	}
	utils.SendJSON(c, "Plan details retrieved successfully", plan)
}

type taskRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// CompleteTaskHandler handles requests to mark a task as completed.
// POST /api/plan/task/:taskID/complete
// Request body: { "user_id": "string" } (for authorization)
func (h *APIHandler) CompleteTaskHandler(c *gin.Context) {
	taskID, err := parseUint(c.Param("taskID"))
	if err != nil {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid TaskID parameter.", err)
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid request: user_id is required.", err)
		return
	}

	task, err := h.planService.MarkTaskCompleted(taskID, req.UserID)
	if err != nil {
		h.respondError(c, "Failed to complete task.", err)
		return
	}
	utils.SendJSON(c, "Task marked as completed", task)
}

// SkipTaskHandler handles requests to mark a task as skipped.
// POST /api/plan/task/:taskID/skip
func (h *APIHandler) SkipTaskHandler(c *gin.Context) {
	taskID, err := parseUint(c.Param("taskID"))
	if err != nil {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid TaskID parameter.", err)
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid request: user_id is required.", err)
		return
	}

	task, err := h.planService.MarkTaskSkipped(taskID, req.UserID)
	if err != nil {
		h.respondError(c, "Failed to skip task.", err)
		return
	}
	utils.SendJSON(c, "Task marked as skipped", task)
}

// --- Dashboard Handler ---

// DashboardHandler summarises a user's results and plan progress.
// GET /api/dashboard/:userID?period=last_7_days&reference_date=YYYY-MM-DD&lang=
func (h *APIHandler) DashboardHandler(c *gin.Context) {
	userID := c.Param("userID")
	period := models.DashboardPeriod(c.DefaultQuery("period", string(models.PeriodLast7Days)))

	referenceDate := c.Query("reference_date")
	if referenceDate != "" {
		if _, err := time.Parse("2006-01-02", referenceDate); err != nil {
			utils.SendJSONError(c, h.log, http.StatusBadRequest, "Invalid reference_date format. Please use YYYY-MM-DD.", err)
			return
		}
	}

	report, err := h.dashboardService.GenerateDashboard(c.Request.Context(), userID, period, referenceDate, h.requestLanguage(c))
	if err != nil {
		h.respondError(c, "Failed to generate dashboard.", err)
		return
	}
	utils.SendJSON(c, "Dashboard generated successfully", report)
}
