package handlers

import (
	"net/http"

	portssvc "github.com/campusbooks/fee_ledger_app/internal/core/ports/services"
	"github.com/campusbooks/fee_ledger_app/internal/dto"
	"github.com/gin-gonic/gin"
)

type ReportingHandler struct {
	duesService portssvc.DuesSvcFacade
}

func NewReportingHandler(duesService portssvc.DuesSvcFacade) *ReportingHandler {
	return &ReportingHandler{duesService: duesService}
}

// GetTotalPendingDues godoc
// @Summary Get the institution-wide pending dues
// @Description Net receivable sum over all students' non-reversed entries; advances reduce the total
// @Tags reports
// @Produce  json
// @Success 200 {object} dto.DuesSummaryResponse
// @Failure 500 {object} map[string]string
// @Security BearerAuth
// @Router /reports/dues [get]
func (h *ReportingHandler) GetTotalPendingDues(c *gin.Context) {
	total, err := h.duesService.TotalPendingDues(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DuesSummaryResponse{TotalPendingDues: total})
}

// GetDefaulters godoc
// @Summary List students with a net positive balance
// @Tags reports
// @Produce  json
// @Success 200 {object} dto.DefaultersResponse
// @Failure 500 {object} map[string]string
// @Security BearerAuth
// @Router /reports/defaulters [get]
func (h *ReportingHandler) GetDefaulters(c *gin.Context) {
	studentIDs, err := h.duesService.StudentIDsWithDues(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DefaultersResponse{StudentIDs: studentIDs})
}

// GetFeeChargeExists godoc
// @Summary Check whether a session already carries fee charges for a student
// @Tags reports
// @Produce  json
// @Param   studentID path string true "Student ID"
// @Param   sessionID path string true "Session ID"
// @Success 200 {object} dto.FeeChargeExistsResponse
// @Failure 500 {object} map[string]string
// @Security BearerAuth
// @Router /students/{studentID}/sessions/{sessionID}/fee-charge [get]
func (h *ReportingHandler) GetFeeChargeExists(c *gin.Context) {
	studentID := c.Param("studentID")
	sessionID := c.Param("sessionID")

	exists, err := h.duesService.HasFeeChargeEntries(c.Request.Context(), studentID, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FeeChargeExistsResponse{
		StudentID: studentID,
		SessionID: sessionID,
		Exists:    exists,
	})
}

func registerReportingRoutes(group *gin.RouterGroup, duesSvc portssvc.DuesSvcFacade) {
	h := NewReportingHandler(duesSvc)

	reports := group.Group("/reports")
	{
		reports.GET("/dues", h.GetTotalPendingDues)
		reports.GET("/defaulters", h.GetDefaulters)
	}

	group.GET("/students/:studentID/sessions/:sessionID/fee-charge", h.GetFeeChargeExists)
}
