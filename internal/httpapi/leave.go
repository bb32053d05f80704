package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolattend/internal/apperr"
	"schoolattend/internal/auth"
	"schoolattend/internal/leave"
)

type leaveRequestBody struct {
	Date             string `json:"date" binding:"required"`
	Duration         int    `json:"duration" binding:"required"`
	Reason           string `json:"reason" binding:"required"`
	Class            string `json:"class" binding:"required"`
	EmergencyContact string `json:"emergencyContact" binding:"required"`
}

// SubmitLeaveRequest creates a pending leave request and notifies staff.
func (h *Handler) SubmitLeaveRequest(c *gin.Context) {
	var req leaveRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validationf("All fields are required"))
		return
	}
	claims := auth.ClaimsFrom(c)
	created, err := h.leave.Submit(c.Request.Context(), claims.UserID,
		req.Date, req.Duration, req.Reason, req.Class, req.EmergencyContact)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Leave request submitted successfully",
		"request": created,
	})
}

// MyLeaveRequests lists the caller's own requests.
func (h *Handler) MyLeaveRequests(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	requests, err := h.leave.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	if requests == nil {
		requests = []leave.Request{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "requests": requests})
}

// ListLeaveRequests is the staff review view.
func (h *Handler) ListLeaveRequests(c *gin.Context) {
	requests, err := h.leave.ListAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if requests == nil {
		requests = []leave.StaffView{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "requests": requests})
}

type decideRequestBody struct {
	Status string `json:"status" binding:"required"`
}

// DecideLeaveRequest approves or rejects a pending request.
func (h *Handler) DecideLeaveRequest(c *gin.Context) {
	var req decideRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validationf("Invalid status"))
		return
	}
	claims := auth.ClaimsFrom(c)
	decided, err := h.leave.Decide(c.Request.Context(), c.Param("id"), claims.UserID, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Leave request " + decided.Status + " successfully",
	})
}
