package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolattend/internal/apperr"
	"schoolattend/internal/auth"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login issues a session token for valid credentials.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validationf("username and password are required"))
		return
	}
	result, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"token":       result.Token,
		"role":        result.Role,
		"redirectUrl": result.RedirectURL,
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

// ForgotPassword confirms the account exists; reset delivery is out of band.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validationf("email and role are required"))
		return
	}
	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email, req.Role); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset instructions sent"})
}

// Me returns the caller's user record.
func (h *Handler) Me(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	u, err := h.auth.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

// StaffInfo returns the staff member's own record for the dashboard
// header.
func (h *Handler) StaffInfo(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	u, err := h.auth.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "staff": u})
}

// StudentProfile returns the student's name, email, and class.
func (h *Handler) StudentProfile(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	u, err := h.auth.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	cls, err := h.users.StudentClass(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, apperr.Storage(err))
		return
	}
	var className any
	if cls != nil {
		className = cls.Name
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"name":    u.Name,
		"email":   u.Email,
		"class":   className,
	})
}
