// Package httpapi wires the REST surface. Handlers bind input, call a
// service, and convert errors through the shared taxonomy into the uniform
// {success, message} body.
package httpapi

import (
	"github.com/gin-gonic/gin"

	"schoolattend/internal/apperr"
	"schoolattend/internal/attendance"
	"schoolattend/internal/auth"
	"schoolattend/internal/leave"
	"schoolattend/internal/notification"
	"schoolattend/internal/realtime"
	"schoolattend/internal/user"
)

// Handler carries the services behind the REST surface.
type Handler struct {
	auth  *auth.Service
	users *user.Repository
	att   *attendance.Service
	leave *leave.Service
	notes *notification.Repository
	hub   *realtime.Hub

	signingKey string
	issuer     string
}

// New creates a handler.
func New(authSvc *auth.Service, users *user.Repository, att *attendance.Service,
	leaveSvc *leave.Service, notes *notification.Repository, hub *realtime.Hub,
	signingKey, issuer string) *Handler {
	return &Handler{
		auth:       authSvc,
		users:      users,
		att:        att,
		leave:      leaveSvc,
		notes:      notes,
		hub:        hub,
		signingKey: signingKey,
		issuer:     issuer,
	}
}

// Routes registers the API on the router.
func (h *Handler) Routes(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/auth/login", h.Login)
	api.POST("/auth/forgot-password", h.ForgotPassword)

	authed := api.Group("", auth.RequireAuth(h.signingKey, h.issuer))
	authed.GET("/auth/me", h.Me)
	authed.GET("/dashboard/stats", h.DashboardStats)
	authed.GET("/classes", h.ListClasses)
	authed.GET("/notifications", h.ListNotifications)
	authed.POST("/notifications/:id/read", h.MarkNotificationRead)

	staff := authed.Group("", auth.RequireRole(user.RoleStaff, user.RoleAdmin))
	staff.GET("/staff/info", h.StaffInfo)
	staff.GET("/students/class/:classId", h.ClassRoster)
	staff.POST("/attendance/save", h.SaveAttendance)
	staff.GET("/attendance/class/:classId", h.ClassAttendance)
	staff.GET("/attendance/history/:classId", h.ClassHistory)
	staff.GET("/leave/requests", h.ListLeaveRequests)
	staff.PUT("/leave/request/:id", h.DecideLeaveRequest)

	student := authed.Group("", auth.RequireRole(user.RoleStudent))
	student.POST("/attendance/mark", h.MarkSelfAttendance)
	student.GET("/attendance/today", h.TodayAttendance)
	student.GET("/attendance/history", h.AttendanceHistory)
	student.GET("/attendance/summary", h.AttendanceSummary)
	student.GET("/attendance/subjects", h.SubjectAttendance)
	student.GET("/attendance/subjects/filtered", h.FilteredSubjectAttendance)
	student.GET("/student/profile", h.StudentProfile)
	student.POST("/leave/request", h.SubmitLeaveRequest)
	student.GET("/leave/my-requests", h.MyLeaveRequests)

	r.GET("/ws", h.hub.ServeWS)
}

// fail converts a service error into the uniform failure body.
func fail(c *gin.Context, err error) {
	c.JSON(apperr.Status(err), gin.H{"success": false, "message": apperr.Message(err)})
}
