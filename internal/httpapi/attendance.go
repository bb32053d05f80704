package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"schoolattend/internal/apperr"
	"schoolattend/internal/attendance"
	"schoolattend/internal/auth"
)

type saveAttendanceRequest struct {
	ClassID  int                     `json:"classId" binding:"required"`
	Date     string                  `json:"date" binding:"required"`
	Students []attendance.RosterMark `json:"students" binding:"required"`
}

// SaveAttendance upserts a class roster for a day and fans the update out
// to the class room.
func (h *Handler) SaveAttendance(c *gin.Context) {
	var req saveAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validationf("Missing required fields: classId, date, or students"))
		return
	}
	claims := auth.ClaimsFrom(c)
	if _, err := h.att.SaveRoster(c.Request.Context(), req.ClassID, req.Date, req.Students, claims.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Attendance saved successfully"})
}

// ClassAttendance returns the caller's saved record for a class and day.
func (h *Handler) ClassAttendance(c *gin.Context) {
	classID, err := strconv.Atoi(c.Param("classId"))
	if err != nil {
		fail(c, apperr.Validationf("invalid class id"))
		return
	}
	claims := auth.ClaimsFrom(c)
	rec, err := h.att.ClassRecord(c.Request.Context(), classID, c.Query("date"), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	if rec == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

type markSelfRequest struct {
	Status string `json:"status" binding:"required"`
}

// MarkSelfAttendance records the student's own mark, once per day.
func (h *Handler) MarkSelfAttendance(c *gin.Context) {
	var req markSelfRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validationf("status is required"))
		return
	}
	claims := auth.ClaimsFrom(c)
	if _, err := h.att.MarkSelf(c.Request.Context(), claims.UserID, req.Status); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Attendance marked successfully"})
}

// TodayAttendance returns the student's mark for the current day, if any.
func (h *Handler) TodayAttendance(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	mark, err := h.att.Today(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "attendance": mark})
}

// AttendanceHistory lists the student's staff-recorded days, newest first.
func (h *Handler) AttendanceHistory(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	entries, err := h.att.History(c.Request.Context(), claims.UserID, c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		fail(c, err)
		return
	}
	if entries == nil {
		entries = []attendance.HistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "attendance": entries})
}

// AttendanceSummary returns totals plus monthly percentages.
func (h *Handler) AttendanceSummary(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	sum, err := h.att.Summary(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"totalClasses": sum.TotalClasses,
		"presentCount": sum.PresentCount,
		"absentCount":  sum.AbsentCount,
		"monthlyData":  sum.MonthlyData,
	})
}

// SubjectAttendance returns the student's per-subject breakdown. The
// ledger carries no subject split, so everything lands in one General
// bucket.
func (h *Handler) SubjectAttendance(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	subjects, err := h.att.Subjects(c.Request.Context(), claims.UserID, "", "")
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "subjects": subjects})
}

// FilteredSubjectAttendance is the breakdown with optional subject and
// month query filters.
func (h *Handler) FilteredSubjectAttendance(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	subjects, err := h.att.Subjects(c.Request.Context(), claims.UserID, c.Query("subject"), c.Query("month"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "subjects": subjects})
}

// ClassHistory lists the caller's recent saved records for a class.
func (h *Handler) ClassHistory(c *gin.Context) {
	classID, err := strconv.Atoi(c.Param("classId"))
	if err != nil {
		fail(c, apperr.Validationf("invalid class id"))
		return
	}
	claims := auth.ClaimsFrom(c)
	records, err := h.att.ClassHistory(c.Request.Context(), classID, claims.UserID, c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		fail(c, err)
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": records})
}

// DashboardStats returns today's aggregate counts and the recent feed.
func (h *Handler) DashboardStats(c *gin.Context) {
	stats, err := h.att.Stats(c.Request.Context(), time.Now())
	if err != nil {
		fail(c, err)
		return
	}
	if stats.RecentAttendance == nil {
		stats.RecentAttendance = []attendance.RecentEntry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"totalStudents":    stats.TotalStudents,
		"presentToday":     stats.PresentToday,
		"absentToday":      stats.AbsentToday,
		"lateToday":        stats.LateToday,
		"recentAttendance": stats.RecentAttendance,
	})
}

// ListClasses returns the class directory.
func (h *Handler) ListClasses(c *gin.Context) {
	classes, err := h.users.ListClasses(c.Request.Context())
	if err != nil {
		fail(c, apperr.Storage(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "classes": classes})
}

// ClassRoster lists the students of a class for the marking screen.
func (h *Handler) ClassRoster(c *gin.Context) {
	classID, err := strconv.Atoi(c.Param("classId"))
	if err != nil {
		fail(c, apperr.Validationf("invalid class id"))
		return
	}
	roster, err := h.users.ClassRoster(c.Request.Context(), classID)
	if err != nil {
		fail(c, apperr.Storage(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "students": roster})
}
