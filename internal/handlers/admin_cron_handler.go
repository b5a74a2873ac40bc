package handlers

import (
	"net/http"

	"github.com/croffers/journey-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SweepRunner triggers and reports the scheduled journey sweeps
type SweepRunner interface {
	RunReconcileNow() (*services.SweepResult, error)
	RunArchiveNow() (*services.SweepResult, error)
	GetJobStatus() map[string]interface{}
}

// AdminCronHandler exposes manual sweep triggers to administrators
type AdminCronHandler struct {
	cron   SweepRunner
	logger *logrus.Logger
}

// NewAdminCronHandler creates a new admin cron handler
func NewAdminCronHandler(cron SweepRunner, logger *logrus.Logger) *AdminCronHandler {
	return &AdminCronHandler{cron: cron, logger: logger}
}

// RegisterRoutes mounts the admin routes on an admin-only group
func (h *AdminCronHandler) RegisterRoutes(rg *gin.RouterGroup) {
	cron := rg.Group("/admin/cron")
	cron.POST("/reconcile", h.Reconcile)
	cron.POST("/archive", h.Archive)
	cron.GET("/status", h.Status)
}

// Reconcile handles POST /api/v1/admin/cron/reconcile
func (h *AdminCronHandler) Reconcile(c *gin.Context) {
	h.runSweep(c, "reconcile", h.cron.RunReconcileNow)
}

// Archive handles POST /api/v1/admin/cron/archive
func (h *AdminCronHandler) Archive(c *gin.Context) {
	h.runSweep(c, "archive", h.cron.RunArchiveNow)
}

// Status handles GET /api/v1/admin/cron/status
func (h *AdminCronHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.cron.GetJobStatus())
}

func (h *AdminCronHandler) runSweep(c *gin.Context, name string, run func() (*services.SweepResult, error)) {
	result, err := run()
	if err != nil {
		h.logger.WithError(err).WithField("sweep", name).Error("Manual sweep failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "sweep_failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sweep":  name,
		"result": result,
	})
}
