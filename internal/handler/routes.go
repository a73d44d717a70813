package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/library-fee-api/internal/middleware"
	"github.com/noah-isme/library-fee-api/internal/models"
)

// Handlers groups every HTTP handler the API mounts.
type Handlers struct {
	Auth      *AuthHandler
	Me        *MeHandler
	Students  *StudentHandler
	Payments  *PaymentHandler
	Dashboard *DashboardHandler
	Reminders *ReminderHandler
	Store     *StoreHandler
	Exports   *ExportHandler
	System    *SystemHandler
}

// RouterConfig carries what route registration needs beyond the handlers.
type RouterConfig struct {
	APIPrefix string
	Tokens    middleware.TokenValidator
	Logger    *zap.Logger
}

// Register mounts the public, student and admin route groups on r.
func Register(r *gin.Engine, h Handlers, cfg RouterConfig) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	audit := func(action string) gin.HandlerFunc { return middleware.Audit(cfg.Logger, action) }

	r.GET("/health", h.System.Health)
	r.GET("/ready", h.System.Ready)
	r.GET("/metrics", h.System.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	api.POST("/auth/admin/login", h.Auth.AdminLogin)
	api.POST("/auth/student/login", h.Auth.StudentLogin)
	api.GET("/exports/:token", h.Exports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(cfg.Tokens))
	secured.GET("/auth/session", h.Auth.Session)

	members := secured.Group("")
	members.Use(middleware.RequireRoles(models.RoleStudent, models.RoleAdmin))
	members.GET("/members", h.Students.Members)
	members.GET("/store", h.Store.Catalog)

	me := secured.Group("/me")
	me.Use(middleware.RequireRoles(models.RoleStudent))
	me.GET("", h.Me.Profile)
	me.GET("/fees", h.Me.Fees)
	me.GET("/payments", h.Me.Payments)
	me.PUT("/photo", h.Me.UpdatePhoto)

	admin := secured.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))

	students := admin.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", audit("student.create"), h.Students.Create)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", audit("student.update"), h.Students.Update)
	students.DELETE("/:id", audit("student.delete"), h.Students.Delete)
	students.POST("/:id/deactivate", audit("student.deactivate"), h.Students.Deactivate)
	students.POST("/:id/reactivate", audit("student.reactivate"), h.Students.Reactivate)
	students.GET("/:id/fees", h.Payments.Fees)
	students.GET("/:id/payments", h.Payments.History)
	students.POST("/:id/payments", audit("payment.approve"), h.Payments.Approve)
	students.POST("/:id/payments/current", audit("payment.approve_current"), h.Payments.MarkCurrent)

	admin.GET("/approvals", h.Payments.Approvals)
	admin.GET("/dashboard", h.Dashboard.Admin)
	admin.GET("/dashboard/unpaid", h.Dashboard.Unpaid)
	admin.GET("/dashboard/activity", h.Dashboard.Activity)
	admin.GET("/reminders", h.Reminders.Batch)
	admin.GET("/system/metrics", h.System.Snapshot)

	store := admin.Group("/admin/store")
	store.GET("", h.Store.Catalog)
	store.POST("", audit("store.create"), h.Store.Create)
	store.GET("/:id", h.Store.Get)
	store.PUT("/:id", audit("store.update"), h.Store.Update)
	store.DELETE("/:id", audit("store.delete"), h.Store.Delete)

	admin.POST("/exports/fees", audit("export.fees"), h.Exports.FeeReport)
}
