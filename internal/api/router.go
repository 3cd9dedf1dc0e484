package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"hostel-management-backend/config"
	"hostel-management-backend/internal/logging"
	"hostel-management-backend/internal/model"
	"hostel-management-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(logging.WithComponent("http")))

	if len(cfg.AllowedOrigins) > 0 {
		cc := cors.DefaultConfig()
		cc.AllowOrigins = cfg.AllowedOrigins
		cc.AllowHeaders = append(cc.AllowHeaders, "Authorization")
		r.Use(cors.New(cc))
	}

	limit := rate.Limit(cfg.RateLimitPerSec)
	if cfg.RateLimitPerSec <= 0 {
		limit = rate.Inf
	}
	rateLimiter := mw.RateLimiter(limit, cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Second
	}
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/auth/login", h.Login)
		api.POST("/enrollments", h.Enroll)
		api.GET("/rooms/availability", caching, h.GetAvailability)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	authed := api.Group("")
	authed.Use(mw.Auth(h.tokens, h.revoker))
	authed.POST("/auth/logout", h.Logout)

	student := authed.Group("")
	student.Use(mw.RequireRole(model.RoleStudent))
	{
		student.GET("/me", h.GetProfile)
		student.PUT("/me/avatar", h.UploadAvatar)
		student.GET("/me/complaints", h.ListMyComplaints)
		student.POST("/me/complaints", h.CreateComplaint)

		student.GET("/subscriptions", h.GetSubscription)
		student.PUT("/subscriptions", h.PutSubscription)
		student.DELETE("/subscriptions", h.DeleteSubscription)
	}

	warden := authed.Group("/warden")
	warden.Use(mw.RequireRole(model.RoleWarden))
	{
		warden.GET("/students", h.ListBlockStudents)
		warden.POST("/students/:id/arrival", h.MarkArrival)
		warden.GET("/complaints", h.ListBlockComplaints)
		warden.POST("/complaints/:id/forward", h.ForwardComplaint)
		warden.POST("/complaints/:id/resolve", h.ResolveComplaint)
	}

	admin := authed.Group("/admin")
	admin.Use(mw.RequireRole(model.RoleAdmin))
	{
		admin.GET("/stats", h.GetStats)
		admin.GET("/schema", h.GetSchema)

		admin.GET("/students", h.ListStudents)
		admin.DELETE("/students/:id", h.DeleteStudent)
		admin.GET("/students/:id/report", h.StudentReport)

		admin.GET("/rooms", h.ListRooms)
		admin.POST("/rooms", h.CreateRooms)
		admin.POST("/rooms/import", h.ImportRooms)
		admin.DELETE("/rooms/:id", h.DeleteRoom)

		admin.GET("/complaints", h.ListComplaints)
		admin.POST("/complaints/:id/resolve", h.ResolveComplaint)

		admin.GET("/payments", h.ListPayments)

		admin.POST("/staff", h.CreateStaff)
	}

	return r
}
