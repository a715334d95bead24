package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/estate-chat/internal/common"
	"github.com/suPer8Hu/estate-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/estate-chat/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler) *gin.Engine {
	cfg := h.Cfg
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(h.Log))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(h.Log))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)

	// users
	r.POST("/users", h.CreateUser)
	r.POST("/login", h.Login)
	r.GET("/me", middleware.AuthRequired(cfg.JWTSecret), h.Me)

	// everything below works signed in or anonymously
	g := r.Group("/")
	g.Use(middleware.OptionalAuth(cfg.JWTSecret))
	g.Use(middleware.DeviceID(cfg.DeviceCookieMaxAge, cfg.Env == "prod"))

	g.GET("/properties", h.ListProperties)
	g.GET("/properties/:id", h.GetProperty)
	g.POST("/properties/:id/overview", h.RequestOverview)
	g.GET("/jobs/:job_id", h.GetJob)

	g.POST("/chat/sessions", h.CreateChatSession)
	g.GET("/chat/sessions/:session_id/messages", h.ListChatMessages)
	g.POST("/chat/messages", h.SendChatMessage)
	g.POST("/chat/messages/stream", h.SendChatMessageStream)

	g.GET("/budget", h.GetBudget)
	return r
}
