package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/config"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/httpapi/handlers"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/httpapi/middleware"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/store/rabbitmq"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/store/redisstore"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, pub *rabbitmq.Publisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"success": false, "error": "method not allowed"})
	})

	h := handlers.NewHandler(db, cfg, rds, pub)

	r.GET("/ping", h.Ping)

	// agent accounts
	r.POST("/agents", h.CreateAgent)
	r.POST("/login", h.Login)

	// inbound messages from the gateway / website widget
	r.POST("/webhook/inbound", h.InboundWebhook)

	// privileged scheduler entrypoints
	cron := r.Group("/cron")
	cron.Use(middleware.CronAuth(cfg.CronSecret))
	cron.GET("/auto-disable-intervention", h.CronAutoDisableStale)
	cron.POST("/auto-disable-intervention", h.CronAutoDisableStale)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))

	authGroup.GET("/conversations/poll", h.PollConversations)
	authGroup.GET("/conversations/auto-disable-stale", h.AutoDisableStale)
	authGroup.POST("/conversations/:id/intervention", h.PostIntervention)
	authGroup.GET("/conversations/:id/intervention", h.GetIntervention)
	authGroup.POST("/conversations/:id/send-message", h.SendMessage)
	authGroup.POST("/conversations/:id/mark-read", h.MarkConversationRead)

	authGroup.GET("/notifications", h.ListNotifications)
	authGroup.POST("/notifications", h.CreateNotification)
	authGroup.POST("/notifications/:id/mark-read", h.MarkNotificationRead)
	// mark-all-for-conversation variant; :id is the conversation id here
	authGroup.PUT("/notifications/:id/mark-read", h.MarkConversationNotificationsRead)

	return r
}
