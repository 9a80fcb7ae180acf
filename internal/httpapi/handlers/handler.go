package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/config"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/conversation"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/httpapi/middleware"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/intervention"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/messaging"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/notification"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/store/rabbitmq"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/store/redisstore"
)

type Handler struct {
	DB     *gorm.DB
	Cfg    config.Config
	Redis  *redisstore.Store
	Rabbit *rabbitmq.Publisher

	ConvRepo     *conversation.Repo
	Intervention *intervention.Service
	Delivery     *messaging.Router
	Notifier     *notification.Service
	Reaper       *intervention.Reaper
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, pub *rabbitmq.Publisher) *Handler {
	convRepo := conversation.NewRepo(db)

	channels := messaging.NewRegistry()
	channels.Register(messaging.PlatformWebsite, messaging.WebsiteChannel{})
	channels.Register(messaging.PlatformWhatsApp, messaging.WhatsAppChannel{
		Gateway: messaging.NewGatewayClient(cfg.WAGatewayBaseURL, cfg.WAGatewayToken),
	})
	router := messaging.NewRouter(convRepo, channels)

	return &Handler{
		DB:     db,
		Cfg:    cfg,
		Redis:  rds,
		Rabbit: pub,

		ConvRepo:     convRepo,
		Intervention: intervention.NewService(convRepo, router),
		Delivery:     router,
		Notifier:     notification.NewService(notification.NewRepo(db), convRepo, rds),
		Reaper:       intervention.NewReaper(convRepo, cfg.StaleThreshold),
	}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func userIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return "", false
	}
	uid, ok := v.(string)
	return uid, ok && uid != ""
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
}
