package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wavlang/backend/internal/application"
	"github.com/wavlang/backend/internal/container"
	handlers "github.com/wavlang/backend/internal/interface/http"
	"github.com/wavlang/backend/internal/interface/middleware"
)

// HistoryModule wires the transcription history routes, all protected.
type HistoryModule struct {
	Handler *handlers.HistoryHandler
	Auth    *application.AuthService
}

func NewHistoryModule(h *handlers.HistoryHandler, auth *application.AuthService) *HistoryModule {
	return &HistoryModule{Handler: h, Auth: auth}
}

func (m *HistoryModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Auth))
	auth.Use(middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/user/history", m.Handler.List)
		auth.GET("/history/search", m.Handler.Search)
	}
}
