package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wavlang/backend/internal/application"
	"github.com/wavlang/backend/internal/container"
	handlers "github.com/wavlang/backend/internal/interface/http"
	"github.com/wavlang/backend/internal/interface/middleware"
)

// TranscribeModule wires the audio transcription proxy routes. Uploads are
// allowed anonymously; a session only adds history recording. The limits
// are tight because every request fans out to a paid provider.
type TranscribeModule struct {
	Handler *handlers.TranscribeHandler
	Auth    *application.AuthService
}

func NewTranscribeModule(h *handlers.TranscribeHandler, auth *application.AuthService) *TranscribeModule {
	return &TranscribeModule{Handler: h, Auth: auth}
}

func (m *TranscribeModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	uploadLimiter := middleware.RateLimit(rdb, 6, time.Minute, middleware.KeyByIPAndPath(), nil)

	grp := rg.Group("/")
	grp.Use(uploadLimiter, middleware.OptionalAuth(m.Auth))
	{
		grp.POST("/transcribe_assemblyai", m.Handler.TranscribeAssemblyAI)
		grp.POST("/transcribe_file", m.Handler.TranscribeFile)
	}
}
