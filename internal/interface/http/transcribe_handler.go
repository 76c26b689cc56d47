package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wavlang/backend/internal/application"
	"github.com/wavlang/backend/internal/domain/entity"
	"github.com/wavlang/backend/internal/interface/middleware"
	"github.com/wavlang/backend/pkg/response"
	"github.com/wavlang/backend/pkg/transcribe"
)

// uploads are buffered in memory before forwarding upstream
const maxAudioBytes = 50 << 20

// TranscribeHandler proxies audio uploads to the transcription providers.
// History recording is best-effort and only happens for authenticated
// callers.
type TranscribeHandler struct {
	AssemblyAI *transcribe.AssemblyAIClient
	Whisper    *transcribe.WhisperClient
	History    *application.HistoryService
	Logger     *logrus.Logger
}

func NewTranscribeHandler(aai *transcribe.AssemblyAIClient, whisper *transcribe.WhisperClient, history *application.HistoryService, logger *logrus.Logger) *TranscribeHandler {
	return &TranscribeHandler{AssemblyAI: aai, Whisper: whisper, History: history, Logger: logger}
}

// TranscribeAssemblyAI handles POST /transcribe_assemblyai (multipart field "audioFile").
func (h *TranscribeHandler) TranscribeAssemblyAI(c *gin.Context) {
	data, fileName, ok := readUpload(c, "audioFile")
	if !ok {
		return
	}
	// the client is optional at startup; without a key the route stays up
	// but refuses work
	if h.AssemblyAI == nil {
		writeDomainError(c, h.Logger, application.ErrProviderUnavailable)
		return
	}

	result, err := h.AssemblyAI.Transcribe(c.Request.Context(), bytes.NewReader(data))
	if err != nil {
		h.upstreamError(c, "assemblyai", err)
		return
	}

	h.recordHistory(c, "assemblyai", fileName, result.Text, data)
	c.JSON(http.StatusOK, gin.H{"transcriptionResult": result.Text})
}

// TranscribeFile handles POST /transcribe_file (multipart "file" +
// startTime/endTime as mm:ss). No transcoding happens here; the clip window
// travels as prompt metadata for the provider.
func (h *TranscribeHandler) TranscribeFile(c *gin.Context) {
	start, err := ParseClockTime(c.PostForm("startTime"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid startTime: "+err.Error(), nil)
		return
	}
	end, err := ParseClockTime(c.PostForm("endTime"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid endTime: "+err.Error(), nil)
		return
	}
	if end <= start {
		response.Error(c, http.StatusBadRequest, "endTime must be after startTime", nil)
		return
	}

	data, fileName, ok := readUpload(c, "file")
	if !ok {
		return
	}
	if h.Whisper == nil {
		writeDomainError(c, h.Logger, application.ErrProviderUnavailable)
		return
	}

	text, err := h.Whisper.Transcribe(c.Request.Context(), transcribe.TranscribeRequest{
		Audio:    bytes.NewReader(data),
		FileName: fileName,
		Prompt:   fmt.Sprintf("clip %s to %s", formatClockTime(start), formatClockTime(end)),
	})
	if err != nil {
		h.upstreamError(c, "whisper", err)
		return
	}

	h.recordHistory(c, "whisper", fileName, text, data)
	c.JSON(http.StatusOK, gin.H{"transcription": text})
}

func readUpload(c *gin.Context, field string) ([]byte, string, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "missing "+field+" upload", nil)
		return nil, "", false
	}
	if fh.Size > maxAudioBytes {
		response.Error(c, http.StatusBadRequest, "file too large", nil)
		return nil, "", false
	}
	f, err := fh.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "unreadable upload", nil)
		return nil, "", false
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxAudioBytes+1))
	if err != nil || int64(len(data)) > maxAudioBytes {
		response.Error(c, http.StatusBadRequest, "unreadable upload", nil)
		return nil, "", false
	}
	return data, fh.Filename, true
}

func (h *TranscribeHandler) upstreamError(c *gin.Context, provider string, err error) {
	if h.Logger != nil {
		h.Logger.WithError(err).WithField("provider", provider).Error("transcription failed")
	}
	response.Error(c, http.StatusBadGateway, "transcription provider failure", nil)
}

func (h *TranscribeHandler) recordHistory(c *gin.Context, provider, fileName, transcript string, audio []byte) {
	if h.History == nil {
		return
	}
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		return
	}
	rec := &entity.TranscriptionRecord{
		UserID:     userID,
		Provider:   provider,
		FileName:   fileName,
		Transcript: transcript,
	}
	if err := h.History.Record(c.Request.Context(), rec, bytes.NewReader(audio), "audio/mpeg"); err != nil && h.Logger != nil {
		h.Logger.WithError(err).WithField("provider", provider).Warn("history record failed")
	}
}

// ParseClockTime parses an mm:ss clock string into whole seconds. Minutes
// may exceed 59; seconds may not.
func ParseClockTime(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected mm:ss, got %q", s)
	}
	mins, err := strconv.Atoi(parts[0])
	if err != nil || mins < 0 {
		return 0, fmt.Errorf("bad minutes in %q", s)
	}
	secs, err := strconv.Atoi(parts[1])
	if err != nil || secs < 0 || secs > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("bad seconds in %q", s)
	}
	return mins*60 + secs, nil
}

func formatClockTime(totalSeconds int) string {
	return fmt.Sprintf("%02d:%02d", totalSeconds/60, totalSeconds%60)
}
