package server

import (
	"context"
	"embed"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"learnsphere/internal/content"
	"learnsphere/internal/core"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
)

//go:embed web/index.html
var webFS embed.FS

// generateRequest is the POST /generate body.
type generateRequest struct {
	Topic string
	Depth string
	Mode  string
}

func respondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

func (s *Server) index(c *gin.Context) {
	data, err := webFS.ReadFile("web/index.html")
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to load page")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

// decodeGenerateRequest rejects bodies that are missing, malformed or an empty
// object. A depth or mode that is not a string is left empty so it normalizes
// to its default.
func decodeGenerateRequest(c *gin.Context) (*generateRequest, bool) {
	body, err := c.GetRawData()
	if err != nil || len(strings.TrimSpace(string(body))) == 0 {
		return nil, false
	}
	var fields map[string]any
	if err := sonic.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		return nil, false
	}

	var req generateRequest
	switch topic := fields["topic"].(type) {
	case nil:
	case string:
		req.Topic = topic
	default:
		return nil, false
	}
	req.Depth, _ = fields["depth"].(string)
	req.Mode, _ = fields["mode"].(string)
	return &req, true
}

func (s *Server) generate(c *gin.Context) {
	startTime := time.Now()
	defer func() { s.metricsService.RecordHTTPRequest(time.Since(startTime)) }()

	req, ok := decodeGenerateRequest(c)
	if !ok {
		s.metricsService.RecordHTTPError()
		respondWithError(c, http.StatusBadRequest, "No JSON data provided")
		return
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		s.metricsService.RecordHTTPError()
		respondWithError(c, http.StatusBadRequest, "Topic is required")
		return
	}

	genReq := content.Request{
		Topic: topic,
		Depth: core.ParseDepth(req.Depth),
		Mode:  core.ParseMode(req.Mode),
	}

	// a started generation finishes even if the client goes away
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := s.generator.Generate(ctx, genReq)
	elapsed := time.Since(startTime).Milliseconds()
	if err != nil {
		kind := content.ErrorKind(err)
		s.config.Logger.Error("Generation failed (mode=%s, kind=%s): %v", genReq.Mode, kind, err)
		s.metricsService.RecordRequest(false, elapsed, "", string(genReq.Mode), kind)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":    false,
			"error":      err.Error(),
			"error_type": kind,
		})
		return
	}

	s.metricsService.RecordRequest(true, elapsed, result.Model, string(result.Mode), "")
	c.JSON(http.StatusOK, successPayload(result))
}

func successPayload(result *content.Result) gin.H {
	if result.Audio != nil {
		return gin.H{
			"success":      true,
			"text_content": result.Content,
			"audio_file":   result.Audio.URL,
			"filename":     result.Audio.Filename,
			"topic":        result.Topic,
			"depth":        result.Depth,
			"mode":         result.Mode,
			"message":      result.Message,
		}
	}

	payload := gin.H{
		"success": true,
		"content": result.Content,
		"topic":   result.Topic,
		"depth":   result.Depth,
		"mode":    result.Mode,
	}
	if result.Message != "" {
		payload["message"] = result.Message
	}
	return payload
}

func (s *Server) serveAudio(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("filename"), "/")
	if !content.SafeFilename(name) {
		respondWithError(c, http.StatusBadRequest, "Invalid filename")
		return
	}

	path, err := s.audio.Resolve(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			respondWithError(c, http.StatusNotFound, "Audio file not found")
			return
		}
		s.config.Logger.Error("Error serving audio %s: %v", name, err)
		respondWithError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.Header(core.HeaderContentType, core.ContentTypeAudioMP3)
	c.File(path)
}
