package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/unicore-lms/aicore/internal/extract"
	"github.com/unicore-lms/aicore/internal/generation"
	"github.com/unicore-lms/aicore/internal/settings"
	"github.com/unicore-lms/aicore/internal/usage"
)

// actorHeader carries the requesting actor identity; the platform in
// front of this service sets it after its own authentication.
const actorHeader = "X-Actor-ID"

// GenerateHandler serves the three public generation operations.
type GenerateHandler struct {
	generator     *generation.Service
	settings      *settings.Service
	usage         *usage.Recorder
	documentsRoot string
}

// NewGenerateHandler constructs a GenerateHandler. Document extraction is
// confined to documentsRoot.
func NewGenerateHandler(generator *generation.Service, svc *settings.Service, recorder *usage.Recorder, documentsRoot string) *GenerateHandler {
	if abs, errAbs := filepath.Abs(strings.TrimSpace(documentsRoot)); errAbs == nil {
		documentsRoot = abs
	}
	return &GenerateHandler{generator: generator, settings: svc, usage: recorder, documentsRoot: documentsRoot}
}

// generateSourceRequest carries the shared source-text fields.
type generateSourceRequest struct {
	Text         string `json:"text"`          // Raw source text.
	DocumentPath string `json:"document_path"` // Server-side document to extract instead.
	DocumentID   uint64 `json:"document_id"`   // Subject id for artifact naming.
	SourceTitle  string `json:"source_title"`  // Display title for artifact metadata.
	Instructions string `json:"instructions"`  // Free-form caller instructions.
}

// resolveText returns the source text, extracting from the document
// when no raw text was supplied.
func (h *GenerateHandler) resolveText(c *gin.Context, req generateSourceRequest) (string, bool) {
	if text := strings.TrimSpace(req.Text); text != "" {
		return text, true
	}
	path := strings.TrimSpace(req.DocumentPath)
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text or document_path is required"})
		return "", false
	}
	absPath, okPath := h.confineDocumentPath(path)
	if !okPath {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document_path"})
		return "", false
	}
	text, errExtract := extract.Text(absPath)
	if errExtract != nil {
		if errors.Is(errExtract, extract.ErrUnsupportedFormat) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unsupported document format"})
			return "", false
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "text extraction failed"})
		return "", false
	}
	return text, true
}

// confineDocumentPath resolves a caller-supplied relative path inside the
// documents root and fails closed when it escapes.
func (h *GenerateHandler) confineDocumentPath(relPath string) (string, bool) {
	if h.documentsRoot == "" || filepath.IsAbs(relPath) {
		return "", false
	}
	for _, segment := range strings.Split(filepath.ToSlash(relPath), "/") {
		if segment == ".." {
			return "", false
		}
	}
	absPath, errAbs := filepath.Abs(filepath.Join(h.documentsRoot, relPath))
	if errAbs != nil {
		return "", false
	}
	if !strings.HasPrefix(absPath, h.documentsRoot+string(filepath.Separator)) {
		return "", false
	}
	return absPath, true
}

func actorFrom(c *gin.Context) (string, bool) {
	actor := strings.TrimSpace(c.GetHeader(actorHeader))
	if actor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + actorHeader + " header"})
		return "", false
	}
	return actor, true
}

// Summarize produces a summary of the supplied document or text.
func (h *GenerateHandler) Summarize(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var body struct {
		generateSourceRequest
		MaxWords int `json:"max_words"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	text, ok := h.resolveText(c, body.generateSourceRequest)
	if !ok {
		return
	}

	result, errSummarize := h.generator.Summarize(c.Request.Context(), generation.SummarizeRequest{
		Actor:        actor,
		DocumentID:   body.DocumentID,
		SourceTitle:  strings.TrimSpace(body.SourceTitle),
		Text:         text,
		MaxWords:     body.MaxWords,
		Instructions: body.Instructions,
	})
	if errSummarize != nil {
		writeGenerationError(c, errSummarize)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Questions produces a question list per the supplied matrix.
func (h *GenerateHandler) Questions(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var body struct {
		generateSourceRequest
		Matrix generation.QuestionMatrix `json:"matrix"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	text, ok := h.resolveText(c, body.generateSourceRequest)
	if !ok {
		return
	}

	result, errGenerate := h.generator.GenerateQuestions(c.Request.Context(), generation.QuestionsRequest{
		Actor:        actor,
		DocumentID:   body.DocumentID,
		SourceTitle:  strings.TrimSpace(body.SourceTitle),
		Text:         text,
		Matrix:       body.Matrix,
		Instructions: body.Instructions,
	})
	if errGenerate != nil {
		writeGenerationError(c, errGenerate)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Answer answers a free-form question over the supplied document.
func (h *GenerateHandler) Answer(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var body struct {
		generateSourceRequest
		Question string `json:"question"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	text, ok := h.resolveText(c, body.generateSourceRequest)
	if !ok {
		return
	}

	result, errAnswer := h.generator.AnswerQuestion(c.Request.Context(), generation.AnswerRequest{
		Actor:        actor,
		DocumentID:   body.DocumentID,
		Text:         text,
		Question:     body.Question,
		Instructions: body.Instructions,
	})
	if errAnswer != nil {
		writeGenerationError(c, errAnswer)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Limits reports the caller's remaining hourly quota for UI display.
func (h *GenerateHandler) Limits(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	cfg := h.settings.Generation(c.Request.Context())
	remaining, errRemaining := h.usage.Remaining(c.Request.Context(), actor, cfg.HourlyQuota)
	if errRemaining != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"actor":     actor,
		"quota":     cfg.HourlyQuota,
		"remaining": remaining,
		"allowed":   remaining > 0,
	})
}

// writeGenerationError maps the generation error taxonomy onto HTTP.
func writeGenerationError(c *gin.Context, err error) {
	var disabled *generation.DisabledError
	switch {
	case errors.As(err, &disabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service disabled", "message": disabled.Message})
	case errors.Is(err, generation.ErrRateLimitExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	case errors.Is(err, generation.ErrConfiguration):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generation misconfigured"})
	case errors.Is(err, generation.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream generation failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
