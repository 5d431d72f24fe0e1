package front

import (
	"github.com/gin-gonic/gin"

	"github.com/unicore-lms/aicore/internal/generation"
	handlers "github.com/unicore-lms/aicore/internal/http/api/front/handlers"
	"github.com/unicore-lms/aicore/internal/settings"
	"github.com/unicore-lms/aicore/internal/usage"
)

// RegisterFrontRoutes registers the generation endpoints used by the
// platform in front of this service. Document extraction is confined to
// documentsRoot.
func RegisterFrontRoutes(r *gin.Engine, generator *generation.Service, svc *settings.Service, recorder *usage.Recorder, documentsRoot string) {
	if r == nil || generator == nil {
		return
	}
	generateHandler := handlers.NewGenerateHandler(generator, svc, recorder, documentsRoot)
	group := r.Group("/v1/generate")
	group.POST("/summary", generateHandler.Summarize)
	group.POST("/questions", generateHandler.Questions)
	group.POST("/answer", generateHandler.Answer)
	group.GET("/limits", generateHandler.Limits)
}
