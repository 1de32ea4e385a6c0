package handler

import (
	"net/http"
	"time"

	"github.com/dskvich/ai-chat-server/pkg/ai"
	"github.com/dskvich/ai-chat-server/pkg/api/response"
)

type EngineModeProvider interface {
	Mode() ai.Mode
}

type health struct {
	engine EngineModeProvider
	writer response.JSONResponseWriter
}

func NewHealth(engine EngineModeProvider) *health {
	return &health{engine: engine}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	AIEngine  string    `json:"ai_engine"`
}

func (h *health) Check(w http.ResponseWriter, r *http.Request) {
	h.writer.WriteSuccessResponse(w, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		AIEngine:  string(h.engine.Mode()),
	})
}
