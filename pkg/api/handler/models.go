package handler

import (
	"net/http"

	"github.com/dskvich/ai-chat-server/pkg/api/response"
	"github.com/dskvich/ai-chat-server/pkg/domain"
)

type models struct {
	writer response.JSONResponseWriter
}

func NewModels() *models {
	return &models{}
}

// List serves the static model catalog.
func (m *models) List(w http.ResponseWriter, r *http.Request) {
	m.writer.WriteSuccessResponse(w, map[string][]domain.Model{
		"models": domain.SupportedModels,
	})
}
