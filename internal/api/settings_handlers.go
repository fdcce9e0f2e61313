package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getAIPanel",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings/ai-panel",
		Summary:     "Get AI panel state",
		Description: "Returns whether the drawing board's AI panel is open",
		Tags:        []string{"Settings"},
	}, s.handleGetAIPanel)

	huma.Register(s.api, huma.Operation{
		OperationID: "setAIPanel",
		Method:      http.MethodPut,
		Path:        "/api/v1/settings/ai-panel",
		Summary:     "Set AI panel state",
		Tags:        []string{"Settings"},
	}, s.handleSetAIPanel)
}

// AIPanelBody is the AI panel state.
type AIPanelBody struct {
	Open bool `json:"open" doc:"Whether the panel is open"`
}

// AIPanelInput wraps the AI panel state for Huma.
type AIPanelInput struct {
	Body AIPanelBody
}

// AIPanelOutput wraps the AI panel state for Huma.
type AIPanelOutput struct {
	Body AIPanelBody
}

func (s *Server) handleGetAIPanel(ctx context.Context, _ *struct{}) (*AIPanelOutput, error) {
	open, err := s.services.Drawings.AIPanelOpen(ctx)
	if err != nil {
		if !isStorageFailure(err) {
			return nil, err
		}
		s.logger.Warn("reading AI panel state failed, assuming closed", "error", err)
	}
	return &AIPanelOutput{Body: AIPanelBody{Open: open}}, nil
}

func (s *Server) handleSetAIPanel(ctx context.Context, input *AIPanelInput) (*AIPanelOutput, error) {
	if err := s.services.Drawings.SetAIPanelOpen(ctx, input.Body.Open); err != nil {
		return nil, err
	}
	return &AIPanelOutput{Body: input.Body}, nil
}
