package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/storyloom/storyloom-server/internal/config"
	"github.com/storyloom/storyloom-server/internal/domain"
	"github.com/storyloom/storyloom-server/internal/service"
)

func (s *Server) registerInstanceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getInstance",
		Method:      http.MethodGet,
		Path:        "/api/v1/instance",
		Summary:     "Get server instance",
		Description: "Returns the settings a client needs to talk to this server",
		Tags:        []string{"Instance"},
	}, s.handleGetInstance)
}

// InstanceResponse describes this server to clients.
type InstanceResponse struct {
	Name            string   `json:"name" doc:"Server name"`
	Version         string   `json:"version" doc:"Server version"`
	APIBaseURL      string   `json:"apiBaseUrl" doc:"Base URL clients should use for API calls"`
	StorageBackend  string   `json:"storageBackend" doc:"Configured storage backend"`
	StorageKind     string   `json:"storageKind" doc:"Backend layout: memory, document or indexed"`
	SyncPolicy      string   `json:"syncPolicy" doc:"Write policy for collections"`
	AIProvider      string   `json:"aiProvider,omitempty" doc:"Chat provider, empty when disabled"`
	ChatModes       []string `json:"chatModes" doc:"Modes accepted by POST /api/chat"`
	SlideCategories []string `json:"slideCategories" doc:"Default slide categories"`
	TagCategories   []string `json:"tagCategories" doc:"Book tag categories"`
	CascadeDelete   bool     `json:"cascadeDelete" doc:"Whether deleting a slide clears its drawings"`
}

// InstanceOutput wraps the instance response for Huma.
type InstanceOutput struct {
	Body InstanceResponse
}

func (s *Server) handleGetInstance(_ context.Context, _ *struct{}) (*InstanceOutput, error) {
	resp := InstanceResponse{
		Name:            s.cfg.Server.Name,
		Version:         config.Version,
		APIBaseURL:      s.cfg.Server.PublicBaseURL,
		StorageBackend:  s.cfg.Storage.Backend,
		SyncPolicy:      s.cfg.Storage.SyncPolicy,
		SlideCategories: domain.DefaultSlideCategories,
		CascadeDelete:   s.cfg.Drawings.CascadeDelete,
	}
	if s.backend != nil {
		resp.StorageKind = string(s.backend.Kind())
	}
	if s.services != nil && s.services.Chat != nil {
		resp.AIProvider = s.cfg.AI.Provider
	}
	for _, m := range service.Modes {
		resp.ChatModes = append(resp.ChatModes, string(m))
	}
	for _, c := range domain.TagCategories {
		resp.TagCategories = append(resp.TagCategories, string(c))
	}

	return &InstanceOutput{Body: resp}, nil
}
