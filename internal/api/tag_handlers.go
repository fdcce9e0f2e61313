package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/storyloom/storyloom-server/internal/color"
	"github.com/storyloom/storyloom-server/internal/domain"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "addBookTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/tags",
		Summary:     "Add tag",
		Description: "Appends a tag to one of the book's categories",
		Tags:        []string{"Tags"},
	}, s.handleAddBookTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeBookTag",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}/tags/{category}/{name}",
		Summary:     "Remove tag",
		Description: "Removes every tag with the name from the category",
		Tags:        []string{"Tags"},
	}, s.handleRemoveBookTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "tagColor",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/color",
		Summary:     "Tag color",
		Description: "Returns the color derived from a tag name",
		Tags:        []string{"Tags"},
	}, s.handleTagColor)
}

// === DTOs ===

// AddTagRequest is the body for adding a tag.
type AddTagRequest struct {
	Category string `json:"category" validate:"tagcategory" doc:"Tag category"`
	Name     string `json:"name" minLength:"1" doc:"Tag name"`
}

// AddTagInput wraps the add tag request for Huma.
type AddTagInput struct {
	ID   int64 `path:"id" doc:"Book ID"`
	Body AddTagRequest
}

// RemoveTagInput identifies a tag to remove.
type RemoveTagInput struct {
	ID       int64  `path:"id" doc:"Book ID"`
	Category string `path:"category" validate:"tagcategory" doc:"Tag category"`
	Name     string `path:"name" doc:"Tag name"`
}

// TagColorInput contains the tag name to color.
type TagColorInput struct {
	Name string `query:"name" doc:"Tag name"`
}

// TagColorResponse is a derived tag color.
type TagColorResponse struct {
	Name  string `json:"name" doc:"Tag name"`
	Color string `json:"color" doc:"CSS hsl() color"`
	Hue   int    `json:"hue" doc:"Hue in degrees"`
}

// TagColorOutput wraps the tag color response for Huma.
type TagColorOutput struct {
	Body TagColorResponse
}

// === Handlers ===

func (s *Server) handleAddBookTag(ctx context.Context, input *AddTagInput) (*BookOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	category, _ := domain.ParseTagCategory(input.Body.Category)

	book, err := s.services.Books.AddTag(ctx, input.ID, category, input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleRemoveBookTag(ctx context.Context, input *RemoveTagInput) (*BookOutput, error) {
	if err := s.validator.Var("category", input.Category, "tagcategory"); err != nil {
		return nil, err
	}
	category, _ := domain.ParseTagCategory(input.Category)

	book, err := s.services.Books.RemoveTag(ctx, input.ID, category, pathParam(input.Name))
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleTagColor(_ context.Context, input *TagColorInput) (*TagColorOutput, error) {
	return &TagColorOutput{
		Body: TagColorResponse{
			Name:  input.Name,
			Color: color.ForTag(input.Name),
			Hue:   color.Hue(input.Name),
		},
	}, nil
}
