package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/storyloom/storyloom-server/internal/domain"
	"github.com/storyloom/storyloom-server/internal/repository"
)

const slidesPath = "/api/v1/categories/{category}/slides"

func (s *Server) registerSlideRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories",
		Summary:     "List categories",
		Description: "Returns the default categories plus every category with stored slides",
		Tags:        []string{"Slides"},
	}, s.handleListCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSlides",
		Method:      http.MethodGet,
		Path:        slidesPath,
		Summary:     "List slides",
		Description: "Returns the slides of a category, or a single placeholder when it has none",
		Tags:        []string{"Slides"},
	}, s.handleListSlides)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createSlide",
		Method:        http.MethodPost,
		Path:          slidesPath,
		Summary:       "Create slide",
		Description:   "Adds a slide with the five preset stages",
		Tags:          []string{"Slides"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateSlide)

	huma.Register(s.api, huma.Operation{
		OperationID: "replaceSlides",
		Method:      http.MethodPut,
		Path:        slidesPath,
		Summary:     "Replace slides",
		Description: "Overwrites every slide of a category; placeholders are dropped",
		Tags:        []string{"Slides"},
	}, s.handleReplaceSlides)

	huma.Register(s.api, huma.Operation{
		OperationID:   "clearSlides",
		Method:        http.MethodDelete,
		Path:          slidesPath,
		Summary:       "Clear slides",
		Description:   "Removes every slide of a category",
		Tags:          []string{"Slides"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleClearSlides)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSlide",
		Method:      http.MethodGet,
		Path:        slidesPath + "/{slideId}",
		Summary:     "Get slide",
		Tags:        []string{"Slides"},
	}, s.handleGetSlide)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSlide",
		Method:      http.MethodPatch,
		Path:        slidesPath + "/{slideId}",
		Summary:     "Update slide",
		Description: "Overwrites the supplied fields, leaving stages untouched",
		Tags:        []string{"Slides"},
	}, s.handleUpdateSlide)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteSlide",
		Method:        http.MethodDelete,
		Path:          slidesPath + "/{slideId}",
		Summary:       "Delete slide",
		Description:   "Removes a slide and, when cascade delete is on, its drawings",
		Tags:          []string{"Slides"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteSlide)

	huma.Register(s.api, huma.Operation{
		OperationID: "setSlideDrawing",
		Method:      http.MethodPut,
		Path:        slidesPath + "/{slideId}/drawing",
		Summary:     "Set slide drawing",
		Description: "Stores a drawing board snapshot on the slide",
		Tags:        []string{"Slides"},
	}, s.handleSetSlideDrawing)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addStage",
		Method:        http.MethodPost,
		Path:          slidesPath + "/{slideId}/stages",
		Summary:       "Add stage",
		Tags:          []string{"Slides"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddStage)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateStage",
		Method:      http.MethodPatch,
		Path:        slidesPath + "/{slideId}/stages/{stageId}",
		Summary:     "Update stage",
		Tags:        []string{"Slides"},
	}, s.handleUpdateStage)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteStage",
		Method:      http.MethodDelete,
		Path:        slidesPath + "/{slideId}/stages/{stageId}",
		Summary:     "Delete stage",
		Tags:        []string{"Slides"},
	}, s.handleDeleteStage)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addSubStage",
		Method:        http.MethodPost,
		Path:          slidesPath + "/{slideId}/stages/{stageId}/substages",
		Summary:       "Add sub-stage",
		Tags:          []string{"Slides"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddSubStage)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSubStage",
		Method:      http.MethodPatch,
		Path:        slidesPath + "/{slideId}/stages/{stageId}/substages/{subStageId}",
		Summary:     "Update sub-stage",
		Tags:        []string{"Slides"},
	}, s.handleUpdateSubStage)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteSubStage",
		Method:      http.MethodDelete,
		Path:        slidesPath + "/{slideId}/stages/{stageId}/substages/{subStageId}",
		Summary:     "Delete sub-stage",
		Tags:        []string{"Slides"},
	}, s.handleDeleteSubStage)
}

// === DTOs ===

// SubStageDocument is a sub-stage in a replace request.
type SubStageDocument struct {
	ID         string `json:"id,omitempty" doc:"Sub-stage ID; assigned when omitted"`
	Title      string `json:"title,omitempty" doc:"Title"`
	CoverImage string `json:"coverImage,omitempty" doc:"Cover image"`
}

// StageDocument is a stage in a replace request.
type StageDocument struct {
	ID          string             `json:"id,omitempty" doc:"Stage ID; assigned when omitted"`
	Title       string             `json:"title,omitempty" doc:"Title"`
	Description string             `json:"description,omitempty" doc:"Description"`
	CoverImage  string             `json:"coverImage,omitempty" doc:"Cover image"`
	SubStages   []SubStageDocument `json:"subStages,omitempty" doc:"Sub-stages in order"`
}

// SlideDocument is a whole slide tree in a replace request.
type SlideDocument struct {
	ID          string          `json:"id,omitempty" doc:"Slide ID; assigned when omitted"`
	Title       string          `json:"title,omitempty" doc:"Title"`
	Description string          `json:"description,omitempty" doc:"Description"`
	CoverImage  string          `json:"coverImage,omitempty" doc:"Cover image"`
	ImageURL    string          `json:"imageUrl,omitempty" doc:"Image URL"`
	Drawing     string          `json:"drawing,omitempty" doc:"Drawing snapshot"`
	Children    []StageDocument `json:"children,omitempty" doc:"Stages in order"`
	Placeholder bool            `json:"placeholder,omitempty" doc:"Placeholder slides are dropped"`
}

func (d SlideDocument) toDomain() domain.Slide {
	slide := domain.Slide{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		CoverImage:  d.CoverImage,
		ImageURL:    d.ImageURL,
		Drawing:     d.Drawing,
		Placeholder: d.Placeholder,
		Children:    make([]domain.Stage, 0, len(d.Children)),
	}
	for _, st := range d.Children {
		stage := domain.Stage{
			ID:          st.ID,
			Title:       st.Title,
			Description: st.Description,
			CoverImage:  st.CoverImage,
			SubStages:   make([]domain.SubStage, 0, len(st.SubStages)),
		}
		for _, ss := range st.SubStages {
			stage.SubStages = append(stage.SubStages, domain.SubStage{
				ID:         ss.ID,
				Title:      ss.Title,
				CoverImage: ss.CoverImage,
			})
		}
		slide.Children = append(slide.Children, stage)
	}
	return slide
}

// CategoryInput identifies a slide category.
type CategoryInput struct {
	Category string `path:"category" doc:"Slide category"`
}

// SlideRefInput identifies one slide.
type SlideRefInput struct {
	Category string `path:"category" doc:"Slide category"`
	SlideID  string `path:"slideId" doc:"Slide ID"`
}

// StageRefInput identifies one stage.
type StageRefInput struct {
	Category string `path:"category" doc:"Slide category"`
	SlideID  string `path:"slideId" doc:"Slide ID"`
	StageID  string `path:"stageId" doc:"Stage ID"`
}

// SubStageRefInput identifies one sub-stage.
type SubStageRefInput struct {
	Category   string `path:"category" doc:"Slide category"`
	SlideID    string `path:"slideId" doc:"Slide ID"`
	StageID    string `path:"stageId" doc:"Stage ID"`
	SubStageID string `path:"subStageId" doc:"Sub-stage ID"`
}

// CategoriesResponse lists slide categories.
type CategoriesResponse struct {
	Categories []string `json:"categories" doc:"Category names, sorted"`
}

// CategoriesOutput wraps the categories response for Huma.
type CategoriesOutput struct {
	Body CategoriesResponse
}

// SlideListResponse contains the slides of a category.
type SlideListResponse struct {
	Category string         `json:"category" doc:"Normalized category name"`
	Slides   []domain.Slide `json:"slides" doc:"Slides in order"`
	Degraded bool           `json:"degraded,omitempty" doc:"Set when storage failed"`
}

// SlideListOutput wraps the slide list for Huma.
type SlideListOutput struct {
	Body SlideListResponse
}

// SlideOutput wraps one slide for Huma.
type SlideOutput struct {
	Body domain.Slide
}

// CreateSlideRequest is the body for creating a slide.
type CreateSlideRequest struct {
	Title       string `json:"title" doc:"Title"`
	Description string `json:"description,omitempty" doc:"Description"`
	CoverImage  string `json:"coverImage,omitempty" doc:"Cover image; a premade cover is picked when omitted"`
	ImageURL    string `json:"imageUrl,omitempty" doc:"Image URL"`
}

// CreateSlideInput wraps the create request for Huma.
type CreateSlideInput struct {
	Category string `path:"category" doc:"Slide category"`
	Body     CreateSlideRequest
}

// ReplaceSlidesRequest is the body for replacing a category.
type ReplaceSlidesRequest struct {
	Slides []SlideDocument `json:"slides" doc:"The complete category, in order"`
}

// ReplaceSlidesInput wraps the replace request for Huma.
type ReplaceSlidesInput struct {
	Category string `path:"category" doc:"Slide category"`
	Body     ReplaceSlidesRequest
}

// UpdateSlideRequest lists slide fields to overwrite.
type UpdateSlideRequest struct {
	Title       *string `json:"title,omitempty" doc:"Title"`
	Description *string `json:"description,omitempty" doc:"Description"`
	CoverImage  *string `json:"coverImage,omitempty" doc:"Cover image"`
	ImageURL    *string `json:"imageUrl,omitempty" doc:"Image URL"`
}

// UpdateSlideInput wraps the update request for Huma.
type UpdateSlideInput struct {
	Category string `path:"category" doc:"Slide category"`
	SlideID  string `path:"slideId" doc:"Slide ID"`
	Body     UpdateSlideRequest
}

// SetDrawingRequest carries a drawing snapshot.
type SetDrawingRequest struct {
	Drawing string `json:"drawing" doc:"Drawing as a data URL; empty clears it"`
}

// SetDrawingInput wraps the drawing request for Huma.
type SetDrawingInput struct {
	Category string `path:"category" doc:"Slide category"`
	SlideID  string `path:"slideId" doc:"Slide ID"`
	Body     SetDrawingRequest
}

// TitleRequest carries the title of a new stage or sub-stage.
type TitleRequest struct {
	Title string `json:"title" doc:"Title"`
}

// AddStageInput wraps the add stage request for Huma.
type AddStageInput struct {
	Category string `path:"category" doc:"Slide category"`
	SlideID  string `path:"slideId" doc:"Slide ID"`
	Body     TitleRequest
}

// StageCreatedResponse returns the new stage and its slide.
type StageCreatedResponse struct {
	Slide domain.Slide `json:"slide" doc:"The updated slide"`
	Stage domain.Stage `json:"stage" doc:"The new stage"`
}

// StageCreatedOutput wraps the new stage for Huma.
type StageCreatedOutput struct {
	Body StageCreatedResponse
}

// UpdateStageRequest lists stage fields to overwrite.
type UpdateStageRequest struct {
	Title       *string `json:"title,omitempty" doc:"Title"`
	Description *string `json:"description,omitempty" doc:"Description"`
	CoverImage  *string `json:"coverImage,omitempty" doc:"Cover image"`
}

// UpdateStageInput wraps the stage update for Huma.
type UpdateStageInput struct {
	Category string `path:"category" doc:"Slide category"`
	SlideID  string `path:"slideId" doc:"Slide ID"`
	StageID  string `path:"stageId" doc:"Stage ID"`
	Body     UpdateStageRequest
}

// AddSubStageInput wraps the add sub-stage request for Huma.
type AddSubStageInput struct {
	Category string `path:"category" doc:"Slide category"`
	SlideID  string `path:"slideId" doc:"Slide ID"`
	StageID  string `path:"stageId" doc:"Stage ID"`
	Body     TitleRequest
}

// SubStageCreatedResponse returns the new sub-stage and its slide.
type SubStageCreatedResponse struct {
	Slide    domain.Slide    `json:"slide" doc:"The updated slide"`
	SubStage domain.SubStage `json:"subStage" doc:"The new sub-stage"`
}

// SubStageCreatedOutput wraps the new sub-stage for Huma.
type SubStageCreatedOutput struct {
	Body SubStageCreatedResponse
}

// UpdateSubStageRequest lists sub-stage fields to overwrite.
type UpdateSubStageRequest struct {
	Title      *string `json:"title,omitempty" doc:"Title"`
	CoverImage *string `json:"coverImage,omitempty" doc:"Cover image"`
}

// UpdateSubStageInput wraps the sub-stage update for Huma.
type UpdateSubStageInput struct {
	Category   string `path:"category" doc:"Slide category"`
	SlideID    string `path:"slideId" doc:"Slide ID"`
	StageID    string `path:"stageId" doc:"Stage ID"`
	SubStageID string `path:"subStageId" doc:"Sub-stage ID"`
	Body       UpdateSubStageRequest
}

// === Handlers ===

func (s *Server) handleListCategories(ctx context.Context, _ *struct{}) (*CategoriesOutput, error) {
	categories, err := s.services.Slides.Categories(ctx)
	if err != nil {
		if !isStorageFailure(err) {
			return nil, err
		}
		s.logger.Warn("listing stored categories failed, returning defaults", "error", err)
		categories = domain.DefaultSlideCategories
	}
	return &CategoriesOutput{Body: CategoriesResponse{Categories: categories}}, nil
}

func (s *Server) handleListSlides(ctx context.Context, input *CategoryInput) (*SlideListOutput, error) {
	slides, err := s.services.Slides.Load(ctx, input.Category)
	if err != nil && !isStorageFailure(err) {
		return nil, err
	}
	category, _ := domain.NormalizeSlideCategory(input.Category)
	return &SlideListOutput{Body: SlideListResponse{
		Category: category,
		Slides:   slides,
		Degraded: err != nil,
	}}, nil
}

func (s *Server) handleCreateSlide(ctx context.Context, input *CreateSlideInput) (*SlideOutput, error) {
	slide, err := s.services.Slides.Create(ctx, input.Category, repository.SlideInput{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		CoverImage:  input.Body.CoverImage,
		ImageURL:    input.Body.ImageURL,
	})
	if err != nil {
		return nil, err
	}
	return &SlideOutput{Body: slide}, nil
}

func (s *Server) handleReplaceSlides(ctx context.Context, input *ReplaceSlidesInput) (*SlideListOutput, error) {
	slides := make([]domain.Slide, 0, len(input.Body.Slides))
	for _, d := range input.Body.Slides {
		slides = append(slides, d.toDomain())
	}

	saved, err := s.services.Slides.ReplaceCategory(ctx, input.Category, slides)
	if err != nil {
		return nil, err
	}
	category, _ := domain.NormalizeSlideCategory(input.Category)
	return &SlideListOutput{Body: SlideListResponse{Category: category, Slides: saved}}, nil
}

func (s *Server) handleClearSlides(ctx context.Context, input *CategoryInput) (*struct{}, error) {
	return nil, s.services.Slides.ClearCategory(ctx, input.Category)
}

func (s *Server) handleGetSlide(ctx context.Context, input *SlideRefInput) (*SlideOutput, error) {
	slide, err := s.services.Slides.Get(ctx, input.Category, input.SlideID)
	if err != nil {
		return nil, err
	}
	return &SlideOutput{Body: slide}, nil
}

func (s *Server) handleUpdateSlide(ctx context.Context, input *UpdateSlideInput) (*SlideOutput, error) {
	slide, err := s.services.Slides.UpdateSlide(ctx, input.Category, input.SlideID, repository.SlidePatch{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		CoverImage:  input.Body.CoverImage,
		ImageURL:    input.Body.ImageURL,
	})
	if err != nil {
		return nil, err
	}
	return &SlideOutput{Body: slide}, nil
}

func (s *Server) handleDeleteSlide(ctx context.Context, input *SlideRefInput) (*struct{}, error) {
	if err := s.services.Slides.DeleteSlide(ctx, input.Category, input.SlideID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleSetSlideDrawing(ctx context.Context, input *SetDrawingInput) (*SlideOutput, error) {
	if err := checkImage(input.Body.Drawing, "drawing", true); err != nil {
		return nil, err
	}

	slide, err := s.services.Slides.SetDrawing(ctx, input.Category, input.SlideID, input.Body.Drawing)
	if err != nil {
		return nil, err
	}
	return &SlideOutput{Body: slide}, nil
}

func (s *Server) handleAddStage(ctx context.Context, input *AddStageInput) (*StageCreatedOutput, error) {
	slide, stage, err := s.services.Slides.AddStage(ctx, input.Category, input.SlideID, input.Body.Title)
	if err != nil {
		return nil, err
	}
	return &StageCreatedOutput{Body: StageCreatedResponse{Slide: slide, Stage: stage}}, nil
}

func (s *Server) handleUpdateStage(ctx context.Context, input *UpdateStageInput) (*SlideOutput, error) {
	slide, err := s.services.Slides.UpdateStage(ctx, input.Category, input.SlideID, input.StageID, repository.StagePatch{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		CoverImage:  input.Body.CoverImage,
	})
	if err != nil {
		return nil, err
	}
	return &SlideOutput{Body: slide}, nil
}

func (s *Server) handleDeleteStage(ctx context.Context, input *StageRefInput) (*SlideOutput, error) {
	slide, err := s.services.Slides.DeleteStage(ctx, input.Category, input.SlideID, input.StageID)
	if err != nil {
		return nil, err
	}
	return &SlideOutput{Body: slide}, nil
}

func (s *Server) handleAddSubStage(ctx context.Context, input *AddSubStageInput) (*SubStageCreatedOutput, error) {
	slide, sub, err := s.services.Slides.AddSubStage(ctx, input.Category, input.SlideID, input.StageID, input.Body.Title)
	if err != nil {
		return nil, err
	}
	return &SubStageCreatedOutput{Body: SubStageCreatedResponse{Slide: slide, SubStage: sub}}, nil
}

func (s *Server) handleUpdateSubStage(ctx context.Context, input *UpdateSubStageInput) (*SlideOutput, error) {
	slide, err := s.services.Slides.UpdateSubStage(ctx, input.Category, input.SlideID, input.StageID, input.SubStageID, repository.SubStagePatch{
		Title:      input.Body.Title,
		CoverImage: input.Body.CoverImage,
	})
	if err != nil {
		return nil, err
	}
	return &SlideOutput{Body: slide}, nil
}

func (s *Server) handleDeleteSubStage(ctx context.Context, input *SubStageRefInput) (*SlideOutput, error) {
	slide, err := s.services.Slides.DeleteSubStage(ctx, input.Category, input.SlideID, input.StageID, input.SubStageID)
	if err != nil {
		return nil, err
	}
	return &SlideOutput{Body: slide}, nil
}
