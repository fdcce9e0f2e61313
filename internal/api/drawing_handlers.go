package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
	"github.com/storyloom/storyloom-server/internal/history"
	"github.com/storyloom/storyloom-server/internal/media"
	"github.com/storyloom/storyloom-server/internal/repository"
)

const drawingPath = "/api/v1/drawings/{category}/{slide}"

func (s *Server) registerDrawingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getDrawing",
		Method:      http.MethodGet,
		Path:        drawingPath,
		Summary:     "Get drawing",
		Description: "Returns everything saved on a slide's drawing board",
		Tags:        []string{"Drawings"},
	}, s.handleGetDrawing)

	huma.Register(s.api, huma.Operation{
		OperationID:   "clearDrawing",
		Method:        http.MethodDelete,
		Path:          drawingPath,
		Summary:       "Clear drawing",
		Description:   "Removes the canvas, AI image, prompt and palette in one write. The gallery is kept",
		Tags:          []string{"Drawings"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleClearDrawing)

	huma.Register(s.api, huma.Operation{
		OperationID:   "saveCanvas",
		Method:        http.MethodPut,
		Path:          drawingPath + "/canvas",
		Summary:       "Save canvas",
		Tags:          []string{"Drawings"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleSaveCanvas)

	huma.Register(s.api, huma.Operation{
		OperationID:   "saveAIImage",
		Method:        http.MethodPut,
		Path:          drawingPath + "/ai-image",
		Summary:       "Save AI image",
		Tags:          []string{"Drawings"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleSaveAIImage)

	huma.Register(s.api, huma.Operation{
		OperationID:   "savePrompt",
		Method:        http.MethodPut,
		Path:          drawingPath + "/prompt",
		Summary:       "Save prompt",
		Tags:          []string{"Drawings"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleSavePrompt)

	huma.Register(s.api, huma.Operation{
		OperationID:   "savePalette",
		Method:        http.MethodPut,
		Path:          drawingPath + "/palette",
		Summary:       "Save palette",
		Tags:          []string{"Drawings"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleSavePalette)

	huma.Register(s.api, huma.Operation{
		OperationID: "generatePalette",
		Method:      http.MethodPost,
		Path:        drawingPath + "/palette/generate",
		Summary:     "Generate palette",
		Description: "Stores and returns five harmonious colors around a random hue",
		Tags:        []string{"Drawings"},
	}, s.handleGeneratePalette)

	huma.Register(s.api, huma.Operation{
		OperationID:   "clearAI",
		Method:        http.MethodDelete,
		Path:          drawingPath + "/ai",
		Summary:       "Clear AI image and prompt",
		Tags:          []string{"Drawings"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleClearAI)

	huma.Register(s.api, huma.Operation{
		OperationID: "getGallery",
		Method:      http.MethodGet,
		Path:        drawingPath + "/gallery",
		Summary:     "Get gallery",
		Tags:        []string{"Drawings"},
	}, s.handleGetGallery)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addToGallery",
		Method:        http.MethodPost,
		Path:          drawingPath + "/gallery",
		Summary:       "Add to gallery",
		Tags:          []string{"Drawings"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddToGallery)

	huma.Register(s.api, huma.Operation{
		OperationID: "pushHistory",
		Method:      http.MethodPost,
		Path:        drawingPath + "/history",
		Summary:     "Record undo step",
		Description: "Pushes a canvas snapshot onto this tab's undo history",
		Tags:        []string{"Drawings"},
	}, s.handlePushHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "undoDrawing",
		Method:      http.MethodPost,
		Path:        drawingPath + "/undo",
		Summary:     "Undo",
		Tags:        []string{"Drawings"},
	}, s.handleUndo)

	huma.Register(s.api, huma.Operation{
		OperationID: "redoDrawing",
		Method:      http.MethodPost,
		Path:        drawingPath + "/redo",
		Summary:     "Redo",
		Tags:        []string{"Drawings"},
	}, s.handleRedo)
}

// === DTOs ===

// DrawingRefInput identifies a slide's drawing board.
type DrawingRefInput struct {
	Category string `path:"category" doc:"Slide category"`
	Slide    string `path:"slide" doc:"Slide ID or title"`
}

func (in DrawingRefInput) key() (repository.DrawingKey, error) {
	k := repository.DrawingKey{Category: pathParam(in.Category), Slide: pathParam(in.Slide)}
	if !k.Valid() {
		return k, domainerrors.Validation("category and slide are required")
	}
	return k, nil
}

// DrawingResponse is a slide's drawing board.
type DrawingResponse struct {
	Key        string      `json:"key" doc:"Normalized drawing key"`
	Canvas     string      `json:"canvas,omitempty" doc:"Canvas raster as a data URL"`
	CanvasInfo *media.Info `json:"canvasInfo,omitempty" doc:"Dimensions and preview hash of the canvas"`
	AIImage    string      `json:"aiImage,omitempty" doc:"AI reference image"`
	Prompt     string      `json:"prompt,omitempty" doc:"Last image prompt"`
	Palette    []string    `json:"palette,omitempty" doc:"Saved colors"`
}

// DrawingOutput wraps the drawing for Huma.
type DrawingOutput struct {
	Body DrawingResponse
}

// ImageRequest carries one image.
type ImageRequest struct {
	Image string `json:"image" doc:"Image as a data URL; the AI image may also be a URL"`
}

// ImageInput wraps an image request for Huma.
type ImageInput struct {
	DrawingRefInput
	Body ImageRequest
}

// PromptRequest carries an image prompt.
type PromptRequest struct {
	Prompt string `json:"prompt" doc:"Image prompt"`
}

// PromptInput wraps a prompt request for Huma.
type PromptInput struct {
	DrawingRefInput
	Body PromptRequest
}

// PaletteRequest carries a color palette.
type PaletteRequest struct {
	Palette []string `json:"palette" maxItems:"32" doc:"CSS colors"`
}

// PaletteInput wraps a palette request for Huma.
type PaletteInput struct {
	DrawingRefInput
	Body PaletteRequest
}

// PaletteOutput wraps a generated palette for Huma.
type PaletteOutput struct {
	Body PaletteRequest
}

// GalleryResponse lists saved snapshots.
type GalleryResponse struct {
	Images []string `json:"images" doc:"Snapshots, oldest first"`
	Count  int      `json:"count" doc:"Number of snapshots"`
}

// GalleryOutput wraps the gallery for Huma.
type GalleryOutput struct {
	Body GalleryResponse
}

// GalleryCountResponse reports the gallery size after an append.
type GalleryCountResponse struct {
	Count int `json:"count" doc:"Number of snapshots"`
}

// GalleryCountOutput wraps the gallery size for Huma.
type GalleryCountOutput struct {
	Body GalleryCountResponse
}

// HistoryPushRequest carries a snapshot to record.
type HistoryPushRequest struct {
	Snapshot string `json:"snapshot" doc:"Canvas state before the change"`
}

// HistoryPushInput wraps a history push for Huma.
type HistoryPushInput struct {
	DrawingRefInput
	Session string `header:"X-Session-ID" doc:"Browser tab identifier"`
	Body    HistoryPushRequest
}

// HistoryStepRequest carries the canvas state being left.
type HistoryStepRequest struct {
	Current string `json:"current" doc:"Canvas state right now"`
}

// HistoryStepInput wraps an undo or redo for Huma.
type HistoryStepInput struct {
	DrawingRefInput
	Session string `header:"X-Session-ID" doc:"Browser tab identifier"`
	Body    HistoryStepRequest
}

// HistoryOutput wraps a history result for Huma.
type HistoryOutput struct {
	Body history.Result
}

// === Handlers ===

// checkImage rejects data URLs that do not hold an image. Other strings,
// such as remote URLs, pass unless requireDataURL is set.
func checkImage(value, field string, requireDataURL bool) error {
	if value == "" {
		return nil
	}
	if !media.IsDataURL(value) {
		if requireDataURL {
			return domainerrors.ValidationWithDetails("validation failed", map[string]string{
				field: "must be an image data URL",
			})
		}
		return nil
	}
	if _, err := media.Decode(value); err != nil {
		return domainerrors.ValidationWithDetails("validation failed", map[string]string{
			field: err.Error(),
		})
	}
	return nil
}

func (s *Server) handleGetDrawing(ctx context.Context, input *DrawingRefInput) (*DrawingOutput, error) {
	k, err := input.key()
	if err != nil {
		return nil, err
	}
	d, err := s.services.Drawings.Get(ctx, k)
	if err != nil {
		return nil, err
	}

	resp := DrawingResponse{
		Key:     k.Base(),
		Canvas:  d.Canvas,
		AIImage: d.AIImage,
		Prompt:  d.Prompt,
		Palette: d.Palette,
	}
	if d.Canvas != "" {
		if info, err := media.Inspect(d.Canvas); err == nil {
			resp.CanvasInfo = &info
		} else {
			s.logger.Debug("stored canvas is not an inspectable image", "key", k.Base(), "error", err)
		}
	}
	return &DrawingOutput{Body: resp}, nil
}

func (s *Server) handleClearDrawing(ctx context.Context, input *DrawingRefInput) (*struct{}, error) {
	k, err := input.key()
	if err != nil {
		return nil, err
	}
	if err := s.services.Drawings.Clear(ctx, k); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleSaveCanvas(ctx context.Context, input *ImageInput) (*struct{}, error) {
	k, err := input.key()
	if err != nil {
		return nil, err
	}
	if input.Body.Image == "" {
		return nil, domainerrors.Validation("image is required")
	}
	if err := checkImage(input.Body.Image, "image", true); err != nil {
		return nil, err
	}
	return nil, s.services.Drawings.SaveCanvas(ctx, k, input.Body.Image)
}

func (s *Server) handleSaveAIImage(ctx context.Context, input *ImageInput) (*struct{}, error) {
	k, err := input.key()
	if err != nil {
		return nil, err
	}
	if err := checkImage(input.Body.Image, "image", false); err != nil {
		return nil, err
	}
	return nil, s.services.Drawings.SaveAIImage(ctx, k, input.Body.Image)
}

func (s *Server) handleSavePrompt(ctx context.Context, input *PromptInput) (*struct{}, error) {
	k, err := input.key()
	if err != nil {
		return nil, err
	}
	return nil, s.services.Drawings.SavePrompt(ctx, k, input.Body.Prompt)
}

func (s *Server) handleSavePalette(ctx context.Context, input *PaletteInput) (*struct{}, error) {
	k, err := input.key()
	if err != nil {
		return nil, err
	}
	return nil, s.services.Drawings.SavePalette(ctx, k, input.Body.Palette)
}

func (s *Server) handleGeneratePalette(ctx context.Context, input *DrawingRefInput) (*PaletteOutput, error) {
	k, err := input.key()
	if err != nil {
		return nil, err
	}
	palette, err := s.services.Drawings.GeneratePalette(ctx, k)
	if err != nil {
		return nil, err
	}
	return &PaletteOutput{Body: PaletteRequest{Palette: palette}}, nil
}

func (s *Server) handleClearAI(ctx context.Context, input *DrawingRefInput) (*struct{}, error) {
	k, err := input.key()
	if err != nil {
		return nil, err
	}
	return nil, s.services.Drawings.ClearAI(ctx, k)
}

func (s *Server) handleGetGallery(ctx context.Context, input *DrawingRefInput) (*GalleryOutput, error) {
	k, err := input.key()
	if err != nil {
		return nil, err
	}
	images, err := s.services.Drawings.Gallery(ctx, k)
	if err != nil {
		return nil, err
	}
	return &GalleryOutput{Body: GalleryResponse{Images: images, Count: len(images)}}, nil
}

func (s *Server) handleAddToGallery(ctx context.Context, input *ImageInput) (*GalleryCountOutput, error) {
	k, err := input.key()
	if err != nil {
		return nil, err
	}
	if input.Body.Image == "" {
		return nil, domainerrors.Validation("image is required")
	}
	if err := checkImage(input.Body.Image, "image", true); err != nil {
		return nil, err
	}

	count, err := s.services.Drawings.AddToGallery(ctx, k, input.Body.Image)
	if err != nil {
		return nil, err
	}
	return &GalleryCountOutput{Body: GalleryCountResponse{Count: count}}, nil
}

func (s *Server) histories() (*history.Sessions, error) {
	if s.services.History == nil {
		return nil, domainerrors.Unavailable("undo history is disabled")
	}
	return s.services.History, nil
}

func (s *Server) handlePushHistory(_ context.Context, input *HistoryPushInput) (*HistoryOutput, error) {
	k, err := input.key()
	if err != nil {
		return nil, err
	}
	h, err := s.histories()
	if err != nil {
		return nil, err
	}
	return &HistoryOutput{Body: h.Push(sessionOrDefault(input.Session), k.Base(), input.Body.Snapshot)}, nil
}

func (s *Server) handleUndo(_ context.Context, input *HistoryStepInput) (*HistoryOutput, error) {
	k, err := input.key()
	if err != nil {
		return nil, err
	}
	h, err := s.histories()
	if err != nil {
		return nil, err
	}
	return &HistoryOutput{Body: h.Undo(sessionOrDefault(input.Session), k.Base(), input.Body.Current)}, nil
}

func (s *Server) handleRedo(_ context.Context, input *HistoryStepInput) (*HistoryOutput, error) {
	k, err := input.key()
	if err != nil {
		return nil, err
	}
	h, err := s.histories()
	if err != nil {
		return nil, err
	}
	return &HistoryOutput{Body: h.Redo(sessionOrDefault(input.Session), k.Base(), input.Body.Current)}, nil
}
