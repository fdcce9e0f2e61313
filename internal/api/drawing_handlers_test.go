package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyloom/storyloom-server/internal/color"
	"github.com/storyloom/storyloom-server/internal/history"
)

const testDrawingPath = "/api/v1/drawings/Characters/Old%20Mara"

func getDrawing(t *testing.T, ts *testServer) DrawingResponse {
	t.Helper()

	resp := ts.api.Get(testDrawingPath)
	requireStatus(t, http.StatusOK, resp)
	return decodeEnvelope[DrawingResponse](t, resp).Data
}

func TestGetDrawing_EmptyBoard(t *testing.T) {
	ts := setupTestServer(t)

	d := getDrawing(t, ts)
	assert.Equal(t, "characters_old_mara", d.Key)
	assert.Empty(t, d.Canvas)
	assert.Nil(t, d.CanvasInfo)
	assert.Empty(t, d.Palette)
}

func TestSaveCanvas(t *testing.T) {
	ts := setupTestServer(t)
	canvas := pngDataURL(t, 8, 6)

	resp := ts.api.Put(testDrawingPath+"/canvas", map[string]any{"image": canvas})
	requireStatus(t, http.StatusNoContent, resp)

	d := getDrawing(t, ts)
	assert.Equal(t, canvas, d.Canvas)
	require.NotNil(t, d.CanvasInfo)
	assert.Equal(t, 8, d.CanvasInfo.Width)
	assert.Equal(t, 6, d.CanvasInfo.Height)
}

func TestSaveCanvas_RejectsNonImage(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put(testDrawingPath+"/canvas", map[string]any{"image": "https://example.com/a.png"})
	requireStatus(t, http.StatusBadRequest, resp)

	resp = ts.api.Put(testDrawingPath+"/canvas", map[string]any{"image": "data:text/plain;base64,aGVsbG8="})
	requireStatus(t, http.StatusBadRequest, resp)
}

func TestSaveCanvas_RejectsEmptyImage(t *testing.T) {
	ts := setupTestServer(t)
	canvas := pngDataURL(t, 4, 4)

	resp := ts.api.Put(testDrawingPath+"/canvas", map[string]any{"image": canvas})
	requireStatus(t, http.StatusNoContent, resp)

	resp = ts.api.Put(testDrawingPath+"/canvas", map[string]any{"image": ""})
	requireStatus(t, http.StatusBadRequest, resp)
	assert.Equal(t, canvas, getDrawing(t, ts).Canvas, "stored canvas is untouched")
}

func TestSaveAIImage_AcceptsURL(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put(testDrawingPath+"/ai-image", map[string]any{"image": "https://images.example.com/ref.png"})
	requireStatus(t, http.StatusNoContent, resp)
	assert.Equal(t, "https://images.example.com/ref.png", getDrawing(t, ts).AIImage)
}

func TestPromptAndPalette(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put(testDrawingPath+"/prompt", map[string]any{"prompt": "a lantern in fog"})
	requireStatus(t, http.StatusNoContent, resp)

	resp = ts.api.Put(testDrawingPath+"/palette", map[string]any{"palette": []string{"#000", "#fff"}})
	requireStatus(t, http.StatusNoContent, resp)

	d := getDrawing(t, ts)
	assert.Equal(t, "a lantern in fog", d.Prompt)
	assert.Equal(t, []string{"#000", "#fff"}, d.Palette)
}

func TestGeneratePalette(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post(testDrawingPath + "/palette/generate")
	requireStatus(t, http.StatusOK, resp)

	palette := decodeEnvelope[PaletteRequest](t, resp).Data.Palette
	assert.Len(t, palette, color.PaletteSize)
	assert.Equal(t, palette, getDrawing(t, ts).Palette)
}

func TestClearAI_KeepsCanvas(t *testing.T) {
	ts := setupTestServer(t)
	canvas := pngDataURL(t, 2, 2)

	requireStatus(t, http.StatusNoContent, ts.api.Put(testDrawingPath+"/canvas", map[string]any{"image": canvas}))
	requireStatus(t, http.StatusNoContent, ts.api.Put(testDrawingPath+"/prompt", map[string]any{"prompt": "fog"}))

	resp := ts.api.Delete(testDrawingPath + "/ai")
	requireStatus(t, http.StatusNoContent, resp)

	d := getDrawing(t, ts)
	assert.Equal(t, canvas, d.Canvas)
	assert.Empty(t, d.Prompt)
}

func TestClearDrawing_KeepsGallery(t *testing.T) {
	ts := setupTestServer(t)
	canvas := pngDataURL(t, 2, 2)

	requireStatus(t, http.StatusNoContent, ts.api.Put(testDrawingPath+"/canvas", map[string]any{"image": canvas}))
	resp := ts.api.Post(testDrawingPath+"/gallery", map[string]any{"image": canvas})
	requireStatus(t, http.StatusCreated, resp)
	assert.Equal(t, 1, decodeEnvelope[GalleryCountResponse](t, resp).Data.Count)

	resp = ts.api.Delete(testDrawingPath)
	requireStatus(t, http.StatusNoContent, resp)
	assert.Empty(t, getDrawing(t, ts).Canvas)

	resp = ts.api.Get(testDrawingPath + "/gallery")
	requireStatus(t, http.StatusOK, resp)
	gallery := decodeEnvelope[GalleryResponse](t, resp).Data
	assert.Equal(t, 1, gallery.Count)
	assert.Equal(t, []string{canvas}, gallery.Images)
}

func TestAddToGallery_RequiresImage(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post(testDrawingPath+"/gallery", map[string]any{"image": ""})
	requireStatus(t, http.StatusBadRequest, resp)
}

func TestUndoRedo_PerSession(t *testing.T) {
	ts := setupTestServer(t)
	tabA := sessionHeader + ": tab-a"
	tabB := sessionHeader + ": tab-b"

	resp := ts.api.Post(testDrawingPath+"/history", tabA, map[string]any{"snapshot": "s1"})
	requireStatus(t, http.StatusOK, resp)
	pushed := decodeEnvelope[history.Result](t, resp).Data
	assert.True(t, pushed.OK)
	assert.Equal(t, 1, pushed.Undo)

	// Another tab has its own history.
	resp = ts.api.Post(testDrawingPath+"/undo", tabB, map[string]any{"current": "x"})
	requireStatus(t, http.StatusOK, resp)
	assert.False(t, decodeEnvelope[history.Result](t, resp).Data.OK)

	resp = ts.api.Post(testDrawingPath+"/undo", tabA, map[string]any{"current": "s2"})
	requireStatus(t, http.StatusOK, resp)
	undone := decodeEnvelope[history.Result](t, resp).Data
	assert.True(t, undone.OK)
	assert.Equal(t, "s1", undone.Snapshot)
	assert.Equal(t, 1, undone.Redo)

	resp = ts.api.Post(testDrawingPath+"/redo", tabA, map[string]any{"current": "s1"})
	requireStatus(t, http.StatusOK, resp)
	redone := decodeEnvelope[history.Result](t, resp).Data
	assert.True(t, redone.OK)
	assert.Equal(t, "s2", redone.Snapshot)
}

func TestClearDrawing_ForgetsHistory(t *testing.T) {
	ts := setupTestServer(t)

	requireStatus(t, http.StatusOK, ts.api.Post(testDrawingPath+"/history", map[string]any{"snapshot": "s1"}))
	requireStatus(t, http.StatusNoContent, ts.api.Delete(testDrawingPath))

	resp := ts.api.Post(testDrawingPath+"/undo", map[string]any{"current": "s2"})
	requireStatus(t, http.StatusOK, resp)
	assert.False(t, decodeEnvelope[history.Result](t, resp).Data.OK)
}

func TestDrawing_StorageFailure(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, ts.backend.Close())

	resp := ts.api.Put(testDrawingPath+"/prompt", map[string]any{"prompt": "fog"})
	assert.GreaterOrEqual(t, resp.Code, http.StatusInternalServerError)
}
