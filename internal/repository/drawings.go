package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/storyloom/storyloom-server/internal/color"
	"github.com/storyloom/storyloom-server/internal/domain"
	"github.com/storyloom/storyloom-server/internal/sse"
	"github.com/storyloom/storyloom-server/internal/store"
)

// Drawing sub-key kinds. Each is stored under "<kind>_<base>".
const (
	KindCanvas  = "drawingBoardCanvas"
	KindAIImage = "drawingBoardAIImage"
	KindPrompt  = "drawingBoardPrompt"
	KindPalette = "drawingBoardPalette"
	KindGallery = "drawingBoardGallery"
)

// AIPanelOpenKey holds the global open/closed state of the AI side panel.
const AIPanelOpenKey = "drawing_aiPanelOpen"

// snapshotKinds are the independently writable parts of a drawing.
var snapshotKinds = []string{KindCanvas, KindAIImage, KindPrompt, KindPalette}

// DrawingKey addresses the drawing board of one slide. Slide is the slide's
// display name, or its id when it has none.
type DrawingKey struct {
	Category string
	Slide    string
}

// Base returns the normalized composite key "<category>_<slide>", with runs
// of whitespace collapsed to "_" and everything case-folded.
func (k DrawingKey) Base() string {
	return foldKeyPart(k.Category) + "_" + foldKeyPart(k.Slide)
}

// Key returns the storage key of one sub-key kind.
func (k DrawingKey) Key(kind string) string {
	return kind + "_" + k.Base()
}

// Valid reports whether both parts are non-blank.
func (k DrawingKey) Valid() bool {
	return strings.TrimSpace(k.Category) != "" && strings.TrimSpace(k.Slide) != ""
}

func foldKeyPart(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), "_"))
}

// HistoryForgetter drops the undo histories kept for a drawing base key.
type HistoryForgetter interface {
	Forget(key string)
}

// DrawingsOption configures a Drawings repository.
type DrawingsOption func(*Drawings)

// WithHistory makes clearing a drawing also forget its undo histories.
func WithHistory(h HistoryForgetter) DrawingsOption {
	return func(r *Drawings) { r.history = h }
}

// Drawings stores drawing-board snapshots in a KeyValue store.
type Drawings struct {
	kv      store.KeyValue
	emitter EventEmitter
	palette *color.Palette
	history HistoryForgetter
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewDrawings creates a drawing snapshot repository. A nil palette uses a
// randomly seeded one.
func NewDrawings(kv store.KeyValue, emitter EventEmitter, palette *color.Palette, logger *slog.Logger, opts ...DrawingsOption) *Drawings {
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	if palette == nil {
		palette = color.NewPalette(nil)
	}
	r := &Drawings{kv: kv, emitter: emitter, palette: palette, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// getString reads a key, mapping a missing key to "".
func (r *Drawings) getString(ctx context.Context, key string) (string, error) {
	v, err := r.kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// getList reads a JSON string array. Missing or malformed values read as
// empty.
func (r *Drawings) getList(ctx context.Context, key string) ([]string, error) {
	v, err := r.kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var list []string
	if err := json.Unmarshal(v, &list); err != nil {
		r.logger.Warn("stored list is malformed, treating as empty",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return []string{}, nil
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

// Get returns everything saved for k. Parts never saved are empty.
func (r *Drawings) Get(ctx context.Context, k DrawingKey) (domain.Drawing, error) {
	var (
		d   domain.Drawing
		err error
	)
	if d.Canvas, err = r.getString(ctx, k.Key(KindCanvas)); err != nil {
		return domain.Drawing{}, err
	}
	if d.AIImage, err = r.getString(ctx, k.Key(KindAIImage)); err != nil {
		return domain.Drawing{}, err
	}
	if d.Prompt, err = r.getString(ctx, k.Key(KindPrompt)); err != nil {
		return domain.Drawing{}, err
	}
	if d.Palette, err = r.getList(ctx, k.Key(KindPalette)); err != nil {
		return domain.Drawing{}, err
	}
	if len(d.Palette) == 0 {
		d.Palette = nil
	}
	return d, nil
}

func (r *Drawings) set(ctx context.Context, k DrawingKey, kind string, value []byte) error {
	if err := r.kv.Set(ctx, k.Key(kind), value); err != nil {
		r.logger.Error("failed to save drawing",
			slog.String("key", k.Key(kind)),
			slog.String("error", err.Error()))
		return err
	}
	r.emitter.Emit(sse.NewDrawingChangedEvent(k.Base(), kind))
	return nil
}

// SaveCanvas stores the canvas raster as a data URL.
func (r *Drawings) SaveCanvas(ctx context.Context, k DrawingKey, dataURL string) error {
	return r.set(ctx, k, KindCanvas, []byte(dataURL))
}

// SaveAIImage stores the AI reference image.
func (r *Drawings) SaveAIImage(ctx context.Context, k DrawingKey, image string) error {
	return r.set(ctx, k, KindAIImage, []byte(image))
}

// SavePrompt stores the last prompt.
func (r *Drawings) SavePrompt(ctx context.Context, k DrawingKey, prompt string) error {
	return r.set(ctx, k, KindPrompt, []byte(prompt))
}

// SavePalette stores a palette.
func (r *Drawings) SavePalette(ctx context.Context, k DrawingKey, palette []string) error {
	if palette == nil {
		palette = []string{}
	}
	data, err := json.Marshal(palette)
	if err != nil {
		return fmt.Errorf("encode palette: %w", err)
	}
	return r.set(ctx, k, KindPalette, data)
}

// GeneratePalette stores and returns a new random palette.
func (r *Drawings) GeneratePalette(ctx context.Context, k DrawingKey) ([]string, error) {
	r.mu.Lock()
	palette := r.palette.Generate()
	r.mu.Unlock()

	if err := r.SavePalette(ctx, k, palette); err != nil {
		return nil, err
	}
	return palette, nil
}

// Clear removes the canvas, AI image, prompt and palette in one call and
// forgets the undo histories. The gallery is kept.
func (r *Drawings) Clear(ctx context.Context, k DrawingKey) error {
	if err := r.remove(ctx, k.Base(), keysFor(k, snapshotKinds...)...); err != nil {
		return err
	}
	r.forget(k.Base())
	return nil
}

// ClearAI removes the AI image, prompt and palette, keeping the canvas.
func (r *Drawings) ClearAI(ctx context.Context, k DrawingKey) error {
	return r.remove(ctx, k.Base(), keysFor(k, KindAIImage, KindPrompt, KindPalette)...)
}

// ClearSlide removes every drawing key of a slide, gallery included, and
// forgets its undo histories. Slides are addressed by title or by id
// depending on the caller, so both forms are cleared.
func (r *Drawings) ClearSlide(ctx context.Context, category string, slide domain.Slide) error {
	all := append(slices.Clone(snapshotKinds), KindGallery)

	var keys, bases []string
	for _, name := range []string{slide.ID, slide.Title} {
		k := DrawingKey{Category: category, Slide: name}
		if !k.Valid() || slices.Contains(bases, k.Base()) {
			continue
		}
		bases = append(bases, k.Base())
		keys = append(keys, keysFor(k, all...)...)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.remove(ctx, DrawingKey{Category: category, Slide: slide.ID}.Base(), keys...); err != nil {
		return err
	}
	for _, b := range bases {
		r.forget(b)
	}
	return nil
}

func (r *Drawings) forget(base string) {
	if r.history != nil {
		r.history.Forget(base)
	}
}

func (r *Drawings) remove(ctx context.Context, base string, keys ...string) error {
	if err := r.kv.Delete(ctx, keys...); err != nil {
		r.logger.Error("failed to clear drawing",
			slog.String("base", base),
			slog.String("error", err.Error()))
		return err
	}
	r.emitter.Emit(sse.NewDrawingChangedEvent(base))
	return nil
}

// AddToGallery appends a snapshot to the slide's gallery and returns the
// new gallery length.
func (r *Drawings) AddToGallery(ctx context.Context, k DrawingKey, dataURL string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.getList(ctx, k.Key(KindGallery))
	if err != nil {
		return 0, err
	}
	list = append(list, dataURL)

	data, err := json.Marshal(list)
	if err != nil {
		return 0, fmt.Errorf("encode gallery: %w", err)
	}
	if err := r.set(ctx, k, KindGallery, data); err != nil {
		return 0, err
	}
	return len(list), nil
}

// Gallery returns the slide's saved snapshots, oldest first.
func (r *Drawings) Gallery(ctx context.Context, k DrawingKey) ([]string, error) {
	return r.getList(ctx, k.Key(KindGallery))
}

// AIPanelOpen returns the stored AI panel state, false when unset.
func (r *Drawings) AIPanelOpen(ctx context.Context) (bool, error) {
	v, err := r.kv.Get(ctx, AIPanelOpenKey)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var open bool
	if err := json.Unmarshal(v, &open); err != nil {
		return false, nil
	}
	return open, nil
}

// SetAIPanelOpen stores the AI panel state.
func (r *Drawings) SetAIPanelOpen(ctx context.Context, open bool) error {
	data, _ := json.Marshal(open)
	if err := r.kv.Set(ctx, AIPanelOpenKey, data); err != nil {
		return err
	}
	r.emitter.Emit(sse.NewSettingChangedEvent(AIPanelOpenKey, open))
	return nil
}

func keysFor(k DrawingKey, kinds ...string) []string {
	keys := make([]string, len(kinds))
	for i, kind := range kinds {
		keys[i] = k.Key(kind)
	}
	return keys
}
