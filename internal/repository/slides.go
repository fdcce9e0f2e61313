package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/storyloom/storyloom-server/internal/domain"
	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
	"github.com/storyloom/storyloom-server/internal/id"
	"github.com/storyloom/storyloom-server/internal/store"
)

// SlideCollectionPrefix prefixes the collection key of every category.
const SlideCollectionPrefix = "slides:"

// SlideCollectionKey returns the collection key for a normalized category.
func SlideCollectionKey(category string) string {
	return SlideCollectionPrefix + category
}

// PremadeCovers are the cover images bundled with the client.
var PremadeCovers = func() []string {
	covers := make([]string, 10)
	for i := range covers {
		covers[i] = fmt.Sprintf("/images/book%d.jpg", i+1)
	}
	return covers
}()

// CoverPicker chooses a cover for a slide created without one.
type CoverPicker func() string

// RandomPremadeCover picks one of PremadeCovers.
func RandomPremadeCover() string {
	return PremadeCovers[rand.IntN(len(PremadeCovers))]
}

// DrawingInvalidator drops drawing state that belongs to a deleted slide.
type DrawingInvalidator interface {
	ClearSlide(ctx context.Context, category string, slide domain.Slide) error
}

// SlideInput holds the user-supplied fields of a new slide.
type SlideInput struct {
	Title       string
	Description string
	CoverImage  string
	ImageURL    string
}

// SlidePatch lists slide fields to overwrite. Nil fields are left alone.
type SlidePatch struct {
	Title       *string
	Description *string
	CoverImage  *string
	ImageURL    *string
}

// StagePatch lists stage fields to overwrite.
type StagePatch struct {
	Title       *string
	Description *string
	CoverImage  *string
}

// SubStagePatch lists sub-stage fields to overwrite.
type SubStagePatch struct {
	Title      *string
	CoverImage *string
}

// SlidesOption configures a Slides repository.
type SlidesOption func(*Slides)

// WithCoverPicker replaces the premade cover chooser.
func WithCoverPicker(p CoverPicker) SlidesOption {
	return func(r *Slides) { r.covers = p }
}

// WithDrawingInvalidator makes DeleteSlide also clear the slide's drawings.
func WithDrawingInvalidator(d DrawingInvalidator) SlidesOption {
	return func(r *Slides) { r.drawings = d }
}

// Slides is the slide repository. Each category is an independent
// collection of slide trees.
//
// Stages and sub-stages live inside their slide's record, so every edit,
// however deep, writes the owning slide.
type Slides struct {
	sync     *Sync
	ids      *id.Sequence
	covers   CoverPicker
	drawings DrawingInvalidator
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewSlides creates a slide repository.
func NewSlides(s *Sync, ids *id.Sequence, logger *slog.Logger, opts ...SlidesOption) *Slides {
	r := &Slides{
		sync:   s,
		ids:    ids,
		covers: RandomPremadeCover,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func slideID(s *domain.Slide) string { return s.ID }

func (r *Slides) collection(category string) (*store.Collection[domain.Slide], string, error) {
	c, err := domain.NormalizeSlideCategory(category)
	if err != nil {
		return nil, "", domainerrors.Validation(err.Error())
	}
	return store.NewCollection(r.sync.Store(), SlideCollectionKey(c), slideID), c, nil
}

// read returns the stored slides of a category without any placeholder.
// dirty reports stored data that did not decode, so the next write
// replaces the stored form.
func (r *Slides) read(ctx context.Context, col *store.Collection[domain.Slide]) (slides []domain.Slide, dirty bool, err error) {
	slides, skipped, err := col.All(ctx)
	if errors.Is(err, store.ErrMalformed) {
		r.logger.Warn("stored slides are malformed, treating as empty",
			slog.String("collection", col.Name()),
			slog.String("error", err.Error()))
		return []domain.Slide{}, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(skipped) > 0 {
		r.logger.Warn("skipping undecodable slides",
			slog.String("collection", col.Name()),
			slog.Any("record_ids", skipped))
	}

	slides = withoutPlaceholders(slides)
	for i := range slides {
		slides[i].Normalize()
		r.observeIDs(&slides[i])
	}
	return slides, len(skipped) > 0, nil
}

// Load returns the slides of a category. A category with nothing stored
// yields the single placeholder slide, which is never written back.
//
// On a storage failure Load still returns the placeholder alongside the
// error so callers can render something.
func (r *Slides) Load(ctx context.Context, category string) ([]domain.Slide, error) {
	col, c, err := r.collection(category)
	if err != nil {
		return nil, err
	}

	slides, _, err := r.read(ctx, col)
	if err != nil {
		r.logger.Error("failed to load slides",
			slog.String("category", c),
			slog.String("error", err.Error()))
		return []domain.Slide{domain.PlaceholderSlide(c)}, err
	}
	if len(slides) == 0 {
		return []domain.Slide{domain.PlaceholderSlide(c)}, nil
	}
	return slides, nil
}

// Get returns one stored slide.
func (r *Slides) Get(ctx context.Context, category, slideID string) (domain.Slide, error) {
	col, c, err := r.collection(category)
	if err != nil {
		return domain.Slide{}, err
	}
	slides, _, err := r.read(ctx, col)
	if err != nil {
		return domain.Slide{}, err
	}
	i := indexOfSlide(slides, slideID)
	if i < 0 {
		return domain.Slide{}, domainerrors.NotFoundf("slide %s not found in %s", slideID, c)
	}
	return slides[i], nil
}

// Categories lists the default categories plus every category with stored
// slides, sorted.
func (r *Slides) Categories(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, c := range domain.DefaultSlideCategories {
		seen[c] = struct{}{}
	}

	if lister, ok := r.sync.Store().(store.Collections); ok {
		names, err := lister.Collections(ctx)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if c, ok := strings.CutPrefix(n, SlideCollectionPrefix); ok {
				seen[c] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// Create adds a new slide with the five preset stages.
func (r *Slides) Create(ctx context.Context, category string, in SlideInput) (domain.Slide, error) {
	col, c, err := r.collection(category)
	if err != nil {
		return domain.Slide{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	slides, dirty, err := r.read(ctx, col)
	if err != nil {
		return domain.Slide{}, err
	}

	slide := domain.Slide{
		ID:          r.ids.NextString(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		CoverImage:  in.CoverImage,
		ImageURL:    in.ImageURL,
		Children:    make([]domain.Stage, 0, len(domain.StagePresets)),
	}
	if slide.CoverImage == "" {
		slide.CoverImage = r.covers()
	}
	for _, title := range domain.StagePresets {
		slide.Children = append(slide.Children, domain.Stage{
			ID:        r.ids.NextString(),
			Title:     title,
			SubStages: []domain.SubStage{},
		})
	}
	slides = append(slides, slide)

	if err := saveOne(ctx, r.sync, col, slides, &slides[len(slides)-1], slide.ID, dirty); err != nil {
		r.logger.Error("failed to create slide", slog.String("category", c), slog.String("error", err.Error()))
		return domain.Slide{}, err
	}

	r.logger.Info("slide created",
		slog.String("category", c),
		slog.String("slide_id", slide.ID),
		slog.String("title", slide.Title))
	return slide, nil
}

// ReplaceCategory overwrites a category with slides. Placeholders are
// dropped and missing ids are assigned at every level.
func (r *Slides) ReplaceCategory(ctx context.Context, category string, slides []domain.Slide) ([]domain.Slide, error) {
	col, c, err := r.collection(category)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := withoutPlaceholders(slices.Clone(slides))
	for i := range out {
		r.ensureIDs(&out[i])
		out[i].Normalize()
	}

	if err := replaceAll(ctx, r.sync, col, out); err != nil {
		r.logger.Error("failed to replace slides", slog.String("category", c), slog.String("error", err.Error()))
		return nil, err
	}
	return out, nil
}

// ClearCategory removes every slide of a category.
func (r *Slides) ClearCategory(ctx context.Context, category string) error {
	col, _, err := r.collection(category)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return clearAll(ctx, r.sync, col)
}

// UpdateSlide merges patch into a slide, leaving its stages untouched.
func (r *Slides) UpdateSlide(ctx context.Context, category, slideID string, patch SlidePatch) (domain.Slide, error) {
	return r.modify(ctx, category, slideID, func(s *domain.Slide) error {
		setIf(&s.Title, patch.Title)
		setIf(&s.Description, patch.Description)
		setIf(&s.CoverImage, patch.CoverImage)
		setIf(&s.ImageURL, patch.ImageURL)
		return nil
	})
}

// SetDrawing stores a snapshot of the slide's drawing board on the slide.
func (r *Slides) SetDrawing(ctx context.Context, category, slideID, dataURL string) (domain.Slide, error) {
	return r.modify(ctx, category, slideID, func(s *domain.Slide) error {
		s.Drawing = dataURL
		return nil
	})
}

// UpdateStage merges patch into one stage, leaving its siblings and
// sub-stages untouched.
func (r *Slides) UpdateStage(ctx context.Context, category, slideID, stageID string, patch StagePatch) (domain.Slide, error) {
	return r.modify(ctx, category, slideID, func(s *domain.Slide) error {
		st, ok := s.Stage(stageID)
		if !ok {
			return domainerrors.NotFoundf("stage %s not found", stageID)
		}
		setIf(&st.Title, patch.Title)
		setIf(&st.Description, patch.Description)
		setIf(&st.CoverImage, patch.CoverImage)
		return nil
	})
}

// UpdateSubStage merges patch into one sub-stage.
func (r *Slides) UpdateSubStage(ctx context.Context, category, slideID, stageID, subStageID string, patch SubStagePatch) (domain.Slide, error) {
	return r.modify(ctx, category, slideID, func(s *domain.Slide) error {
		st, ok := s.Stage(stageID)
		if !ok {
			return domainerrors.NotFoundf("stage %s not found", stageID)
		}
		ss, ok := st.SubStage(subStageID)
		if !ok {
			return domainerrors.NotFoundf("sub-stage %s not found", subStageID)
		}
		setIf(&ss.Title, patch.Title)
		setIf(&ss.CoverImage, patch.CoverImage)
		return nil
	})
}

// AddStage appends a stage to a slide.
func (r *Slides) AddStage(ctx context.Context, category, slideID, title string) (domain.Slide, domain.Stage, error) {
	var added domain.Stage
	slide, err := r.modify(ctx, category, slideID, func(s *domain.Slide) error {
		added = domain.Stage{
			ID:        r.ids.NextString(),
			Title:     strings.TrimSpace(title),
			SubStages: []domain.SubStage{},
		}
		s.Children = append(s.Children, added)
		return nil
	})
	return slide, added, err
}

// AddSubStage appends a sub-stage to one of a slide's stages.
func (r *Slides) AddSubStage(ctx context.Context, category, slideID, stageID, title string) (domain.Slide, domain.SubStage, error) {
	var added domain.SubStage
	slide, err := r.modify(ctx, category, slideID, func(s *domain.Slide) error {
		st, ok := s.Stage(stageID)
		if !ok {
			return domainerrors.NotFoundf("stage %s not found", stageID)
		}
		added = domain.SubStage{
			ID:    r.ids.NextString(),
			Title: strings.TrimSpace(title),
		}
		st.SubStages = append(st.SubStages, added)
		return nil
	})
	return slide, added, err
}

// DeleteStage removes a stage and its sub-stages.
func (r *Slides) DeleteStage(ctx context.Context, category, slideID, stageID string) (domain.Slide, error) {
	return r.modify(ctx, category, slideID, func(s *domain.Slide) error {
		if !s.RemoveStage(stageID) {
			return domainerrors.NotFoundf("stage %s not found", stageID)
		}
		return nil
	})
}

// DeleteSubStage removes one sub-stage.
func (r *Slides) DeleteSubStage(ctx context.Context, category, slideID, stageID, subStageID string) (domain.Slide, error) {
	return r.modify(ctx, category, slideID, func(s *domain.Slide) error {
		st, ok := s.Stage(stageID)
		if !ok {
			return domainerrors.NotFoundf("stage %s not found", stageID)
		}
		if !st.RemoveSubStage(subStageID) {
			return domainerrors.NotFoundf("sub-stage %s not found", subStageID)
		}
		return nil
	})
}

// DeleteSlide removes a slide. Deleting an unknown slide is a no-op.
//
// When a DrawingInvalidator is configured the slide's drawing state is
// cleared after the slide is gone. A failure there is logged, not returned:
// the slide is already deleted.
func (r *Slides) DeleteSlide(ctx context.Context, category, slideID string) error {
	col, c, err := r.collection(category)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	slides, dirty, err := r.read(ctx, col)
	if err != nil {
		return err
	}

	i := indexOfSlide(slides, slideID)
	if i < 0 {
		if dirty {
			// The id may belong to a record that no longer decodes.
			return deleteOne(ctx, r.sync, col, slides, slideID, true)
		}
		return nil
	}
	removed := slides[i]
	slides = slices.Delete(slides, i, i+1)

	if err := deleteOne(ctx, r.sync, col, slides, slideID, dirty); err != nil {
		r.logger.Error("failed to delete slide",
			slog.String("category", c),
			slog.String("slide_id", slideID),
			slog.String("error", err.Error()))
		return err
	}

	if r.drawings != nil {
		if err := r.drawings.ClearSlide(ctx, c, removed); err != nil {
			r.logger.Warn("failed to clear drawings of deleted slide",
				slog.String("category", c),
				slog.String("slide_id", slideID),
				slog.String("error", err.Error()))
		}
	}

	r.logger.Info("slide deleted", slog.String("category", c), slog.String("slide_id", slideID))
	return nil
}

// ensureIDs assigns ids to a slide tree's nodes that lack one and records
// the rest so later ids stay ahead of them.
func (r *Slides) ensureIDs(s *domain.Slide) {
	assign := func(id *string) {
		if *id == "" {
			*id = r.ids.NextString()
			return
		}
		r.ids.ObserveString(*id)
	}
	assign(&s.ID)
	for i := range s.Children {
		st := &s.Children[i]
		assign(&st.ID)
		for j := range st.SubStages {
			assign(&st.SubStages[j].ID)
		}
	}
}

// observeIDs records every id of a stored slide tree so new slides, stages
// and sub-stages are never issued an id already in use.
func (r *Slides) observeIDs(s *domain.Slide) {
	r.ids.ObserveString(s.ID)
	for i := range s.Children {
		st := &s.Children[i]
		r.ids.ObserveString(st.ID)
		for j := range st.SubStages {
			r.ids.ObserveString(st.SubStages[j].ID)
		}
	}
}

func (r *Slides) modify(ctx context.Context, category, slideID string, fn func(*domain.Slide) error) (domain.Slide, error) {
	col, c, err := r.collection(category)
	if err != nil {
		return domain.Slide{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	slides, dirty, err := r.read(ctx, col)
	if err != nil {
		return domain.Slide{}, err
	}

	i := indexOfSlide(slides, slideID)
	if i < 0 {
		return domain.Slide{}, domainerrors.NotFoundf("slide %s not found in %s", slideID, c)
	}

	updated := cloneSlide(slides[i])
	if err := fn(&updated); err != nil {
		return domain.Slide{}, err
	}
	updated.ID = slideID
	updated.Placeholder = false
	updated.Normalize()
	slides[i] = updated

	if err := saveOne(ctx, r.sync, col, slides, &slides[i], slideID, dirty); err != nil {
		r.logger.Error("failed to update slide",
			slog.String("category", c),
			slog.String("slide_id", slideID),
			slog.String("error", err.Error()))
		return domain.Slide{}, err
	}
	return updated, nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func indexOfSlide(slides []domain.Slide, id string) int {
	return slices.IndexFunc(slides, func(s domain.Slide) bool { return s.ID == id })
}

func withoutPlaceholders(slides []domain.Slide) []domain.Slide {
	return slices.DeleteFunc(slides, func(s domain.Slide) bool {
		return s.Placeholder || s.ID == domain.PlaceholderSlideID
	})
}

func cloneSlide(s domain.Slide) domain.Slide {
	s.Children = slices.Clone(s.Children)
	for i := range s.Children {
		s.Children[i].SubStages = slices.Clone(s.Children[i].SubStages)
	}
	return s
}
