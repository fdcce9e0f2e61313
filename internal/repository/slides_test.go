package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyloom/storyloom-server/internal/domain"
	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
	"github.com/storyloom/storyloom-server/internal/history"
	"github.com/storyloom/storyloom-server/internal/id"
	"github.com/storyloom/storyloom-server/internal/store"
)

func newTestSlides(t *testing.T, rs store.RecordStore, opts ...SlidesOption) *Slides {
	t.Helper()
	opts = append([]SlidesOption{WithCoverPicker(func() string { return "/images/book1.jpg" })}, opts...)
	return NewSlides(NewSync(rs, SyncAuto, nil), id.NewSequence(), testLogger(), opts...)
}

func stageTitles(s domain.Slide) []string {
	out := make([]string, len(s.Children))
	for i, st := range s.Children {
		out[i] = st.Title
	}
	return out
}

func TestSlides_EmptyCategoryYieldsPlaceholder(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	slides := newTestSlides(t, mem)

	got, err := slides.Load(ctx, "Theme")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Placeholder)
	assert.Equal(t, domain.PlaceholderSlideID, got[0].ID)
	assert.Equal(t, "Add new theme", got[0].Title)

	stored, err := mem.GetAll(ctx, SlideCollectionKey("theme"))
	require.NoError(t, err)
	assert.Empty(t, stored, "placeholder is never written")
}

func TestSlides_CreatePopulatesPresetStages(t *testing.T) {
	ctx := context.Background()
	slides := newTestSlides(t, store.NewMemory())

	s, err := slides.Create(ctx, "theme", SlideInput{Title: "Hope"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "/images/book1.jpg", s.CoverImage)
	assert.Equal(t, []string{"Exposition", "Rising Action", "Climax", "Falling Action", "Resolution"}, stageTitles(s))
	for _, st := range s.Children {
		assert.NotEmpty(t, st.ID)
		assert.NotNil(t, st.SubStages)
		assert.Empty(t, st.SubStages)
	}

	custom, err := slides.Create(ctx, "theme", SlideInput{Title: "Own", CoverImage: "https://x/y.png"})
	require.NoError(t, err)
	assert.Equal(t, "https://x/y.png", custom.CoverImage)

	got, err := slides.Load(ctx, "theme")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, s := range got {
		assert.False(t, s.Placeholder)
	}
}

func TestSlides_SubStageSurvivesReload(t *testing.T) {
	for _, bc := range backends {
		t.Run(bc.name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			backend := bc.open(t, dir)
			slides := newTestSlides(t, backend)

			s, err := slides.Create(ctx, "theme", SlideInput{Title: "Arc"})
			require.NoError(t, err)
			climax := s.Children[2]
			require.Equal(t, "Climax", climax.Title)

			_, sub, err := slides.AddSubStage(ctx, "theme", s.ID, climax.ID, "Twist")
			require.NoError(t, err)
			assert.NotEmpty(t, sub.ID)
			require.NoError(t, backend.Close())

			reopened := bc.open(t, dir)
			t.Cleanup(func() { _ = reopened.Close() })

			got, err := newTestSlides(t, reopened).Load(ctx, "theme")
			require.NoError(t, err)
			require.Len(t, got, 1)
			require.Len(t, got[0].Children[2].SubStages, 1)
			assert.Equal(t, "Twist", got[0].Children[2].SubStages[0].Title)
		})
	}
}

func TestSlides_TargetedEditsLeaveSiblingsUntouched(t *testing.T) {
	ctx := context.Background()
	slides := newTestSlides(t, store.NewMemory())

	a, err := slides.Create(ctx, "scene", SlideInput{Title: "A", Description: "keep"})
	require.NoError(t, err)
	b, err := slides.Create(ctx, "scene", SlideInput{Title: "B"})
	require.NoError(t, err)

	title := "A2"
	a, err = slides.UpdateSlide(ctx, "scene", a.ID, SlidePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "A2", a.Title)
	assert.Equal(t, "keep", a.Description)
	assert.Len(t, a.Children, 5)

	desc := "the peak"
	a, err = slides.UpdateStage(ctx, "scene", a.ID, a.Children[2].ID, StagePatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "the peak", a.Children[2].Description)
	assert.Equal(t, "Climax", a.Children[2].Title)
	assert.Empty(t, a.Children[1].Description)

	a, sub, err := slides.AddSubStage(ctx, "scene", a.ID, a.Children[0].ID, "beat")
	require.NoError(t, err)
	subTitle := "beat 1"
	a, err = slides.UpdateSubStage(ctx, "scene", a.ID, a.Children[0].ID, sub.ID, SubStagePatch{Title: &subTitle})
	require.NoError(t, err)
	assert.Equal(t, "beat 1", a.Children[0].SubStages[0].Title)

	gotB, err := slides.Get(ctx, "scene", b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, gotB)
}

func TestSlides_DeleteAtEveryLevel(t *testing.T) {
	ctx := context.Background()
	slides := newTestSlides(t, store.NewMemory())

	s, err := slides.Create(ctx, "setting", SlideInput{Title: "Town"})
	require.NoError(t, err)
	s, sub, err := slides.AddSubStage(ctx, "setting", s.ID, s.Children[0].ID, "gate")
	require.NoError(t, err)

	s, err = slides.DeleteSubStage(ctx, "setting", s.ID, s.Children[0].ID, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, s.Children[0].SubStages)

	s, err = slides.DeleteStage(ctx, "setting", s.ID, s.Children[4].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Exposition", "Rising Action", "Climax", "Falling Action"}, stageTitles(s))

	_, err = slides.DeleteStage(ctx, "setting", s.ID, "missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	require.NoError(t, slides.DeleteSlide(ctx, "setting", s.ID))
	require.NoError(t, slides.DeleteSlide(ctx, "setting", s.ID), "deleting twice is a no-op")

	got, err := slides.Load(ctx, "setting")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Placeholder)
}

func TestSlides_PlaceholdersNeverPersisted(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	slides := newTestSlides(t, mem)

	loaded, err := slides.Load(ctx, "characters")
	require.NoError(t, err)

	out, err := slides.ReplaceCategory(ctx, "characters", append(loaded, domain.Slide{Title: "Real"}))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.NotEmpty(t, out[0].ID)

	s, err := slides.Create(ctx, "characters", SlideInput{Title: "More"})
	require.NoError(t, err)
	_, err = slides.UpdateSlide(ctx, "characters", s.ID, SlidePatch{})
	require.NoError(t, err)
	require.NoError(t, slides.DeleteSlide(ctx, "characters", out[0].ID))
	require.NoError(t, slides.DeleteSlide(ctx, "characters", s.ID))

	records, err := mem.GetAll(ctx, SlideCollectionKey("characters"))
	require.NoError(t, err)
	assert.Empty(t, records)

	// A placeholder written by an older client is filtered on read.
	bad, err := store.NewRecord(domain.PlaceholderSlideID, domain.PlaceholderSlide("characters"))
	require.NoError(t, err)
	require.NoError(t, mem.Put(ctx, SlideCollectionKey("characters"), []store.Record{bad}))

	_, err = slides.Create(ctx, "characters", SlideInput{Title: "After"})
	require.NoError(t, err)
	records, err = mem.GetAll(ctx, SlideCollectionKey("characters"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotEqual(t, domain.PlaceholderSlideID, records[0].ID)
}

func TestSlides_CategoriesAreIndependent(t *testing.T) {
	ctx := context.Background()
	slides := newTestSlides(t, store.NewMemory())

	_, err := slides.Create(ctx, "theme", SlideInput{Title: "T"})
	require.NoError(t, err)
	_, err = slides.Create(ctx, "Villains", SlideInput{Title: "V"})
	require.NoError(t, err)

	scene, err := slides.Load(ctx, "scene")
	require.NoError(t, err)
	assert.True(t, scene[0].Placeholder)

	cats, err := slides.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"characters", "scene", "setting", "theme", "villains"}, cats)

	_, err = slides.Load(ctx, "bad/category")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	require.NoError(t, slides.ClearCategory(ctx, "villains"))
	v, err := slides.Load(ctx, "villains")
	require.NoError(t, err)
	assert.True(t, v[0].Placeholder)
}

type recordingInvalidator struct {
	category string
	slides   []domain.Slide
}

func (r *recordingInvalidator) ClearSlide(_ context.Context, category string, slide domain.Slide) error {
	r.category = category
	r.slides = append(r.slides, slide)
	return nil
}

func TestSlides_DeleteCascadesToDrawings(t *testing.T) {
	ctx := context.Background()
	inv := &recordingInvalidator{}
	slides := newTestSlides(t, store.NewMemory(), WithDrawingInvalidator(inv))

	s, err := slides.Create(ctx, "Theme", SlideInput{Title: "Hope"})
	require.NoError(t, err)
	require.NoError(t, slides.DeleteSlide(ctx, "Theme", s.ID))

	require.Len(t, inv.slides, 1)
	assert.Equal(t, "theme", inv.category)
	assert.Equal(t, s.ID, inv.slides[0].ID)

	require.NoError(t, slides.DeleteSlide(ctx, "Theme", s.ID))
	assert.Len(t, inv.slides, 1, "no cascade for an absent slide")
}

func TestSlides_SetDrawing(t *testing.T) {
	ctx := context.Background()
	slides := newTestSlides(t, store.NewMemory())

	s, err := slides.Create(ctx, "scene", SlideInput{Title: "S"})
	require.NoError(t, err)

	s, err = slides.SetDrawing(ctx, "scene", s.ID, "data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", s.Drawing)

	_, err = slides.SetDrawing(ctx, "scene", "nope", "x")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestSlides_IndexedBackendWritesSingleRecords(t *testing.T) {
	ctx := context.Background()
	backend := backends[1].open(t, t.TempDir())
	t.Cleanup(func() { _ = backend.Close() })

	cs := &countingStore{Backend: backend}
	slides := newTestSlides(t, cs)

	s, err := slides.Create(ctx, "theme", SlideInput{Title: "x"})
	require.NoError(t, err)
	_, _, err = slides.AddStage(ctx, "theme", s.ID, "Epilogue")
	require.NoError(t, err)
	require.NoError(t, slides.DeleteSlide(ctx, "theme", s.ID))

	assert.Zero(t, cs.puts)
	assert.Equal(t, 2, cs.putOnes)
	assert.Equal(t, 1, cs.deletes)
}

func TestSlides_MalformedDataYieldsPlaceholderAndRecovers(t *testing.T) {
	ctx := context.Background()
	key := SlideCollectionKey("theme")

	seeds := []struct {
		name         string
		documentOnly bool
		seed         func(t *testing.T, bc backendCase, dir string)
	}{
		{
			name: "undecodable record",
			seed: func(t *testing.T, bc backendCase, dir string) {
				b := bc.open(t, dir)
				require.NoError(t, b.PutOne(ctx, key, store.Record{
					ID:   "1",
					Data: json.RawMessage(`{"id":"1","title":5,"children":"none"}`),
				}))
				require.NoError(t, b.Close())
			},
		},
		{
			name:         "non-array document",
			documentOnly: true,
			seed: func(t *testing.T, _ backendCase, dir string) {
				seedRawDocument(t, filepath.Join(dir, "badger"), key, `{"not":"an array"}`)
			},
		},
	}

	for _, bc := range backends {
		for _, sc := range seeds {
			t.Run(bc.name+"/"+sc.name, func(t *testing.T) {
				if sc.documentOnly && bc.name != "badger" {
					t.Skip("indexed backends store rows, not documents")
				}
				dir := t.TempDir()
				sc.seed(t, bc, dir)

				backend := bc.open(t, dir)
				slides := newTestSlides(t, backend)

				loaded, err := slides.Load(ctx, "theme")
				require.NoError(t, err)
				require.Len(t, loaded, 1)
				assert.True(t, loaded[0].Placeholder)

				created, err := slides.Create(ctx, "theme", SlideInput{Title: "Hope"})
				require.NoError(t, err)
				require.NoError(t, backend.Close())

				reopened := bc.open(t, dir)
				t.Cleanup(func() { _ = reopened.Close() })

				loaded, err = newTestSlides(t, reopened).Load(ctx, "theme")
				require.NoError(t, err)
				require.Len(t, loaded, 1)
				assert.False(t, loaded[0].Placeholder)
				assert.Equal(t, created.ID, loaded[0].ID)
				assert.Equal(t, "Hope", loaded[0].Title)
			})
		}
	}
}

func TestSlides_ReloadObservesStageIDs(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	clock := func() time.Time { return time.UnixMilli(1_000) }

	first := NewSlides(NewSync(mem, SyncAuto, nil), id.NewSequenceWithClock(clock), testLogger())
	s, err := first.Create(ctx, "theme", SlideInput{Title: "Hope"})
	require.NoError(t, err)
	_, sub, err := first.AddSubStage(ctx, "theme", s.ID, s.Children[0].ID, "Storm")
	require.NoError(t, err)

	// A restarted process whose clock has not moved on.
	restarted := NewSlides(NewSync(mem, SyncAuto, nil), id.NewSequenceWithClock(clock), testLogger())
	updated, stage, err := restarted.AddStage(ctx, "theme", s.ID, "Epilogue")
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, st := range updated.Children {
		assert.False(t, seen[st.ID], "duplicate id %s", st.ID)
		seen[st.ID] = true
		for _, ss := range st.SubStages {
			assert.False(t, seen[ss.ID], "duplicate id %s", ss.ID)
			seen[ss.ID] = true
		}
	}
	assert.NotEqual(t, sub.ID, stage.ID)
	assert.Greater(t, stage.ID, sub.ID)
}

func TestSlides_DeleteForgetsUndoHistories(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	sessions := history.NewSessions(10, time.Hour)
	drawings := NewDrawings(mem, nil, nil, testLogger(), WithHistory(sessions))
	slides := newTestSlides(t, mem, WithDrawingInvalidator(drawings))

	s, err := slides.Create(ctx, "theme", SlideInput{Title: "Old Mara"})
	require.NoError(t, err)
	other, err := slides.Create(ctx, "theme", SlideInput{Title: "Harbor"})
	require.NoError(t, err)

	sessions.Push("tab-1", DrawingKey{Category: "theme", Slide: s.Title}.Base(), "data:image/png;base64,AA==")
	sessions.Push("tab-2", DrawingKey{Category: "theme", Slide: s.ID}.Base(), "data:image/png;base64,AA==")
	sessions.Push("tab-1", DrawingKey{Category: "theme", Slide: other.Title}.Base(), "data:image/png;base64,AA==")
	require.Equal(t, 3, sessions.Len())

	require.NoError(t, slides.DeleteSlide(ctx, "theme", s.ID))
	assert.Equal(t, 1, sessions.Len(), "only the deleted slide's histories are dropped")
}
