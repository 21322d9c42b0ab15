package regions

import (
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/a3tai/mcp-pdf-redactor/internal/geom"
	"github.com/a3tai/mcp-pdf-redactor/internal/metrics"
	"github.com/a3tai/mcp-pdf-redactor/internal/snapshot"
)

func newSnapshots(t *testing.T) *snapshot.Store {
	t.Helper()
	s, err := snapshot.NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func openStore(t *testing.T, snaps *snapshot.Store, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithAutosaveInterval(0)}, opts...)
	s, err := Open("letter", snaps, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open("", newSnapshots(t))
	assert.Error(t, err)

	_, err = Open("doc", nil)
	assert.Error(t, err)
}

func TestOpen_Empty(t *testing.T) {
	s := openStore(t, newSnapshots(t))
	assert.Equal(t, StatusLoaded, s.Status())
	assert.Empty(t, s.List())
	assert.False(t, s.Dirty())
	assert.False(t, s.CanUndo())
	assert.NoError(t, s.LoadWarning())
}

func TestAdd_Normalizes(t *testing.T) {
	s := openStore(t, newSnapshots(t))

	r, err := s.Add(2, geom.Rect{X0: 10, Y0: 10, X1: 5, Y1: 5}, KindRedact)
	require.NoError(t, err)
	assert.Equal(t, geom.Rect{X0: 5, Y0: 5, X1: 10, Y1: 10}, r.BBox)

	assert.Equal(t, []geom.Rect{{X0: 5, Y0: 5, X1: 10, Y1: 10}}, s.Regions(2, KindRedact))
	assert.Equal(t, StatusDirty, s.Status())
	assert.True(t, s.CanUndo())
}

func TestAdd_Rejects(t *testing.T) {
	s := openStore(t, newSnapshots(t))

	_, err := s.Add(0, geom.NewRect(0, 0, 10, 10), Kind("highlight"))
	assert.True(t, errors.Is(err, ErrUnknownKind))

	_, err = s.Add(-1, geom.NewRect(0, 0, 10, 10), KindRedact)
	assert.Error(t, err)

	_, err = s.Add(0, geom.Rect{X0: math.NaN(), X1: 10, Y1: 10}, KindRedact)
	assert.True(t, errors.Is(err, ErrNonFiniteBox))

	assert.False(t, s.CanUndo())
	assert.False(t, s.Dirty())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Protect ")
	require.NoError(t, err)
	assert.Equal(t, KindProtect, k)

	_, err = ParseKind("blur")
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestRemoveUpdate_Missing(t *testing.T) {
	s := openStore(t, newSnapshots(t))
	_, err := s.Add(0, geom.NewRect(0, 0, 10, 10), KindRedact)
	require.NoError(t, err)

	assert.False(t, s.Remove(0, 1, KindRedact))
	assert.False(t, s.Remove(0, 0, KindProtect))
	assert.False(t, s.Remove(3, 0, KindRedact))
	assert.False(t, s.Update(0, -1, geom.NewRect(0, 0, 1, 1), KindRedact))
	assert.False(t, s.Update(0, 0, geom.NewRect(0, 0, 1, 1), Kind("bogus")))
	assert.False(t, s.Update(0, 0, geom.Rect{X1: math.Inf(1), Y1: 1}, KindRedact))

	// Misses leave exactly the one entry from Add.
	assert.True(t, s.Undo())
	assert.False(t, s.CanUndo())
}

func TestRemoveUpdate(t *testing.T) {
	s := openStore(t, newSnapshots(t))
	for i := 0; i < 3; i++ {
		x := float64(i * 20)
		_, err := s.Add(1, geom.NewRect(x, 0, x+10, 10), KindProtect)
		require.NoError(t, err)
	}

	require.True(t, s.Update(1, 1, geom.NewRect(100, 100, 50, 50), KindProtect))
	require.True(t, s.Remove(1, 0, KindProtect))

	assert.Equal(t, []geom.Rect{
		{X0: 50, Y0: 50, X1: 100, Y1: 100},
		{X0: 40, Y0: 0, X1: 50, Y1: 10},
	}, s.Regions(1, KindProtect))
}

func TestUndoRedo_Linear(t *testing.T) {
	s := openStore(t, newSnapshots(t))

	assert.False(t, s.Undo(), "nothing to undo")
	assert.False(t, s.Redo(), "nothing to redo")

	_, _ = s.Add(0, geom.NewRect(0, 0, 10, 10), KindRedact)
	_, _ = s.Add(0, geom.NewRect(20, 0, 30, 10), KindRedact)

	require.True(t, s.Undo())
	assert.Len(t, s.Regions(0, KindRedact), 1)
	require.True(t, s.Redo())
	assert.Len(t, s.Regions(0, KindRedact), 2)

	require.True(t, s.Undo())
	_, _ = s.Add(0, geom.NewRect(40, 0, 50, 10), KindExclude)
	assert.False(t, s.CanRedo(), "a new mutation clears redo")
}

func TestUndo_MarksDirty(t *testing.T) {
	s := openStore(t, newSnapshots(t))
	_, _ = s.Add(0, geom.NewRect(0, 0, 10, 10), KindRedact)

	wrote, err := s.Flush()
	require.NoError(t, err)
	require.True(t, wrote)
	require.False(t, s.Dirty())

	require.True(t, s.Undo())
	assert.True(t, s.Dirty())
	assert.Equal(t, StatusDirty, s.Status())
}

func TestHistory_DepthEviction(t *testing.T) {
	s := openStore(t, newSnapshots(t), WithHistoryDepth(50))

	for i := 0; i < 51; i++ {
		x := float64(i)
		_, err := s.Add(0, geom.NewRect(x, 0, x+10, 10), KindRedact)
		require.NoError(t, err)
	}

	undone := 0
	for i := 0; i < 51; i++ {
		if s.Undo() {
			undone++
		}
	}
	assert.Equal(t, 50, undone)
	assert.Equal(t, []geom.Rect{{X0: 0, Y0: 0, X1: 10, Y1: 10}}, s.Regions(0, KindRedact),
		"oldest snapshot was evicted")
}

func TestClear(t *testing.T) {
	s := openStore(t, newSnapshots(t))
	_, _ = s.Add(0, geom.NewRect(0, 0, 10, 10), KindRedact)
	_, _ = s.Add(0, geom.NewRect(0, 0, 10, 10), KindProtect)
	_, _ = s.Add(1, geom.NewRect(0, 0, 10, 10), KindExclude)

	assert.False(t, s.Clear(7))
	require.True(t, s.Clear(0))
	assert.Equal(t, []int{1}, s.Pages())

	require.True(t, s.Undo(), "clear is one history entry")
	assert.Equal(t, []int{0, 1}, s.Pages())

	require.True(t, s.ClearAll())
	assert.Empty(t, s.List())
	assert.False(t, s.ClearAll())

	require.True(t, s.Undo())
	assert.Len(t, s.List(), 3)
}

func TestPageAndList(t *testing.T) {
	s := openStore(t, newSnapshots(t))
	_, _ = s.Add(3, geom.NewRect(0, 0, 10, 10), KindProtect)
	_, _ = s.Add(3, geom.NewRect(5, 5, 20, 20), KindRedact)
	_, _ = s.Add(1, geom.NewRect(1, 1, 9, 9), KindExclude)

	page := s.Page(3)
	assert.Len(t, page.Redact, 1)
	assert.Empty(t, page.Exclude)
	assert.Len(t, page.Protect, 1)

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, Region{Page: 1, Index: 0, BBox: geom.NewRect(1, 1, 9, 9), Kind: KindExclude}, list[0])
	assert.Equal(t, KindRedact, list[1].Kind)
	assert.Equal(t, KindProtect, list[2].Kind)
}

func TestSave_AndReopen(t *testing.T) {
	snaps := newSnapshots(t)
	mt := metrics.New()
	s := openStore(t, snaps, WithMetrics(mt))

	_, _ = s.Add(0, geom.NewRect(0, 0, 10, 10), KindRedact)
	_, _ = s.Add(0, geom.NewRect(20, 20, 40, 40), KindExclude)
	_, _ = s.Add(4, geom.NewRect(1, 2, 3, 4), KindProtect)

	path, err := s.Save()
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.False(t, s.Dirty())
	assert.Equal(t, StatusLoaded, s.Status())
	assert.Equal(t, 1, s.Stats().Saves)
	assert.Equal(t, float64(1), testutil.ToFloat64(mt.SnapshotSaves))

	reopened, err := Open("letter", snaps, WithAutosaveInterval(0))
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, s.List(), reopened.List())
	assert.False(t, reopened.CanUndo(), "history is not persisted")
}

func TestOpen_PrefersAutosave(t *testing.T) {
	snaps := newSnapshots(t)
	s := openStore(t, snaps)

	_, _ = s.Add(0, geom.NewRect(0, 0, 10, 10), KindRedact)
	_, err := s.Save()
	require.NoError(t, err)

	_, _ = s.Add(0, geom.NewRect(20, 0, 30, 10), KindRedact)
	require.NoError(t, s.Close())
	assert.Equal(t, StatusUnloaded, s.Status())

	reopened, err := Open("letter", snaps, WithAutosaveInterval(0))
	require.NoError(t, err)
	defer reopened.Close()

	assert.Len(t, reopened.Regions(0, KindRedact), 2)
	assert.Equal(t, snaps.AutosavePath("letter", Purpose), reopened.LoadedFrom())
}

func TestOpen_FallbackID(t *testing.T) {
	snaps := newSnapshots(t)
	old := openStore(t, snaps)
	_, _ = old.Add(0, geom.NewRect(0, 0, 10, 10), KindRedact)
	require.NoError(t, old.Close())

	s, err := Open("letter_0badc0de", snaps, WithAutosaveInterval(0), WithFallbackID("letter"))
	require.NoError(t, err)
	assert.Len(t, s.Regions(0, KindRedact), 1)
	assert.Equal(t, snaps.AutosavePath("letter", Purpose), s.LoadedFrom())

	_, _ = s.Add(1, geom.NewRect(0, 0, 10, 10), KindProtect)
	require.NoError(t, s.Close())
	assert.FileExists(t, snaps.AutosavePath("letter_0badc0de", Purpose))

	// Once the new id has its own artifact the fallback is no longer read.
	s, err = Open("letter_0badc0de", snaps, WithAutosaveInterval(0), WithFallbackID("letter"))
	require.NoError(t, err)
	defer s.Close()
	assert.Len(t, s.List(), 2)
	assert.Equal(t, snaps.AutosavePath("letter_0badc0de", Purpose), s.LoadedFrom())

	untouched, err := Open("letter", snaps, WithAutosaveInterval(0))
	require.NoError(t, err)
	defer untouched.Close()
	assert.Len(t, untouched.List(), 1)
}

func TestOpen_LegacyFileWithoutExclude(t *testing.T) {
	snaps := newSnapshots(t)
	legacy := `{
  "regions": {"0": [[10, 10, 5, 5]]},
  "protect": {"2": [[0, 0, 100, 100]]}
}`
	require.NoError(t, os.WriteFile(snaps.AutosavePath("letter", Purpose), []byte(legacy), 0o640))

	s := openStore(t, snaps)
	assert.Equal(t, []geom.Rect{{X0: 5, Y0: 5, X1: 10, Y1: 10}}, s.Regions(0, KindRedact))
	assert.Len(t, s.Regions(2, KindProtect), 1)
	assert.Empty(t, s.Regions(0, KindExclude))
}

func TestOpen_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "broken json", data: `{"regions": `},
		{name: "bad page key", data: `{"regions": {"first": [[0, 0, 1, 1]]}, "protect": {}}`},
		{name: "short box", data: `{"regions": {"0": [[0, 0, 1]]}, "protect": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snaps := newSnapshots(t)
			require.NoError(t, os.WriteFile(snaps.AutosavePath("letter", Purpose), []byte(tt.data), 0o640))

			s := openStore(t, snaps)
			assert.Empty(t, s.List())
			assert.True(t, errors.Is(s.LoadWarning(), snapshot.ErrMalformed))
			assert.Equal(t, StatusLoaded, s.Status())
		})
	}
}

func TestFlush_OnlyWhenDirty(t *testing.T) {
	s := openStore(t, newSnapshots(t))

	wrote, err := s.Flush()
	require.NoError(t, err)
	assert.False(t, wrote)

	_, _ = s.Add(0, geom.NewRect(0, 0, 10, 10), KindRedact)
	wrote, err = s.Flush()
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = s.Flush()
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, 1, s.Stats().AutosaveWrites)
}

func TestAutosave_Cadence(t *testing.T) {
	snaps := newSnapshots(t)
	mt := metrics.New()
	interval := 50 * time.Millisecond
	s, err := Open("letter", snaps, WithAutosaveInterval(interval), WithMetrics(mt))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Add(0, geom.NewRect(0, 0, 10, 10), KindRedact)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return s.Stats().AutosaveWrites == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.FileExists(t, snaps.AutosavePath("letter", Purpose))
	assert.False(t, s.Dirty())

	// Further cadences without mutations write nothing.
	time.Sleep(4 * interval)
	assert.Equal(t, 1, s.Stats().AutosaveWrites)
	assert.Equal(t, float64(1), testutil.ToFloat64(mt.AutosaveWrites))

	paths, err := snaps.List("letter", Purpose)
	require.NoError(t, err)
	assert.Empty(t, paths, "autosave never creates timestamped artifacts")
}

func TestClose_FlushesAndIsIdempotent(t *testing.T) {
	snaps := newSnapshots(t)
	s, err := Open("letter", snaps, WithAutosaveInterval(time.Hour))
	require.NoError(t, err)

	_, _ = s.Add(0, geom.NewRect(0, 0, 10, 10), KindRedact)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.FileExists(t, snaps.AutosavePath("letter", Purpose))
	assert.Equal(t, 1, s.Stats().AutosaveWrites)
}

type op struct {
	kind   string
	page   int
	index  int
	region Kind
	rect   geom.Rect
}

func genRect(t *rapid.T, label string) geom.Rect {
	return geom.Rect{
		X0: float64(rapid.IntRange(0, 600).Draw(t, label+"x0")),
		Y0: float64(rapid.IntRange(0, 800).Draw(t, label+"y0")),
		X1: float64(rapid.IntRange(0, 600).Draw(t, label+"x1")),
		Y1: float64(rapid.IntRange(0, 800).Draw(t, label+"y1")),
	}
}

func TestProperty_UndoRedoRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		snaps, err := snapshot.NewStore(t.TempDir())
		require.NoError(rt, err)
		s, err := Open("prop", snaps, WithAutosaveInterval(0))
		require.NoError(rt, err)
		defer s.Close()

		// Seed a baseline that is not part of the undo history.
		_, _ = s.Add(0, geom.NewRect(1, 1, 2, 2), KindProtect)
		s.mu.Lock()
		s.history = nil
		s.mu.Unlock()
		before := s.List()

		n := 0
		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			o := op{
				kind:   rapid.SampledFrom([]string{"add", "remove", "update", "clear"}).Draw(rt, "op"),
				page:   rapid.IntRange(0, 3).Draw(rt, "page"),
				index:  rapid.IntRange(0, 3).Draw(rt, "index"),
				region: rapid.SampledFrom(Kinds).Draw(rt, "kind"),
			}
			o.rect = genRect(rt, "r")

			var ok bool
			switch o.kind {
			case "add":
				_, err := s.Add(o.page, o.rect, o.region)
				ok = err == nil
			case "remove":
				ok = s.Remove(o.page, o.index, o.region)
			case "update":
				ok = s.Update(o.page, o.index, o.rect, o.region)
			case "clear":
				ok = s.Clear(o.page)
			}
			if ok {
				n++
			}
			for _, r := range s.List() {
				if !r.BBox.IsEmpty() && !r.BBox.IsNormalized() {
					rt.Fatalf("region %v is not normalized", r)
				}
			}
		}
		after := s.List()

		for i := 0; i < n; i++ {
			require.True(rt, s.Undo())
		}
		assert.Equal(rt, before, s.List())

		for i := 0; i < n; i++ {
			require.True(rt, s.Redo())
		}
		assert.Equal(rt, after, s.List())
	})
}
