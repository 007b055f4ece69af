package versions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/localdb"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// newTestStore returns a store with a fake clock that advances one second per
// save, so timestamps are strictly ordered.
func newTestStore(t *testing.T, persist localdb.Store, opts Options) *Store {
	t.Helper()
	s := NewStore(context.Background(), persist, notify.New(), testLogger(), opts)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func TestSaveVersion_RoundTrip(t *testing.T) {
	s := newTestStore(t, nil, Options{})
	ctx := context.Background()

	v := s.SaveVersion(ctx, "note-1", "Hello", "u1", "Alice", "")
	require.NotEmpty(t, v.ID)

	got, err := s.GetVersion(v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Content)
	assert.Equal(t, "note-1", got.ResourceID)
	assert.Equal(t, "u1", got.AuthorID)
	assert.Equal(t, "Alice", got.AuthorName)
}

func TestSaveVersion_AutoSummary(t *testing.T) {
	s := newTestStore(t, nil, Options{})
	ctx := context.Background()

	v1 := s.SaveVersion(ctx, "n", "abc", "u", "U", "")
	assert.Equal(t, "Initial version", v1.ChangeSummary)

	v2 := s.SaveVersion(ctx, "n", "abcdef", "u", "U", "")
	assert.Equal(t, "Added 3 characters", v2.ChangeSummary)

	v3 := s.SaveVersion(ctx, "n", "ab", "u", "U", "")
	assert.Equal(t, "Removed 4 characters", v3.ChangeSummary)

	v4 := s.SaveVersion(ctx, "n", "xy", "u", "U", "")
	assert.Equal(t, "Minor edits", v4.ChangeSummary)

	v5 := s.SaveVersion(ctx, "n", "zz", "u", "U", "manual note")
	assert.Equal(t, "manual note", v5.ChangeSummary)
}

func TestGetVersions_NewestFirst(t *testing.T) {
	s := newTestStore(t, nil, Options{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.SaveVersion(ctx, "n", fmt.Sprintf("content %d", i), "u", "U", "")
	}

	got := s.GetVersions("n")
	require.Len(t, got, 5)
	assert.Equal(t, "content 4", got[0].Content)
	assert.Equal(t, "content 0", got[4].Content)
	for i := 1; i < len(got); i++ {
		assert.True(t, !got[i-1].Timestamp.Before(got[i].Timestamp))
	}

	assert.Empty(t, s.GetVersions("unknown"))
}

func TestSaveVersion_PerResourceCap(t *testing.T) {
	s := newTestStore(t, nil, Options{MaxPerResource: 50})
	ctx := context.Background()

	first := s.SaveVersion(ctx, "n", "v0", "u", "U", "")
	for i := 1; i < 51; i++ {
		s.SaveVersion(ctx, "n", fmt.Sprintf("v%d", i), "u", "U", "")
	}

	got := s.GetVersions("n")
	require.Len(t, got, 50)
	assert.Equal(t, "v50", got[0].Content)
	assert.Equal(t, "v1", got[49].Content)

	_, err := s.GetVersion(first.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSaveVersion_GlobalCap(t *testing.T) {
	s := newTestStore(t, nil, Options{MaxPerResource: 10, MaxTotal: 6})
	ctx := context.Background()

	// three resources, three versions each; the globally oldest get evicted
	// regardless of resource
	var firstOfA *Version
	for i := 0; i < 3; i++ {
		v := s.SaveVersion(ctx, "a", fmt.Sprintf("a%d", i), "u", "U", "")
		if i == 0 {
			firstOfA = v
		}
	}
	for i := 0; i < 3; i++ {
		s.SaveVersion(ctx, "b", fmt.Sprintf("b%d", i), "u", "U", "")
	}
	for i := 0; i < 3; i++ {
		s.SaveVersion(ctx, "c", fmt.Sprintf("c%d", i), "u", "U", "")
	}

	assert.Equal(t, 6, s.Count())
	_, err := s.GetVersion(firstOfA.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	// resource "a" lost its oldest entries to global pruning
	assert.Len(t, s.GetVersions("c"), 3)
}

func TestGetLatestVersion(t *testing.T) {
	s := newTestStore(t, nil, Options{})
	ctx := context.Background()

	_, err := s.GetLatestVersion("n")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	s.SaveVersion(ctx, "n", "first", "u", "U", "")
	s.SaveVersion(ctx, "n", "second", "u", "U", "")

	v, err := s.GetLatestVersion("n")
	require.NoError(t, err)
	assert.Equal(t, "second", v.Content)
}

func TestRestoreVersion_FiresHook(t *testing.T) {
	n := notify.New()
	s := NewStore(context.Background(), nil, n, testLogger(), Options{})
	ctx := context.Background()

	var restored []string
	n.Subscribe(func(e notify.Event) {
		if e.Kind == notify.EventVersionRestored {
			restored = append(restored, e.VersionID)
		}
	})

	v := s.SaveVersion(ctx, "n", "content", "u", "U", "")
	got, err := s.RestoreVersion(v.ID)
	require.NoError(t, err)
	assert.Equal(t, "content", got.Content)
	assert.Equal(t, []string{v.ID}, restored)

	_, err = s.RestoreVersion("missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDeleteVersion(t *testing.T) {
	s := newTestStore(t, nil, Options{})
	ctx := context.Background()

	v := s.SaveVersion(ctx, "n", "content", "u", "U", "")
	assert.True(t, s.DeleteVersion(ctx, v.ID))
	assert.False(t, s.DeleteVersion(ctx, v.ID))

	_, err := s.GetVersion(v.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Empty(t, s.GetVersions("n"))
}

func TestDeleteResourceVersions_NotifiesPerID(t *testing.T) {
	n := notify.New()
	s := NewStore(context.Background(), nil, n, testLogger(), Options{})
	ctx := context.Background()

	var deleted []string
	n.Subscribe(func(e notify.Event) {
		if e.Kind == notify.EventVersionDeleted {
			deleted = append(deleted, e.VersionID)
		}
	})

	v1 := s.SaveVersion(ctx, "n", "one", "u", "U", "")
	v2 := s.SaveVersion(ctx, "n", "two", "u", "U", "")

	assert.True(t, s.DeleteResourceVersions(ctx, "n"))
	assert.ElementsMatch(t, []string{v1.ID, v2.ID}, deleted)
	assert.False(t, s.DeleteResourceVersions(ctx, "n"))
}

func TestCompareVersions(t *testing.T) {
	s := newTestStore(t, nil, Options{})
	ctx := context.Background()

	a := s.SaveVersion(ctx, "n", "a\nb", "u", "U", "")
	b := s.SaveVersion(ctx, "n", "a\nb\nc", "u", "U", "")

	r, err := s.CompareVersions(a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, r.Added)
	assert.Equal(t, 1, r.CharsAdded)

	_, err = s.CompareVersions(a.ID, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCompareWithCurrent_NotFound(t *testing.T) {
	s := newTestStore(t, nil, Options{})

	_, err := s.CompareWithCurrent("missing", "whatever")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetFilteredVersions(t *testing.T) {
	s := newTestStore(t, nil, Options{})
	ctx := context.Background()

	s.SaveVersion(ctx, "a", "1", "alice", "Alice", "")
	s.SaveVersion(ctx, "b", "2", "bob", "Bob", "")
	s.SaveVersion(ctx, "a", "3", "bob", "Bob", "")
	s.SaveVersion(ctx, "c", "4", "alice", "Alice", "")

	byResource := s.GetFilteredVersions(Filter{ResourceIDs: []string{"a"}})
	require.Len(t, byResource, 2)
	assert.Equal(t, "3", byResource[0].Content) // newest first

	byAuthor := s.GetFilteredVersions(Filter{AuthorIDs: []string{"alice"}})
	require.Len(t, byAuthor, 2)

	both := s.GetFilteredVersions(Filter{ResourceIDs: []string{"a"}, AuthorIDs: []string{"alice"}})
	require.Len(t, both, 1)
	assert.Equal(t, "1", both[0].Content)

	paged := s.GetFilteredVersions(Filter{Offset: 1, Limit: 2})
	require.Len(t, paged, 2)
	assert.Equal(t, "3", paged[0].Content)

	past := s.GetFilteredVersions(Filter{Offset: 100})
	assert.Empty(t, past)
}

func TestGetFilteredVersions_TimeRangeInclusive(t *testing.T) {
	s := newTestStore(t, nil, Options{})
	ctx := context.Background()

	v1 := s.SaveVersion(ctx, "n", "1", "u", "U", "")
	v2 := s.SaveVersion(ctx, "n", "2", "u", "U", "")
	v3 := s.SaveVersion(ctx, "n", "3", "u", "U", "")

	got := s.GetFilteredVersions(Filter{From: &v1.Timestamp, To: &v2.Timestamp})
	require.Len(t, got, 2)
	assert.Equal(t, v2.ID, got[0].ID)
	assert.Equal(t, v1.ID, got[1].ID)

	got = s.GetFilteredVersions(Filter{From: &v3.Timestamp})
	require.Len(t, got, 1)
}

func TestSubscribe(t *testing.T) {
	s := newTestStore(t, nil, Options{})
	ctx := context.Background()

	var seen []*Version
	unsub := s.Subscribe(func(v *Version) { seen = append(seen, v) })

	v := s.SaveVersion(ctx, "n", "content", "u", "U", "")
	require.Len(t, seen, 1)
	assert.Equal(t, v.ID, seen[0].ID)

	unsub()
	s.SaveVersion(ctx, "n", "more", "u", "U", "")
	assert.Len(t, seen, 1)
}

func TestPersistence_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := localdb.NewMemory()

	s1 := newTestStore(t, kv, Options{})
	v := s1.SaveVersion(ctx, "n", "persisted", "u", "U", "")

	// a second store over the same surface sees the saved state
	s2 := NewStore(ctx, kv, notify.New(), testLogger(), Options{})
	got, err := s2.GetVersion(v.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Content)
	assert.Len(t, s2.GetVersions("n"), 1)
}

func TestPersistence_CorruptBlobDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	kv := localdb.NewMemory()
	require.NoError(t, kv.Set(ctx, DefaultPersistKey, "{not json"))

	s := NewStore(ctx, kv, notify.New(), testLogger(), Options{})
	assert.Equal(t, 0, s.Count())

	// store remains usable
	v := s.SaveVersion(ctx, "n", "fresh", "u", "U", "")
	_, err := s.GetVersion(v.ID)
	assert.NoError(t, err)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, fmt.Errorf("disk gone")
}
func (failingStore) Set(context.Context, string, string) error {
	return fmt.Errorf("disk gone")
}

func TestPersistence_WriteFailureDoesNotCrash(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, failingStore{}, notify.New(), testLogger(), Options{})

	v := s.SaveVersion(ctx, "n", "content", "u", "U", "")
	got, err := s.GetVersion(v.ID)
	require.NoError(t, err)
	assert.Equal(t, "content", got.Content)
}
