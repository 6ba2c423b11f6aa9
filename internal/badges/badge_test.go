package badges

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lingua/internal/counters"
	"github.com/abhisek/lingua/internal/logger"
)

func TestCatalogShape(t *testing.T) {
	if len(Catalog) != 27 {
		t.Errorf("catalog has %d badges, want 27", len(Catalog))
	}
	seen := map[string]bool{}
	for _, d := range Catalog {
		if seen[d.ID] {
			t.Errorf("duplicate badge id %q", d.ID)
		}
		seen[d.ID] = true
		if d.Requirement <= 0 {
			t.Errorf("%s: requirement %d", d.ID, d.Requirement)
		}
	}
	for _, id := range []string{"streak-3", "streak-100", "xp-10000", "vocab-500", "grammar-10", "lessons-1", "perfect-10", "exam-5", "score-900", "night-owl", "early-bird"} {
		if !seen[id] {
			t.Errorf("missing badge %q", id)
		}
	}
}

func find(t *testing.T, bs []Badge, id string) Badge {
	t.Helper()
	for _, b := range bs {
		if b.ID == id {
			return b
		}
	}
	t.Fatalf("badge %q not found", id)
	return Badge{}
}

func TestEvaluateThresholds(t *testing.T) {
	c := counters.Counters{
		LongestStreak:     7,
		TotalXP:           999,
		VocabularyCorrect: 55,
		BestExamScore:     600,
		Hour:              12,
	}
	bs := Evaluate(Catalog, c, nil)

	tests := []struct {
		id       string
		unlocked bool
		progress int
	}{
		{"streak-3", true, 3},
		{"streak-7", true, 7},
		{"streak-30", false, 7},
		{"xp-100", true, 100},
		{"xp-1000", false, 999},
		{"vocab-50", true, 50},
		{"vocab-200", false, 55},
		{"grammar-10", false, 0},
		{"score-600", true, 600},
		{"score-900", false, 600},
		{"night-owl", false, 0},
		{"early-bird", false, 0},
	}
	for _, tt := range tests {
		b := find(t, bs, tt.id)
		if b.Unlocked != tt.unlocked || b.CurrentProgress != tt.progress {
			t.Errorf("%s: unlocked=%v progress=%d, want %v %d", tt.id, b.Unlocked, b.CurrentProgress, tt.unlocked, tt.progress)
		}
	}
}

func TestSpecialWindows(t *testing.T) {
	tests := []struct {
		hour  int
		night bool
		early bool
	}{
		{23, true, false},
		{0, true, false},
		{3, true, false},
		{4, false, false},
		{5, false, true},
		{6, false, true},
		{7, false, false},
		{22, false, false},
	}
	for _, tt := range tests {
		bs := Evaluate(Catalog, counters.Counters{Hour: tt.hour}, nil)
		if got := find(t, bs, "night-owl").Unlocked; got != tt.night {
			t.Errorf("hour %d: night-owl = %v, want %v", tt.hour, got, tt.night)
		}
		if got := find(t, bs, "early-bird").Unlocked; got != tt.early {
			t.Errorf("hour %d: early-bird = %v, want %v", tt.hour, got, tt.early)
		}
	}
}

func TestPersistedUnlockSticks(t *testing.T) {
	at := time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC)
	bs := Evaluate(Catalog, counters.Counters{Hour: 12}, map[string]time.Time{"night-owl": at})

	b := find(t, bs, "night-owl")
	assert.True(t, b.Unlocked)
	require.NotNil(t, b.UnlockedAt)
	assert.True(t, b.UnlockedAt.Equal(at))
}

func TestNextTiers(t *testing.T) {
	bs := Evaluate(Catalog, counters.Counters{LongestStreak: 10, TotalXP: 10000, Hour: 12}, nil)
	tiers := NextTiers(bs)

	byCat := map[Category]NextTier{}
	for _, nt := range tiers {
		byCat[nt.Category] = nt
	}

	streak := byCat[CategoryStreak]
	assert.Equal(t, "streak-30", streak.Badge.ID)
	assert.Equal(t, 33, streak.Percent)

	_, ok := byCat[CategoryXP]
	assert.False(t, ok, "all xp badges unlocked")

	assert.Equal(t, "grammar-10", byCat[CategoryGrammar].Badge.ID)
	assert.Equal(t, 0, byCat[CategoryGrammar].Percent)
}

type fakeUnlockRepo struct {
	unlocks map[string]time.Time
	listErr error
	calls   int
}

func (f *fakeUnlockRepo) Unlock(_ context.Context, _ string, badgeID string, at time.Time) (bool, error) {
	f.calls++
	if _, ok := f.unlocks[badgeID]; ok {
		return false, nil
	}
	f.unlocks[badgeID] = at
	return true, nil
}

func (f *fakeUnlockRepo) ListByUser(context.Context, string) (map[string]time.Time, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make(map[string]time.Time, len(f.unlocks))
	for k, v := range f.unlocks {
		out[k] = v
	}
	return out, nil
}

func TestServicePersistsFirstUnlockOnce(t *testing.T) {
	repo := &fakeUnlockRepo{unlocks: map[string]time.Time{}}
	svc := NewService(repo, logger.Nop())
	first := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return first })
	ctx := context.Background()
	c := counters.Counters{LongestStreak: 3, Hour: 12}

	res := svc.Evaluate(ctx, "u1", c)
	require.Len(t, res.NewlyUnlocked, 1)
	assert.Equal(t, "streak-3", res.NewlyUnlocked[0].ID)

	svc.SetClock(func() time.Time { return first.Add(48 * time.Hour) })
	res = svc.Evaluate(ctx, "u1", c)
	assert.Empty(t, res.NewlyUnlocked)
	b := find(t, res.Badges, "streak-3")
	require.NotNil(t, b.UnlockedAt)
	assert.True(t, b.UnlockedAt.Equal(first), "first unlock time is never overwritten")
	assert.Equal(t, 1, repo.calls)
}

func TestServiceWithoutUserDoesNotPersist(t *testing.T) {
	repo := &fakeUnlockRepo{unlocks: map[string]time.Time{}}
	svc := NewService(repo, logger.Nop())

	res := svc.Evaluate(context.Background(), "", counters.Counters{Hour: 23})
	assert.True(t, find(t, res.Badges, "night-owl").Unlocked)
	assert.Equal(t, 0, repo.calls)
}

func TestServiceDegradesOnReadFailure(t *testing.T) {
	repo := &fakeUnlockRepo{unlocks: map[string]time.Time{}, listErr: errors.New("down")}
	svc := NewService(repo, logger.Nop())

	res := svc.Evaluate(context.Background(), "u1", counters.Counters{LongestStreak: 3})
	assert.True(t, res.Stale)
	assert.True(t, find(t, res.Badges, "streak-3").Unlocked)
	assert.Equal(t, 0, repo.calls, "no writes while unlock state is unknown")
}
