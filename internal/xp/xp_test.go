package xp

import (
	"testing"
	"time"

	"github.com/abhisek/lingua/internal/store"
)

func tp(t time.Time) *time.Time { return &t }

var t0 = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func TestReconcileLessonWrite(t *testing.T) {
	tests := []struct {
		name     string
		prev     *store.LessonProgress
		incoming store.LessonProgress
		want     store.LessonProgress
	}{
		{
			name:     "no previous record",
			incoming: store.LessonProgress{Completed: true, Score: 60, XPEarned: 30, CompletedAt: tp(t0)},
			want:     store.LessonProgress{Completed: true, Score: 60, XPEarned: 30, CompletedAt: tp(t0)},
		},
		{
			name:     "lower write never regresses",
			prev:     &store.LessonProgress{Completed: true, Score: 60, XPEarned: 30, CompletedAt: tp(t0)},
			incoming: store.LessonProgress{Completed: false, Score: 40, XPEarned: 20},
			want:     store.LessonProgress{Completed: true, Score: 60, XPEarned: 30, CompletedAt: tp(t0)},
		},
		{
			name:     "fields take max independently",
			prev:     &store.LessonProgress{Completed: false, Score: 90, XPEarned: 10},
			incoming: store.LessonProgress{Completed: true, Score: 70, XPEarned: 35, CompletedAt: tp(t0)},
			want:     store.LessonProgress{Completed: true, Score: 90, XPEarned: 35, CompletedAt: tp(t0)},
		},
		{
			name:     "earliest completion kept",
			prev:     &store.LessonProgress{Completed: true, CompletedAt: tp(t0.Add(time.Hour))},
			incoming: store.LessonProgress{Completed: true, CompletedAt: tp(t0)},
			want:     store.LessonProgress{Completed: true, CompletedAt: tp(t0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReconcileLessonWrite(tt.prev, tt.incoming)
			if got.Completed != tt.want.Completed || got.Score != tt.want.Score || got.XPEarned != tt.want.XPEarned {
				t.Errorf("got (completed=%v score=%d xp=%d), want (completed=%v score=%d xp=%d)",
					got.Completed, got.Score, got.XPEarned, tt.want.Completed, tt.want.Score, tt.want.XPEarned)
			}
			if (got.CompletedAt == nil) != (tt.want.CompletedAt == nil) {
				t.Fatalf("CompletedAt = %v, want %v", got.CompletedAt, tt.want.CompletedAt)
			}
			if got.CompletedAt != nil && !got.CompletedAt.Equal(*tt.want.CompletedAt) {
				t.Errorf("CompletedAt = %v, want %v", *got.CompletedAt, *tt.want.CompletedAt)
			}
		})
	}
}

func TestReconcileIsCommutativeAndIdempotent(t *testing.T) {
	writes := []store.LessonProgress{
		{Completed: true, Score: 60, XPEarned: 30, CompletedAt: tp(t0)},
		{Completed: false, Score: 80, XPEarned: 20},
		{Completed: true, Score: 40, XPEarned: 45, CompletedAt: tp(t0.Add(time.Hour))},
	}

	apply := func(order []int) store.LessonProgress {
		var cur *store.LessonProgress
		for _, i := range order {
			m := ReconcileLessonWrite(cur, writes[i])
			cur = &m
		}
		return *cur
	}

	base := apply([]int{0, 1, 2})
	for _, order := range [][]int{{2, 1, 0}, {1, 0, 2}, {0, 0, 1, 2, 2}} {
		got := apply(order)
		if got.Completed != base.Completed || got.Score != base.Score || got.XPEarned != base.XPEarned {
			t.Errorf("order %v: got %+v, want %+v", order, got, base)
		}
		if !got.CompletedAt.Equal(*base.CompletedAt) {
			t.Errorf("order %v: CompletedAt = %v, want %v", order, got.CompletedAt, base.CompletedAt)
		}
	}
	if base.Score != 80 || base.XPEarned != 45 || !base.Completed {
		t.Errorf("merged = %+v, want score 80 xp 45 completed", base)
	}
}
