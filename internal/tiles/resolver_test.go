package tiles

import (
	"testing"

	"wolfram-tiles/internal/core"
)

func coords(ts []*Tile) []core.Coord {
	out := make([]core.Coord, len(ts))
	for i, t := range ts {
		out[i] = t.Coord()
	}
	return out
}

func TestCollectUnresolvedAncestorsTriangle(t *testing.T) {
	c := NewCache(32)
	deps := collectUnresolvedAncestors(c, c.GetOrCreate(5, 3), map[core.Coord]struct{}{})

	var want []core.Coord
	for x := 8; x >= 2; x-- {
		want = append(want, core.Coord{X: x, Y: 0})
	}
	for x := 7; x >= 3; x-- {
		want = append(want, core.Coord{X: x, Y: 1})
	}
	for x := 6; x >= 4; x-- {
		want = append(want, core.Coord{X: x, Y: 2})
	}

	got := coords(deps)
	if len(got) != len(want) {
		t.Fatalf("got %d ancestors %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ancestor %d = %v, want %v (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestCollectUnresolvedAncestorsTopRow(t *testing.T) {
	c := NewCache(32)
	if deps := collectUnresolvedAncestors(c, c.GetOrCreate(7, 0), nil); len(deps) != 0 {
		t.Fatalf("row 0 has no ancestors, got %v", coords(deps))
	}
}

func TestCollectUnresolvedAncestorsStopsAtResolvedRow(t *testing.T) {
	c := NewCache(32)
	for x := -1; x <= 1; x++ {
		c.GetOrCreate(x, 4).publish([]bool{false}, nil)
	}
	deps := collectUnresolvedAncestors(c, c.GetOrCreate(0, 5), map[core.Coord]struct{}{})
	if len(deps) != 0 {
		t.Fatalf("parents are computed, got %v", coords(deps))
	}

	// Only the middle parent is known: the two outer ones are missing and the
	// walk continues upwards.
	c.Clear()
	c.GetOrCreate(0, 4).publish([]bool{false}, nil)
	for x := -2; x <= 2; x++ {
		c.GetOrCreate(x, 3).publish([]bool{false}, nil)
	}
	deps = collectUnresolvedAncestors(c, c.GetOrCreate(0, 5), map[core.Coord]struct{}{})
	got := coords(deps)
	want := []core.Coord{{X: 1, Y: 4}, {X: -1, Y: 4}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCollectUnresolvedAncestorsSkipsQueued(t *testing.T) {
	c := NewCache(32)
	queued := map[core.Coord]struct{}{
		{X: -1, Y: 1}: {},
		{X: 0, Y: 1}:  {},
		{X: 1, Y: 1}:  {},
	}
	if deps := collectUnresolvedAncestors(c, c.GetOrCreate(0, 2), queued); len(deps) != 0 {
		t.Fatalf("queued parents must not be repeated, got %v", coords(deps))
	}
}

func TestCollectUnresolvedAncestorsTerminates(t *testing.T) {
	c := NewCache(32)
	for _, y := range []int{1, 2, 10, 60} {
		c.Clear()
		deps := collectUnresolvedAncestors(c, c.GetOrCreate(0, y), map[core.Coord]struct{}{})
		// Row y-k contributes 2k+1 tiles for k = 1..y.
		if want := y*y + 2*y; len(deps) != want {
			t.Fatalf("y=%d: %d ancestors, want %d", y, len(deps), want)
		}
		if deps[0].Y != 0 || deps[len(deps)-1].Y != y-1 {
			t.Fatalf("y=%d: ancestors not ordered top-down", y)
		}
		for i := 1; i < len(deps); i++ {
			if deps[i].Y < deps[i-1].Y {
				t.Fatalf("y=%d: generation order broken at %d", y, i)
			}
		}
	}
}
