package core

import (
	"slices"
	"testing"
)

func TestTileRangeContains(t *testing.T) {
	r := NewTileRange(2, 5, -1, 3)
	if r.Left != -1 || r.Right != 2 || r.Top != 3 || r.Bottom != 5 {
		t.Fatalf("range not normalised: %+v", r)
	}
	if r.Width() != 4 || r.Height() != 3 {
		t.Fatalf("unexpected size %dx%d", r.Width(), r.Height())
	}
	if !r.Contains(-1, 3) || !r.Contains(2, 5) {
		t.Fatal("corners must be inside")
	}
	if r.Contains(3, 4) {
		t.Fatal("(3,4) must be outside")
	}
	if !r.ContainsWithin(5, 4, 3) {
		t.Fatal("(5,4) must be within buffer 3")
	}
	if r.ContainsWithin(6, 4, 3) {
		t.Fatal("(6,4) must be beyond buffer 3")
	}
}

func TestTileRangeCenterOut(t *testing.T) {
	cases := []struct {
		r    TileRange
		want []int
	}{
		{TileRange{Left: 0, Right: 0}, []int{0}},
		{TileRange{Left: 0, Right: 3}, []int{2, 1, 3, 0}},
		{TileRange{Left: -2, Right: 2}, []int{0, -1, 1, -2, 2}},
	}
	for _, tc := range cases {
		got := tc.r.CenterOut()
		if !slices.Equal(got, tc.want) {
			t.Fatalf("CenterOut(%v) = %v, want %v", tc.r, got, tc.want)
		}
	}
}

func TestFloorDiv(t *testing.T) {
	cases := [][3]int{
		{0, 256, 0},
		{255, 256, 0},
		{256, 256, 1},
		{-1, 256, -1},
		{-256, 256, -1},
		{-257, 256, -2},
	}
	for _, c := range cases {
		if got := FloorDiv(c[0], c[1]); got != c[2] {
			t.Fatalf("FloorDiv(%d,%d) = %d, want %d", c[0], c[1], got, c[2])
		}
	}
}

func TestTileLimitsClampY(t *testing.T) {
	l := TileLimits{MinY: 0, HasMinY: true}
	if got := l.ClampY(-3); got != 0 {
		t.Fatalf("ClampY(-3) = %d", got)
	}
	if got := l.ClampY(1 << 20); got != 1<<20 {
		t.Fatalf("ClampY unbounded above, got %d", got)
	}
}
