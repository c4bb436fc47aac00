package geo

import (
	"math"
	"testing"
)

func TestArithmetic(t *testing.T) {
	a := New(1, 2, 3)
	b := New(4, 6, 8)

	if got := a.Add(b); got != New(5, 8, 11) {
		t.Errorf("Add = %v", got)
	}
	if got := b.Sub(a); got != New(3, 4, 5) {
		t.Errorf("Sub = %v", got)
	}
	if got := a.Scale(2); got != New(2, 4, 6) {
		t.Errorf("Scale = %v", got)
	}
	if got := a.WithAlt(100); got != New(1, 2, 100) {
		t.Errorf("WithAlt = %v", got)
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Position
		want      float64
		wantHoriz float64
	}{
		{"same point", New(0, 0, 0), New(0, 0, 0), 0, 0},
		{"planar", New(0, 0, 0), New(3, 4, 0), 5, 5},
		{"vertical only", New(10, 10, 0), New(10, 10, 7), 7, 0},
		{"3d", New(1, 2, 2), New(0, 0, 0), 3, math.Sqrt(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Distance(tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance = %v, want %v", got, tt.want)
			}
			if got := tt.a.HorizontalDistance(tt.b); math.Abs(got-tt.wantHoriz) > 1e-9 {
				t.Errorf("HorizontalDistance = %v, want %v", got, tt.wantHoriz)
			}
		})
	}
}

func TestEqualTolerance(t *testing.T) {
	a := New(100, 200, 300)
	if !a.Equal(New(100.0005, 199.9995, 300.0009)) {
		t.Error("positions within tolerance should be equal")
	}
	if a.Equal(New(100.002, 200, 300)) {
		t.Error("positions outside tolerance should differ")
	}
}

func TestString(t *testing.T) {
	if got := New(12.7, -3.2, 1000.9).String(); got != "(12, -3, Alt:1000)" {
		t.Errorf("String = %q", got)
	}
}
