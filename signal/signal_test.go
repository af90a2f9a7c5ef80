package signal_test

import (
	"math"
	"sort"
	"testing"

	"github.com/grailbio/nanocall/signal"
	"github.com/grailbio/testutil/expect"
)

func TestMedMad(t *testing.T) {
	tests := []struct {
		raw []int16
		med float64
		mad float64
	}{
		{[]int16{5}, 5, 0},
		{[]int16{1, 2, 3}, 2, 1 * 1.4826},
		{[]int16{1, 2, 3, 4}, 2.5, 1 * 1.4826},
		// A single large spike barely moves the estimates.
		{[]int16{10, 10, 10, 10, 10, 10, 32000}, 10, 0},
		{[]int16{}, 0, 0},
	}
	for _, test := range tests {
		med, mad := signal.MedMad(test.raw)
		expect.EQ(t, med, test.med)
		if math.Abs(mad-test.mad) > 1e-9 {
			t.Errorf("MedMad(%v): mad %v, want %v", test.raw, mad, test.mad)
		}
	}
}

// The normalized trace must have median ~0 and scaled MAD ~1 whenever the
// input MAD is nonzero.
func TestNormalizeRobustStats(t *testing.T) {
	raw := []int16{420, 433, 441, 406, 399, 512, 430, 431, 2100, 428, 390, 444}
	norm := signal.Normalize(raw)
	expect.EQ(t, len(norm), len(raw))

	x := make([]float64, len(norm))
	for i, v := range norm {
		x[i] = float64(v)
	}
	sort.Float64s(x)
	med := (x[len(x)/2-1] + x[len(x)/2]) / 2
	if math.Abs(med) > 1e-6 {
		t.Errorf("normalized median = %v, want ~0", med)
	}
	for i := range x {
		x[i] = math.Abs(x[i] - med)
	}
	sort.Float64s(x)
	mad := (x[len(x)/2-1] + x[len(x)/2]) / 2 * 1.4826
	if math.Abs(mad-1) > 1e-6 {
		t.Errorf("normalized scaled MAD = %v, want ~1", mad)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	raw := []int16{1, 9, 2, 8, 3, 7, 4, 6, 5}
	a := signal.Normalize(raw)
	b := signal.Normalize(raw)
	expect.EQ(t, a, b)
}

// A constant trace has MAD 0 and yields non-finite samples; that is the
// documented contract, the decoder deals with it.
func TestNormalizeConstantTrace(t *testing.T) {
	norm := signal.Normalize([]int16{7, 7, 7, 7})
	for _, v := range norm {
		if !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0) {
			t.Fatalf("constant trace produced finite sample %v", v)
		}
	}
}
