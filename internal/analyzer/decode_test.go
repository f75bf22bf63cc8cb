package analyzer

import (
	"math"
	"testing"
)

func TestLinearResampleUpsample(t *testing.T) {
	in := []float64{0, 1, 0, -1}
	out := linearResample(in, 4, 8)
	if len(out) != 8 {
		t.Fatalf("expected 8 samples, got %d", len(out))
	}
}

func TestLinearResampleSameRateIsIdentity(t *testing.T) {
	in := []float64{0.1, 0.2, 0.3}
	out := linearResample(in, 22050, 22050)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("identity resample mismatch at %d: %v vs %v", i, out[i], in[i])
		}
	}
}

func TestLinearResampleDownsamplePreservesDuration(t *testing.T) {
	in := make([]float64, 44100)
	out := linearResample(in, 44100, 22050)
	wantLen := 22050
	if math.Abs(float64(len(out)-wantLen)) > 2 {
		t.Fatalf("downsampled length = %d, want close to %d", len(out), wantLen)
	}
}

func TestRMSOfSilenceIsZero(t *testing.T) {
	if got := rms(make([]float64, 100)); got != 0 {
		t.Fatalf("rms of silence = %v, want 0", got)
	}
}

func TestDecodeMissingFile(t *testing.T) {
	_, _, err := decodeToMono22050("/nonexistent/path/song.mp3")
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}
