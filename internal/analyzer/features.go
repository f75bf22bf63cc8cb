package analyzer

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

const (
	frameSize   = 1024
	hopSize     = 512
	fallbackBPM = 120.0

	minTempoBPM = 60.0
	maxTempoBPM = 200.0
)

// stftMagnitudes windows samples with a Hann window and runs a real FFT
// per hop, returning the magnitude spectrum (length frameSize/2+1) for
// each frame.
func stftMagnitudes(samples []float64, sampleRate, frameSize, hopSize int) [][]float64 {
	if len(samples) < frameSize {
		return nil
	}

	plan, err := algofft.NewPlanReal64(frameSize)
	if err != nil {
		return nil
	}

	hann := hannWindow(frameSize)
	spec := make([]complex128, frameSize/2+1)
	buf := make([]float64, frameSize)

	var frames [][]float64
	for pos := 0; pos+frameSize <= len(samples); pos += hopSize {
		for i := 0; i < frameSize; i++ {
			buf[i] = samples[pos+i] * hann[i]
		}
		if err := plan.Forward(spec, buf); err != nil {
			break
		}
		mag := make([]float64, len(spec))
		for k, c := range spec {
			mag[k] = cmplx.Abs(c)
		}
		frames = append(frames, mag)
	}
	return frames
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// onsetEnvelope is the spectral-flux onset strength: the sum of
// positive magnitude increases between consecutive frames.
func onsetEnvelope(frames [][]float64) ([]float64, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no STFT frames available")
	}
	envelope := make([]float64, len(frames))
	for i := 1; i < len(frames); i++ {
		var flux float64
		for k := range frames[i] {
			d := frames[i][k] - frames[i-1][k]
			if d > 0 {
				flux += d
			}
		}
		envelope[i] = flux
	}
	return envelope, nil
}

// detectOnsets picks local maxima in the envelope that rise above their
// local background, in the manner of a simple peak-picking onset
// detector. This deliberately stops short of DAW-quality onset
// detection.
func detectOnsets(envelope []float64, hopSize, sampleRate int) ([]float64, []float64, error) {
	if len(envelope) < 3 {
		return nil, nil, fmt.Errorf("envelope too short to pick peaks")
	}

	const windowRadius = 4
	hopSec := float64(hopSize) / float64(sampleRate)

	var times, strengths []float64
	for i := 1; i < len(envelope)-1; i++ {
		v := envelope[i]
		if v <= envelope[i-1] || v < envelope[i+1] {
			continue
		}
		lo := i - windowRadius
		if lo < 0 {
			lo = 0
		}
		hi := i + windowRadius
		if hi >= len(envelope) {
			hi = len(envelope) - 1
		}
		var localMean float64
		for j := lo; j <= hi; j++ {
			localMean += envelope[j]
		}
		localMean /= float64(hi - lo + 1)
		if v <= localMean {
			continue
		}
		times = append(times, float64(i)*hopSec)
		strengths = append(strengths, v)
	}
	if len(times) == 0 {
		return nil, nil, fmt.Errorf("no onset peaks found")
	}
	return times, strengths, nil
}

// estimateTempo autocorrelates the onset envelope over the lag range
// corresponding to minTempoBPM..maxTempoBPM and returns the BPM of the
// strongest periodicity, or an error when none can be found; the
// caller substitutes fallbackBPM.
func estimateTempo(envelope []float64, hopSize, sampleRate int) (float64, error) {
	framesPerSec := float64(sampleRate) / float64(hopSize)
	if framesPerSec <= 0 || len(envelope) < 8 {
		return 0, fmt.Errorf("envelope too short for autocorrelation")
	}

	minLag := int(framesPerSec * 60.0 / maxTempoBPM)
	maxLag := int(framesPerSec * 60.0 / minTempoBPM)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(envelope) {
		maxLag = len(envelope) - 1
	}
	if minLag >= maxLag {
		return 0, fmt.Errorf("lag range empty for this envelope length")
	}

	mean := 0.0
	for _, v := range envelope {
		mean += v
	}
	mean /= float64(len(envelope))

	bestLag := -1
	bestScore := math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		var score float64
		for i := 0; i+lag < len(envelope); i++ {
			score += (envelope[i] - mean) * (envelope[i+lag] - mean)
		}
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	if bestLag <= 0 || bestScore <= 0 {
		return 0, fmt.Errorf("no dominant periodicity found")
	}

	bpm := 60.0 * framesPerSec / float64(bestLag)
	return bpm, nil
}

// spectralCentroid computes the magnitude-weighted mean frequency of
// each STFT frame.
func spectralCentroid(frames [][]float64, sampleRate, frameSize int) ([]float64, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no STFT frames available")
	}
	centroid := make([]float64, len(frames))
	binHz := float64(sampleRate) / float64(frameSize)
	for i, mag := range frames {
		var weighted, total float64
		for k, m := range mag {
			freq := float64(k) * binHz
			weighted += freq * m
			total += m
		}
		if total > 0 {
			centroid[i] = weighted / total
		}
	}
	return centroid, nil
}
