package analyzer

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"rhythmcore/internal/errs"
)

// targetSampleRate is the mono rate every decode target resamples to.
const targetSampleRate = 22050

// decodeToMono22050 decodes path to a single channel of float64 PCM
// samples in [-1, 1], resampled to targetSampleRate.
func decodeToMono22050(path string) ([]float64, int, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, 0, errs.ErrNotFound
		}
		return nil, 0, err
	}

	var mono []float64
	var sourceRate int
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		mono, sourceRate, err = decodeMP3(path)
	case ".wav", ".wave":
		mono, sourceRate, err = decodeWAV(path)
	default:
		return nil, 0, fmt.Errorf("%w: unsupported extension %q", errs.ErrDecodeFailed, filepath.Ext(path))
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errs.ErrDecodeFailed, err)
	}
	if len(mono) == 0 {
		return nil, 0, fmt.Errorf("%w: empty decode result", errs.ErrDecodeFailed)
	}

	resampled := linearResample(mono, sourceRate, targetSampleRate)
	return resampled, targetSampleRate, nil
}

func decodeMP3(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, err
	}

	sampleRate := dec.SampleRate()
	var buf [4096]byte
	var mono []float64
	for {
		n, rerr := dec.Read(buf[:])
		for i := 0; i+4 <= n; i += 4 {
			left := int16(uint16(buf[i]) | uint16(buf[i+1])<<8)
			right := int16(uint16(buf[i+2]) | uint16(buf[i+3])<<8)
			mono = append(mono, (float64(left)+float64(right))/2/32768.0)
		}
		if rerr != nil {
			break
		}
	}
	return mono, sampleRate, nil
}

func decodeWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if !dec.WasPCMAccessed() || buf == nil {
		return nil, 0, fmt.Errorf("no PCM data decoded")
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	floats := buf.AsFloat32Buffer().Data

	mono := make([]float64, len(floats)/channels)
	for i := range mono {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(floats[i*channels+ch])
		}
		mono[i] = sum / float64(channels)
	}
	return mono, buf.Format.SampleRate, nil
}

// linearResample resamples mono PCM from srcRate to dstRate via linear
// interpolation. Real chart generation only needs this to be monotone
// and duration-preserving, not broadcast-quality.
func linearResample(samples []float64, srcRate, dstRate int) []float64 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(srcRate) / float64(dstRate)
	outLen := int(float64(len(samples)) / ratio)
	out := make([]float64, outLen)
	for i := range out {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)
		if idx+1 < len(samples) {
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		} else if idx < len(samples) {
			out[i] = samples[idx]
		}
	}
	return out
}

// rms is used by tests to sanity-check decode output without asserting
// exact sample values.
func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		sumSq += s * s
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}
