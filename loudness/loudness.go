// Package loudness implements ITU-R BS.1770 gated integrated loudness over
// K-weighted, channel-weighted block energies. Offline and streaming
// variants share the same arithmetic, so chunked results match batch results
// regardless of how the caller partitions the input.
package loudness

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-meter/kweight"
	"github.com/cwbudde/algo-meter/layout"
)

const (
	loudnessOffset = -0.691
	absGateLUFS    = -70.0

	integratedBlockSeconds = 0.4
	integratedHopSeconds   = 0.1
	shortTermBlockSeconds  = 3.0
	shortTermHopSeconds    = 1.0
)

// blockEnergies averages squared samples over sliding blocks and folds the
// per-channel means through the weighting vector. weighted is one slice per
// channel, all the same length.
func blockEnergies(weighted [][]float64, blockSize, hopSize int, weights []float64) []float64 {
	if blockSize <= 0 || hopSize <= 0 || len(weighted) == 0 {
		return nil
	}
	n := len(weighted[0])
	if n < blockSize {
		return nil
	}

	var energies []float64
	for start := 0; start+blockSize <= n; start += hopSize {
		energy := 0.0
		for ch, channel := range weighted {
			sumSq := 0.0
			for _, v := range channel[start : start+blockSize] {
				sumSq += v * v
			}
			energy += weights[ch] * (sumSq / float64(blockSize))
		}
		energies = append(energies, energy)
	}
	return energies
}

func meanEnergy(energies []float64) float64 {
	sum := 0.0
	for _, e := range energies {
		sum += e
	}
	return sum / float64(len(energies))
}

// loudnessFromEnergies applies the absolute and relative gates (when gated)
// and converts the surviving mean energy to LUFS. No surviving blocks means
// no measurable signal, reported as -Inf.
func loudnessFromEnergies(energies []float64, gated bool) float64 {
	if len(energies) == 0 {
		return math.Inf(-1)
	}

	if gated {
		absThreshold := math.Pow(10.0, (absGateLUFS-loudnessOffset)/10.0)
		var kept []float64
		for _, e := range energies {
			if e > absThreshold {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			return math.Inf(-1)
		}

		relThreshold := meanEnergy(kept) / 10.0
		var survivors []float64
		for _, e := range kept {
			if e > relThreshold {
				survivors = append(survivors, e)
			}
		}
		if len(survivors) == 0 {
			return math.Inf(-1)
		}
		energies = survivors
	}

	mean := meanEnergy(energies)
	if mean <= 0.0 {
		return math.Inf(-1)
	}
	return loudnessOffset + 10.0*math.Log10(mean)
}

func offlineLoudness(samples []float64, sampleRate, channels int, blockSeconds, hopSeconds float64, gated bool, opts ...Option) (float64, error) {
	if channels <= 0 {
		return 0, fmt.Errorf("invalid channel count: %d", channels)
	}
	if sampleRate <= 0 {
		return 0, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if len(samples) == 0 {
		return math.Inf(-1), nil
	}

	cfg := applyOptions(opts...)
	weights, _ := layout.Weighting(channels, cfg.channelMask, cfg.channelLayout)

	frames := len(samples) / channels
	weighted := make([][]float64, channels)
	for ch := 0; ch < channels; ch++ {
		filter := kweight.NewFilter(sampleRate)
		channel := make([]float64, frames)
		for i := 0; i < frames; i++ {
			channel[i] = filter.ProcessSample(samples[i*channels+ch])
		}
		weighted[ch] = channel
	}

	blockSize := int(math.Round(blockSeconds * float64(sampleRate)))
	hopSize := int(math.Round(hopSeconds * float64(sampleRate)))
	energies := blockEnergies(weighted, blockSize, hopSize, weights)
	return loudnessFromEnergies(energies, gated), nil
}

// Integrated computes gated integrated loudness in LUFS from a fully
// materialized interleaved buffer.
func Integrated(samples []float64, sampleRate, channels int, opts ...Option) (float64, error) {
	return offlineLoudness(samples, sampleRate, channels,
		integratedBlockSeconds, integratedHopSeconds, true, opts...)
}

// ShortTerm computes ungated short-term loudness in LUFS over 3 s windows
// hopped every second.
func ShortTerm(samples []float64, sampleRate, channels int, opts ...Option) (float64, error) {
	return offlineLoudness(samples, sampleRate, channels,
		shortTermBlockSeconds, shortTermHopSeconds, false, opts...)
}
