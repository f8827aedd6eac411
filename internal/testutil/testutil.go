// Package testutil provides deterministic signal generators shared by the
// metering tests.
package testutil

import "math"

// DeterministicSine generates n samples of a sine at the given frequency,
// sample rate and amplitude, starting at phase zero.
func DeterministicSine(freq, sampleRate, amplitude float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2.0*math.Pi*freq*float64(i)/sampleRate)
	}
	return out
}

// DeterministicSinePhase is DeterministicSine with an initial phase offset
// in radians.
func DeterministicSinePhase(freq, sampleRate, amplitude, phase float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2.0*math.Pi*freq*float64(i)/sampleRate+phase)
	}
	return out
}

// Interleave merges per-channel slices into one interleaved buffer. All
// channels must have equal length.
func Interleave(channels ...[]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	frames := len(channels[0])
	out := make([]float64, 0, frames*len(channels))
	for i := 0; i < frames; i++ {
		for _, ch := range channels {
			out = append(out, ch[i])
		}
	}
	return out
}
