// Package correlation computes streaming Pearson correlation between
// channel pairs of an interleaved multichannel stream in a single pass,
// using Welford-style running sums.
package correlation

import (
	"fmt"
	"math"
)

// Accumulator tracks one channel pair. The zero value is ready to use.
type Accumulator struct {
	count int64
	meanA float64
	meanB float64
	sumA  float64
	sumB  float64
	sumAB float64
}

// Update consumes one observation per channel.
func (a *Accumulator) Update(sampleA, sampleB float64) {
	a.count++
	deltaA := sampleA - a.meanA
	a.meanA += deltaA / float64(a.count)
	deltaB := sampleB - a.meanB
	a.meanB += deltaB / float64(a.count)
	a.sumA += deltaA * (sampleA - a.meanA)
	a.sumB += deltaB * (sampleB - a.meanB)
	a.sumAB += deltaA * (sampleB - a.meanB)
}

// Correlation returns the Pearson correlation clamped to [-1, 1]. Fewer
// than two observations, or a channel with non-positive corrected sum of
// squares, reads as 0 ("no measurable signal").
func (a *Accumulator) Correlation() float64 {
	if a.count < 2 {
		return 0.0
	}
	if a.sumA <= 0.0 || a.sumB <= 0.0 {
		return 0.0
	}
	corr := a.sumAB / math.Sqrt(a.sumA*a.sumB)
	if corr > 1.0 {
		return 1.0
	}
	if corr < -1.0 {
		return -1.0
	}
	return corr
}

// PairSet correlates several named channel pairs over one interleaved
// stream. Chunks may be any size: samples not forming a complete
// multichannel frame are buffered and carried to the next call.
type PairSet struct {
	channels     int
	pairs        map[string][2]int
	accumulators map[string]*Accumulator
	remainder    []float64
}

// NewPairSet builds a multi-pair accumulator. Pair indices address channels
// within one interleaved frame.
func NewPairSet(channels int, pairs map[string][2]int) (*PairSet, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}
	for name, pair := range pairs {
		if pair[0] < 0 || pair[0] >= channels || pair[1] < 0 || pair[1] >= channels {
			return nil, fmt.Errorf("pair %q indices %v out of range for %d channels", name, pair, channels)
		}
	}

	set := &PairSet{
		channels:     channels,
		pairs:        make(map[string][2]int, len(pairs)),
		accumulators: make(map[string]*Accumulator, len(pairs)),
	}
	for name, pair := range pairs {
		set.pairs[name] = pair
		set.accumulators[name] = &Accumulator{}
	}
	return set, nil
}

// UpdateChunk consumes the next interleaved chunk of any size.
func (s *PairSet) UpdateChunk(chunk []float64) {
	if len(chunk) == 0 {
		return
	}

	buffer := chunk
	if len(s.remainder) > 0 {
		buffer = append(s.remainder, chunk...)
	}
	total := len(buffer) - len(buffer)%s.channels
	if total <= 0 {
		s.remainder = append([]float64(nil), buffer...)
		return
	}
	s.remainder = append([]float64(nil), buffer[total:]...)

	for base := 0; base < total; base += s.channels {
		for name, pair := range s.pairs {
			s.accumulators[name].Update(buffer[base+pair[0]], buffer[base+pair[1]])
		}
	}
}

// Correlations returns the correlation per pair name.
func (s *PairSet) Correlations() map[string]float64 {
	out := make(map[string]float64, len(s.accumulators))
	for name, acc := range s.accumulators {
		out[name] = acc.Correlation()
	}
	return out
}

// Stereo is the two-channel convenience path: a single left/right pair over
// an interleaved stereo stream.
type Stereo struct {
	set *PairSet
}

// NewStereo requires exactly 2 channels.
func NewStereo(channels int) (*Stereo, error) {
	if channels != 2 {
		return nil, fmt.Errorf("stereo correlation requires 2 channels, got %d", channels)
	}
	set, err := NewPairSet(2, map[string][2]int{"lr": {0, 1}})
	if err != nil {
		return nil, err
	}
	return &Stereo{set: set}, nil
}

// UpdateChunk consumes the next interleaved stereo chunk.
func (s *Stereo) UpdateChunk(chunk []float64) {
	s.set.UpdateChunk(chunk)
}

// Correlation returns the left/right correlation.
func (s *Stereo) Correlation() float64 {
	return s.set.accumulators["lr"].Correlation()
}
