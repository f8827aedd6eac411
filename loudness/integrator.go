package loudness

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-meter/kweight"
	"github.com/cwbudde/algo-meter/layout"
)

// Integrator accumulates gated integrated loudness from an interleaved
// stream. Chunks may be any size, down to a single sample: a partial frame
// is carried to the next Update, and all filter state persists across calls,
// so the result equals the offline computation for any partition of the
// input. One Integrator serves one metering session; after Finalize it is
// done.
type Integrator struct {
	sampleRate int
	channels   int
	weights    []float64
	resolution layout.Resolution

	blockSize int
	hopSize   int

	filters  []*kweight.Filter
	pending  [][]float64 // K-weighted samples awaiting block emission
	carry    []float64   // trailing partial interleaved frame
	energies []float64
}

// NewIntegrator builds a streaming integrator. The channel mask and layout
// options feed weighting inference; resolution failures degrade to uniform
// gain rather than erroring.
func NewIntegrator(sampleRate, channels int, opts ...Option) (*Integrator, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	blockSize := int(math.Round(integratedBlockSeconds * float64(sampleRate)))
	hopSize := int(math.Round(integratedHopSeconds * float64(sampleRate)))
	if blockSize <= 0 || hopSize <= 0 {
		return nil, fmt.Errorf("sample rate too low: %d", sampleRate)
	}

	cfg := applyOptions(opts...)
	weights, resolution := layout.Weighting(channels, cfg.channelMask, cfg.channelLayout)

	g := &Integrator{
		sampleRate: sampleRate,
		channels:   channels,
		weights:    weights,
		resolution: resolution,
		blockSize:  blockSize,
		hopSize:    hopSize,
		filters:    make([]*kweight.Filter, channels),
		pending:    make([][]float64, channels),
	}
	for ch := range g.filters {
		g.filters[ch] = kweight.NewFilter(sampleRate)
	}
	return g, nil
}

// Resolution reports which layout-resolution path and weighting mode were
// used.
func (g *Integrator) Resolution() layout.Resolution { return g.resolution }

// Update consumes the next interleaved chunk. Chunk order must match sample
// order; chunk size is free.
func (g *Integrator) Update(chunk []float64) {
	if len(chunk) == 0 {
		return
	}

	buffer := chunk
	if len(g.carry) > 0 {
		buffer = append(g.carry, chunk...)
	}
	frames := len(buffer) / g.channels
	g.carry = append([]float64(nil), buffer[frames*g.channels:]...)
	if frames == 0 {
		return
	}

	for ch := 0; ch < g.channels; ch++ {
		filter := g.filters[ch]
		pending := g.pending[ch]
		for i := 0; i < frames; i++ {
			pending = append(pending, filter.ProcessSample(buffer[i*g.channels+ch]))
		}
		g.pending[ch] = pending
	}

	g.emitBlocks()
}

// emitBlocks converts complete 400 ms windows into weighted block energies
// and drops the consumed hops, keeping the window overlap for the next call.
func (g *Integrator) emitBlocks() {
	n := len(g.pending[0])
	if n < g.blockSize {
		return
	}

	blockCount := 1 + (n-g.blockSize)/g.hopSize
	for index := 0; index < blockCount; index++ {
		start := index * g.hopSize
		energy := 0.0
		for ch, pending := range g.pending {
			sumSq := 0.0
			for _, v := range pending[start : start+g.blockSize] {
				sumSq += v * v
			}
			energy += g.weights[ch] * (sumSq / float64(g.blockSize))
		}
		g.energies = append(g.energies, energy)
	}

	drop := blockCount * g.hopSize
	for ch := range g.pending {
		remaining := len(g.pending[ch]) - drop
		copy(g.pending[ch], g.pending[ch][drop:])
		g.pending[ch] = g.pending[ch][:remaining]
	}
}

// Finalize applies the absolute and relative gates and returns the
// integrated loudness in LUFS, or -Inf when no block survives. Further
// updates after Finalize are unsupported.
func (g *Integrator) Finalize() float64 {
	return loudnessFromEnergies(g.energies, true)
}
