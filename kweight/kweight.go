// Package kweight provides the ITU-R BS.1770 K-weighting filter cascade:
// a high-frequency shelving pre-filter followed by the RLB high-pass,
// realized as two biquads with caller-owned delay-line state so blockwise
// and sample-at-a-time application are bit-identical.
package kweight

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// Coefficients holds one biquad stage, a0 normalized to 1.
type Coefficients struct {
	B [3]float64
	A [3]float64
}

// Analog prototype parameters behind the published 48 kHz table.
const (
	preShelfFreq = 1681.974450955533
	preShelfGain = 3.999843853973347
	preShelfQ    = 0.7071752369554196
	preShelfBeta = 0.4996667741545416

	rlbHighpassFreq = 38.13547087602444
	rlbHighpassQ    = 0.5003270373238773
)

// Design derives the pre-filter and RLB biquads for a sample rate. The
// 48 kHz case returns the published BS.1770 reference table verbatim; every
// other rate goes through the bilinear transform of the analog prototype.
func Design(sampleRate int) (pre, rlb Coefficients) {
	if sampleRate == 48000 {
		pre = Coefficients{
			B: [3]float64{1.53512485958697, -2.69169618940638, 1.19839281085285},
			A: [3]float64{1.0, -1.69065929318241, 0.73248077421585},
		}
		rlb = Coefficients{
			B: [3]float64{1.0, -2.0, 1.0},
			A: [3]float64{1.0, -1.99004745483398, 0.99007225036621},
		}
		return pre, rlb
	}

	fs := float64(sampleRate)

	k := math.Tan(math.Pi * preShelfFreq / fs)
	vh := math.Pow(10.0, preShelfGain/20.0)
	vb := math.Pow(vh, preShelfBeta)
	a0 := 1.0 + k/preShelfQ + k*k
	pre = Coefficients{
		B: [3]float64{
			(vh + vb*k/preShelfQ + k*k) / a0,
			2.0 * (k*k - vh) / a0,
			(vh - vb*k/preShelfQ + k*k) / a0,
		},
		A: [3]float64{
			1.0,
			2.0 * (k*k - 1.0) / a0,
			(1.0 - k/preShelfQ + k*k) / a0,
		},
	}

	k = math.Tan(math.Pi * rlbHighpassFreq / fs)
	a0 = 1.0 + k/rlbHighpassQ + k*k
	rlb = Coefficients{
		B: [3]float64{1.0, -2.0, 1.0},
		A: [3]float64{
			1.0,
			2.0 * (k*k - 1.0) / a0,
			(1.0 - k/rlbHighpassQ + k*k) / a0,
		},
	}
	return pre, rlb
}

// Biquad is a Direct Form I section with persistent delay-line state.
// State carries across Process calls, so chunked results equal batch results
// exactly.
type Biquad struct {
	coeff          Coefficients
	x1, x2, y1, y2 float64
}

// NewBiquad returns a section with zeroed state.
func NewBiquad(coeff Coefficients) *Biquad {
	return &Biquad{coeff: coeff}
}

// ProcessSample filters one sample. The output is denormal-flushed before it
// is both stored and returned, so the carried state and the emitted sample
// never diverge.
func (f *Biquad) ProcessSample(x0 float64) float64 {
	y0 := dspcore.FlushDenormals(f.coeff.B[0]*x0 + f.coeff.B[1]*f.x1 + f.coeff.B[2]*f.x2 -
		f.coeff.A[1]*f.y1 - f.coeff.A[2]*f.y2)
	f.x2 = f.x1
	f.x1 = x0
	f.y2 = f.y1
	f.y1 = y0
	return y0
}

// Process filters src into dst. dst and src may alias; len(dst) must be at
// least len(src).
func (f *Biquad) Process(dst, src []float64) {
	for i, x := range src {
		dst[i] = f.ProcessSample(x)
	}
}

// Reset zeroes the delay line.
func (f *Biquad) Reset() {
	f.x1, f.x2, f.y1, f.y2 = 0, 0, 0, 0
}

// Filter is the full K-weighting cascade for one channel.
type Filter struct {
	pre *Biquad
	rlb *Biquad
}

// NewFilter builds the cascade for a sample rate.
func NewFilter(sampleRate int) *Filter {
	pre, rlb := Design(sampleRate)
	return &Filter{pre: NewBiquad(pre), rlb: NewBiquad(rlb)}
}

// ProcessSample applies both stages to one sample.
func (f *Filter) ProcessSample(x float64) float64 {
	return f.rlb.ProcessSample(f.pre.ProcessSample(x))
}

// Process applies both stages to src, writing into dst.
func (f *Filter) Process(dst, src []float64) {
	for i, x := range src {
		dst[i] = f.ProcessSample(x)
	}
}

// Reset zeroes both delay lines.
func (f *Filter) Reset() {
	f.pre.Reset()
	f.rlb.Reset()
}
