// Package truepeak estimates inter-sample peaks by 4x oversampling per the
// BS.1770 true-peak method. At 48 kHz the fixed 12-tap polyphase
// interpolation table is used; other rates interpolate the zero-stuffed
// stream through a 63-tap windowed-sinc lowpass. Offline and streaming
// variants agree for any chunking of the input.
package truepeak

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-meter/pcm"
)

const (
	oversample    = 4
	firTaps       = 63
	phaseTaps     = 12
	inputAtten    = 0.25
	designEpsilon = 1e-12
)

// gainComp undoes the 0.25 input attenuation headroom on the reported peak.
var gainComp = 20.0 * math.Log10(float64(oversample))

// polyphase48k is the BS.1770-4 interpolation table, stored phase-major
// (4 phases x 12 taps).
var polyphase48k = [oversample][phaseTaps]float64{
	{
		0.0017089843750, 0.0109863281250, -0.0196533203125, 0.0332031250000,
		-0.0594482421875, 0.1373291015625, 0.9721679687500, -0.1022949218750,
		0.0476074218750, -0.0266113281250, 0.0148925781250, -0.0083007812500,
	},
	{
		-0.0291748046875, 0.0292968750000, -0.0517578125000, 0.0891113281250,
		-0.1665039062500, 0.4650878906250, 0.7797851562500, -0.2003173828125,
		0.1015625000000, -0.0582275390625, 0.0330810546875, -0.0189208984375,
	},
	{
		-0.0189208984375, 0.0330810546875, -0.0582275390625, 0.1015625000000,
		-0.2003173828125, 0.7797851562500, 0.4650878906250, -0.1665039062500,
		0.0891113281250, -0.0517578125000, 0.0292968750000, -0.0291748046875,
	},
	{
		-0.0083007812500, 0.0148925781250, -0.0266113281250, 0.0476074218750,
		-0.1022949218750, 0.9721679687500, 0.1373291015625, -0.0594482421875,
		0.0332031250000, -0.0196533203125, 0.0109863281250, 0.0017089843750,
	},
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1.0
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// designLowpassFIR builds a Hann-windowed sinc kernel normalized to unity
// DC gain. cutoff is relative to the oversampled rate.
func designLowpassFIR(cutoff float64, taps int) ([]float64, error) {
	if taps <= 1 || taps%2 == 0 {
		return nil, fmt.Errorf("FIR taps must be an odd integer >= 3, got %d", taps)
	}

	center := float64(taps-1) / 2.0
	kernel := make([]float64, taps)
	norm := 0.0
	for n := range kernel {
		window := 0.5 - 0.5*math.Cos(2.0*math.Pi*float64(n)/float64(taps-1))
		kernel[n] = 2.0 * cutoff * sinc(2.0*cutoff*(float64(n)-center)) * window
		norm += kernel[n]
	}
	if math.Abs(norm) < designEpsilon {
		return nil, fmt.Errorf("invalid FIR design (zero gain)")
	}
	for n := range kernel {
		kernel[n] /= norm
	}
	return kernel, nil
}

// polyphasePeak48k runs one channel through all four interpolation phases
// and returns the largest absolute interpolated value.
func polyphasePeak48k(channel []float64) float64 {
	const historyLen = phaseTaps - 1

	work := make([]float64, historyLen+len(channel))
	copy(work[historyLen:], channel)

	maxPeak := 0.0
	for phase := 0; phase < oversample; phase++ {
		taps := &polyphase48k[phase]
		for i := 0; i < len(channel); i++ {
			out := 0.0
			for j := 0; j < phaseTaps; j++ {
				out += taps[j] * work[historyLen+i-j]
			}
			if v := math.Abs(out); v > maxPeak {
				maxPeak = v
			}
		}
	}
	return maxPeak
}

// firPeak interpolates one channel through the windowed-sinc kernel using a
// centered convolution over the zero-stuffed stream.
func firPeak(channel, kernel []float64) float64 {
	if len(channel) == 0 {
		return 0.0
	}

	upsampled := make([]float64, len(channel)*oversample)
	for i, v := range channel {
		upsampled[i*oversample] = v
	}

	pad := (len(kernel) - 1) / 2
	maxPeak := 0.0
	for i := range upsampled {
		out := 0.0
		for j, k := range kernel {
			idx := i + pad - j
			if idx < 0 || idx >= len(upsampled) {
				continue
			}
			out += k * upsampled[idx]
		}
		if v := math.Abs(out); v > maxPeak {
			maxPeak = v
		}
	}
	return maxPeak
}

// Measure computes the true peak in dBTP from a materialized interleaved
// buffer, or -Inf when the peak is exactly zero.
func Measure(samples []float64, sampleRate, channels int) (float64, error) {
	if channels <= 0 {
		return 0, fmt.Errorf("invalid channel count: %d", channels)
	}
	if sampleRate <= 0 {
		return 0, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if len(samples) == 0 {
		return math.Inf(-1), nil
	}

	var kernel []float64
	if sampleRate != 48000 {
		var err error
		kernel, err = designLowpassFIR(1.0/float64(oversample), firTaps)
		if err != nil {
			return 0, err
		}
	}

	frames := len(samples) / channels
	maxPeak := 0.0
	channel := make([]float64, frames)
	for ch := 0; ch < channels; ch++ {
		for i := 0; i < frames; i++ {
			channel[i] = samples[i*channels+ch] * inputAtten
		}

		var channelPeak float64
		if sampleRate == 48000 {
			channelPeak = polyphasePeak48k(channel)
		} else {
			channelPeak = firPeak(channel, kernel)
		}
		if channelPeak > maxPeak {
			maxPeak = channelPeak
		}
	}

	if maxPeak <= 0.0 {
		return math.Inf(-1), nil
	}
	return 20.0*math.Log10(maxPeak) + gainComp, nil
}

// SamplePeakDBFS reports the plain (non-oversampled) peak of an interleaved
// buffer in dBFS, or -Inf for silence.
func SamplePeakDBFS(samples []float64) float64 {
	peak := pcm.InterleavedPeak(samples)
	if peak <= 0.0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(peak)
}
