package truepeak

import (
	"fmt"
	"math"
)

// Meter is the streaming true-peak estimator. Each channel keeps enough
// trailing history for the interpolation kernel to see across chunk seams,
// so any partition of the input yields the offline result. One Meter serves
// one metering session.
type Meter struct {
	sampleRate int
	channels   int
	maxPeak    float64
	carry      []float64

	// 48 kHz polyphase path
	histories [][]float64

	// generic FIR path
	kernel      []float64
	firStates   [][]float64
	skipOutputs []int
}

// NewMeter builds a streaming estimator for the given stream parameters.
func NewMeter(sampleRate, channels int) (*Meter, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	m := &Meter{
		sampleRate: sampleRate,
		channels:   channels,
	}

	if sampleRate == 48000 {
		m.histories = make([][]float64, channels)
		for ch := range m.histories {
			m.histories[ch] = make([]float64, phaseTaps-1)
		}
		return m, nil
	}

	kernel, err := designLowpassFIR(1.0/float64(oversample), firTaps)
	if err != nil {
		return nil, err
	}
	m.kernel = kernel
	m.firStates = make([][]float64, channels)
	m.skipOutputs = make([]int, channels)
	for ch := range m.firStates {
		m.firStates[ch] = make([]float64, firTaps-1)
		m.skipOutputs[ch] = (firTaps - 1) / 2
	}
	return m, nil
}

// Update consumes the next interleaved chunk. A trailing partial frame is
// carried to the next call.
func (m *Meter) Update(chunk []float64) {
	if len(chunk) == 0 {
		return
	}

	buffer := chunk
	if len(m.carry) > 0 {
		buffer = append(m.carry, chunk...)
	}
	frames := len(buffer) / m.channels
	m.carry = append([]float64(nil), buffer[frames*m.channels:]...)
	if frames == 0 {
		return
	}

	channel := make([]float64, frames)
	for ch := 0; ch < m.channels; ch++ {
		for i := 0; i < frames; i++ {
			channel[i] = buffer[i*m.channels+ch] * inputAtten
		}
		if m.sampleRate == 48000 {
			m.updatePolyphase(channel, ch)
		} else {
			m.updateFIR(channel, ch)
		}
	}
}

func (m *Meter) updatePolyphase(channel []float64, ch int) {
	const historyLen = phaseTaps - 1

	history := m.histories[ch]
	work := make([]float64, historyLen+len(channel))
	copy(work, history)
	copy(work[historyLen:], channel)

	for phase := 0; phase < oversample; phase++ {
		taps := &polyphase48k[phase]
		for i := 0; i < len(channel); i++ {
			out := 0.0
			for j := 0; j < phaseTaps; j++ {
				out += taps[j] * work[historyLen+i-j]
			}
			if v := math.Abs(out); v > m.maxPeak {
				m.maxPeak = v
			}
		}
	}

	copy(history, work[len(work)-historyLen:])
}

func (m *Meter) updateFIR(channel []float64, ch int) {
	if len(channel) == 0 {
		return
	}

	state := m.firStates[ch]
	stateLen := len(state)

	upsampled := make([]float64, len(channel)*oversample)
	for i, v := range channel {
		upsampled[i*oversample] = v
	}

	work := make([]float64, stateLen+len(upsampled))
	copy(work, state)
	copy(work[stateLen:], upsampled)

	// First pad outputs are the kernel's group delay; skip them once per
	// stream so online output aligns with the centered offline convolution.
	skip := m.skipOutputs[ch]
	for i := 0; i < len(upsampled); i++ {
		if skip > 0 {
			skip--
			continue
		}
		out := 0.0
		for j, k := range m.kernel {
			out += k * work[stateLen+i-j]
		}
		if v := math.Abs(out); v > m.maxPeak {
			m.maxPeak = v
		}
	}
	m.skipOutputs[ch] = skip

	copy(state, work[len(work)-stateLen:])
}

// Finalize flushes the interpolation delay and reports the true peak in
// dBTP, or -Inf when no signal was seen. Further updates are unsupported.
func (m *Meter) Finalize() float64 {
	if m.sampleRate != 48000 && m.kernel != nil {
		tail := make([]float64, (firTaps-1)/2)
		for ch := 0; ch < m.channels; ch++ {
			m.updateFIR(tail, ch)
		}
	}
	if m.maxPeak <= 0.0 {
		return math.Inf(-1)
	}
	return 20.0*math.Log10(m.maxPeak) + gainComp
}
