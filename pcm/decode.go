// Package pcm converts raw little-endian sample buffers into normalized
// float64 samples. It handles signed 16/24/32-bit integer PCM and 32/64-bit
// IEEE float payloads; container parsing is the caller's concern.
package pcm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// IntToFloat64 normalizes signed PCM integers to float64 in [-1.0, 1.0).
// Values at or above full scale clamp to the largest representable value
// strictly below 1.0. Widths above 62 bits would overflow the int64 divisor
// and are rejected.
func IntToFloat64(samples []int, bits int) ([]float64, error) {
	if bits <= 0 || bits > 62 {
		return nil, fmt.Errorf("unsupported bits per sample: %d (want 1..62)", bits)
	}

	divisor := float64(int64(1) << (bits - 1))
	maxValue := (divisor - 1.0) / divisor

	out := make([]float64, len(samples))
	for i, s := range samples {
		v := float64(s) / divisor
		if v < -1.0 {
			v = -1.0
		} else if v >= 1.0 {
			v = maxValue
		}
		out[i] = v
	}
	return out, nil
}

// BytesToIntPCM decodes little-endian signed PCM bytes into integers for
// 16-, 24- or 32-bit payloads. A trailing partial multichannel frame is
// silently dropped; too little data for even one frame yields an empty slice.
func BytesToIntPCM(data []byte, bits, channels int) ([]int, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}

	var bytesPerSample int
	switch bits {
	case 16:
		bytesPerSample = 2
	case 24:
		bytesPerSample = 3
	case 32:
		bytesPerSample = 4
	default:
		return nil, fmt.Errorf("unsupported bits per sample: %d", bits)
	}

	bytesPerFrame := bytesPerSample * channels
	total := len(data) - len(data)%bytesPerFrame
	if total <= 0 {
		return []int{}, nil
	}
	data = data[:total]

	samples := make([]int, 0, total/bytesPerSample)
	switch bits {
	case 16:
		for off := 0; off < total; off += 2 {
			samples = append(samples, int(int16(binary.LittleEndian.Uint16(data[off:]))))
		}
	case 24:
		for off := 0; off < total; off += 3 {
			word := int32(data[off]) | int32(data[off+1])<<8 | int32(data[off+2])<<16
			if word&0x800000 != 0 {
				word -= 1 << 24
			}
			samples = append(samples, int(word))
		}
	case 32:
		for off := 0; off < total; off += 4 {
			samples = append(samples, int(int32(binary.LittleEndian.Uint32(data[off:]))))
		}
	}
	return samples, nil
}

// BytesToFloatIEEE decodes little-endian IEEE float bytes (32- or 64-bit)
// into float64 samples clamped to [-1.0, 1.0). Partial-frame handling matches
// BytesToIntPCM.
func BytesToFloatIEEE(data []byte, bits, channels int) ([]float64, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}

	var bytesPerSample int
	switch bits {
	case 32:
		bytesPerSample = 4
	case 64:
		bytesPerSample = 8
	default:
		return nil, fmt.Errorf("unsupported bits per sample: %d", bits)
	}

	bytesPerFrame := bytesPerSample * channels
	total := len(data) - len(data)%bytesPerFrame
	if total <= 0 {
		return []float64{}, nil
	}
	data = data[:total]

	maxValue := math.Nextafter(1.0, 0.0)
	out := make([]float64, 0, total/bytesPerSample)
	for off := 0; off < total; off += bytesPerSample {
		var v float64
		if bits == 32 {
			v = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:])))
		} else {
			v = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
		}
		if v < -1.0 {
			v = -1.0
		} else if v >= 1.0 {
			v = maxValue
		}
		out = append(out, v)
	}
	return out, nil
}

// InterleavedPeak returns the largest absolute sample value in an
// interleaved buffer.
func InterleavedPeak(samples []float64) float64 {
	peak := 0.0
	for _, s := range samples {
		if v := math.Abs(s); v > peak {
			peak = v
		}
	}
	return peak
}
