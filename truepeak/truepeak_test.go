package truepeak

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-meter/internal/testutil"
)

func TestInterSamplePeak12kTone(t *testing.T) {
	sampleRate := 48000
	// 12 kHz at 48 kHz with a 45 degree phase offset lands every sample at
	// +-sqrt(2)/2 while the waveform itself still reaches full scale
	// between samples.
	sig := testutil.DeterministicSinePhase(12000, float64(sampleRate), 1.0, math.Pi/4.0, sampleRate)

	samplePeak := SamplePeakDBFS(sig)
	if samplePeak <= -3.5 || samplePeak >= -2.5 {
		t.Errorf("sample peak: got %v dBFS, want (-3.5, -2.5)", samplePeak)
	}

	truePeak, err := Measure(sig, sampleRate, 1)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	if truePeak <= -0.5 || truePeak >= 0.5 {
		t.Errorf("true peak: got %v dBTP, want (-0.5, 0.5)", truePeak)
	}
	if truePeak-samplePeak <= 2.5 {
		t.Errorf("true peak must exceed sample peak by more than 2.5 dB, got %v", truePeak-samplePeak)
	}
}

func TestOnlineMatchesOfflineAnyChunking48k(t *testing.T) {
	sampleRate := 48000
	sig := testutil.DeterministicSinePhase(12000, float64(sampleRate), 0.9, math.Pi/4.0, sampleRate/2)

	want, err := Measure(sig, sampleRate, 1)
	if err != nil {
		t.Fatalf("offline failed: %v", err)
	}

	for _, size := range []int{1, 7, 4096} {
		m, err := NewMeter(sampleRate, 1)
		if err != nil {
			t.Fatalf("NewMeter failed: %v", err)
		}
		feedChunks(m.Update, sig, size)

		got := m.Finalize()
		if math.Abs(got-want) > 1e-6 {
			t.Errorf("chunk %d: online %v vs offline %v", size, got, want)
		}
	}
}

func TestOnlineMatchesOfflineOtherRates(t *testing.T) {
	for _, sampleRate := range []int{44100, 96000} {
		sig := testutil.DeterministicSine(997, float64(sampleRate), 0.5, sampleRate/2)

		want, err := Measure(sig, sampleRate, 1)
		if err != nil {
			t.Fatalf("offline failed: %v", err)
		}

		for _, size := range []int{1, 7, 1024} {
			m, err := NewMeter(sampleRate, 1)
			if err != nil {
				t.Fatalf("NewMeter failed: %v", err)
			}
			feedChunks(m.Update, sig, size)

			got := m.Finalize()
			if math.Abs(got-want) > 1e-6 {
				t.Errorf("rate %d chunk %d: online %v vs offline %v", sampleRate, size, got, want)
			}
		}
	}
}

func TestOnlinePartialFrameChunksStereo(t *testing.T) {
	sampleRate := 48000
	left := testutil.DeterministicSinePhase(12000, float64(sampleRate), 0.8, math.Pi/4.0, sampleRate/4)
	right := testutil.DeterministicSine(997, float64(sampleRate), 0.4, sampleRate/4)
	sig := testutil.Interleave(left, right)

	want, err := Measure(sig, sampleRate, 2)
	if err != nil {
		t.Fatalf("offline failed: %v", err)
	}

	for _, size := range []int{1, 3, 999} {
		m, err := NewMeter(sampleRate, 2)
		if err != nil {
			t.Fatalf("NewMeter failed: %v", err)
		}
		feedChunks(m.Update, sig, size)

		got := m.Finalize()
		if math.Abs(got-want) > 1e-6 {
			t.Errorf("chunk %d: online %v vs offline %v", size, got, want)
		}
	}
}

func TestSilenceIsNegativeInfinity(t *testing.T) {
	silence := make([]float64, 48000)

	dbtp, err := Measure(silence, 48000, 1)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	if !math.IsInf(dbtp, -1) {
		t.Errorf("silence: got %v, want -Inf", dbtp)
	}

	m, err := NewMeter(44100, 1)
	if err != nil {
		t.Fatalf("NewMeter failed: %v", err)
	}
	m.Update(silence)
	if got := m.Finalize(); !math.IsInf(got, -1) {
		t.Errorf("online silence: got %v, want -Inf", got)
	}

	if got := SamplePeakDBFS(nil); !math.IsInf(got, -1) {
		t.Errorf("empty sample peak: got %v, want -Inf", got)
	}
}

func TestFullScaleSineNearZeroDBTP48k(t *testing.T) {
	sig := testutil.DeterministicSine(997, 48000, 1.0, 48000)

	dbtp, err := Measure(sig, 48000, 1)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	if math.Abs(dbtp) > 0.2 {
		t.Errorf("full-scale sine got %v dBTP, want about 0", dbtp)
	}
}

func TestMeterRejectsBadParameters(t *testing.T) {
	if _, err := NewMeter(48000, 0); err == nil {
		t.Error("expected error for zero channels")
	}
	if _, err := NewMeter(0, 1); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := Measure(nil, 48000, -1); err == nil {
		t.Error("expected error for negative channels")
	}
}

func feedChunks(update func([]float64), sig []float64, size int) {
	for start := 0; start < len(sig); start += size {
		end := start + size
		if end > len(sig) {
			end = len(sig)
		}
		update(sig[start:end])
	}
}
