package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

func main() {
	outputPath := flag.String("output", "tone.wav", "Output WAV path")
	toneName := flag.String("tone", "997", "Tone to generate: 997, isp, gating")
	sampleRate := flag.Int("sample-rate", 48000, "Sample rate in Hz")
	duration := flag.Float64("duration", 10.0, "Duration in seconds")
	amplitude := flag.Float64("amplitude", 32767.0/32768.0, "Peak amplitude for the 997 tone")
	flag.Parse()

	if *sampleRate <= 0 {
		die("invalid -sample-rate: %d", *sampleRate)
	}
	if *duration <= 0 {
		die("invalid -duration: %g", *duration)
	}

	var data []float32
	switch *toneName {
	case "997":
		data = sine(997.0, *sampleRate, *amplitude, 0.0, *duration)
	case "isp":
		// Sampled at +-sqrt(2)/2 while the continuous waveform peaks at
		// full scale between samples. Only meaningful at 48 kHz where
		// 12 kHz lands on a quarter of the rate.
		data = sine(12000.0, *sampleRate, 1.0, math.Pi/4.0, *duration)
	case "gating":
		loud := sine(997.0, *sampleRate, math.Pow(10, -20.0/20.0), 0.0, *duration/2)
		quiet := sine(997.0, *sampleRate, math.Pow(10, -40.0/20.0), 0.0, *duration/2)
		data = append(loud, quiet...)
	default:
		die("unknown -tone %q (want 997, isp or gating)", *toneName)
	}

	if err := writeMonoWAV(*outputPath, data, *sampleRate); err != nil {
		die("failed to write %s: %v", *outputPath, err)
	}
	fmt.Printf("Wrote %s: %s tone, %d Hz, %d frames\n", *outputPath, *toneName, *sampleRate, len(data))
}

func sine(freq float64, sampleRate int, amplitude, phase, duration float64) []float32 {
	n := int(math.Round(duration * float64(sampleRate)))
	out := make([]float32, n)
	w := 2.0 * math.Pi * freq / float64(sampleRate)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(w*float64(i)+phase))
	}
	return out
}

func writeMonoWAV(path string, data []float32, sampleRate int) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	defer enc.Close()

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 1,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	return enc.Write(buf)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
