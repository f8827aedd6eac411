package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-meter/correlation"
	"github.com/cwbudde/algo-meter/loudness"
	"github.com/cwbudde/algo-meter/pcm"
	"github.com/cwbudde/algo-meter/truepeak"
	"github.com/cwbudde/wav"
)

func main() {
	inputPath := flag.String("input", "", "Input WAV path (or raw PCM with -raw)")
	maskStr := flag.String("mask", "", "WAV channel mask, e.g. 0x3F")
	layoutStr := flag.String("layout", "", "FFmpeg layout name or '+'-separated list, e.g. 5.1(side)")
	pairsStr := flag.String("pairs", "", "Correlation pairs as name=a:b[,name=c:d]; default lr=0:1 for stereo")
	chunkSize := flag.Int("chunk", 4096, "Samples fed to the meters per update")
	raw := flag.Bool("raw", false, "Treat input as headerless PCM")
	rawRate := flag.Int("rate", 48000, "Sample rate for raw input")
	rawChannels := flag.Int("channels", 2, "Channel count for raw input")
	rawBits := flag.Int("bits", 16, "Bit depth for raw input (16, 24, 32)")
	rawFloat := flag.Bool("float", false, "Raw input is IEEE float (32 or 64 bit)")
	jsonOut := flag.Bool("json", false, "Print results as JSON")
	flag.Parse()

	if *inputPath == "" {
		die("missing -input")
	}
	if *chunkSize <= 0 {
		die("invalid -chunk: %d", *chunkSize)
	}

	var mask uint32
	if *maskStr != "" {
		parsed, err := strconv.ParseUint(*maskStr, 0, 32)
		if err != nil {
			die("invalid -mask %q: %v", *maskStr, err)
		}
		mask = uint32(parsed)
	}

	var samples []float64
	var sampleRate, channels int
	var err error
	if *raw {
		samples, err = readRawPCM(*inputPath, *rawBits, *rawChannels, *rawFloat)
		sampleRate, channels = *rawRate, *rawChannels
	} else {
		samples, sampleRate, channels, err = readWAV(*inputPath)
	}
	if err != nil {
		die("failed to read input: %v", err)
	}

	pairs, err := parsePairs(*pairsStr, channels)
	if err != nil {
		die("invalid -pairs: %v", err)
	}

	var opts []loudness.Option
	if mask != 0 {
		opts = append(opts, loudness.WithChannelMask(mask))
	}
	if *layoutStr != "" {
		opts = append(opts, loudness.WithChannelLayout(*layoutStr))
	}

	integrator, err := loudness.NewIntegrator(sampleRate, channels, opts...)
	if err != nil {
		die("loudness setup failed: %v", err)
	}
	peakMeter, err := truepeak.NewMeter(sampleRate, channels)
	if err != nil {
		die("true peak setup failed: %v", err)
	}
	var pairSet *correlation.PairSet
	if len(pairs) > 0 {
		pairSet, err = correlation.NewPairSet(channels, pairs)
		if err != nil {
			die("correlation setup failed: %v", err)
		}
	}

	for start := 0; start < len(samples); start += *chunkSize {
		end := start + *chunkSize
		if end > len(samples) {
			end = len(samples)
		}
		chunk := samples[start:end]
		integrator.Update(chunk)
		peakMeter.Update(chunk)
		if pairSet != nil {
			pairSet.UpdateChunk(chunk)
		}
	}

	res := integrator.Resolution()
	out := report{
		SampleRate:     sampleRate,
		Channels:       channels,
		Frames:         len(samples) / channels,
		IntegratedLUFS: integrator.Finalize(),
		TruePeakDBTP:   peakMeter.Finalize(),
		SamplePeakDBFS: truepeak.SamplePeakDBFS(samples),
		ChannelOrder:   res.OrderCSV,
		LayoutMode:     res.Mode,
	}
	if pairSet != nil {
		out.Correlations = pairSet.Correlations()
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}

	fmt.Printf("Input:           %s\n", *inputPath)
	fmt.Printf("Format:          %d Hz, %d ch, %d frames\n", out.SampleRate, out.Channels, out.Frames)
	fmt.Printf("Channel order:   %s\n", out.ChannelOrder)
	fmt.Printf("Layout mode:     %s\n", out.LayoutMode)
	fmt.Printf("Integrated:      %.2f LUFS\n", out.IntegratedLUFS)
	fmt.Printf("True peak:       %.2f dBTP\n", out.TruePeakDBTP)
	fmt.Printf("Sample peak:     %.2f dBFS\n", out.SamplePeakDBFS)
	if len(out.Correlations) > 0 {
		names := make([]string, 0, len(out.Correlations))
		for name := range out.Correlations {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("Correlation %s:  %+.4f\n", name, out.Correlations[name])
		}
	}
}

type report struct {
	SampleRate     int                `json:"sample_rate"`
	Channels       int                `json:"channels"`
	Frames         int                `json:"frames"`
	IntegratedLUFS float64            `json:"integrated_lufs"`
	TruePeakDBTP   float64            `json:"true_peak_dbtp"`
	SamplePeakDBFS float64            `json:"sample_peak_dbfs"`
	ChannelOrder   string             `json:"channel_order"`
	LayoutMode     string             `json:"layout_mode"`
	Correlations   map[string]float64 `json:"correlations,omitempty"`
}

func readWAV(path string) ([]float64, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v)
	}
	return samples, buf.Format.SampleRate, buf.Format.NumChannels, nil
}

func readRawPCM(path string, bits, channels int, isFloat bool) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isFloat {
		return pcm.BytesToFloatIEEE(data, bits, channels)
	}
	ints, err := pcm.BytesToIntPCM(data, bits, channels)
	if err != nil {
		return nil, err
	}
	return pcm.IntToFloat64(ints, bits)
}

func parsePairs(arg string, channels int) (map[string][2]int, error) {
	if arg == "" {
		if channels == 2 {
			return map[string][2]int{"lr": {0, 1}}, nil
		}
		return nil, nil
	}

	pairs := make(map[string][2]int)
	for _, entry := range strings.Split(arg, ",") {
		name, indices, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("entry %q must look like name=a:b", entry)
		}
		aStr, bStr, ok := strings.Cut(indices, ":")
		if !ok {
			return nil, fmt.Errorf("entry %q must look like name=a:b", entry)
		}
		a, err := strconv.Atoi(aStr)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %v", entry, err)
		}
		b, err := strconv.Atoi(bStr)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %v", entry, err)
		}
		pairs[name] = [2]int{a, b}
	}
	return pairs, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
