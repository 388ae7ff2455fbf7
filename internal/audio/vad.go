package audio

import "math"

// frameMs is the analysis window of TrimSilence.
const frameMs = 30

// RMS returns the root-mean-square level of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// TrimSilence drops every 30 ms frame of mono audio whose RMS is below
// threshold. Fully silent input yields an empty slice.
func TrimSilence(samples []float32, sampleRate int, threshold float64) []float32 {
	frame := sampleRate * frameMs / 1000
	if frame <= 0 || threshold <= 0 {
		return samples
	}
	out := make([]float32, 0, len(samples))
	for start := 0; start < len(samples); start += frame {
		end := min(start+frame, len(samples))
		if RMS(samples[start:end]) >= threshold {
			out = append(out, samples[start:end]...)
		}
	}
	return out
}
