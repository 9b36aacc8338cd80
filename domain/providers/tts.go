package providers

import "context"

// SynthesizeOptions carries voice parameters. Zero values mean
// "provider default".
type SynthesizeOptions struct {
	Voice  string  `json:"voice"`
	Rate   float64 `json:"rate"`
	Volume float64 `json:"volume"`
}

// SynthesisResult is the complete output of one synthesis call.
type SynthesisResult struct {
	Audio      []byte `json:"audio"`
	SampleRate int    `json:"sample_rate"`
	MimeType   string `json:"mime_type"`
}

// TextToSpeech abstracts single-shot speech synthesis. Synthesize may
// block for the duration of a network or model round trip but never
// streams partial results.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*SynthesisResult, error)
}
