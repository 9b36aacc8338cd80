package providers

import "context"

// TranscribeOptions carries recognition hints. Zero values mean
// "provider default".
type TranscribeOptions struct {
	Language   string `json:"language"`
	SampleRate int    `json:"sample_rate"`
	Diarize    bool   `json:"diarize"`
}

// TranscriptSegment is one recognized span of speech. Segments are
// immutable once emitted.
type TranscriptSegment struct {
	StartMs    int64   `json:"start_ms"`
	EndMs      int64   `json:"end_ms"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
}

// StreamEventType discriminates provisional from settled segments.
type StreamEventType string

const (
	EventPartial StreamEventType = "partial"
	EventFinal   StreamEventType = "final"
)

// StreamEvent wraps a segment as it comes off a recognition stream.
type StreamEvent struct {
	Type    StreamEventType   `json:"type"`
	Segment TranscriptSegment `json:"segment"`
}

// TranscriptStream is a pull-based sequence of recognition events.
// Next blocks until the provider has another event, returns io.EOF
// once the input audio has been fully recognized, and returns any
// provider failure as a terminal error. A stream is consumed exactly
// once and is not restartable.
type TranscriptStream interface {
	Next() (StreamEvent, error)
}

// SpeechToText abstracts streaming speech recognition services.
type SpeechToText interface {
	// Transcribe consumes the audio channel until it is closed and
	// yields recognition events through the returned stream. The
	// caller controls backpressure by pulling events only when ready.
	Transcribe(ctx context.Context, audio <-chan []byte, opts TranscribeOptions) (TranscriptStream, error)
}
