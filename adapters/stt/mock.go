package stt

import (
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/arkadion/campfire/domain/providers"
)

// Synthetic duration assigned to each mock segment.
const mockSegmentMs = 1000

// MockSpeechToText is a deterministic stand-in for a real recognizer,
// used in development and tests. Each audio chunk that decodes as
// UTF-8 text becomes one final segment containing that text, preceded
// by a partial event holding its first word.
type MockSpeechToText struct {
	logger *zap.Logger
}

var _ providers.SpeechToText = (*MockSpeechToText)(nil)

// NewMock creates a mock speech-to-text provider.
func NewMock(logger *zap.Logger) (providers.SpeechToText, error) {
	return &MockSpeechToText{logger: logger}, nil
}

func (m *MockSpeechToText) Transcribe(ctx context.Context, audio <-chan []byte, opts providers.TranscribeOptions) (providers.TranscriptStream, error) {
	ts := &mockStream{results: make(chan sttResult)}

	go func() {
		defer close(ts.results)

		var offsetMs int64
		for chunk := range audio {
			text := "speech"
			if utf8.Valid(chunk) && strings.TrimSpace(string(chunk)) != "" {
				text = strings.TrimSpace(string(chunk))
			}

			segment := providers.TranscriptSegment{
				StartMs:    offsetMs,
				EndMs:      offsetMs + mockSegmentMs,
				Text:       text,
				Confidence: 0.95,
			}
			offsetMs += mockSegmentMs

			partial := segment
			if i := strings.IndexByte(text, ' '); i > 0 {
				partial.Text = text[:i]
			}

			for _, ev := range []providers.StreamEvent{
				{Type: providers.EventPartial, Segment: partial},
				{Type: providers.EventFinal, Segment: segment},
			} {
				select {
				case ts.results <- sttResult{event: ev}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	m.logger.Debug("mock transcription started",
		zap.String("language", opts.Language),
		zap.Int("sampleRate", opts.SampleRate))

	return ts, nil
}

type mockStream struct {
	results chan sttResult
}

func (s *mockStream) Next() (providers.StreamEvent, error) {
	r, ok := <-s.results
	if !ok {
		return providers.StreamEvent{}, io.EOF
	}
	return r.event, r.err
}
