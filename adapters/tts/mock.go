package tts

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arkadion/campfire/domain/providers"
)

// MockTTS returns the input text as bytes, tagged as 16kHz PCM. It
// exists so development and tests never touch a real synthesis
// backend.
type MockTTS struct {
	logger *zap.Logger
}

var _ providers.TextToSpeech = (*MockTTS)(nil)

// NewMock creates a mock text-to-speech provider.
func NewMock(logger *zap.Logger) (providers.TextToSpeech, error) {
	return &MockTTS{logger: logger}, nil
}

func (m *MockTTS) Synthesize(ctx context.Context, text string, opts providers.SynthesizeOptions) (*providers.SynthesisResult, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	m.logger.Debug("mock synthesis",
		zap.String("voice", opts.Voice),
		zap.Int("chars", len(text)))

	return &providers.SynthesisResult{
		Audio:      []byte(text),
		SampleRate: 16000,
		MimeType:   "audio/pcm",
	}, nil
}
