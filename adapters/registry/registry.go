// Package registry maps provider names to provider instances.
// Defaults are built lazily from a constructor table on first lookup;
// explicit registration replaces whatever is there, which is how tests
// substitute deterministic stubs for real backends.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/arkadion/campfire/adapters/stt"
	"github.com/arkadion/campfire/adapters/tts"
	"github.com/arkadion/campfire/domain/providers"
)

// ErrUnknownProvider marks a lookup for a name with no registered
// instance and no default constructor. This is a configuration fault
// to report at startup, not a per-request condition.
var ErrUnknownProvider = errors.New("unknown provider")

// STTConstructor builds a speech-to-text provider on first lookup.
type STTConstructor func(logger *zap.Logger) (providers.SpeechToText, error)

// TTSConstructor builds a text-to-speech provider on first lookup.
type TTSConstructor func(logger *zap.Logger) (providers.TextToSpeech, error)

// Registry is the process-wide provider lookup table. Registration is
// a startup/test-setup activity; lookups are the steady-state path.
type Registry struct {
	logger *zap.Logger

	mu           sync.Mutex
	sttFactories map[string]STTConstructor
	ttsFactories map[string]TTSConstructor
	sttInstances map[string]providers.SpeechToText
	ttsInstances map[string]providers.TextToSpeech
}

// New creates a registry pre-loaded with the default constructor
// table.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		logger: logger,
		sttFactories: map[string]STTConstructor{
			"google": stt.NewGoogle,
			"mock":   stt.NewMock,
		},
		ttsFactories: map[string]TTSConstructor{
			"elevenlabs": newElevenLabs,
			"piper":      newPiper,
			"mock":       tts.NewMock,
		},
		sttInstances: make(map[string]providers.SpeechToText),
		ttsInstances: make(map[string]providers.TextToSpeech),
	}
}

func newElevenLabs(logger *zap.Logger) (providers.TextToSpeech, error) {
	cfg, err := tts.NewElevenLabsConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return tts.NewElevenLabsTTS(cfg, logger)
}

func newPiper(logger *zap.Logger) (providers.TextToSpeech, error) {
	cfg, err := tts.NewPiperConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return tts.NewPiperTTS(cfg, logger)
}

// RegisterSTT installs a speech-to-text provider under name, replacing
// any existing instance or default.
func (r *Registry) RegisterSTT(name string, p providers.SpeechToText) {
	r.mu.Lock()
	r.sttInstances[name] = p
	r.mu.Unlock()
}

// RegisterTTS installs a text-to-speech provider under name, replacing
// any existing instance or default.
func (r *Registry) RegisterTTS(name string, p providers.TextToSpeech) {
	r.mu.Lock()
	r.ttsInstances[name] = p
	r.mu.Unlock()
}

// STT returns the speech-to-text provider registered under name,
// constructing and caching the default on first lookup.
func (r *Registry) STT(name string) (providers.SpeechToText, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.sttInstances[name]; ok {
		return p, nil
	}
	ctor, ok := r.sttFactories[name]
	if !ok {
		return nil, fmt.Errorf("%w: stt %q", ErrUnknownProvider, name)
	}
	p, err := ctor(r.logger)
	if err != nil {
		return nil, fmt.Errorf("construct stt provider %q: %w", name, err)
	}
	r.sttInstances[name] = p
	return p, nil
}

// TTS returns the text-to-speech provider registered under name,
// constructing and caching the default on first lookup.
func (r *Registry) TTS(name string) (providers.TextToSpeech, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.ttsInstances[name]; ok {
		return p, nil
	}
	ctor, ok := r.ttsFactories[name]
	if !ok {
		return nil, fmt.Errorf("%w: tts %q", ErrUnknownProvider, name)
	}
	p, err := ctor(r.logger)
	if err != nil {
		return nil, fmt.Errorf("construct tts provider %q: %w", name, err)
	}
	r.ttsInstances[name] = p
	return p, nil
}
