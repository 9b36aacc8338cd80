package stt

import (
	"context"
	"fmt"
	"io"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/arkadion/campfire/domain/providers"
)

const (
	defaultLanguage   = "en-US"
	defaultSampleRate = 16000
)

// GoogleSpeechToText implements providers.SpeechToText on the Google
// Cloud Speech streaming API. Audio is expected to be raw little-endian
// 16-bit PCM at the configured sample rate.
type GoogleSpeechToText struct {
	logger *zap.Logger
}

var _ providers.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogle creates a Google Cloud Speech provider. Credentials are
// resolved through the usual GOOGLE_APPLICATION_CREDENTIALS chain.
func NewGoogle(logger *zap.Logger) (providers.SpeechToText, error) {
	return &GoogleSpeechToText{logger: logger}, nil
}

// Transcribe opens a streaming recognize session, feeds it every chunk
// from the audio channel, and yields interim results as partial events
// and settled results as final events.
func (g *GoogleSpeechToText) Transcribe(ctx context.Context, audio <-chan []byte, opts providers.TranscribeOptions) (providers.TranscriptStream, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open streaming recognize: %w", err)
	}

	language := opts.Language
	if language == "" {
		language = defaultLanguage
	}
	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:        speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz: int32(sampleRate),
		LanguageCode:    language,
	}
	if opts.Diarize {
		recognitionConfig.DiarizationConfig = &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
		}
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:         recognitionConfig,
				InterimResults: true,
			},
		},
	}); err != nil {
		stream.CloseSend()
		client.Close()
		return nil, fmt.Errorf("send streaming config: %w", err)
	}

	ts := &googleStream{results: make(chan sttResult)}

	go g.sendAudio(stream, audio)
	go g.receiveResults(client, stream, ts)

	return ts, nil
}

// sendAudio drains the producible audio sequence into the gRPC stream
// and half-closes it so the recognizer finalizes pending segments.
func (g *GoogleSpeechToText) sendAudio(stream speechpb.Speech_StreamingRecognizeClient, audio <-chan []byte) {
	for chunk := range audio {
		if len(chunk) == 0 {
			continue
		}
		if err := stream.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
				AudioContent: chunk,
			},
		}); err != nil {
			g.logger.Error("failed to send audio chunk", zap.Error(err))
			return
		}
	}
	if err := stream.CloseSend(); err != nil {
		g.logger.Error("failed to close send stream", zap.Error(err))
	}
}

func (g *GoogleSpeechToText) receiveResults(client *speech.Client, stream speechpb.Speech_StreamingRecognizeClient, ts *googleStream) {
	defer close(ts.results)
	defer client.Close()

	var lastEndMs int64

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			ts.results <- sttResult{err: fmt.Errorf("receive recognition result: %w", err)}
			return
		}

		for _, result := range resp.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			best := result.Alternatives[0]

			endMs := lastEndMs
			if result.ResultEndTime != nil {
				endMs = result.ResultEndTime.AsDuration().Milliseconds()
			}

			event := providers.StreamEvent{
				Type: providers.EventPartial,
				Segment: providers.TranscriptSegment{
					StartMs:    lastEndMs,
					EndMs:      endMs,
					Text:       best.Transcript,
					Confidence: float64(best.Confidence),
				},
			}
			if result.IsFinal {
				event.Type = providers.EventFinal
				lastEndMs = endMs
			}

			ts.results <- sttResult{event: event}
		}
	}
}

type sttResult struct {
	event providers.StreamEvent
	err   error
}

// googleStream adapts the receive goroutine's channel to the
// pull-based TranscriptStream contract.
type googleStream struct {
	results chan sttResult
}

func (s *googleStream) Next() (providers.StreamEvent, error) {
	r, ok := <-s.results
	if !ok {
		return providers.StreamEvent{}, io.EOF
	}
	return r.event, r.err
}
