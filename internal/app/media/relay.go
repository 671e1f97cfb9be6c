package media

import (
	"errors"
	"fmt"

	"github.com/dkeye/livestage/internal/domain"
)

// ErrNoMode is returned for chunks that arrive while no known mode is set.
var ErrNoMode = errors.New("no media mode")

// ChunkKind is the one byte tag prefixed to every relayed binary frame.
type ChunkKind byte

const (
	AudioChunk  ChunkKind = 1
	VideoChunk  ChunkKind = 2
	ScreenChunk ChunkKind = 3
)

func (k ChunkKind) String() string {
	switch k {
	case AudioChunk:
		return "audio_chunk"
	case VideoChunk:
		return "video_chunk"
	case ScreenChunk:
		return "screen_chunk"
	default:
		return "unknown_chunk"
	}
}

// Relay turns one inbound chunk into at most one outbound frame.
type Relay struct {
	mixer *Mixer
	// maxAudio caps an audio chunk at one second of samples.
	maxAudio int
}

func NewRelay(sampleRate int) *Relay {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Relay{mixer: NewMixer(), maxAudio: 2 * sampleRate}
}

// Process returns the tagged payload to fan out for a chunk from sender.
func (r *Relay) Process(mode domain.MediaMode, sender domain.ParticipantID, chunk []byte) ([]byte, error) {
	switch mode {
	case domain.ModeAudio:
		if len(chunk) > r.maxAudio {
			return nil, fmt.Errorf("%w: %d bytes exceeds one second of audio", domain.ErrMalformedChunk, len(chunk))
		}
		samples, err := DecodePCM16(chunk)
		if err != nil {
			return nil, err
		}
		return tag(AudioChunk, EncodePCM16(r.mixer.Mix(sender, samples))), nil
	case domain.ModeVideo:
		return tag(VideoChunk, chunk), nil
	case domain.ModeScreen:
		return tag(ScreenChunk, chunk), nil
	default:
		return nil, ErrNoMode
	}
}

// Forget drops the buffered audio of a departed speaker.
func (r *Relay) Forget(id domain.ParticipantID) { r.mixer.Forget(id) }

// Reset drops all buffered audio, used on mode changes.
func (r *Relay) Reset() { r.mixer.Reset() }

func (r *Relay) Speakers() int { return r.mixer.Speakers() }

func tag(kind ChunkKind, payload []byte) []byte {
	out := make([]byte, 1+len(payload))
	out[0] = byte(kind)
	copy(out[1:], payload)
	return out
}
