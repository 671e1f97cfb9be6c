package media

import "github.com/dkeye/livestage/internal/domain"

// Mixer keeps the latest normalized buffer of every speaking participant.
// It is not safe for concurrent use; the owning session serializes access.
type Mixer struct {
	latest map[domain.ParticipantID][]float32
}

func NewMixer() *Mixer {
	return &Mixer{latest: make(map[domain.ParticipantID][]float32)}
}

// Mix stores samples as the sender's latest buffer and returns the mix of all
// current buffers. The result has the length of samples; shorter buffers of
// other speakers count as silence past their end.
func (m *Mixer) Mix(sender domain.ParticipantID, samples []float32) []float32 {
	m.latest[sender] = samples
	if len(m.latest) == 1 {
		return samples
	}

	out := make([]float32, len(samples))
	for _, buf := range m.latest {
		n := min(len(buf), len(out))
		for i := 0; i < n; i++ {
			out[i] += buf[i]
		}
	}
	count := float32(len(m.latest))
	for i := range out {
		out[i] = clamp(out[i] / count)
	}
	return out
}

func (m *Mixer) Forget(id domain.ParticipantID) { delete(m.latest, id) }

func (m *Mixer) Reset() { clear(m.latest) }

func (m *Mixer) Speakers() int { return len(m.latest) }

func clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
