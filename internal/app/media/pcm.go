package media

import (
	"encoding/binary"
	"fmt"

	"github.com/dkeye/livestage/internal/domain"
)

// Audio chunks are 16-bit signed little-endian mono PCM.
const (
	DefaultSampleRate = 16000
	fullScale         = 32768.0
)

// DecodePCM16 normalizes PCM16 samples into [-1.0, 1.0).
func DecodePCM16(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%2 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not whole PCM16 samples", domain.ErrMalformedChunk, len(b))
	}
	out := make([]float32, len(b)/2)
	for i := range out {
		s := int16(binary.LittleEndian.Uint16(b[2*i:]))
		out[i] = float32(s) / fullScale
	}
	return out, nil
}

// EncodePCM16 converts normalized samples back to PCM16, saturating at the
// int16 bounds.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		v := float64(s) * fullScale
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}
