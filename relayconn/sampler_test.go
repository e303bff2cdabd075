package relayconn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSamplerDecaysAndFloors(t *testing.T) {
	s := NewSampler()
	assert.Equal(t, 1.0, s.Rate())
	for i := 0; i < 200; i++ {
		s.OnSuccess()
	}
	assert.InDelta(t, 0.1, s.Rate(), 1e-9)
}

func TestSamplerResetsOnFailure(t *testing.T) {
	s := NewSampler()
	for i := 0; i < 20; i++ {
		s.OnSuccess()
	}
	assert.Less(t, s.Rate(), 1.0)
	s.OnFailure()
	assert.Equal(t, 1.0, s.Rate())
}

// TestSamplerMathS6 exercises spec §8 scenario S6's sampling-math shape: over
// many successes the rate should approach the floor monotonically.
func TestSamplerMathS6(t *testing.T) {
	s := NewSampler()
	prev := s.Rate()
	for i := 0; i < 50; i++ {
		s.OnSuccess()
		cur := s.Rate()
		assert.True(t, cur <= prev)
		prev = cur
	}
	assert.True(t, math.Abs(s.Rate()-0.1) < 0.5)
}
