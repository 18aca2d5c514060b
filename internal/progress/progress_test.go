package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinter_RendersPercentAndSizes(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Render(Event{Downloaded: 512, Total: 1024, Speed: 100})

	out := buf.String()
	assert.Contains(t, out, "50.00%")
}

func TestSpeedEstimator_ProducesPositiveRate(t *testing.T) {
	est := NewSpeedEstimator(0.5)
	est.Observe(0) // establish lastTime
	for i := 0; i < 20; i++ {
		est.Observe(1000)
	}
	assert.Greater(t, est.speed, 0.0)
}
