package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/voxpipe/voxpipe/pkg/config"
)

func TestWorker_PollIntervalJitterBounds(t *testing.T) {
	w := &Worker{config: &config.QueueConfig{
		PollInterval:       3 * time.Second,
		PollIntervalJitter: 500 * time.Millisecond,
	}}

	for i := 0; i < 100; i++ {
		d := w.pollInterval()
		assert.GreaterOrEqual(t, d, 2500*time.Millisecond)
		assert.LessOrEqual(t, d, 3500*time.Millisecond)
	}
}

func TestWorker_PollIntervalNoJitter(t *testing.T) {
	w := &Worker{config: &config.QueueConfig{PollInterval: 3 * time.Second}}
	assert.Equal(t, 3*time.Second, w.pollInterval())
}
