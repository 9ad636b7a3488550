package profiling

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSamplerRecordsGoroutinePeak(t *testing.T) {
	s := NewSampler(time.Millisecond)
	s.Start()

	// Hold a burst of goroutines alive long enough for several polls.
	var wg sync.WaitGroup
	release := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-release
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	peak := s.Stop()
	assert.GreaterOrEqual(t, peak.Goroutines, 16)
	assert.Greater(t, peak.HeapAllocBytes, uint64(0))
}

func TestSamplerStopWithoutStart(t *testing.T) {
	s := NewSampler(time.Millisecond)

	peak := s.Stop()
	assert.Equal(t, Sample{}, peak)
}

func TestSamplerStopIsIdempotent(t *testing.T) {
	s := NewSampler(time.Millisecond)
	s.Start()

	first := s.Stop()
	second := s.Stop()
	assert.Equal(t, first, second)
}

func TestSamplerStartIsIdempotent(t *testing.T) {
	s := NewSampler(time.Millisecond)
	s.Start()
	s.Start()

	peak := s.Stop()
	assert.Greater(t, peak.Goroutines, 0)
}

func TestSamplerPeakWhileRunning(t *testing.T) {
	s := NewSampler(time.Millisecond)
	s.Start()
	defer s.Stop()

	time.Sleep(5 * time.Millisecond)
	peak := s.Peak()
	assert.Greater(t, peak.Goroutines, 0)
}

func TestSamplerDefaultInterval(t *testing.T) {
	s := NewSampler(0)
	assert.Equal(t, DefaultSampleInterval, s.interval)

	s = NewSampler(-time.Second)
	assert.Equal(t, DefaultSampleInterval, s.interval)
}
