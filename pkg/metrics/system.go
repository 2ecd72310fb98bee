package metrics

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

var collectorRunning atomic.Bool //nolint:gochecknoglobals // one sampler per process

// StartSystemCollector samples memory, goroutine and GC pause figures every
// refresh interval until ctx is done. Only one collector may run at a time.
func StartSystemCollector(ctx context.Context) error {
	if !collectorRunning.CompareAndSwap(false, true) {
		return ErrCollectorSetup
	}
	interval := mgr().RefreshInterval()
	go func() {
		defer collectorRunning.Store(false)
		t := time.NewTicker(interval)
		defer t.Stop()
		var lastGC uint32
		for {
			lastGC = sampleSystem(lastGC)
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
	return nil
}

// sampleSystem publishes runtime figures and returns the GC cycle count seen.
func sampleSystem(lastGC uint32) uint32 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	UpdateSystemMemoryUsage(ms.HeapInuse)
	UpdateSystemGoroutineCount(runtime.NumGoroutine())

	// PauseNs is a ring of the most recent 256 pauses.
	n := ms.NumGC - lastGC
	if n > uint32(len(ms.PauseNs)) {
		n = uint32(len(ms.PauseNs))
	}
	for i := uint32(0); i < n; i++ {
		idx := (ms.NumGC - 1 - i + uint32(len(ms.PauseNs))) % uint32(len(ms.PauseNs))
		RecordSystemGCPauseTime(float64(ms.PauseNs[idx]) / float64(time.Millisecond))
	}
	return ms.NumGC
}
