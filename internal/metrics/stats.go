package metrics

import "time"

// Window accumulates loss and timing across the mini-batches of an epoch.
type Window struct {
	samples   int
	compute   time.Duration
	batches   int
	totalLoss float64
	lastLoss  float64
}

// Record adds a new mini-batch measurement to the window.
func (w *Window) Record(batchSize int, computeTime time.Duration, loss float64) {
	w.samples += batchSize
	w.compute += computeTime
	w.batches++
	w.totalLoss += loss
	w.lastLoss = loss
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Batches: w.batches, Samples: w.samples, LastLoss: w.lastLoss}
	if w.compute > 0 {
		snap.SamplesPerSec = float64(w.samples) / w.compute.Seconds()
	}
	if w.batches > 0 {
		snap.AvgLoss = w.totalLoss / float64(w.batches)
		snap.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(w.batches)
	}

	*w = Window{}
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Batches       int
	Samples       int
	SamplesPerSec float64
	AvgComputeMS  float64
	AvgLoss       float64
	LastLoss      float64
}
