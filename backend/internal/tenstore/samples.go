package tenstore

import (
	"sync"

	"github.com/duskmere/tension-engine/backend/internal/tendomain"
)

// MaxSamplesPerLocation bounds how many TensionSample entries
// SampleHistoryRepository retains per LocationKey.
const MaxSamplesPerLocation = 10000

// MaxPredictionOutcomes bounds how many PredictionOutcome entries the
// accuracy ring retains.
const MaxPredictionOutcomes = 100

// MaxAnomalyHistory bounds how many AnomalyDetection entries
// AnomalyHistoryRepository retains.
const MaxAnomalyHistory = 1000

// ringBuffer is a fixed-capacity FIFO-by-age buffer: once full, appending a
// new element evicts the oldest.
type ringBuffer[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
}

func newRingBuffer[T any](capacity int) *ringBuffer[T] {
	return &ringBuffer[T]{items: make([]T, 0, capacity), capacity: capacity}
}

func (b *ringBuffer[T]) append(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) >= b.capacity {
		copy(b.items, b.items[1:])
		b.items = b.items[:len(b.items)-1]
	}
	b.items = append(b.items, item)
}

func (b *ringBuffer[T]) snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

func (b *ringBuffer[T]) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// SampleHistoryRepository retains a bounded, per-location history of
// TensionSample observations for the pattern/anomaly/prediction engines.
type SampleHistoryRepository struct {
	mu      sync.RWMutex
	buffers map[tendomain.LocationKey]*ringBuffer[tendomain.TensionSample]
}

// NewSampleHistoryRepository returns an empty repository.
func NewSampleHistoryRepository() *SampleHistoryRepository {
	return &SampleHistoryRepository{
		buffers: make(map[tendomain.LocationKey]*ringBuffer[tendomain.TensionSample]),
	}
}

func (r *SampleHistoryRepository) bufferFor(loc tendomain.LocationKey) *ringBuffer[tendomain.TensionSample] {
	r.mu.RLock()
	buf, ok := r.buffers[loc]
	r.mu.RUnlock()
	if ok {
		return buf
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if buf, ok := r.buffers[loc]; ok {
		return buf
	}
	buf = newRingBuffer[tendomain.TensionSample](MaxSamplesPerLocation)
	r.buffers[loc] = buf
	return buf
}

// Record appends a sample to loc's history, evicting the oldest sample if
// the buffer is already at capacity.
func (r *SampleHistoryRepository) Record(loc tendomain.LocationKey, sample tendomain.TensionSample) {
	r.bufferFor(loc).append(sample)
}

// History returns a copy of loc's recorded samples, oldest first.
func (r *SampleHistoryRepository) History(loc tendomain.LocationKey) []tendomain.TensionSample {
	r.mu.RLock()
	buf, ok := r.buffers[loc]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return buf.snapshot()
}

// SampleCount returns how many samples are recorded for loc.
func (r *SampleHistoryRepository) SampleCount(loc tendomain.LocationKey) int {
	r.mu.RLock()
	buf, ok := r.buffers[loc]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	return buf.len()
}

// PredictionAccuracyRepository retains a bounded, per-region history of
// prediction outcomes for updatePredictionAccuracy (last 100 samples per
// region).
type PredictionAccuracyRepository struct {
	mu      sync.RWMutex
	buffers map[string]*ringBuffer[tendomain.PredictionOutcome]
}

// NewPredictionAccuracyRepository returns an empty repository.
func NewPredictionAccuracyRepository() *PredictionAccuracyRepository {
	return &PredictionAccuracyRepository{
		buffers: make(map[string]*ringBuffer[tendomain.PredictionOutcome]),
	}
}

func (r *PredictionAccuracyRepository) bufferFor(regionID string) *ringBuffer[tendomain.PredictionOutcome] {
	r.mu.RLock()
	buf, ok := r.buffers[regionID]
	r.mu.RUnlock()
	if ok {
		return buf
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if buf, ok := r.buffers[regionID]; ok {
		return buf
	}
	buf = newRingBuffer[tendomain.PredictionOutcome](MaxPredictionOutcomes)
	r.buffers[regionID] = buf
	return buf
}

// Record appends an outcome for regionID, evicting the oldest if already at
// capacity.
func (r *PredictionAccuracyRepository) Record(regionID string, outcome tendomain.PredictionOutcome) {
	r.bufferFor(regionID).append(outcome)
}

// Recent returns a copy of regionID's recorded outcomes, oldest first.
func (r *PredictionAccuracyRepository) Recent(regionID string) []tendomain.PredictionOutcome {
	r.mu.RLock()
	buf, ok := r.buffers[regionID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return buf.snapshot()
}

// AnomalyHistoryRepository retains a single bounded, global history of
// AnomalyDetection records across every region and location.
type AnomalyHistoryRepository struct {
	buf *ringBuffer[tendomain.AnomalyDetection]
}

// NewAnomalyHistoryRepository returns an empty repository.
func NewAnomalyHistoryRepository() *AnomalyHistoryRepository {
	return &AnomalyHistoryRepository{buf: newRingBuffer[tendomain.AnomalyDetection](MaxAnomalyHistory)}
}

// Record appends an anomaly, evicting the oldest if already at capacity.
func (r *AnomalyHistoryRepository) Record(anomaly tendomain.AnomalyDetection) {
	r.buf.append(anomaly)
}

// Recent returns a copy of the recorded anomalies, oldest first.
func (r *AnomalyHistoryRepository) Recent() []tendomain.AnomalyDetection {
	return r.buf.snapshot()
}
