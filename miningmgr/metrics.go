package miningmgr

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	rateIntervalTime = 600
	rateWindowSize   = 20
)

type rateBucket struct {
	sync.Mutex
	startTime int64
	count     int64
}

func (b *rateBucket) addCount(n int64) {
	b.Lock()
	defer b.Unlock()
	b.count += n
}

func (b *rateBucket) getStartTime() int64 {
	b.Lock()
	defer b.Unlock()
	res := b.startTime
	return res
}

func (b *rateBucket) resetStartTime(startTime int64, n int64) {
	b.Lock()
	defer b.Unlock()
	b.startTime = startTime
	b.count = n
}

// rateWindow estimates a per-second rate over a bucketed sliding window.
type rateWindow struct {
	createTime time.Time
	bucketNum  int
	buckets    []*rateBucket
}

func newRateWindow() *rateWindow {
	bucketNum := rateIntervalTime / rateWindowSize
	buckets := make([]*rateBucket, bucketNum)
	for i := 0; i < bucketNum; i++ {
		buckets[i] = &rateBucket{}
	}
	return &rateWindow{
		createTime: time.Now(),
		bucketNum:  bucketNum,
		buckets:    buckets,
	}
}

func (w *rateWindow) add(n int64) {
	currentTime := time.Now().Unix()
	idx := (currentTime / rateWindowSize) % int64(w.bucketNum)

	startTime := currentTime - currentTime%rateWindowSize
	targetBucket := w.buckets[idx]
	if targetBucket.getStartTime() == startTime {
		targetBucket.addCount(n)
	} else {
		targetBucket.resetStartTime(startTime, n)
	}
}

func (w *rateWindow) perSecond() float64 {
	var totalCount int64
	currentTime := time.Now().Unix()
	for _, bucket := range w.buckets {
		if currentTime-bucket.getStartTime() < rateIntervalTime {
			totalCount += bucket.count
		}
	}
	elapsed := currentTime - w.createTime.Unix()
	if elapsed <= 0 {
		elapsed = 1
	}
	if elapsed < rateIntervalTime {
		return float64(totalCount) / float64(elapsed)
	}
	return float64(totalCount) / rateIntervalTime
}

// Metrics holds the process-wide mining counters. Workers update them with
// atomic arithmetic; nothing else is shared between workers besides the
// session pointer and the best-hash register.
type Metrics struct {
	sporas      int64
	kibs        int64
	recallBytes int64

	startedAt time.Time
	hashRate  *rateWindow
}

// NewMetrics returns zeroed counters with the clock started.
func NewMetrics() *Metrics {
	return &Metrics{
		startedAt: time.Now(),
		hashRate:  newRateWindow(),
	}
}

// AddSporas counts attempted solution hashes.
func (m *Metrics) AddSporas(n int64) {
	atomic.AddInt64(&m.sporas, n)
	m.hashRate.add(n)
}

// AddKibs counts KiB of chunks fetched for hashing.
func (m *Metrics) AddKibs(n int64) {
	atomic.AddInt64(&m.kibs, n)
}

// AddRecallBytes counts recall-byte derivations.
func (m *Metrics) AddRecallBytes(n int64) {
	atomic.AddInt64(&m.recallBytes, n)
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Sporas      int64   `json:"sporas"`
	Kibs        int64   `json:"kibs"`
	RecallBytes int64   `json:"recallBytes"`
	HashRate    float64 `json:"hashRate"`
	UptimeSecs  int64   `json:"uptimeSecs"`
}

// Snapshot reads the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Sporas:      atomic.LoadInt64(&m.sporas),
		Kibs:        atomic.LoadInt64(&m.kibs),
		RecallBytes: atomic.LoadInt64(&m.recallBytes),
		HashRate:    m.hashRate.perSecond(),
		UptimeSecs:  int64(time.Since(m.startedAt).Seconds()),
	}
}
