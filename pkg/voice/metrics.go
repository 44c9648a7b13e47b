package voice

import (
	"sync"
	"time"
)

// Stage names one step of the utterance pipeline.
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageDetection     Stage = "detection"
	StageGeneration    Stage = "generation"
	StageSynthesis     Stage = "synthesis"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{StageTranscription, StageDetection, StageGeneration, StageSynthesis}

// Timings holds the latency of each completed stage of one cycle.
type Timings struct {
	Transcription time.Duration `json:"transcription"`
	Detection     time.Duration `json:"detection"`
	Generation    time.Duration `json:"generation"`
	Synthesis     time.Duration `json:"synthesis"`
	Total         time.Duration `json:"total"`
}

// Get returns the latency recorded for stage.
func (t Timings) Get(stage Stage) time.Duration {
	switch stage {
	case StageTranscription:
		return t.Transcription
	case StageDetection:
		return t.Detection
	case StageGeneration:
		return t.Generation
	case StageSynthesis:
		return t.Synthesis
	}
	return 0
}

func (t *Timings) set(stage Stage, d time.Duration) {
	switch stage {
	case StageTranscription:
		t.Transcription = d
	case StageDetection:
		t.Detection = d
	case StageGeneration:
		t.Generation = d
	case StageSynthesis:
		t.Synthesis = d
	}
}

// FormatLatency returns a one-line latency breakdown.
func (t Timings) FormatLatency() string {
	return formatDuration(t.Transcription) + " STT | " +
		formatDuration(t.Detection) + " LANG | " +
		formatDuration(t.Generation) + " LLM | " +
		formatDuration(t.Synthesis) + " TTS | " +
		formatDuration(t.Total) + " TOTAL"
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "---ms"
	}
	return d.Round(time.Millisecond).String()
}

// Timer measures one cycle. It is used by a single goroutine.
type Timer struct {
	start   time.Time
	last    time.Time
	timings Timings
}

// NewTimer starts timing a cycle.
func NewTimer() *Timer {
	now := time.Now()
	return &Timer{start: now, last: now}
}

// Mark records the time since the previous mark as stage's latency and
// returns it.
func (t *Timer) Mark(stage Stage) time.Duration {
	now := time.Now()
	d := now.Sub(t.last)
	t.last = now
	t.timings.set(stage, d)
	return d
}

// Done stamps the total and returns the timings.
func (t *Timer) Done() Timings {
	t.timings.Total = time.Since(t.start)
	return t.timings
}

// historySize is the number of cycles averaged by Collector.
const historySize = 100

// Collector keeps the timings of recent successful cycles.
// It is goroutine-safe.
type Collector struct {
	mu      sync.Mutex
	history []Timings
	count   int

	onUpdate func(Timings)
}

// NewCollector creates a new collector.
func NewCollector() *Collector {
	return &Collector{history: make([]Timings, 0, historySize)}
}

// OnUpdate sets a callback that fires after every recorded cycle.
func (c *Collector) OnUpdate(fn func(Timings)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

// Record archives one cycle.
func (c *Collector) Record(t Timings) {
	c.mu.Lock()
	c.history = append(c.history, t)
	if len(c.history) > historySize {
		c.history = c.history[1:]
	}
	c.count++
	fn := c.onUpdate
	c.mu.Unlock()

	if fn != nil {
		fn(t)
	}
}

// Count returns the number of cycles recorded since creation.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Average returns mean timings over recent cycles.
func (c *Collector) Average() Timings {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.history) == 0 {
		return Timings{}
	}

	var avg Timings
	for _, h := range c.history {
		avg.Transcription += h.Transcription
		avg.Detection += h.Detection
		avg.Generation += h.Generation
		avg.Synthesis += h.Synthesis
		avg.Total += h.Total
	}

	n := time.Duration(len(c.history))
	avg.Transcription /= n
	avg.Detection /= n
	avg.Generation /= n
	avg.Synthesis /= n
	avg.Total /= n
	return avg
}
