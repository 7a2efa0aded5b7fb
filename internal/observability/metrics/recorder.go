package metrics

import (
	"sync"
	"time"
)

// Sample is one metric captured by a Recorder.
type Sample struct {
	Kind  string
	Name  string
	Value float64
	Tags  map[string]string
}

// Recorder is an in-memory statsd.Sink used by tests and the admin CLI dry runs.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

func (r *Recorder) add(kind, name string, v float64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, Sample{Kind: kind, Name: name, Value: v, Tags: CloneTags(tags)})
}

func (r *Recorder) Count(name string, value int64, tags map[string]string) {
	r.add("c", name, float64(value), tags)
}

func (r *Recorder) Gauge(name string, value float64, tags map[string]string) {
	r.add("g", name, value, tags)
}

func (r *Recorder) Timing(name string, value time.Duration, tags map[string]string) {
	r.add("ms", name, float64(value)/float64(time.Millisecond), tags)
}

// Samples returns a copy of everything recorded so far.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sample(nil), r.samples...)
}

// Find returns the samples named name whose tags include every pair in match.
func (r *Recorder) Find(name string, match map[string]string) []Sample {
	var out []Sample
	for _, s := range r.Samples() {
		if s.Name != name {
			continue
		}
		ok := true
		for k, v := range match {
			if s.Tags[k] != v {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, s)
		}
	}
	return out
}
