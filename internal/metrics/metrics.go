// Package metrics counts proofs and verifications in a prometheus registry.
package metrics

import (
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/drand/dlproof/common"
)

// Recorder owns a private registry and the collectors exercised by the
// protocol engine and the replay guard. The zero value is not usable; use
// NewRecorder.
type Recorder struct {
	registry *prometheus.Registry
	clock    clockwork.Clock

	// ProofsGenerated counts responses produced, by group
	ProofsGenerated *prometheus.CounterVec
	// Verifications counts verification outcomes, by group and result
	Verifications *prometheus.CounterVec
	// ReplaysRejected counts transcripts refused by a replay guard, by group
	ReplaysRejected *prometheus.CounterVec
	// ProveDuration observes how long a full proof takes, by group
	ProveDuration *prometheus.HistogramVec
}

// NewRecorder returns a Recorder timing operations with clock. A nil clock
// means the real clock.
func NewRecorder(clock clockwork.Clock) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		clock:    clock,
		ProofsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dlproof_proofs_generated_total",
			Help: "Number of proofs of knowledge produced",
		}, []string{"group"}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dlproof_verifications_total",
			Help: "Number of proofs checked, by outcome",
		}, []string{"group", "valid"}),
		ReplaysRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dlproof_replays_rejected_total",
			Help: "Number of transcripts that had already been presented",
		}, []string{"group"}),
		ProveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dlproof_prove_duration_seconds",
			Help:    "Time spent producing a proof",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"group"}),
	}
	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "dlproof_build_info",
		Help:        "Always 1, labeled with the build version",
		ConstLabels: map[string]string{"version": common.GetAppVersion().String(), "commit": common.COMMIT},
	})
	buildInfo.Set(1)
	r.registry.MustRegister(r.ProofsGenerated, r.Verifications, r.ReplaysRejected, r.ProveDuration, buildInfo)
	return r
}

var (
	defaultRecorder *Recorder
	defaultOnce     sync.Once
)

// Default returns the process wide recorder.
func Default() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewRecorder(nil)
	})
	return defaultRecorder
}

// Registry exposes the registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// StartProve starts timing a proof in group. The returned function records
// the proof and its duration.
func (r *Recorder) StartProve(group string) func() {
	start := r.clock.Now()
	return func() {
		r.ProofsGenerated.WithLabelValues(group).Inc()
		r.ProveDuration.WithLabelValues(group).Observe(r.clock.Since(start).Seconds())
	}
}

// Verified records the outcome of a verification.
func (r *Recorder) Verified(group string, valid bool) {
	r.Verifications.WithLabelValues(group, strconv.FormatBool(valid)).Inc()
}

// ReplayRejected records a refused transcript.
func (r *Recorder) ReplayRejected(group string) {
	r.ReplaysRejected.WithLabelValues(group).Inc()
}

// Now returns the recorder clock's time.
func (r *Recorder) Now() time.Time {
	return r.clock.Now()
}

// WriteText writes every metric of the registry to w in the prometheus text
// exposition format.
func (r *Recorder) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
