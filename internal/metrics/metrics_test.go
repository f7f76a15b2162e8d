package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	r := NewRecorder(nil)

	done := r.StartProve("toy-101")
	done()
	r.Verified("toy-101", true)
	r.Verified("toy-101", true)
	r.Verified("toy-101", false)
	r.ReplayRejected("toy-101")

	require.Equal(t, 1.0, testutil.ToFloat64(r.ProofsGenerated.WithLabelValues("toy-101")))
	require.Equal(t, 2.0, testutil.ToFloat64(r.Verifications.WithLabelValues("toy-101", "true")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.Verifications.WithLabelValues("toy-101", "false")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.ReplaysRejected.WithLabelValues("toy-101")))
}

func TestRecorderDuration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRecorder(clock)

	done := r.StartProve("modp-2048")
	clock.Advance(3 * time.Millisecond)
	done()

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	out := buf.String()
	require.Contains(t, out, `dlproof_prove_duration_seconds_sum{group="modp-2048"} 0.003`)
	require.Contains(t, out, `dlproof_prove_duration_seconds_count{group="modp-2048"} 1`)
	require.Contains(t, out, "dlproof_build_info")
}

func TestDefaultRecorder(t *testing.T) {
	require.Same(t, Default(), Default())
}
