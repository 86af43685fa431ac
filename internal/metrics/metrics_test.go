package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordProvider(t *testing.T) {
	before := testutil.ToFloat64(ProviderRequests.WithLabelValues("imdb", "search", "ok"))
	RecordProvider("imdb", "search", "ok", time.Now().Add(-10*time.Millisecond))
	after := testutil.ToFloat64(ProviderRequests.WithLabelValues("imdb", "search", "ok"))
	assert.Equal(t, before+1, after)
}

func TestRecordPhase(t *testing.T) {
	RecordPhase("details", time.Now().Add(-5*time.Millisecond))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(PhaseDuration), 1)
}

func TestCacheLookups(t *testing.T) {
	CacheLookups.WithLabelValues("documents", "miss").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(CacheLookups.WithLabelValues("documents", "miss")), float64(1))
}
