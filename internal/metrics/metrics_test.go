package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/tinthat/internal/model"
)

func TestObserveResult(t *testing.T) {
	m := New()
	res := &model.VerificationResult{
		Status: model.StatusFake,
		Details: []model.EvidenceMatch{
			{Verdict: model.VerdictRefuted, Source: model.SourceLogicRule},
			{Verdict: model.VerdictSupported, Source: model.SourceNLIModel},
			{Verdict: model.VerdictRefuted, Source: model.SourceLogicRule},
		},
	}
	m.ObserveResult(res, 120*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues("FAKE")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ClaimVerdicts.WithLabelValues("REFUTED", "logic_rule")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClaimVerdicts.WithLabelValues("SUPPORTED", "nli_model")))
}

func TestObserveReload(t *testing.T) {
	m := New()
	m.ObserveReload(nil, 2)
	m.ObserveReload(errors.New("canary failed"), 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelReloads.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelReloads.WithLabelValues("failure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NLIGeneration))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.ObserveError("store")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tinthat_verify_errors_total{cause="store"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveResult(&model.VerificationResult{}, time.Second)
	m.ObserveError("x")
	m.ObserveReload(nil, 1)
	assert.NotNil(t, m.Handler())
}
