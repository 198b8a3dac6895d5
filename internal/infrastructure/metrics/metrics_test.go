package metrics_test

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/infrastructure/metrics"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", metrics.Outcome(nil))
	assert.Equal(t, "invalid_transition", metrics.Outcome(domain.ErrNoSuchTransition))
	assert.Equal(t, "permission_denied", metrics.Outcome(domain.NewError(domain.ErrPermissionDenied, "", nil)))
	assert.Equal(t, "concurrent_modification", metrics.Outcome(fmt.Errorf("save: %w", domain.ErrConcurrentModification)))
	assert.Equal(t, "error", metrics.Outcome(errors.New("x")))
}

func TestHandler_ExponeContadores(t *testing.T) {
	r := metrics.New()
	r.ObserveAction("submit", nil, 15*time.Millisecond)
	r.ObserveAction("submit", domain.ErrIncompleteDecisions, time.Millisecond)
	r.ObserveStatus("quality_control", "submitted")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `farmadist_approval_actions_total{action="submit",outcome="ok"} 1`))
	assert.True(t, strings.Contains(body, `farmadist_approval_actions_total{action="submit",outcome="incomplete_decisions"} 1`))
	assert.True(t, strings.Contains(body, `farmadist_approval_status_transitions_total{status="submitted",type="quality_control"} 1`))
}
