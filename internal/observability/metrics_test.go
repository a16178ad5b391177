package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOperation(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.OperationsTotal.WithLabelValues("swap", "ok"))
	RecordOperation("swap", "ok", 0.01)
	after := testutil.ToFloat64(DefaultMetrics.OperationsTotal.WithLabelValues("swap", "ok"))
	if after != before+1 {
		t.Errorf("operations_total: got %v, want %v", after, before+1)
	}
}

func TestRecordRewardPaid(t *testing.T) {
	paid := testutil.ToFloat64(DefaultMetrics.RewardsPaid)
	closed := testutil.ToFloat64(DefaultMetrics.RewardDaysClosed)

	RecordRewardPaid(500, false)
	RecordRewardPaid(250, true)

	if got := testutil.ToFloat64(DefaultMetrics.RewardsPaid) - paid; got != 750 {
		t.Errorf("rewards paid delta: got %v, want 750", got)
	}
	if got := testutil.ToFloat64(DefaultMetrics.RewardDaysClosed) - closed; got != 1 {
		t.Errorf("reward days closed delta: got %v, want 1", got)
	}
}

func TestRecordDBQuery_CountsErrors(t *testing.T) {
	errs := DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "metrics_test")
	RecordDBQuery("postgres", "metrics_test", 0.001, nil)
	RecordDBQuery("postgres", "metrics_test", 0.001, errors.New("boom"))
	if got := testutil.ToFloat64(errs); got != 1 {
		t.Errorf("db query errors: got %v, want 1", got)
	}
}

func TestUpdateStreamClients(t *testing.T) {
	UpdateStreamClients(3)
	if got := testutil.ToFloat64(DefaultMetrics.StreamClients); got != 3 {
		t.Errorf("stream clients: got %v, want 3", got)
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	RecordCandleAppended()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "launchpad_timeseries_candles_appended_total") {
		t.Errorf("metrics output missing candles counter")
	}
}
