package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"airnet/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSolve(t *testing.T) {
	r := NewRegistry()
	r.ObserveSolve(4, 1e-6, time.Millisecond, true, nil)
	r.ObserveSolve(50, 0.2, 10*time.Millisecond, false, fmt.Errorf("%w: 迭代 50 次", types.ErrNotConverged))
	r.ObserveSolve(1, 0, time.Microsecond, false, types.ErrSingular)

	if got := testutil.ToFloat64(r.SolvesTotal.WithLabelValues(ResultConverged)); got != 1 {
		t.Errorf("converged = %v", got)
	}
	if got := testutil.ToFloat64(r.SolvesTotal.WithLabelValues(ResultNotConverged)); got != 1 {
		t.Errorf("not_converged = %v", got)
	}
	if got := testutil.ToFloat64(r.SolvesTotal.WithLabelValues(ResultError)); got != 1 {
		t.Errorf("error = %v", got)
	}
	if got := testutil.ToFloat64(r.NotConverged); got != 1 {
		t.Errorf("未收敛计数 %v", got)
	}
	if got := testutil.ToFloat64(r.LastResidual); got != 0 {
		t.Errorf("残差 %v", got)
	}
	n, err := testutil.GatherAndCount(r.GetPrometheusRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 {
		t.Errorf("指标数量 %d", n)
	}
}

func TestObserveRecurringFailure(t *testing.T) {
	r := NewRegistry()
	r.ObserveSolve(50, 0.2, time.Millisecond, false, fmt.Errorf("%w: 迭代 50 次", types.ErrNotConverged))
	// 再次未收敛时错误为 nil
	r.ObserveSolve(50, 0.3, time.Millisecond, false, nil)

	if got := testutil.ToFloat64(r.SolvesTotal.WithLabelValues(ResultNotConverged)); got != 2 {
		t.Errorf("not_converged = %v", got)
	}
	if got := testutil.ToFloat64(r.SolvesTotal.WithLabelValues(ResultConverged)); got != 0 {
		t.Errorf("converged = %v", got)
	}
	if got := testutil.ToFloat64(r.NotConverged); got != 2 {
		t.Errorf("未收敛计数 %v", got)
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.ObserveSolve(3, 0.5, time.Millisecond, false, errors.New("x"))
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{
		"airnet_solves_total",
		"airnet_solve_iterations",
		"airnet_last_relative_residual 0.5",
		"airnet_not_converged_total 0",
		"airnet_solve_duration_seconds",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("输出缺少 %s", name)
		}
	}
}
