package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

func TestExecutePassesThroughWhenDisabled(t *testing.T) {
	m := NewManager(Config{Enabled: false})

	calls := 0
	for i := 0; i < 20; i++ {
		_, err := m.Execute(ServiceFacilitatorVerify, func() (interface{}, error) {
			calls++
			return nil, errors.New("boom")
		})
		if err == nil {
			t.Fatal("expected the wrapped error to propagate")
		}
	}
	if calls != 20 {
		t.Errorf("expected every call to execute when disabled, got %d calls", calls)
	}
}

func TestExecuteTripsOnConsecutiveFailures(t *testing.T) {
	cfg := Config{
		Enabled: true,
		FacilitatorVerify: BreakerConfig{
			MaxRequests:         1,
			Interval:            time.Minute,
			Timeout:             time.Minute,
			ConsecutiveFailures: 3,
		},
	}
	m := NewManager(cfg)

	for i := 0; i < 3; i++ {
		_, err := m.Execute(ServiceFacilitatorVerify, func() (interface{}, error) {
			return nil, errors.New("facilitator down")
		})
		if err == nil {
			t.Fatalf("call %d: expected failure to propagate", i)
		}
	}

	if m.State(ServiceFacilitatorVerify) != "open" {
		t.Errorf("expected breaker open after 3 consecutive failures, got %s", m.State(ServiceFacilitatorVerify))
	}

	_, err := m.Execute(ServiceFacilitatorVerify, func() (interface{}, error) {
		return "should not run", nil
	})
	if err == nil {
		t.Fatal("expected open breaker to reject the call")
	}
}

func TestExecutePassesThroughForUnconfiguredService(t *testing.T) {
	m := NewManager(Config{Enabled: true})

	result, err := m.Execute(ServiceType("unknown"), func() (interface{}, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %v, want ok", result)
	}
}

func TestStateDisabledManager(t *testing.T) {
	m := NewManager(Config{Enabled: false})
	if got := m.State(ServiceUpstream); got != "disabled" {
		t.Errorf("State() = %q, want disabled", got)
	}
}

func TestCountsTracksSuccessesAndFailures(t *testing.T) {
	m := NewManager(Config{
		Enabled: true,
		Upstream: BreakerConfig{
			MaxRequests:         1,
			Interval:            time.Minute,
			Timeout:             time.Minute,
			ConsecutiveFailures: 100,
		},
	})

	m.Execute(ServiceUpstream, func() (interface{}, error) { return "ok", nil })
	m.Execute(ServiceUpstream, func() (interface{}, error) { return nil, errors.New("fail") })

	counts := m.Counts(ServiceUpstream)
	if counts.TotalSuccesses != 1 {
		t.Errorf("TotalSuccesses = %d, want 1", counts.TotalSuccesses)
	}
	if counts.TotalFailures != 1 {
		t.Errorf("TotalFailures = %d, want 1", counts.TotalFailures)
	}
}

func TestDefaultConfigEnabled(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Enabled {
		t.Error("expected default config to be enabled")
	}
	if cfg.FacilitatorVerify.ConsecutiveFailures == 0 {
		t.Error("expected FacilitatorVerify to have a consecutive-failure threshold")
	}
	if cfg.Upstream.ConsecutiveFailures == 0 {
		t.Error("expected Upstream to have a consecutive-failure threshold")
	}
}
