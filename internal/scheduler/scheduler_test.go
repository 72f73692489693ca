package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wonny/helios/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	failures int // fail this many runs before succeeding
	runs     int
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(context.Context) error {
	j.runs++
	if j.runs <= j.failures {
		return errors.New("transient failure")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	s := New(logger.NewNop())
	s.retryDelay = time.Millisecond
	return s
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	s := newTestScheduler()

	if err := s.Register(&fakeJob{name: "scan", schedule: "@daily"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := s.Register(&fakeJob{name: "scan", schedule: "@daily"}); err == nil {
		t.Error("duplicate registration should fail")
	}
}

func TestRegisterRejectsBadSchedule(t *testing.T) {
	s := newTestScheduler()

	if err := s.Register(&fakeJob{name: "scan", schedule: "not a cron expr"}); err == nil {
		t.Error("invalid cron expression should fail")
	}
}

func TestTriggerNowRetriesAndRecords(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "scan", schedule: "@daily", failures: 2}

	if err := s.Register(job); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := s.TriggerNow(context.Background(), "scan"); err != nil {
		t.Fatalf("TriggerNow() error = %v", err)
	}

	if job.runs != 3 {
		t.Errorf("runs = %d, want 3 (two failures then success)", job.runs)
	}

	history, err := s.History("scan")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if !history[0].Success || history[0].Attempts != 3 {
		t.Errorf("result = %+v, want success after 3 attempts", history[0])
	}
}

func TestTriggerNowExhaustsRetries(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "scan", schedule: "@daily", failures: 100}

	if err := s.Register(job); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := s.TriggerNow(context.Background(), "scan"); err != nil {
		t.Fatalf("TriggerNow() error = %v", err)
	}

	history, _ := s.History("scan")
	if len(history) != 1 || history[0].Success {
		t.Fatalf("history = %+v, want one failed result", history)
	}
	if history[0].Error == "" {
		t.Error("failed result should carry the error text")
	}
	if job.runs != 4 {
		t.Errorf("runs = %d, want 4 (initial + 3 retries)", job.runs)
	}
}

func TestTriggerNowUnknownJob(t *testing.T) {
	s := newTestScheduler()

	if err := s.TriggerNow(context.Background(), "missing"); err == nil {
		t.Error("unknown job should fail")
	}
}

func TestJobStats(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "scan", schedule: "@daily"}

	if err := s.Register(job); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := s.TriggerNow(context.Background(), "scan"); err != nil {
		t.Fatalf("TriggerNow() error = %v", err)
	}

	stats := s.JobStats()
	stat, ok := stats["scan"]
	if !ok {
		t.Fatal("stats missing registered job")
	}
	if stat.TotalRuns != 1 || stat.Failures != 0 || stat.SuccessRate != 1 {
		t.Errorf("stats = %+v, want 1 clean run", stat)
	}
	if stat.LastRun == nil {
		t.Error("LastRun should be recorded")
	}
}
