package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string                         { return s.name }
func (s *stubJob) Run(context.Context, time.Time) error { return nil }

func TestRegistryKeepsOrderAndRejectsDuplicates(t *testing.T) {
	reminders := &stubJob{name: "query-reminders"}
	daily := &stubJob{name: "daily-report"}
	registry, err := NewRegistry(reminders, nil, daily)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != reminders || jobs[1] != daily {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("internal slice leaked")
	}

	if err := registry.Register(&stubJob{name: "daily-report"}); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}
	if _, err := NewRegistry(&stubJob{name: " "}); err == nil {
		t.Fatal("expected blank name to be rejected")
	}
}

func TestRegistrySelect(t *testing.T) {
	registry, _ := NewRegistry(
		&stubJob{name: "query-reminders"},
		&stubJob{name: "daily-report"},
		&stubJob{name: "weekly-report"},
	)

	all, err := registry.Select()
	if err != nil || len(all.Jobs()) != 3 {
		t.Fatalf("empty selection should keep every job: %v", err)
	}

	picked, err := registry.Select("weekly-report", "query-reminders")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	jobs := picked.Jobs()
	if len(jobs) != 2 || jobs[0].Name() != "query-reminders" || jobs[1].Name() != "weekly-report" {
		t.Fatalf("selection should keep registration order, got %v", jobs)
	}

	if _, err := registry.Select("monthly-report"); err == nil {
		t.Fatal("expected unknown job error")
	}
}
