package app_test

import (
	"context"
	"testing"
	"time"

	"sabor_menu/internal/app"
	"sabor_menu/internal/domain"
)

func TestDeploySingleFlight(t *testing.T) {
	d := app.NewDeployer([]string{"sleep 0.2"})

	runID, err := d.Run()
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if runID == "" {
		t.Fatal("no run id")
	}

	// second trigger while running is rejected, not queued
	if _, err := d.Run(); err != domain.ErrConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}

	st := d.Status(false)
	if st.State != app.DeployDone {
		t.Fatalf("state: %+v", st)
	}
	if st.RunID != runID || st.StartedAt == nil || st.FinishedAt == nil {
		t.Fatalf("snapshot: %+v", st)
	}

	// and it can run again afterwards
	if _, err := d.Run(); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	_ = d.Wait(ctx)
}

func TestDeployFailureState(t *testing.T) {
	d := app.NewDeployer([]string{"echo starting", "false", "echo never reached"})

	if _, err := d.Run(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	st := d.Status(true)
	if st.State != app.DeployError || st.Error == "" {
		t.Fatalf("state: %+v", st)
	}
	if st.Step != "false" {
		t.Fatalf("failing step not recorded: %q", st.Step)
	}
	for _, line := range st.Log {
		if line == "echo never reached" || line == "never reached" {
			t.Fatalf("steps after failure ran: %v", st.Log)
		}
	}
}

func TestDeployStatusIdleInitially(t *testing.T) {
	d := app.NewDeployer(nil)
	st := d.Status(true)
	if st.State != app.DeployIdle || st.RunID != "" || len(st.Log) != 0 {
		t.Fatalf("initial status: %+v", st)
	}
}

func TestDeployLogIsBounded(t *testing.T) {
	// one step emitting far more lines than the ring keeps
	d := app.NewDeployer([]string{"i=0; while [ $i -lt 500 ]; do echo line $i; i=$((i+1)); done"})
	if _, err := d.Run(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	st := d.Status(true)
	if len(st.Log) > 200 {
		t.Fatalf("log not bounded: %d lines", len(st.Log))
	}
	if st.Log[len(st.Log)-1] != "line 499" {
		t.Fatalf("trailing lines lost: %q", st.Log[len(st.Log)-1])
	}
}
