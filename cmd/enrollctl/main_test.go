package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zynqcloud/face-enroll/internal/ledger"
	"github.com/zynqcloud/face-enroll/internal/store"
)

func TestRunRequiresCommand(t *testing.T) {
	if err := run(context.Background(), nil, &bytes.Buffer{}); !errors.Is(err, errUsage) {
		t.Fatalf("err = %v, want usage error", err)
	}
	if err := run(context.Background(), []string{"frobnicate"}, &bytes.Buffer{}); !errors.Is(err, errUsage) {
		t.Fatalf("err = %v, want usage error", err)
	}
}

func TestResolve(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"resolve", "cs101@nmamit.in", "jane.doe@other.org"}, &out)
	if err != nil {
		t.Fatal(err)
	}
	want := "cs101@nmamit.in\tCS/CS_101\njane.doe@other.org\tUNKNOWN/jane_doe\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
}

func TestResolveCustomDomain(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"resolve", "--domain", "uni.edu", "ee042@uni.edu"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "EE/EE_042") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	led, err := ledger.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	at := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	for _, e := range []ledger.Entry{
		{Group: "CS", Key: "CS_101", Email: "cs101@nmamit.in", Images: 5, EnrolledAt: at},
		{Group: "UNKNOWN", Key: "jane_doe", Email: "jane.doe@other.org", Images: 5, EnrolledAt: at},
	} {
		if err := led.Record(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}
	led.Close()

	var out bytes.Buffer
	if err := run(context.Background(), []string{"list", "--ledger", path, "--group", "CS"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "cs101@nmamit.in") || strings.Contains(out.String(), "jane_doe") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestListMissingLedger(t *testing.T) {
	err := run(context.Background(), []string{"list", "--ledger", filepath.Join(t.TempDir(), "absent.db")}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for missing ledger")
	}
}

func TestSweep(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, store.StagingDir, "abandoned")
	if err := os.MkdirAll(stale, 0o750); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run(context.Background(), []string{"sweep", "--root", root, "--ttl", "1h"}, &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "removed 1 staging entries\n" {
		t.Fatalf("output = %q", out.String())
	}
}
