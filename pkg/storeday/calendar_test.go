package storeday

import (
	"testing"
	"time"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("timezone %s unavailable: %v", name, err)
	}
	return loc
}

func TestTodayUsesStoreTimezone(t *testing.T) {
	loc := mustLoad(t, "America/Sao_Paulo")
	// 01:30 UTC on March 2nd is still March 1st in Sao Paulo (UTC-3).
	instant := time.Date(2024, 3, 2, 1, 30, 0, 0, time.UTC)
	cal := New(loc).WithClock(func() time.Time { return instant })

	today := cal.Today()
	if today.Key() != "2024-03-01" {
		t.Fatalf("expected 2024-03-01, got %s", today.Key())
	}
	if today.Compact() != "20240301" {
		t.Fatalf("expected compact 20240301, got %s", today.Compact())
	}
	if !today.End().Equal(today.Start().Add(24 * time.Hour)) {
		t.Fatalf("expected end one day after start")
	}
}

func TestParseRange(t *testing.T) {
	cal := New(time.UTC)

	if _, ok, err := cal.ParseRange("", ""); err != nil || ok {
		t.Fatalf("expected empty range to be absent, ok=%v err=%v", ok, err)
	}

	r, ok, err := cal.ParseRange("2024-03-01", "2024-03-03")
	if err != nil || !ok {
		t.Fatalf("unexpected parse result ok=%v err=%v", ok, err)
	}
	from, to := r.Keys()
	if from != "2024-03-01" || to != "2024-03-03" {
		t.Fatalf("unexpected keys %s..%s", from, to)
	}

	single, ok, err := cal.ParseRange("2024-03-05", "")
	if err != nil || !ok || single.From.Key() != single.To.Key() {
		t.Fatalf("expected single-day range, got %+v ok=%v err=%v", single, ok, err)
	}

	if _, _, err := cal.ParseRange("2024-03-05", "2024-03-01"); err == nil {
		t.Fatal("expected reversed range to fail")
	}
	if _, _, err := cal.ParseRange("03/05/2024", ""); err == nil {
		t.Fatal("expected malformed date to fail")
	}
}
