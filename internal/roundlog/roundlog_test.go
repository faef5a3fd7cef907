package roundlog

import (
	"runtime"
	"testing"
)

func TestFormatMostRecentFirst(t *testing.T) {
	h := New()
	h.Set(0, []string{"boot"})
	h.Set(1, []string{"a", "b"})
	h.Set(3, []string{"c"})

	want := "3: c\n1: a\n1: b\n0: boot\n"
	if got := h.Format(); got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestFormatEmptyRoundsAddNothing(t *testing.T) {
	h := New()
	h.Set(2, nil)
	h.Set(1, []string{})
	if got := h.Format(); got != "" {
		t.Errorf("Format() = %q, want empty", got)
	}
	if h.Len() != 3 {
		t.Errorf("Len() = %d, want 3", h.Len())
	}
}

func TestSetReplacesRound(t *testing.T) {
	h := New()
	h.Set(4, []string{"old"})
	h.Set(4, []string{"new"})
	got := h.Round(4)
	if len(got) != 1 || got[0] != "new" {
		t.Errorf("Round(4) = %v, want [new]", got)
	}
}

func TestSetCopiesInput(t *testing.T) {
	h := New()
	lines := []string{"x"}
	h.Set(0, lines)
	lines[0] = "mutated"
	if got := h.Round(0)[0]; got != "x" {
		t.Errorf("stored line = %q, history should not alias caller slice", got)
	}
}

func TestNegativeRoundIgnored(t *testing.T) {
	h := New()
	h.Set(-1, []string{"x"})
	if h.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.Len())
	}
	if h.Round(-1) != nil || h.Round(10) != nil {
		t.Error("out of range rounds should be nil")
	}
}

func TestReset(t *testing.T) {
	h := New()
	h.Set(0, []string{"a"})
	h.Reset()
	if h.Len() != 0 || h.Format() != "" {
		t.Error("Reset should clear history")
	}
}

func TestToggleKeepsAccumulating(t *testing.T) {
	h := New()
	h.Set(0, []string{"first"})

	if h.Toggle() {
		t.Fatal("Toggle from visible should hide")
	}
	h.Set(1, []string{"while hidden"})

	if !h.Toggle() {
		t.Fatal("second Toggle should show again")
	}
	want := "1: while hidden\n0: first\n"
	if got := h.Format(); got != want {
		t.Errorf("Format() after toggle = %q, want full history %q", got, want)
	}

	h.SetVisible(false)
	if h.Visible() {
		t.Error("SetVisible(false) should hide")
	}
}

func TestLargeRoundStaysSparse(t *testing.T) {
	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	h := New()
	h.Set(20_000_000, []string{"one line"})
	h.Set(3, []string{"early"})
	got := h.Format()

	runtime.ReadMemStats(&after)
	if grew := after.TotalAlloc - before.TotalAlloc; grew > 1<<20 {
		t.Errorf("allocated %d bytes for two rounds, want well under 1 MiB", grew)
	}
	if want := "20000000: one line\n3: early\n"; got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
	if h.Len() != 20_000_001 {
		t.Errorf("Len() = %d, want 20000001", h.Len())
	}
	if h.Round(19_999_999) != nil {
		t.Error("unset round should be nil")
	}
}
