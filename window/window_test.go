package window

import "testing"

func TestGateBelowMinimumThroughput(t *testing.T) {
	w, err := New(10, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.RecordFailure()
	w.RecordFailure()
	w.RecordFailure()
	if rate := w.CurrentFailureRate(); rate != 0 {
		t.Errorf("CurrentFailureRate() = %v, want 0 below minimumThroughput", rate)
	}
}

func TestAccuracyAboveMinimumThroughput(t *testing.T) {
	w, err := New(4, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.RecordFailure()
	w.RecordFailure()
	w.RecordFailure()
	w.RecordFailure()
	if rate := w.CurrentFailureRate(); rate != 1.0 {
		t.Errorf("CurrentFailureRate() = %v, want 1.0", rate)
	}
}

func TestMixedOutcomesExactRate(t *testing.T) {
	w, err := New(4, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.RecordSuccess()
	w.RecordFailure()
	w.RecordSuccess()
	w.RecordFailure()
	if rate := w.CurrentFailureRate(); rate != 0.5 {
		t.Errorf("CurrentFailureRate() = %v, want 0.5", rate)
	}
}

func TestClearResetsGateAndContents(t *testing.T) {
	w, err := New(4, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.RecordFailure()
	w.RecordFailure()
	if w.CurrentFailureRate() == 0 {
		t.Fatal("expected non-zero rate before Clear")
	}
	w.Clear()
	if rate := w.CurrentFailureRate(); rate != 0 {
		t.Errorf("CurrentFailureRate() after Clear = %v, want 0", rate)
	}
	w.RecordSuccess()
	total, failures := w.Counts()
	if total != 1 || failures != 0 {
		t.Errorf("Counts() = (%d,%d), want (1,0) after Clear", total, failures)
	}
}

func TestConstructionRejectsNonPositiveArgs(t *testing.T) {
	if _, err := New(0, 1); err == nil {
		t.Error("expected error for non-positive capacity")
	}
	if _, err := New(1, 0); err == nil {
		t.Error("expected error for non-positive minimumThroughput")
	}
}

func TestRingOverwriteKeepsWindowBoundedAfterGate(t *testing.T) {
	w, err := New(4, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// push past capacity: the oldest failures should be evicted.
	for i := 0; i < 4; i++ {
		w.RecordFailure()
	}
	for i := 0; i < 4; i++ {
		w.RecordSuccess()
	}
	if rate := w.CurrentFailureRate(); rate != 0 {
		t.Errorf("CurrentFailureRate() = %v, want 0 once failures aged out", rate)
	}
}
