package syncer

import (
	"reflect"
	"testing"
)

func TestSplitWindows(t *testing.T) {
	got, err := SplitWindows(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Window{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("windows mismatch: %+v != %+v", got, want)
	}
}

func TestSplitWindowsSingle(t *testing.T) {
	got, err := SplitWindows(5, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Window{{From: 5, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("windows mismatch: %+v != %+v", got, want)
	}
}

func TestSplitWindowsInvalid(t *testing.T) {
	if _, err := SplitWindows(10, 9, 1); err == nil {
		t.Fatalf("expected error for inverted range")
	}
	if _, err := SplitWindows(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}
