package lock

import (
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunLockExcludesConcurrentRuns(t *testing.T) {
	l := New(testLogger())
	t.Cleanup(func() { _ = l.Release() })

	acquired, err := l.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	if !acquired {
		t.Fatal("TryAcquire() = false, want lock on first attempt")
	}

	again, err := l.TryAcquire()
	if err != nil {
		t.Fatalf("second TryAcquire() error = %v", err)
	}
	if again {
		t.Error("second TryAcquire() = true, want refusal while held")
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	acquired, err = l.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire() after release error = %v", err)
	}
	if !acquired {
		t.Error("TryAcquire() after release = false, want lock")
	}
}

func TestReleaseWithoutLock(t *testing.T) {
	l := New(testLogger())
	_ = l.Release()

	if err := l.Release(); err != nil {
		t.Errorf("Release() on unheld lock error = %v, want nil", err)
	}
}
