package monitoring

import (
	"sync"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op logger
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestVerbosef(t *testing.T) {
	original := Logf
	originalVerbosity := Verbosity()
	defer func() {
		Logf = original
		SetVerbosity(originalVerbosity)
	}()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})

	SetVerbosity(0)
	Verbosef(1, "hidden")
	if len(lines) != 0 {
		t.Fatalf("expected no output at verbosity 0, got %v", lines)
	}

	SetVerbosity(2)
	Verbosef(1, "shown")
	Verbosef(2, "shown too")
	Verbosef(3, "hidden")
	if len(lines) != 2 {
		t.Errorf("expected 2 lines, got %d: %v", len(lines), lines)
	}
}

func TestVerbosity_Concurrent(t *testing.T) {
	original := Logf
	originalVerbosity := Verbosity()
	defer func() {
		Logf = original
		SetVerbosity(originalVerbosity)
	}()
	SetLogger(nil)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				SetVerbosity(w % 2)
				Verbosef(1, "worker %d", w)
			}
		}(w)
	}
	wg.Wait()

	SetVerbosity(3)
	if got := Verbosity(); got != 3 {
		t.Errorf("Verbosity() = %d, want 3", got)
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}
