package progress

import (
	"bytes"
	"testing"
)

func TestCIReporterOutput(t *testing.T) {
	var buf bytes.Buffer
	r := &CIReporter{Out: &buf}

	r.Start(2)
	r.Update(1, "corpus/a.yml")
	r.Update(2, "corpus/b.json")
	r.Finish()

	want := "Ingesting 2 contexts\n[1/2] corpus/a.yml\n[2/2] corpus/b.json\nIngestion complete\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestNewReporterInCI(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter().(*CIReporter); !ok {
		t.Error("expected CIReporter when CI is set")
	}
}

func TestNewReporterInTerminal(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("GITHUB_ACTIONS", "")
	if _, ok := NewReporter().(*TerminalReporter); !ok {
		t.Error("expected TerminalReporter outside CI")
	}
}

func TestTerminalReporterBeforeStart(t *testing.T) {
	r := &TerminalReporter{}
	// Update and Finish must be safe without a bar.
	r.Update(1, "x")
	r.Finish()
}
