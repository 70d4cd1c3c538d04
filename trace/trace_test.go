package trace

import (
	"strings"
	"testing"
)

func TestParse_WellFormedTrace(t *testing.T) {
	input := `# comment
req1 0 200 400 0
req2 50.5 150 300 1

req3 100 10 20 0
`
	specs, err := parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("len(specs) = %d, want 3", len(specs))
	}
	if specs[0].ID != "req1" || specs[0].ArrivalTimeMs != 0 || specs[0].PromptTokens != 200 || specs[0].GenTokens != 400 || specs[0].Streaming {
		t.Errorf("specs[0] = %+v, unexpected", specs[0])
	}
	if specs[1].ArrivalTimeMs != 50.5 || !specs[1].Streaming {
		t.Errorf("specs[1] = %+v, unexpected", specs[1])
	}
	if specs[2].ID != "req3" {
		t.Errorf("specs[2].ID = %q, want req3", specs[2].ID)
	}
}

func TestParse_MalformedRowErrors(t *testing.T) {
	if _, err := parse(strings.NewReader("req1 0 200 400\n")); err == nil {
		t.Error("parse() error = nil, want error for a row missing the streaming field")
	}
}

func TestParse_NonNumericFieldErrors(t *testing.T) {
	if _, err := parse(strings.NewReader("req1 zero 200 400 0\n")); err == nil {
		t.Error("parse() error = nil, want error for a non-numeric arrival time")
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/trace.txt"); err == nil {
		t.Error("Load() error = nil, want error for a missing trace file")
	}
}
