package id_test

import (
	"encoding/json"
	"testing"

	"github.com/IsaiahDupree/BlankLogo-sub004/id"
)

func TestNew_GeneratesPrefixedIDs(t *testing.T) {
	tests := []struct {
		prefix id.Prefix
		ctor   func() id.ID
	}{
		{id.PrefixJob, id.NewJobID},
		{id.PrefixEvent, id.NewEventID},
		{id.PrefixWorker, id.NewWorkerID},
		{id.PrefixDelivery, id.NewDeliveryID},
	}
	for _, tt := range tests {
		got := tt.ctor()
		if got.IsNil() {
			t.Errorf("New(%q) returned nil ID", tt.prefix)
		}
		if got.Prefix() != tt.prefix {
			t.Errorf("Prefix() = %q, want %q", got.Prefix(), tt.prefix)
		}
	}
}

func TestParse_RoundTrip(t *testing.T) {
	orig := id.NewJobID()

	parsed, err := id.Parse(orig.String())
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", orig.String(), err)
	}
	if parsed.String() != orig.String() {
		t.Errorf("round trip = %q, want %q", parsed.String(), orig.String())
	}
}

func TestParse_RejectsEmptyString(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("Parse(\"\") should return an error")
	}
}

func TestParseWithPrefix_RejectsWrongPrefix(t *testing.T) {
	jobID := id.NewJobID()

	if _, err := id.ParseWorkerID(jobID.String()); err == nil {
		t.Errorf("ParseWorkerID(%q) should reject job prefix", jobID.String())
	}
}

func TestID_JSONRoundTrip(t *testing.T) {
	orig := id.NewJobID()

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var decoded id.ID
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if decoded.String() != orig.String() {
		t.Errorf("JSON round trip = %q, want %q", decoded.String(), orig.String())
	}
}

func TestNil_IsNil(t *testing.T) {
	if !id.Nil.IsNil() {
		t.Error("Nil.IsNil() = false, want true")
	}
	if id.Nil.String() != "" {
		t.Errorf("Nil.String() = %q, want empty", id.Nil.String())
	}
}
