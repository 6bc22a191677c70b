package core

import (
	"errors"
	"testing"
)

func TestMapJobType(t *testing.T) {
	cases := []struct {
		raw  string
		want MappedJobTypes
	}{
		{"aggregate", MappedJobTypes{Aggregation: true}},
		{"fullhistory", MappedJobTypes{Aggregation: true, FullHistory: true}},
		{"verification", MappedJobTypes{Verification: true}},
		{"identity", MappedJobTypes{Identification: true}},
		{"all", MappedJobTypes{Aggregation: true, FullHistory: true, Verification: true, Identification: true}},
		{"  Aggregate ", MappedJobTypes{Aggregation: true}},
	}
	for _, tc := range cases {
		got, err := MapJobType(tc.raw)
		if err != nil {
			t.Fatalf("map %q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("map %q: got %+v want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestMapJobType_RejectsUnknown(t *testing.T) {
	if _, err := MapJobType("balances"); !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("expected invalid job type error, got %v", err)
	}
}

func TestMapJobTypes_MergesAndFailsFast(t *testing.T) {
	merged, err := MapJobTypes([]string{"aggregate", "identity"})
	if err != nil {
		t.Fatalf("map job types: %v", err)
	}
	want := MappedJobTypes{Aggregation: true, Identification: true}
	if merged != want {
		t.Fatalf("got %+v want %+v", merged, want)
	}

	if _, err := MapJobTypes([]string{"aggregate", "nope"}); !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("expected rejection of unknown entry, got %v", err)
	}
}

func TestMappedJobTypesNames(t *testing.T) {
	names := MappedJobTypes{Aggregation: true, Verification: true}.Names()
	if len(names) != 2 || names[0] != "aggregation" || names[1] != "verification" {
		t.Fatalf("unexpected names: %v", names)
	}
}
