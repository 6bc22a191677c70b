package core

import (
	"fmt"
	"sort"
	"strings"
)

// JobType is the public vocabulary the widget speaks.
type JobType string

const (
	JobTypeAggregate    JobType = "aggregate"
	JobTypeFullHistory  JobType = "fullhistory"
	JobTypeVerification JobType = "verification"
	JobTypeIdentity     JobType = "identity"
	JobTypeAll          JobType = "all"
)

// MappedJobTypes is the adapter-internal expansion of a public job type:
// which data products the resulting aggregator job must produce.
type MappedJobTypes struct {
	Aggregation    bool
	FullHistory    bool
	Verification   bool
	Identification bool
}

// MapJobType translates the public vocabulary into MappedJobTypes,
// rejecting anything it does not recognize.
func MapJobType(raw string) (MappedJobTypes, error) {
	switch JobType(strings.TrimSpace(strings.ToLower(raw))) {
	case JobTypeAggregate:
		return MappedJobTypes{Aggregation: true}, nil
	case JobTypeFullHistory:
		return MappedJobTypes{Aggregation: true, FullHistory: true}, nil
	case JobTypeVerification:
		return MappedJobTypes{Verification: true}, nil
	case JobTypeIdentity:
		return MappedJobTypes{Identification: true}, nil
	case JobTypeAll:
		return MappedJobTypes{Aggregation: true, FullHistory: true, Verification: true, Identification: true}, nil
	default:
		return MappedJobTypes{}, fmt.Errorf("%w: %q", ErrInvalidJobType, raw)
	}
}

// MapJobTypes translates a list of public job types, merging the result.
func MapJobTypes(raw []string) (MappedJobTypes, error) {
	merged := MappedJobTypes{}
	for _, value := range raw {
		mapped, err := MapJobType(value)
		if err != nil {
			return MappedJobTypes{}, err
		}
		merged.Aggregation = merged.Aggregation || mapped.Aggregation
		merged.FullHistory = merged.FullHistory || mapped.FullHistory
		merged.Verification = merged.Verification || mapped.Verification
		merged.Identification = merged.Identification || mapped.Identification
	}
	return merged, nil
}

func (m MappedJobTypes) Names() []string {
	names := []string{}
	if m.Aggregation {
		names = append(names, "aggregation")
	}
	if m.FullHistory {
		names = append(names, "full_history")
	}
	if m.Verification {
		names = append(names, "verification")
	}
	if m.Identification {
		names = append(names, "identification")
	}
	sort.Strings(names)
	return names
}
