package buildpolicy_test

import (
	"testing"

	"github.com/tyemirov/certtrust/internal/buildpolicy"
)

func TestResultOrderingMatchesSeverity(t *testing.T) {
	results := buildpolicy.Results()
	for index := 1; index < len(results); index++ {
		worse := results[index]
		better := results[index-1]
		if !worse.IsWorseThan(better) {
			t.Fatalf("expected %s to be worse than %s", worse, better)
		}
		if !better.IsBetterOrEqualTo(worse) {
			t.Fatalf("expected %s to be better than %s", better, worse)
		}
		if better.Combine(worse) != worse || worse.Combine(better) != worse {
			t.Fatalf("expected combine of %s and %s to be %s", better, worse, worse)
		}
	}
}

func TestResultCompleteBuild(t *testing.T) {
	testCases := []struct {
		result   buildpolicy.Result
		complete bool
	}{
		{result: buildpolicy.ResultSuccess, complete: true},
		{result: buildpolicy.ResultUnstable, complete: true},
		{result: buildpolicy.ResultFailure, complete: true},
		{result: buildpolicy.ResultNotBuilt, complete: false},
		{result: buildpolicy.ResultAborted, complete: false},
	}
	for _, testCase := range testCases {
		if testCase.result.IsCompleteBuild() != testCase.complete {
			t.Fatalf("unexpected completeness for %s", testCase.result)
		}
	}
}

func TestParseResult(t *testing.T) {
	for _, result := range buildpolicy.Results() {
		parsed, err := buildpolicy.ParseResult(" " + result.String() + " ")
		if err != nil {
			t.Fatalf("parse %s: %v", result, err)
		}
		if parsed != result {
			t.Fatalf("expected %s, got %s", result, parsed)
		}
	}
	if parsed, err := buildpolicy.ParseResult("not_built"); err != nil || parsed != buildpolicy.ResultNotBuilt {
		t.Fatalf("expected NOT_BUILT, got %s (%v)", parsed, err)
	}
	if _, err := buildpolicy.ParseResult("BROKEN"); err == nil {
		t.Fatalf("expected error for unknown result")
	}
	if _, err := buildpolicy.Result(42).MarshalText(); err == nil {
		t.Fatalf("expected error marshaling invalid result")
	}
}
