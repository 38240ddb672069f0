// Package buildpolicy maps build error policies to CI build outcomes.
package buildpolicy

import (
	"fmt"
	"strings"
)

// Result is a build outcome ordered by severity, best first.
type Result int

const (
	ResultSuccess Result = iota
	ResultUnstable
	ResultFailure
	ResultNotBuilt
	ResultAborted
)

var resultNames = [...]string{
	ResultSuccess:  "SUCCESS",
	ResultUnstable: "UNSTABLE",
	ResultFailure:  "FAILURE",
	ResultNotBuilt: "NOT_BUILT",
	ResultAborted:  "ABORTED",
}

// Results lists every outcome from best to worst.
func Results() []Result {
	return []Result{ResultSuccess, ResultUnstable, ResultFailure, ResultNotBuilt, ResultAborted}
}

// ParseResult resolves an outcome name case-insensitively.
func ParseResult(rawValue string) (Result, error) {
	normalized := strings.ToUpper(strings.TrimSpace(rawValue))
	for _, result := range Results() {
		if resultNames[result] == normalized {
			return result, nil
		}
	}
	return ResultSuccess, fmt.Errorf("unsupported build result %q", rawValue)
}

func (result Result) String() string {
	if !result.valid() {
		return fmt.Sprintf("Result(%d)", int(result))
	}
	return resultNames[result]
}

// IsWorseThan reports whether result is more severe than other.
func (result Result) IsWorseThan(other Result) bool {
	return result > other
}

// IsBetterOrEqualTo reports whether result is no more severe than other.
func (result Result) IsBetterOrEqualTo(other Result) bool {
	return result <= other
}

// Combine returns the more severe of the two outcomes.
func (result Result) Combine(other Result) Result {
	if other.IsWorseThan(result) {
		return other
	}
	return result
}

// IsCompleteBuild reports whether the build ran to completion, which holds for FAILURE and better.
func (result Result) IsCompleteBuild() bool {
	return result.IsBetterOrEqualTo(ResultFailure)
}

func (result Result) MarshalText() ([]byte, error) {
	if !result.valid() {
		return nil, fmt.Errorf("invalid build result %d", int(result))
	}
	return []byte(result.String()), nil
}

func (result *Result) UnmarshalText(text []byte) error {
	parsed, err := ParseResult(string(text))
	if err != nil {
		return err
	}
	*result = parsed
	return nil
}

func (result Result) valid() bool {
	return result >= ResultSuccess && result <= ResultAborted
}
