package buildpolicy

import (
	"fmt"
	"strings"
)

// ErrorBehavior decides how a detected error affects the build outcome.
// The zero value is ErrorBehaviorMarkFailed, the default.
type ErrorBehavior int

const (
	ErrorBehaviorMarkFailed ErrorBehavior = iota
	ErrorBehaviorMarkUnstable
	ErrorBehaviorNone

	// DefaultErrorBehavior is used when no behavior is configured.
	DefaultErrorBehavior = ErrorBehaviorMarkFailed
)

type errorBehaviorDefinition struct {
	name             string
	label            string
	equivalentResult Result
}

var errorBehaviorDefinitions = [...]errorBehaviorDefinition{
	ErrorBehaviorMarkFailed:   {name: "MarkFailed", label: "Mark Build as Failed", equivalentResult: ResultFailure},
	ErrorBehaviorMarkUnstable: {name: "MarkUnstable", label: "Mark Build as Unstable", equivalentResult: ResultUnstable},
	ErrorBehaviorNone:         {name: "None", label: "Ignore Errors", equivalentResult: ResultSuccess},
}

// ErrorBehaviors lists the behaviors in declaration order.
func ErrorBehaviors() []ErrorBehavior {
	return []ErrorBehavior{ErrorBehaviorMarkFailed, ErrorBehaviorMarkUnstable, ErrorBehaviorNone}
}

// ParseErrorBehavior resolves a behavior by name or label, ignoring case.
// An empty value selects DefaultErrorBehavior.
func ParseErrorBehavior(rawValue string) (ErrorBehavior, error) {
	trimmed := strings.TrimSpace(rawValue)
	if trimmed == "" {
		return DefaultErrorBehavior, nil
	}
	for _, behavior := range ErrorBehaviors() {
		definition := errorBehaviorDefinitions[behavior]
		if strings.EqualFold(definition.name, trimmed) || strings.EqualFold(definition.label, trimmed) {
			return behavior, nil
		}
	}
	return DefaultErrorBehavior, fmt.Errorf("unsupported error behavior %q", rawValue)
}

// String returns the behavior name.
func (behavior ErrorBehavior) String() string {
	if !behavior.valid() {
		return fmt.Sprintf("ErrorBehavior(%d)", int(behavior))
	}
	return errorBehaviorDefinitions[behavior].name
}

// Label returns the text shown to users when choosing a behavior.
func (behavior ErrorBehavior) Label() string {
	if !behavior.valid() {
		return ""
	}
	return errorBehaviorDefinitions[behavior].label
}

// EquivalentResult returns the build outcome the behavior implies.
func (behavior ErrorBehavior) EquivalentResult() Result {
	if !behavior.valid() {
		return DefaultErrorBehavior.EquivalentResult()
	}
	return errorBehaviorDefinitions[behavior].equivalentResult
}

// IsDefault reports whether behavior is DefaultErrorBehavior.
func (behavior ErrorBehavior) IsDefault() bool {
	return behavior == DefaultErrorBehavior
}

// Apply returns the outcome after a build step finished. When an error
// occurred the current outcome is combined with the equivalent result, so a
// behavior never improves an outcome.
func (behavior ErrorBehavior) Apply(current Result, errorOccurred bool) Result {
	if !errorOccurred {
		return current
	}
	return current.Combine(behavior.EquivalentResult())
}

func (behavior ErrorBehavior) MarshalText() ([]byte, error) {
	if !behavior.valid() {
		return nil, fmt.Errorf("invalid error behavior %d", int(behavior))
	}
	return []byte(behavior.String()), nil
}

func (behavior *ErrorBehavior) UnmarshalText(text []byte) error {
	parsed, err := ParseErrorBehavior(string(text))
	if err != nil {
		return err
	}
	*behavior = parsed
	return nil
}

func (behavior ErrorBehavior) valid() bool {
	return behavior >= ErrorBehaviorMarkFailed && behavior <= ErrorBehaviorNone
}
