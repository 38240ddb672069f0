package app

import (
	"strings"
	"testing"
)

func TestBuildOutcome(t *testing.T) {
	testCases := []struct {
		name           string
		arguments      []string
		expectedResult string
	}{
		{name: "default behavior fails on errors", arguments: []string{"--errors", "2"}, expectedResult: "FAILURE"},
		{name: "no errors keeps current result", arguments: []string{"--current", "UNSTABLE"}, expectedResult: "UNSTABLE"},
		{name: "unstable behavior by name", arguments: []string{"--behavior", "MarkUnstable", "--errors", "1"}, expectedResult: "UNSTABLE"},
		{name: "ignore errors by label", arguments: []string{"--behavior", "Ignore Errors", "--errors", "5"}, expectedResult: "SUCCESS"},
		{name: "worse current result wins", arguments: []string{"--behavior", "MarkUnstable", "--current", "FAILURE", "--errors", "1"}, expectedResult: "FAILURE"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resources := newTestResources(t)
			arguments := append([]string{"build", "outcome"}, testCase.arguments...)
			output, err := executeRootCommand(t, resources, nil, arguments...)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			if strings.TrimSpace(output) != testCase.expectedResult {
				t.Fatalf("expected %s, got %q", testCase.expectedResult, output)
			}
		})
	}
}

func TestBuildOutcomeRejectsInvalidInput(t *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
	}{
		{name: "unknown behavior", arguments: []string{"--behavior", "Retry"}},
		{name: "unknown result", arguments: []string{"--current", "GREEN"}},
		{name: "negative errors", arguments: []string{"--errors", "-1"}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resources := newTestResources(t)
			arguments := append([]string{"build", "outcome"}, testCase.arguments...)
			if _, err := executeRootCommand(t, resources, nil, arguments...); err == nil {
				t.Fatalf("expected error for %v", testCase.arguments)
			}
		})
	}
}

func TestBuildBehaviorsListsPolicies(t *testing.T) {
	resources := newTestResources(t)
	output, err := executeRootCommand(t, resources, nil, "build", "behaviors")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and three behaviors, got %q", output)
	}
	expectations := []struct {
		label     string
		result    string
		isDefault string
	}{
		{label: "Mark Build as Failed", result: "FAILURE", isDefault: "true"},
		{label: "Mark Build as Unstable", result: "UNSTABLE", isDefault: "false"},
		{label: "Ignore Errors", result: "SUCCESS", isDefault: "false"},
	}
	for index, expectation := range expectations {
		line := lines[index+1]
		if !strings.Contains(line, expectation.label) || !strings.Contains(line, expectation.result) || !strings.HasSuffix(strings.TrimSpace(line), expectation.isDefault) {
			t.Fatalf("unexpected behavior line %q", line)
		}
	}
}
