package serverdetails_test

import (
	"testing"

	"github.com/tyemirov/certtrust/internal/serverdetails"
)

func TestServingAddressFormatterFormatsHosts(t *testing.T) {
	formatter := serverdetails.NewServingAddressFormatter()

	testCases := []struct {
		name        string
		bindAddress string
		port        string
		expected    string
	}{
		{name: "empty bind address becomes localhost", bindAddress: "", port: "8443", expected: "localhost:8443"},
		{name: "wildcard bind address becomes localhost", bindAddress: "0.0.0.0", port: "8443", expected: "localhost:8443"},
		{name: "ipv6 loopback becomes localhost", bindAddress: "::1", port: "8443", expected: "localhost:8443"},
		{name: "external address is preserved", bindAddress: "192.168.10.50", port: "9000", expected: "192.168.10.50:9000"},
		{name: "hostname is trimmed", bindAddress: "  trust.example.com  ", port: " 8443 ", expected: "trust.example.com:8443"},
		{name: "ipv6 address stays bracketed", bindAddress: "2001:db8::1", port: "8443", expected: "[2001:db8::1]:8443"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			actual := formatter.FormatHostAndPortForLogging(testCase.bindAddress, testCase.port)
			if actual != testCase.expected {
				t.Fatalf("formatted address mismatch: expected %s, got %s", testCase.expected, actual)
			}
		})
	}
}

func TestServingAddressFormatterFormatsURLs(t *testing.T) {
	formatter := serverdetails.NewServingAddressFormatter()

	testCases := []struct {
		name     string
		scheme   string
		expected string
	}{
		{name: "http scheme", scheme: "http", expected: "http://localhost:8443"},
		{name: "scheme suffix is trimmed", scheme: "https://", expected: "https://localhost:8443"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			actual := formatter.FormatURLForLogging(testCase.scheme, "", "8443")
			if actual != testCase.expected {
				t.Fatalf("expected url %s, got %s", testCase.expected, actual)
			}
		})
	}
}
