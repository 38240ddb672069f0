package app

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tyemirov/certtrust/internal/certificates"
	"github.com/tyemirov/certtrust/internal/certificates/certificatestest"
	"github.com/tyemirov/certtrust/internal/certificates/trust"
)

func startTLSServer(t *testing.T) (string, certificatestest.Authority, string) {
	t.Helper()
	authority := certificatestest.NewAuthority(t, "check authority")
	leaf, tlsCertificate := authority.IssueServerCertificate(t, "127.0.0.1")
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.WriteHeader(http.StatusNoContent)
	}))
	server.TLS = &tls.Config{Certificates: []tls.Certificate{tlsCertificate}}
	server.StartTLS()
	t.Cleanup(server.Close)
	return server.Listener.Addr().String(), authority, certificates.Fingerprint(leaf)
}

func TestCertificatesCheckAcceptPolicies(t *testing.T) {
	address, _, _ := startTLSServer(t)

	testCases := []struct {
		name           string
		acceptPolicy   string
		expectError    bool
		expectedOutput string
	}{
		{name: "never rejects", acceptPolicy: acceptPolicyNever, expectError: true, expectedOutput: "untrusted"},
		{name: "temporary accepts", acceptPolicy: acceptPolicyTemporary, expectedOutput: "trusted temporary"},
		{name: "permanent accepts", acceptPolicy: acceptPolicyPermanent, expectedOutput: "trusted permanent"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resources := newTestResources(t)
			resources.configurationManager.Set(configKeyStoreBackend, storeBackendMemory)

			output, err := executeRootCommand(t, resources, nil, "certificates", "check", "--system-roots=false", "--accept", testCase.acceptPolicy, address)
			if testCase.expectError != (err != nil) {
				t.Fatalf("unexpected error state: %v (output %q)", err, output)
			}
			if !strings.Contains(output, address+": "+testCase.expectedOutput) {
				t.Fatalf("expected output containing %q, got %q", testCase.expectedOutput, output)
			}
		})
	}
}

func TestCertificatesCheckTrustsChainToStoredAuthority(t *testing.T) {
	address, authority, _ := startTLSServer(t)
	resources := newTestResources(t)
	pemPath := writePEMFile(t, authority.Certificate)
	if _, err := executeRootCommand(t, resources, nil, "certificates", "add", "--permanent", pemPath); err != nil {
		t.Fatalf("add authority: %v", err)
	}

	output, err := executeRootCommand(t, resources, nil, "certificates", "check", "--system-roots=false", address)
	if err != nil {
		t.Fatalf("check: %v (output %q)", err, output)
	}
	if !strings.Contains(output, address+": trusted\n") {
		t.Fatalf("expected trusted output, got %q", output)
	}
}

func TestCertificatesCheckPromptStoresPermanentAnswer(t *testing.T) {
	address, _, leafFingerprint := startTLSServer(t)
	resources := newTestResources(t)

	output, err := executeRootCommand(t, resources, strings.NewReader("p\n"), "certificates", "check", "--system-roots=false", "--accept", acceptPolicyPrompt, address, address)
	if err != nil {
		t.Fatalf("check: %v (output %q)", err, output)
	}
	if strings.Count(output, "Trust this certificate?") != 1 {
		t.Fatalf("expected a single prompt for a repeated certificate, got %q", output)
	}
	if strings.Count(output, "trusted permanent") != 2 {
		t.Fatalf("expected both targets to be trusted, got %q", output)
	}

	listing, err := executeRootCommand(t, resources, nil, "certificates", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(listing, leafFingerprint) || !strings.Contains(listing, string(trust.OriginPermanent)) {
		t.Fatalf("expected permanent leaf in listing, got %q", listing)
	}
}

func TestCertificatesCheckPromptRejectsOnEmptyAnswer(t *testing.T) {
	address, _, _ := startTLSServer(t)
	resources := newTestResources(t)
	resources.configurationManager.Set(configKeyStoreBackend, storeBackendMemory)

	output, err := executeRootCommand(t, resources, strings.NewReader("\n"), "certificates", "check", "--system-roots=false", "--accept", acceptPolicyPrompt, address)
	if err == nil {
		t.Fatalf("expected rejection error, output %q", output)
	}
	if !strings.Contains(err.Error(), "1 of 1 hosts are not trusted") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCertificatesCheckRejectsUnknownPolicy(t *testing.T) {
	resources := newTestResources(t)
	_, err := executeRootCommand(t, resources, nil, "certificates", "check", "--accept", "always", "127.0.0.1:1")
	if err == nil || !strings.Contains(err.Error(), "unsupported accept policy") {
		t.Fatalf("expected unsupported policy error, got %v", err)
	}
}

func TestSplitTarget(t *testing.T) {
	testCases := []struct {
		target       string
		expectedHost string
		expectedPort string
		expectError  bool
	}{
		{target: "example.com", expectedHost: "example.com", expectedPort: defaultHTTPSPort},
		{target: "example.com:8443", expectedHost: "example.com", expectedPort: "8443"},
		{target: "[::1]:9443", expectedHost: "::1", expectedPort: "9443"},
		{target: "::1", expectedHost: "::1", expectedPort: defaultHTTPSPort},
		{target: " ", expectError: true},
	}
	for _, testCase := range testCases {
		host, port, err := splitTarget(testCase.target)
		if testCase.expectError {
			if err == nil {
				t.Fatalf("expected error for %q", testCase.target)
			}
			continue
		}
		if err != nil {
			t.Fatalf("split %q: %v", testCase.target, err)
		}
		if host != testCase.expectedHost || port != testCase.expectedPort {
			t.Fatalf("split %q: got %s %s", testCase.target, host, port)
		}
	}
}

func TestCertificatesCheckLogsSystemRootsSetting(t *testing.T) {
	address, _, leafFingerprint := startTLSServer(t)
	resources, logs := newLogCapturingResources(t)
	resources.configurationManager.Set(configKeyStoreBackend, storeBackendMemory)

	if _, err := executeRootCommand(t, resources, nil, "certificates", "check", "--system-roots=false", "--accept", acceptPolicyTemporary, address); err != nil {
		t.Fatalf("check: %v", err)
	}
	logOutput := logs.String()
	for _, expected := range []string{`"system_roots":false`, `"origin":"temporary"`, leafFingerprint} {
		if !strings.Contains(logOutput, expected) {
			t.Fatalf("expected log output to contain %s, got %q", expected, logOutput)
		}
	}
}
