package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/tyemirov/certtrust/internal/certificates"
	"github.com/tyemirov/certtrust/internal/certificates/trust"
)

type trustDecision int

const (
	trustDecisionReject trustDecision = iota
	trustDecisionTemporary
	trustDecisionPermanent
)

func (decision trustDecision) String() string {
	switch decision {
	case trustDecisionTemporary:
		return string(trust.OriginTemporary)
	case trustDecisionPermanent:
		return string(trust.OriginPermanent)
	default:
		return "rejected"
	}
}

// trustPrompter asks the operator whether to trust a certificate.
// Input that is an *os.File counts as interactive only when it is a terminal.
type trustPrompter struct {
	reader      *bufio.Reader
	output      io.Writer
	interactive bool
}

func newTrustPrompter(input io.Reader, output io.Writer) *trustPrompter {
	interactive := input != nil
	if inputFile, isFile := input.(*os.File); isFile {
		interactive = term.IsTerminal(int(inputFile.Fd()))
	}
	prompter := &trustPrompter{output: output, interactive: interactive}
	if input != nil {
		prompter.reader = bufio.NewReader(input)
	}
	return prompter
}

// Ask describes the certificate and reads a single answer. End of input rejects.
func (prompter *trustPrompter) Ask(untrusted *trust.UntrustedCertificateError) (trustDecision, error) {
	if !prompter.interactive || prompter.reader == nil {
		return trustDecisionReject, nil
	}
	certificate := untrusted.Certificate
	fmt.Fprintf(prompter.output, "Server %s presented an untrusted certificate:\n", untrusted.ServerName)
	fmt.Fprintf(prompter.output, "  Subject:     %s\n", certificate.Subject.String())
	fmt.Fprintf(prompter.output, "  Issuer:      %s\n", certificate.Issuer.String())
	fmt.Fprintf(prompter.output, "  Valid:       %s to %s\n", certificate.NotBefore.UTC().Format(listTimeLayout), certificate.NotAfter.UTC().Format(listTimeLayout))
	fmt.Fprintf(prompter.output, "  SHA-256:     %s\n", certificates.Fingerprint(certificate))
	fmt.Fprint(prompter.output, "Trust this certificate? [t]emporarily, [p]ermanently, [N]o: ")

	answer, readErr := prompter.reader.ReadString('\n')
	if readErr != nil && !errors.Is(readErr, io.EOF) {
		return trustDecisionReject, fmt.Errorf("read answer: %w", readErr)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "t", "temporary", "temporarily":
		return trustDecisionTemporary, nil
	case "p", "permanent", "permanently":
		return trustDecisionPermanent, nil
	default:
		return trustDecisionReject, nil
	}
}
