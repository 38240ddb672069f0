package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tyemirov/certtrust/internal/certificates"
	"github.com/tyemirov/certtrust/internal/certificates/trust"
	"github.com/tyemirov/certtrust/pkg/logging"
)

const (
	flagNameAccept  = "accept"
	flagNameTimeout = "timeout"

	acceptPolicyNever     = "never"
	acceptPolicyTemporary = "temporary"
	acceptPolicyPermanent = "permanent"
	acceptPolicyPrompt    = "prompt"

	defaultHTTPSPort       = "443"
	defaultCheckTimeout    = 10 * time.Second
	maximumConcurrentDials = 8

	logFieldTarget                = "target"
	logFieldSystemRoots           = "system_roots"
	logMessagePromptUnavailable   = "stdin is not a terminal; untrusted certificates will be rejected"
	logMessageCertificateAccepted = "untrusted certificate accepted"
)

type hostCheckResult struct {
	target    string
	untrusted *trust.UntrustedCertificateError
	err       error
}

func newCertificatesCheckCommand(resources *applicationResources) *cobra.Command {
	checkCommand := &cobra.Command{
		Use:   "check <host[:port]>...",
		Short: "Connect to TLS endpoints and report whether their certificates are trusted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acceptPolicy, flagErr := cmd.Flags().GetString(flagNameAccept)
			if flagErr != nil {
				return fmt.Errorf("read accept flag: %w", flagErr)
			}
			timeout, flagErr := cmd.Flags().GetDuration(flagNameTimeout)
			if flagErr != nil {
				return fmt.Errorf("read timeout flag: %w", flagErr)
			}
			return runCertificatesCheck(cmd, args, acceptPolicy, timeout)
		},
	}
	checkCommand.Flags().String(flagNameAccept, acceptPolicyNever, fmt.Sprintf("Handling of untrusted certificates (%s, %s, %s or %s)", acceptPolicyNever, acceptPolicyTemporary, acceptPolicyPermanent, acceptPolicyPrompt))
	checkCommand.Flags().Duration(flagNameTimeout, defaultCheckTimeout, "Dial and handshake timeout per host")
	checkCommand.Flags().Bool(flagNameSystemRoots, resources.configurationManager.GetBool(configKeySystemRoots), "Trust the operating system roots in addition to extra certificates")
	_ = resources.configurationManager.BindPFlag(configKeySystemRoots, checkCommand.Flags().Lookup(flagNameSystemRoots))
	return checkCommand
}

func runCertificatesCheck(cmd *cobra.Command, targets []string, acceptPolicy string, timeout time.Duration) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	normalizedPolicy := strings.ToLower(strings.TrimSpace(acceptPolicy))
	switch normalizedPolicy {
	case acceptPolicyNever, acceptPolicyTemporary, acceptPolicyPermanent, acceptPolicyPrompt:
	default:
		return fmt.Errorf("unsupported accept policy %q", acceptPolicy)
	}
	if timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %s", timeout)
	}

	prompter := newTrustPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	if normalizedPolicy == acceptPolicyPrompt && !prompter.interactive {
		resources.loggingService.Warn(logMessagePromptUnavailable)
		normalizedPolicy = acceptPolicyNever
	}

	storeConfiguration, err := resolveStoreConfiguration(resources)
	if err != nil {
		return err
	}
	manager, err := openCertificateManager(storeConfiguration)
	if err != nil {
		return err
	}
	defer closeCertificateManager(resources, manager, storeConfiguration)

	useSystemRoots := resources.configurationManager.GetBool(configKeySystemRoots)
	verifier, err := trust.NewVerifier(manager, trust.VerifierConfiguration{UseSystemRoots: useSystemRoots})
	if err != nil {
		return err
	}
	checkLogger := resources.loggingService.With(logging.Bool(logFieldSystemRoots, useSystemRoots))

	results := probeTargets(cmd.Context(), verifier, targets, timeout)

	output := cmd.OutOrStdout()
	acceptedFingerprints := make(map[string]trustDecision)
	failedCount := 0
	for _, result := range results {
		if result.err == nil {
			fmt.Fprintf(output, "%s: trusted\n", result.target)
			continue
		}
		if result.untrusted == nil {
			failedCount++
			fmt.Fprintf(output, "%s: error: %v\n", result.target, result.err)
			continue
		}

		fingerprint := certificates.Fingerprint(result.untrusted.Certificate)
		decision, seen := acceptedFingerprints[fingerprint]
		if !seen {
			decision, err = decideTrust(normalizedPolicy, prompter, result.untrusted)
			if err != nil {
				return err
			}
			if applyErr := applyTrustDecision(cmd.Context(), manager, decision, result.untrusted); applyErr != nil {
				return applyErr
			}
			acceptedFingerprints[fingerprint] = decision
		}

		if decision == trustDecisionReject {
			failedCount++
			fmt.Fprintf(output, "%s: untrusted: %v\n", result.target, result.untrusted)
			continue
		}
		checkLogger.Info(logMessageCertificateAccepted,
			logging.String(logFieldTarget, result.target),
			logging.String(logFieldCertificate, fingerprint),
			logging.String(logFieldOrigin, decision.String()))
		fmt.Fprintf(output, "%s: trusted %s\n", result.target, decision.String())
	}

	if failedCount > 0 {
		return fmt.Errorf("%d of %d hosts are not trusted", failedCount, len(results))
	}
	return nil
}

func decideTrust(acceptPolicy string, prompter *trustPrompter, untrusted *trust.UntrustedCertificateError) (trustDecision, error) {
	switch acceptPolicy {
	case acceptPolicyTemporary:
		return trustDecisionTemporary, nil
	case acceptPolicyPermanent:
		return trustDecisionPermanent, nil
	case acceptPolicyPrompt:
		return prompter.Ask(untrusted)
	default:
		return trustDecisionReject, nil
	}
}

func applyTrustDecision(ctx context.Context, manager trust.Manager, decision trustDecision, untrusted *trust.UntrustedCertificateError) error {
	switch decision {
	case trustDecisionTemporary:
		if err := manager.AddTemporaryCertificate(ctx, untrusted.Certificate); err != nil {
			return fmt.Errorf("trust certificate temporarily: %w", err)
		}
	case trustDecisionPermanent:
		if err := manager.AddPermanentCertificate(ctx, untrusted.Certificate); err != nil {
			return fmt.Errorf("trust certificate permanently: %w", err)
		}
	}
	return nil
}

func probeTargets(ctx context.Context, verifier *trust.Verifier, targets []string, timeout time.Duration) []hostCheckResult {
	results := make([]hostCheckResult, len(targets))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maximumConcurrentDials)
	for index, target := range targets {
		group.Go(func() error {
			results[index] = probeTarget(groupCtx, verifier, target, timeout)
			return nil
		})
	}
	_ = group.Wait()
	return results
}

func probeTarget(ctx context.Context, verifier *trust.Verifier, target string, timeout time.Duration) hostCheckResult {
	result := hostCheckResult{target: target}
	host, port, err := splitTarget(target)
	if err != nil {
		result.err = err
		return result
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config:    verifier.TLSConfig(host),
	}
	connection, dialErr := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(host, port))
	if dialErr != nil {
		result.err = dialErr
		var untrustedErr *trust.UntrustedCertificateError
		if errors.As(dialErr, &untrustedErr) {
			result.untrusted = untrustedErr
		}
		return result
	}
	_ = connection.Close()
	return result
}

func splitTarget(target string) (string, string, error) {
	trimmedTarget := strings.TrimSpace(target)
	if trimmedTarget == "" {
		return "", "", errors.New("empty target")
	}
	if !strings.Contains(trimmedTarget, ":") || (strings.Count(trimmedTarget, ":") > 1 && !strings.HasPrefix(trimmedTarget, "[")) {
		return strings.Trim(trimmedTarget, "[]"), defaultHTTPSPort, nil
	}
	host, port, err := net.SplitHostPort(trimmedTarget)
	if err != nil {
		return "", "", fmt.Errorf("parse target %s: %w", target, err)
	}
	if port == "" {
		port = defaultHTTPSPort
	}
	return host, port, nil
}
