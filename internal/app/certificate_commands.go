package app

import (
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tyemirov/certtrust/internal/certificates"
	"github.com/tyemirov/certtrust/pkg/logging"
)

const (
	flagNamePermanent      = "permanent"
	flagNameScope          = "scope"
	flagNameOutput         = "output"
	flagNameFormat         = "format"
	flagNameExportPassword = "export-password"

	purgeScopeTemporary = "temporary"
	purgeScopePermanent = "permanent"
	purgeScopeAll       = "all"

	exportFormatPKCS12 = "pkcs12"
	exportFormatPEM    = "pem"

	exportFilePermissions = 0o600
	listTimeLayout        = time.RFC3339

	logFieldCertificate = "certificate"
	logFieldOrigin      = "origin"
	logFieldPermanent   = "permanent"
	logFieldNotAfter    = "not_after"
	logFieldScope       = "scope"
	logFieldPath        = "path"
	logFieldCount       = "count"

	logMessageCertificateAdded     = "certificate trusted"
	logMessageCertificatesPurged   = "certificates purged"
	logMessageKeyStoreExported     = "keystore exported"
	logMessageTemporaryProcessOnly = "temporary certificates are forgotten when this process exits"
)

func newCertificatesCommand(resources *applicationResources) *cobra.Command {
	certificatesCommand := &cobra.Command{
		Use:     "certificates",
		Aliases: []string{"certs"},
		Short:   "Manage extra trusted certificates",
	}
	certificatesCommand.AddCommand(newCertificatesAddCommand())
	certificatesCommand.AddCommand(newCertificatesListCommand())
	certificatesCommand.AddCommand(newCertificatesPurgeCommand())
	certificatesCommand.AddCommand(newCertificatesExportCommand())
	certificatesCommand.AddCommand(newCertificatesCheckCommand(resources))
	return certificatesCommand
}

func newCertificatesAddCommand() *cobra.Command {
	addCommand := &cobra.Command{
		Use:   "add <pem-file>...",
		Short: "Trust every certificate found in the given PEM files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			permanent, flagErr := cmd.Flags().GetBool(flagNamePermanent)
			if flagErr != nil {
				return fmt.Errorf("read permanent flag: %w", flagErr)
			}
			return runCertificatesAdd(cmd, args, permanent)
		},
	}
	addCommand.Flags().Bool(flagNamePermanent, false, "Persist the certificates in the permanent store")
	return addCommand
}

func runCertificatesAdd(cmd *cobra.Command, paths []string, permanent bool) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	fileSystem := certificates.NewOperatingSystemFileSystem()
	var certificatesToAdd []*certificateSource
	for _, path := range paths {
		content, readErr := fileSystem.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("read certificate file %s: %w", path, readErr)
		}
		parsedCertificates, parseErr := certificates.ParseCertificatesFromPEM(content)
		if parseErr != nil {
			return fmt.Errorf("parse certificate file %s: %w", path, parseErr)
		}
		for _, parsedCertificate := range parsedCertificates {
			certificatesToAdd = append(certificatesToAdd, &certificateSource{path: path, certificate: parsedCertificate})
		}
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

	if !permanent {
		resources.loggingService.Warn(logMessageTemporaryProcessOnly)
	}
	for _, source := range certificatesToAdd {
		var addErr error
		if permanent {
			addErr = manager.AddPermanentCertificate(cmd.Context(), source.certificate)
		} else {
			addErr = manager.AddTemporaryCertificate(cmd.Context(), source.certificate)
		}
		if addErr != nil {
			return fmt.Errorf("trust certificate from %s: %w", source.path, addErr)
		}
		resources.loggingService.Info(logMessageCertificateAdded,
			logging.String(logFieldCertificate, certificates.Fingerprint(source.certificate)),
			logging.Bool(logFieldPermanent, permanent),
			logging.Time(logFieldNotAfter, source.certificate.NotAfter),
			logging.String(logFieldPath, source.path))
	}
	return nil
}

func newCertificatesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List trusted certificates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCertificatesList(cmd)
		},
	}
}

func runCertificatesList(cmd *cobra.Command) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
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

	keyStore, err := manager.AsKeyStore(cmd.Context())
	if err != nil {
		return err
	}
	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ALIAS\tORIGIN\tSUBJECT\tNOT AFTER")
	for _, entry := range keyStore.Entries() {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			entry.Alias,
			entry.Origin,
			entry.Certificate.Subject.String(),
			entry.Certificate.NotAfter.UTC().Format(listTimeLayout))
	}
	return writer.Flush()
}

func newCertificatesPurgeCommand() *cobra.Command {
	purgeCommand := &cobra.Command{
		Use:   "purge",
		Short: "Forget trusted certificates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, flagErr := cmd.Flags().GetString(flagNameScope)
			if flagErr != nil {
				return fmt.Errorf("read scope flag: %w", flagErr)
			}
			return runCertificatesPurge(cmd, scope)
		},
	}
	purgeCommand.Flags().String(flagNameScope, "", fmt.Sprintf("Certificates to forget (%s, %s or %s)", purgeScopeTemporary, purgeScopePermanent, purgeScopeAll))
	return purgeCommand
}

func runCertificatesPurge(cmd *cobra.Command, scope string) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	normalizedScope := strings.ToLower(strings.TrimSpace(scope))
	switch normalizedScope {
	case purgeScopeTemporary, purgeScopePermanent, purgeScopeAll:
	case "":
		return errors.New("purge scope is required")
	default:
		return fmt.Errorf("unsupported purge scope %q", scope)
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

	var purgeErr error
	switch normalizedScope {
	case purgeScopeTemporary:
		purgeErr = manager.PurgeTemporaryCertificates(cmd.Context())
	case purgeScopePermanent:
		purgeErr = manager.PurgePermanentCertificates(cmd.Context())
	default:
		purgeErr = manager.PurgeAllCertificates(cmd.Context())
	}
	if purgeErr != nil {
		return fmt.Errorf("purge %s certificates: %w", normalizedScope, purgeErr)
	}
	resources.loggingService.Info(logMessageCertificatesPurged, logging.String(logFieldScope, normalizedScope))
	return nil
}

func newCertificatesExportCommand() *cobra.Command {
	exportCommand := &cobra.Command{
		Use:   "export",
		Short: "Write all trusted certificates as a keystore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCertificatesExport(cmd)
		},
	}
	exportCommand.Flags().String(flagNameOutput, "", "Destination file")
	exportCommand.Flags().String(flagNameFormat, exportFormatPKCS12, fmt.Sprintf("Keystore format (%s or %s)", exportFormatPKCS12, exportFormatPEM))
	exportCommand.Flags().String(flagNameExportPassword, "", "Password for the exported PKCS#12 keystore (defaults to the store password)")
	return exportCommand
}

func runCertificatesExport(cmd *cobra.Command) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString(flagNameOutput)
	if err != nil {
		return fmt.Errorf("read output flag: %w", err)
	}
	if strings.TrimSpace(outputPath) == "" {
		return errors.New("output path is required")
	}
	format, err := cmd.Flags().GetString(flagNameFormat)
	if err != nil {
		return fmt.Errorf("read format flag: %w", err)
	}
	exportPassword, err := cmd.Flags().GetString(flagNameExportPassword)
	if err != nil {
		return fmt.Errorf("read export password flag: %w", err)
	}

	storeConfiguration, err := resolveStoreConfiguration(resources)
	if err != nil {
		return err
	}
	if exportPassword == "" {
		exportPassword = storeConfiguration.Password
	}
	manager, err := openCertificateManager(storeConfiguration)
	if err != nil {
		return err
	}
	defer closeCertificateManager(resources, manager, storeConfiguration)

	keyStore, err := manager.AsKeyStore(cmd.Context())
	if err != nil {
		return err
	}
	var content []byte
	switch strings.ToLower(strings.TrimSpace(format)) {
	case exportFormatPKCS12:
		content, err = keyStore.EncodePKCS12(exportPassword)
		if err != nil {
			return err
		}
	case exportFormatPEM:
		content = keyStore.EncodePEM()
	default:
		return fmt.Errorf("unsupported keystore format %q", format)
	}

	if writeErr := certificates.NewOperatingSystemFileSystem().WriteFile(outputPath, content, exportFilePermissions); writeErr != nil {
		return fmt.Errorf("write keystore: %w", writeErr)
	}
	resources.loggingService.Info(logMessageKeyStoreExported,
		logging.String(logFieldPath, outputPath),
		logging.Int(logFieldCount, keyStore.Len()))
	return nil
}

type certificateSource struct {
	path        string
	certificate *x509.Certificate
}
