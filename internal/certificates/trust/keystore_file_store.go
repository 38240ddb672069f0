package trust

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/tyemirov/certtrust/internal/certificates"
)

const (
	// DefaultKeyStorePassword matches the password of the JDK cacerts trust store.
	DefaultKeyStorePassword = "changeit"
	// DefaultKeyStoreFileName is the file name used for the permanent trust store.
	DefaultKeyStoreFileName = "extra-certificates.p12"
)

// KeyStoreFileConfiguration describes where and how the PKCS#12 trust store is written.
type KeyStoreFileConfiguration struct {
	Path                 string
	Password             string
	DirectoryPermissions fs.FileMode
	FilePermissions      fs.FileMode
}

// KeyStoreFileStore persists permanent certificates in a password-protected PKCS#12 trust store file.
// A missing file is an empty store.
type KeyStoreFileStore struct {
	fileSystem    certificates.FileSystem
	configuration KeyStoreFileConfiguration
}

// NewKeyStoreFileStore constructs a KeyStoreFileStore.
func NewKeyStoreFileStore(fileSystem certificates.FileSystem, configuration KeyStoreFileConfiguration) (*KeyStoreFileStore, error) {
	if configuration.Path == "" {
		return nil, errors.New("keystore path is required")
	}
	if configuration.DirectoryPermissions == 0 {
		configuration.DirectoryPermissions = 0o700
	}
	if configuration.FilePermissions == 0 {
		configuration.FilePermissions = 0o600
	}
	return &KeyStoreFileStore{fileSystem: fileSystem, configuration: configuration}, nil
}

// Path returns the trust store file location.
func (store *KeyStoreFileStore) Path() string {
	return store.configuration.Path
}

func (store *KeyStoreFileStore) Certificates(ctx context.Context) ([]*x509.Certificate, error) {
	exists, existsErr := store.fileSystem.FileExists(store.configuration.Path)
	if existsErr != nil {
		return nil, formatError("check keystore file", existsErr)
	}
	if !exists {
		return []*x509.Certificate{}, nil
	}
	content, readErr := store.fileSystem.ReadFile(store.configuration.Path)
	if readErr != nil {
		return nil, formatError("read keystore file", readErr)
	}
	storedCertificates, decodeErr := pkcs12.DecodeTrustStore(content, store.configuration.Password)
	if decodeErr != nil {
		if errors.Is(decodeErr, pkcs12.ErrIncorrectPassword) {
			return nil, formatError(fmt.Sprintf("open keystore %s", store.configuration.Path), decodeErr)
		}
		return nil, formatError(fmt.Sprintf("decode keystore %s", store.configuration.Path), decodeErr)
	}
	return storedCertificates, nil
}

func (store *KeyStoreFileStore) Add(ctx context.Context, certificate *x509.Certificate) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("add permanent certificate: %w", ctx.Err())
	default:
	}
	storedCertificates, loadErr := store.Certificates(ctx)
	if loadErr != nil {
		return loadErr
	}
	alias := certificates.Fingerprint(certificate)
	alreadyStored := slices.ContainsFunc(storedCertificates, func(stored *x509.Certificate) bool {
		return certificates.Fingerprint(stored) == alias
	})
	if alreadyStored {
		return nil
	}
	return store.write(append(storedCertificates, certificate))
}

// Clear removes the trust store file. The file is opened first so a missing
// or incorrect password leaves it in place.
func (store *KeyStoreFileStore) Clear(ctx context.Context) error {
	if _, err := store.Certificates(ctx); err != nil {
		return err
	}
	if err := store.fileSystem.Remove(store.configuration.Path); err != nil {
		return formatError("remove keystore file", err)
	}
	return nil
}

func (store *KeyStoreFileStore) Close() error {
	return nil
}

func (store *KeyStoreFileStore) write(certificatesToStore []*x509.Certificate) error {
	encoded, encodeErr := encodeTrustStore(certificatesToStore, store.configuration.Password)
	if encodeErr != nil {
		return encodeErr
	}
	directoryErr := store.fileSystem.EnsureDirectory(filepath.Dir(store.configuration.Path), store.configuration.DirectoryPermissions)
	if directoryErr != nil {
		return formatError("ensure keystore directory", directoryErr)
	}
	writeErr := store.fileSystem.WriteFile(store.configuration.Path, encoded, store.configuration.FilePermissions)
	if writeErr != nil {
		return formatError("write keystore file", writeErr)
	}
	return nil
}
