package trust

import (
	"context"
	"crypto/x509"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	leveldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/tyemirov/certtrust/internal/certificates"
)

const levelDBKeyPrefix = "certificate/"

var leveldbWriteOptions = opt.WriteOptions{Sync: true}

// LevelDBStore persists permanent certificates in a LevelDB database keyed by fingerprint.
// LevelDB holds an exclusive lock on the directory, so only one process can open it.
type LevelDBStore struct {
	database *leveldb.DB
}

// OpenLevelDBStore opens or creates the database directory at path.
func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	database, err := leveldb.OpenFile(path, nil)
	if err != nil {
		if leveldberrors.IsCorrupted(err) {
			return nil, formatError("open corrupted certificate database", err)
		}
		return nil, formatError(fmt.Sprintf("open certificate database %s", path), err)
	}
	return &LevelDBStore{database: database}, nil
}

func (store *LevelDBStore) Certificates(ctx context.Context) ([]*x509.Certificate, error) {
	iterator := store.database.NewIterator(util.BytesPrefix([]byte(levelDBKeyPrefix)), nil)
	defer iterator.Release()
	result := []*x509.Certificate{}
	for iterator.Next() {
		certificate, err := x509.ParseCertificate(append([]byte{}, iterator.Value()...))
		if err != nil {
			return nil, formatError(fmt.Sprintf("parse stored certificate %s", iterator.Key()), err)
		}
		result = append(result, certificate)
	}
	if err := iterator.Error(); err != nil {
		return nil, formatError("iterate certificate database", err)
	}
	return result, nil
}

func (store *LevelDBStore) Add(ctx context.Context, certificate *x509.Certificate) error {
	key := []byte(levelDBKeyPrefix + certificates.Fingerprint(certificate))
	exists, err := store.database.Has(key, nil)
	if err != nil {
		return formatError("look up stored certificate", err)
	}
	if exists {
		return nil
	}
	if err := store.database.Put(key, certificate.Raw, &leveldbWriteOptions); err != nil {
		return formatError("store certificate", err)
	}
	return nil
}

func (store *LevelDBStore) Clear(ctx context.Context) error {
	batch := new(leveldb.Batch)
	iterator := store.database.NewIterator(util.BytesPrefix([]byte(levelDBKeyPrefix)), nil)
	for iterator.Next() {
		batch.Delete(append([]byte{}, iterator.Key()...))
	}
	iterator.Release()
	if err := iterator.Error(); err != nil {
		return formatError("iterate certificate database", err)
	}
	if err := store.database.Write(batch, &leveldbWriteOptions); err != nil {
		return formatError("delete stored certificates", err)
	}
	return nil
}

// Close closes the database. Callers must not use the store afterwards.
func (store *LevelDBStore) Close() error {
	return store.database.Close()
}
