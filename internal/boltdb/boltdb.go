package boltdb

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/alanbriolat/audio-archiver/catalog"
)

// DefaultFilename is the name of the bolt catalog kept in the target directory.
const DefaultFilename = "bf-download.db"

var Buckets = struct {
	Metadata []byte
	Titles   []byte
}{
	Metadata: []byte("__metadata__"),
	Titles:   []byte("titles"),
}

var MetadataKeys = struct {
	Version []byte
}{
	Version: []byte("version"),
}

const currentVersion = 1

type Database interface {
	Close() error

	catalog.Database
}

type database struct {
	*bbolt.DB
}

// OpenReadOnly opens an existing catalog database without writing to it, taking a shared lock on the file. Save
// fails with bbolt.ErrDatabaseReadOnly.
func OpenReadOnly(path string) (Database, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	err = db.View(func(tx *bbolt.Tx) error {
		metadata := tx.Bucket(Buckets.Metadata)
		if metadata == nil {
			return nil
		}
		_, err := readVersion(metadata)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &database{db}, nil
}

func readVersion(metadata *bbolt.Bucket) (version int, err error) {
	if versionBytes := metadata.Get(MetadataKeys.Version); versionBytes != nil {
		if err = json.Unmarshal(versionBytes, &version); err != nil {
			return 0, err
		}
	}
	if version > currentVersion {
		return 0, fmt.Errorf("catalog database version %d is newer than supported version %d", version, currentVersion)
	}
	return version, nil
}

func New(path string) (_ Database, err error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()
	err = db.Update(func(tx *bbolt.Tx) (err error) {
		// Ensure buckets exist
		var metadata *bbolt.Bucket
		if metadata, err = tx.CreateBucketIfNotExists(Buckets.Metadata); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(Buckets.Titles); err != nil {
			return err
		}

		if _, err = readVersion(metadata); err != nil {
			return err
		}

		if versionBytes, err := json.Marshal(currentVersion); err != nil {
			return err
		} else if err = metadata.Put(MetadataKeys.Version, versionBytes); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &database{db}, nil
}

func (d database) Load() (entries map[string]*catalog.Entry, err error) {
	entries = make(map[string]*catalog.Entry)
	err = d.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(Buckets.Titles)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var entry catalog.Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("title %q: %w", k, err)
			}
			entries[string(k)] = &entry
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Save replaces the titles bucket in a single transaction, so the previous record survives any failure.
func (d database) Save(entries map[string]*catalog.Entry) error {
	return d.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(Buckets.Titles); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		bucket, err := tx.CreateBucket(Buckets.Titles)
		if err != nil {
			return err
		}
		for title, entry := range entries {
			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte(title), data); err != nil {
				return err
			}
		}
		return nil
	})
}
