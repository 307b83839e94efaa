package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MegaGrindStone/chat-widget/internal/models"
	bolt "go.etcd.io/bbolt"
)

// BoltDB keeps the conversation memory of the prediction endpoint in a BoltDB file, so that follow-up
// rules survive a restart. Each session is one JSON value keyed by its ID.
type BoltDB struct {
	db *bolt.DB
}

var sessionsBucket = []byte("sessions")

// NewBoltDB opens (or creates, with 0600 permissions) the database at path and makes sure the sessions
// bucket exists.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return BoltDB{}, fmt.Errorf("failed to create sessions bucket: %w", err)
	}

	return BoltDB{db: db}, nil
}

// Session returns the stored session, or an empty session with the given ID if there is none.
func (b BoltDB) Session(_ context.Context, id string) (models.Session, error) {
	sess := models.Session{ID: id}
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(sessionsBucket)
		if bk == nil {
			return nil
		}

		v := bk.Get([]byte(id))
		if v == nil {
			return nil
		}

		if err := json.Unmarshal(v, &sess); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

// SaveSession stores the session, replacing any previous version.
func (b BoltDB) SaveSession(_ context.Context, sess models.Session) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(sessionsBucket)
		if bk == nil {
			return fmt.Errorf("bucket %s not found", sessionsBucket)
		}

		v, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		return bk.Put([]byte(sess.ID), v)
	})
}

// Close releases the database file.
func (b BoltDB) Close() error {
	return b.db.Close()
}
