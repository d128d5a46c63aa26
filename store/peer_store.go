package store

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const peerBucket = "peers"

// BoltPeerStore remembers registered peers across restarts. Only the peer
// book lives here, the chain itself stays in memory.
type BoltPeerStore struct {
	DB *bolt.DB
}

func OpenPeerStore(path string) (*BoltPeerStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open peer store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(peerBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltPeerStore{DB: db}, nil
}

func (s *BoltPeerStore) SavePeer(peer string) error {
	return s.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(peerBucket))
		return b.Put([]byte(peer), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
}

// LoadPeers returns every saved peer in key order.
func (s *BoltPeerStore) LoadPeers() ([]string, error) {
	var peers []string
	err := s.DB.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(peerBucket)).ForEach(func(k, v []byte) error {
			peers = append(peers, string(k))
			return nil
		})
	})
	return peers, err
}

func (s *BoltPeerStore) Close() error {
	return s.DB.Close()
}
