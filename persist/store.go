package persist

import (
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger"

	"github.com/dirvine/data-chain/keys"
)

const peerPrefix = "peer"

func peerKey(hexKey string) []byte {
	return []byte(fmt.Sprintf("%s_%s", peerPrefix, hexKey))
}

// PeerStore is a Badger-backed mirror of every public key this node has
// ever seen inside a close group's proof set, so membership of a signer in
// some prior group can be answered without re-parsing the peer-memory file
// on every lookup. It is grounded on the teacher's BadgerStore, narrowed
// from a full hashgraph store down to a single key-value mirror. The
// mirror is a derived index, not the canonical form: SnapshotToFile and
// ImportFile move data to and from the literal length-prefixed peer file
// spec §6 describes, which is what a node actually persists and exchanges.
type PeerStore struct {
	db   *badger.DB
	path string
}

// NewPeerStore opens a store at path, creating it if it does not exist.
// Unlike LoadPeerStore it does not require path to exist beforehand; an
// existing store at path is opened as is.
func NewPeerStore(path string) (*PeerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("persist: opening peer store: %w", err)
	}
	return &PeerStore{db: db, path: path}, nil
}

// LoadPeerStore opens an existing store at path.
func LoadPeerStore(path string) (*PeerStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("persist: loading peer store: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("persist: opening peer store: %w", err)
	}
	return &PeerStore{db: db, path: path}, nil
}

// LoadOrCreatePeerStore loads an existing store at path, creating a new one
// if none exists yet.
func LoadOrCreatePeerStore(path string) (*PeerStore, error) {
	store, err := LoadPeerStore(path)
	if err != nil {
		return NewPeerStore(path)
	}
	return store, nil
}

// Remember records that pub has been seen, along with the time it was
// recorded. Re-remembering an already-known key refreshes its timestamp.
func (s *PeerStore) Remember(pub keys.PublicKey) error {
	key := peerKey(pub.String())
	val, err := time.Now().MarshalBinary()
	if err != nil {
		return err
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()
	if err := tx.Set(key, val); err != nil {
		return err
	}
	return tx.Commit()
}

// Seen reports whether pub has ever been remembered, and if so, the time
// it was last remembered.
func (s *PeerStore) Seen(pub keys.PublicKey) (seenAt time.Time, known bool, err error) {
	key := peerKey(pub.String())

	var val []byte
	txErr := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})

	if txErr != nil {
		if isPeerKeyNotFound(txErr) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, txErr
	}

	var t time.Time
	if err := t.UnmarshalBinary(val); err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// AllKnown returns every public key the store currently remembers, in no
// particular order.
func (s *PeerStore) AllKnown() ([]keys.PublicKey, error) {
	var out []keys.PublicKey
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(peerPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			hexKey := string(it.Item().Key()[len(prefix):])
			pub, err := keys.PublicKeyFromHex(hexKey)
			if err != nil {
				return err
			}
			out = append(out, pub)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persist: listing known peers: %w", err)
	}
	return out, nil
}

// SnapshotToFile writes every key this store remembers to path in the
// literal peer-memory file format (EncodePeerFile): a length-prefixed
// sorted list, independent of the Badger mirror's own on-disk layout. This
// is the form a node actually exchanges or archives; the Badger mirror
// exists only to answer Seen queries without re-reading it.
func (s *PeerStore) SnapshotToFile(path string) error {
	known, err := s.AllKnown()
	if err != nil {
		return err
	}
	data, err := EncodePeerFile(known)
	if err != nil {
		return fmt.Errorf("persist: encoding peer file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("persist: writing peer file %s: %w", path, err)
	}
	return nil
}

// ImportFile reads a peer-memory file written by SnapshotToFile (or by
// another node) and remembers every key it contains, seeding the Badger
// mirror from the canonical file rather than the other way around.
func (s *PeerStore) ImportFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("persist: reading peer file %s: %w", path, err)
	}
	peers, err := DecodePeerFile(data)
	if err != nil {
		return fmt.Errorf("persist: decoding peer file %s: %w", path, err)
	}
	for _, pub := range peers {
		if err := s.Remember(pub); err != nil {
			return err
		}
	}
	return nil
}

// Forget removes pub from the store, if present.
func (s *PeerStore) Forget(pub keys.PublicKey) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()
	if err := tx.Delete(peerKey(pub.String())); err != nil {
		return err
	}
	return tx.Commit()
}

// Close releases the underlying database handle.
func (s *PeerStore) Close() error {
	return s.db.Close()
}

// StorePath returns the directory this store was opened against.
func (s *PeerStore) StorePath() string {
	return s.path
}

func isPeerKeyNotFound(err error) bool {
	return err != nil && err.Error() == badger.ErrKeyNotFound.Error()
}
