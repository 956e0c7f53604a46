// Package bolt persists the last applied filter list in a bbolt database.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"
	bberrors "go.etcd.io/bbolt/errors"

	"github.com/haukened/rr-filter/internal/filter/domain"
	"github.com/haukened/rr-filter/internal/filter/repos/rulelist"
)

var (
	bucketDefaults = []byte("defaults")
	bucketMeta     = []byte("meta")

	keyName    = []byte("name")
	keyVersion = []byte("version")
	keyUpdated = []byte("updated")

	listTypes = []domain.ListType{domain.ListAllow, domain.ListDeny}
)

// ruleRecord is the stored form of a rule. The list type is implied by the
// bucket it sits in.
type ruleRecord struct {
	ID             int                        `json:"id"`
	Content        string                     `json:"content"`
	Description    string                     `json:"description,omitempty"`
	OnlySubdomains bool                       `json:"only_subdomains,omitempty"`
	Actions        *domain.ActionSettings     `json:"actions,omitempty"`
	Validations    *domain.ValidationSettings `json:"validations,omitempty"`
	Source         string                     `json:"source,omitempty"`
	AddedAt        time.Time                  `json:"added_at"`
}

// boltStore implements rulelist.Store using bbolt. Rules are keyed by their
// position in the partition so Load returns them in the order they were stored.
type boltStore struct {
	db *bbolt.DB
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string) (rulelist.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketDefaults, bucketMeta, rulesBucket(domain.ListAllow), rulesBucket(domain.ListDeny)} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

func rulesBucket(lt domain.ListType) []byte { return []byte("rules_" + lt.String()) }

// RebuildAll replaces the stored list and metadata in a single transaction.
func (s *boltStore) RebuildAll(list domain.FilterList, version uint64, updatedUnix int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := recreate(tx, bucketDefaults); err != nil {
			return err
		}
		for _, lt := range listTypes {
			b, err := recreateBucket(tx, rulesBucket(lt))
			if err != nil {
				return err
			}
			for i, r := range list.Rules[lt] {
				v, err := json.Marshal(toRecord(r))
				if err != nil {
					return fmt.Errorf("encoding rule #%d: %w", r.ID, err)
				}
				if err := b.Put(u64(uint64(i)), v); err != nil {
					return err
				}
			}
			if d, ok := list.Defaults[lt]; ok {
				v, err := json.Marshal(d)
				if err != nil {
					return fmt.Errorf("encoding %s defaults: %w", lt, err)
				}
				if err := tx.Bucket(bucketDefaults).Put([]byte(lt.String()), v); err != nil {
					return err
				}
			}
		}
		meta := tx.Bucket(bucketMeta)
		if err := meta.Put(keyName, []byte(list.Name)); err != nil {
			return err
		}
		if err := meta.Put(keyVersion, u64(version)); err != nil {
			return err
		}
		return meta.Put(keyUpdated, u64(uint64(updatedUnix)))
	})
}

// Load returns the stored list and its metadata.
func (s *boltStore) Load() (domain.FilterList, rulelist.StoreStats, error) {
	var (
		list domain.FilterList
		st   rulelist.StoreStats
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		st = readStats(tx)
		if tx.Bucket(bucketMeta).Get(keyVersion) == nil {
			return rulelist.ErrNoSnapshot
		}
		list = domain.NewFilterList(st.Name)
		for _, lt := range listTypes {
			err := tx.Bucket(rulesBucket(lt)).ForEach(func(_, v []byte) error {
				var rec ruleRecord
				if err := json.Unmarshal(v, &rec); err != nil {
					return fmt.Errorf("decoding %s rule: %w", lt, err)
				}
				list.AddRules(rec.toRule(lt))
				return nil
			})
			if err != nil {
				return err
			}
			if v := tx.Bucket(bucketDefaults).Get([]byte(lt.String())); v != nil {
				var d domain.ListDefaults
				if err := json.Unmarshal(v, &d); err != nil {
					return fmt.Errorf("decoding %s defaults: %w", lt, err)
				}
				list.Defaults[lt] = d
			}
		}
		return nil
	})
	if err != nil {
		return domain.FilterList{}, st, err
	}
	return list, st, nil
}

func (s *boltStore) Stats() rulelist.StoreStats {
	var st rulelist.StoreStats
	_ = s.db.View(func(tx *bbolt.Tx) error {
		st = readStats(tx)
		return nil
	})
	return st
}

func readStats(tx *bbolt.Tx) rulelist.StoreStats {
	st := rulelist.StoreStats{}
	if b := tx.Bucket(rulesBucket(domain.ListAllow)); b != nil {
		st.AllowRules = uint64(b.Stats().KeyN)
	}
	if b := tx.Bucket(rulesBucket(domain.ListDeny)); b != nil {
		st.DenyRules = uint64(b.Stats().KeyN)
	}
	if b := tx.Bucket(bucketMeta); b != nil {
		st.Name = string(b.Get(keyName))
		if v := b.Get(keyVersion); len(v) == 8 {
			st.Version = binary.BigEndian.Uint64(v)
		}
		if v := b.Get(keyUpdated); len(v) == 8 {
			st.UpdatedUnix = int64(binary.BigEndian.Uint64(v))
		}
	}
	return st
}

func recreate(tx *bbolt.Tx, name []byte) error {
	_, err := recreateBucket(tx, name)
	return err
}

func recreateBucket(tx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bberrors.ErrBucketNotFound) {
		return nil, err
	}
	return tx.CreateBucket(name)
}

func u64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func toRecord(r domain.DomainRule) ruleRecord {
	return ruleRecord{
		ID:             r.ID,
		Content:        r.Content,
		Description:    r.Description,
		OnlySubdomains: r.OnlySubdomains,
		Actions:        r.Actions,
		Validations:    r.Validations,
		Source:         r.Source,
		AddedAt:        r.AddedAt.UTC(),
	}
}

func (rec ruleRecord) toRule(lt domain.ListType) domain.DomainRule {
	return domain.DomainRule{
		ID:             rec.ID,
		Content:        rec.Content,
		Description:    rec.Description,
		OnlySubdomains: rec.OnlySubdomains,
		Actions:        rec.Actions,
		Validations:    rec.Validations,
		ListType:       lt,
		Source:         rec.Source,
		AddedAt:        rec.AddedAt,
	}
}
