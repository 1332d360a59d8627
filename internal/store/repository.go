package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thomhuang/CepLookup/internal/address"
)

// maxKeyProbes bounds the search for a free multi-slot key when several saves
// land on the same millisecond.
const maxKeyProbes = 1000

// Repository stores address records in a Backend under keys chosen by a KeyScheme.
//
// Put, Get, ListKeys and GetMany report failures wrapped in ErrPersistence.
// Save and Load are best-effort: they log failures and never return them.
type Repository struct {
	backend Backend
	scheme  KeyScheme
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewRepository(backend Backend, scheme KeyScheme, log logrus.FieldLogger) *Repository {
	if scheme == nil {
		scheme = MultiSlot{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Repository{
		backend: backend,
		scheme:  scheme,
		log:     log.WithField("scheme", scheme.Name()),
		now:     time.Now,
	}
}

func (r *Repository) Scheme() KeyScheme {
	return r.scheme
}

// Put serializes rec and stores it under key.
func (r *Repository) Put(ctx context.Context, key string, rec address.Record) error {
	if r.backend == nil {
		return fmt.Errorf("%w: %w", ErrPersistence, ErrNotConfigured)
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrPersistence, key, err)
	}
	if err := r.backend.Set(ctx, key, value); err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrPersistence, key, err)
	}
	return nil
}

// Get returns the record stored under key and whether it exists.
func (r *Repository) Get(ctx context.Context, key string) (address.Record, bool, error) {
	if r.backend == nil {
		return address.Record{}, false, fmt.Errorf("%w: %w", ErrPersistence, ErrNotConfigured)
	}
	value, ok, err := r.backend.Get(ctx, key)
	if err != nil {
		return address.Record{}, false, fmt.Errorf("%w: get %s: %w", ErrPersistence, key, err)
	}
	if !ok {
		return address.Record{}, false, nil
	}
	rec, err := decodeRecord(key, value)
	if err != nil {
		return address.Record{}, false, err
	}
	return rec, true, nil
}

// ListKeys returns the keys owned by the scheme, oldest first.
func (r *Repository) ListKeys(ctx context.Context) ([]string, error) {
	if r.backend == nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, ErrNotConfigured)
	}
	all, err := r.backend.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list keys: %w", ErrPersistence, err)
	}
	keys := make([]string, 0, len(all))
	for _, k := range all {
		if r.scheme.Owns(k) {
			keys = append(keys, k)
		}
	}
	r.scheme.Sort(keys)
	return keys, nil
}

// GetMany returns the records for keys in the order supplied. Missing keys are skipped.
func (r *Repository) GetMany(ctx context.Context, keys []string) ([]address.Record, error) {
	if r.backend == nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, ErrNotConfigured)
	}
	values, err := r.backend.MultiGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: multi get: %w", ErrPersistence, err)
	}
	records := make([]address.Record, 0, len(values))
	for i, value := range values {
		if value == nil {
			continue
		}
		rec, err := decodeRecord(keys[i], value)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Save writes rec under the scheme's next key and returns that key.
// Failures are logged and reported only through ok.
func (r *Repository) Save(ctx context.Context, rec address.Record) (key string, ok bool) {
	log := r.log.WithField("postal_code", rec.PostalCode)
	key, err := r.freeKey(ctx)
	if err != nil {
		log.WithError(err).Error("could not allocate storage key")
		return "", false
	}
	if err := r.Put(ctx, key, rec); err != nil {
		log.WithError(err).Error("could not save address")
		return "", false
	}
	log.WithField("key", key).Debug("saved address")
	return key, true
}

// Load reads every owned record, oldest first, dropping duplicates and
// undecodable entries. Failures are logged and yield whatever was readable.
func (r *Repository) Load(ctx context.Context) []address.Record {
	keys, err := r.ListKeys(ctx)
	if err != nil {
		r.log.WithError(err).Error("could not list saved addresses")
		return nil
	}
	if len(keys) == 0 {
		return nil
	}
	values, err := r.backend.MultiGet(ctx, keys)
	if err != nil {
		r.log.WithError(err).Error("could not read saved addresses")
		return nil
	}

	set := address.NewSavedSet(r.scheme.Capacity())
	for i, value := range values {
		if value == nil {
			continue
		}
		rec, err := decodeRecord(keys[i], value)
		if err != nil {
			r.log.WithError(err).WithField("key", keys[i]).Warn("skipping unreadable saved address")
			continue
		}
		if !set.Add(rec) {
			r.log.WithField("key", keys[i]).WithField("postal_code", rec.PostalCode).Debug("skipping duplicate saved address")
		}
	}
	return set.Records()
}

func (r *Repository) freeKey(ctx context.Context) (string, error) {
	now := r.now()
	key := r.scheme.NextKey(now)
	if r.scheme.Capacity() == 1 {
		return key, nil
	}
	for i := 0; i < maxKeyProbes; i++ {
		if r.backend == nil {
			return "", fmt.Errorf("%w: %w", ErrPersistence, ErrNotConfigured)
		}
		_, taken, err := r.backend.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("%w: probe %s: %w", ErrPersistence, key, err)
		}
		if !taken {
			return key, nil
		}
		now = now.Add(time.Millisecond)
		key = r.scheme.NextKey(now)
	}
	return "", fmt.Errorf("%w: no free key after %d probes", ErrPersistence, maxKeyProbes)
}

func decodeRecord(key string, value []byte) (address.Record, error) {
	var rec address.Record
	if err := json.Unmarshal(value, &rec); err != nil {
		return address.Record{}, fmt.Errorf("%w: decode %s: %w", ErrPersistence, key, err)
	}
	return rec, nil
}
