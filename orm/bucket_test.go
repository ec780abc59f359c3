package orm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-net/custodia/errors"
	"github.com/custodia-net/custodia/store"
)

// counterData is a minimal model for bucket tests.
type counterData struct {
	Count int64
}

var _ CloneableData = (*counterData)(nil)

func (c *counterData) Marshal() ([]byte, error) {
	return EncodeSequence(c.Count), nil
}

func (c *counterData) Unmarshal(bz []byte) error {
	if len(bz) != 8 {
		return errors.Wrap(errors.ErrInput, "expected 8 bytes")
	}
	c.Count = DecodeSequence(bz)
	return nil
}

func (c *counterData) Validate() error {
	if c.Count < 0 {
		return errors.Wrap(errors.ErrState, "negative counter")
	}
	return nil
}

func (c *counterData) Copy() CloneableData {
	return &counterData{Count: c.Count}
}

func newCounterBucket() Bucket {
	return NewBucket("cnts", NewSimpleObj(nil, new(counterData)))
}

func TestBucketSaveGetDelete(t *testing.T) {
	db := store.MemStore()
	b := newCounterBucket()

	key := []byte("acct")
	obj := NewSimpleObj(key, &counterData{Count: 55})
	require.NoError(t, b.Save(db, obj))

	got, err := b.Get(db, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, key, got.Key())
	assert.Equal(t, int64(55), got.Value().(*counterData).Count)

	has, err := b.Has(db, key)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, b.Delete(db, key))
	got, err = b.Get(db, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBucketSaveInvalid(t *testing.T) {
	db := store.MemStore()
	b := newCounterBucket()

	// missing key
	err := b.Save(db, NewSimpleObj(nil, &counterData{Count: 1}))
	assert.True(t, errors.ErrEmpty.Is(err))

	// invalid value
	err = b.Save(db, NewSimpleObj([]byte("k"), &counterData{Count: -10}))
	assert.True(t, errors.ErrState.Is(err))
}

func TestBucketPrefixIsolation(t *testing.T) {
	db := store.MemStore()
	a := NewBucket("aaa", NewSimpleObj(nil, new(counterData)))
	b := NewBucket("bbb", NewSimpleObj(nil, new(counterData)))

	key := []byte("shared")
	require.NoError(t, a.Save(db, NewSimpleObj(key, &counterData{Count: 1})))

	got, err := b.Get(db, key)
	require.NoError(t, err)
	assert.Nil(t, got, "buckets must not leak into each other")
}

func TestBucketIllegalName(t *testing.T) {
	assert.Panics(t, func() {
		NewBucket("UPPER", NewSimpleObj(nil, new(counterData)))
	})
}

func TestSequence(t *testing.T) {
	db := store.MemStore()
	b := newCounterBucket()
	s := b.Sequence(SeqID)

	first, err := s.NextInt(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	raw, err := s.NextVal(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), DecodeSequence(raw))

	latest, _, err := s.Latest(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest)
}
