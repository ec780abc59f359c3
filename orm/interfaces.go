/*
Package orm provides an easy to use db wrapper

Break state space into prefixed sections called Buckets.
Each bucket contains only one type of object and has a primary key.
Easy lookups by key, type-safe wrappers are built on top.
*/
package orm

import (
	"github.com/custodia-net/custodia"
)

// Model is implemented by any entity that can be stored in a bucket. It
// can serialize itself and assert its own validity before persisting.
type Model interface {
	custodia.Persistent
	Validate() error
}

// Object is what is stored in the bucket.
// Key is joined with the bucket prefix to make the full db key.
// Value is the data stored.
type Object interface {
	Keyed
	Cloneable
	// Validate returns error if the object is not in a valid
	// state to save to the db (eg. field missing, out of range, ...)
	Validate() error
	Value() custodia.Persistent
}

// Keyed is anything that can identify itself
type Keyed interface {
	Key() []byte
	SetKey([]byte)
}

// Cloneable will create a new object that can be loaded into
type Cloneable interface {
	Clone() Object
}

// CloneableData is an intelligent Value that can be embedded
// in a simple object to handle much of the details.
type CloneableData interface {
	Model
	Copy() CloneableData
}

// Reader defines an interface that allows reading objects from the db
type Reader interface {
	Get(db custodia.ReadOnlyKVStore, key []byte) (Object, error)
}
