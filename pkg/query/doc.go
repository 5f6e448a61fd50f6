// Package query is an in-memory reactive cache mapping query keys to fetched
// results.
//
// A Client serves Query calls from cache while a result is fresher than its
// stale time and otherwise runs exactly one fetch per key, shared by every
// concurrent caller. Mutate runs a write and, on success, marks the keys it
// names stale; every active subscriber of a stale key refetches and is
// notified with the new State.
//
// Entries are created lazily on first use and kept for the life of the
// Client. Mutations are not serialized: two concurrent writes to the same
// entity both reach the store and the cache reflects whichever committed
// last.
//
// Counters are created unregistered; the embedding application registers
// Client.Metrics().Collectors().
package query
