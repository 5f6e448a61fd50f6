// Package library composes the store, the reactive cache and the autosave
// pipeline into the data layer an editor front end talks to.
//
// Library wraps a types.Library: reads go through the query cache and every
// successful write invalidates the cache keys it affects. Session tracks one
// open book and turns editor changes into debounced saves.
package library
