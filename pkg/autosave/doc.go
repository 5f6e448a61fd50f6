// Package autosave coalesces rapid edits into single persisted writes.
//
// A Pipeline keeps one task per entity key. A task holds the latest pending
// value and one scheduled flush; each new edit cancels and reschedules that
// flush. Flushes for one key never overlap, and a write older than the last
// committed one is discarded.
//
// A failed write is reported (to the Flush caller, or to the OnError hook
// for scheduled flushes) and is not retried automatically. The task is left
// in StatusFailed: the persisted state is unknown until Retry or a newer
// edit succeeds.
//
// Counters are created unregistered; the embedding application registers
// Pipeline.Metrics().Collectors().
package autosave
