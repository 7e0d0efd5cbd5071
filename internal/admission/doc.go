// Package admission limits how many genrun instances may run concurrently
// on one host.
//
// Every instance that wants to run under a given coordination key must
// occupy a slot in a table shared by all processes using that key. The
// table holds an occupancy count and one process ID per occupied slot.
// Distinct keys name fully independent pools.
//
// # Architecture
//
// The [Controller] implements the admission algorithm but never touches
// shared state directly. It works through two injected capabilities:
//
//   - a [Store], which attaches to (or creates) the slot table for a key
//     and serializes all access behind an inter-process lock, and
//   - a liveness probe, a func(pid int) bool that reports whether a
//     process still exists on the host.
//
// The production Store is [github.com/genrun/genrun/internal/admission/shm.Store],
// a flock-protected file segment. Tests substitute in-memory fakes for
// both capabilities.
//
// # Slot lifecycle
//
// A slot is never released explicitly. A process occupies a slot, runs,
// and exits; its stale entry stays in the table until another process's
// admission attempt probes it, finds the holder dead, and overwrites the
// slot in place. The occupancy count does not change on reclamation.
//
// # Waiting and ordering
//
// [Controller.Admit] retries until a slot is free, sleeping between
// attempts with the inter-process lock released. There is no admission
// order across waiting processes: whichever process's retry lands while
// a slot is free or reclaimable wins, and a waiter can starve while the
// pool stays full of live holders. With the default unbounded attempt
// limit, Admit blocks indefinitely in that situation; callers that
// cannot tolerate an indefinite wait should set [WithMaxAttempts] or
// cancel the context.
package admission
