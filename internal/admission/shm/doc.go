// Package shm stores admission slot tables in files shared by every
// process on the host.
//
// Each coordination key maps to one segment: a fixed-size binary file
// holding the occupancy count followed by one PID per slot, all as
// little-endian int64 words. Segments live under /dev/shm when the
// host has it (a tmpfs, so the table is memory-resident and vanishes
// on reboot) and under the regular temp directory otherwise.
//
// Cross-process mutual exclusion uses flock(2) on a companion .lock
// file. Acquisition is retried a bounded number of times; a lock that
// cannot be taken surfaces as an error, the segment is never read or
// written unlocked.
//
// Segments are never removed. They are a few dozen bytes each, exist
// only on tmpfs or in the temp directory, and stale PID entries inside
// them are reclaimed by the admission controller.
package shm
