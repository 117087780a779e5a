// Package storage persists user aggregates.
//
// A user and their full subscription list are written as one unit: every
// mutating call rewrites the whole subscription list for that user inside a
// single transaction. Per-user writes are therefore atomic; cross-user writes
// are independent and unordered.
package storage
