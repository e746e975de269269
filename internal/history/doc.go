// Package history provides the circular history buffer shared between the
// step thread (single writer) and render-time readers.
//
// A [Ring] retains exactly the most recent N samples. Appends are O(1) and
// publish the logical write count only after the slot is complete, so a
// reader never observes a partially written [dynamo.Sample]. Reads take no
// lock: each slot carries a sequence counter and readers retry when the
// writer touched the slot underneath them.
//
// Lookups are relative to the write cursor:
//
//	r.At(0)            // most recent, same as r.Current()
//	r.At(r.Len() - 1)  // oldest retained
//	r.At(1 << 30)      // clamped to the oldest retained
package history
