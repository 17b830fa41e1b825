// Package selection keeps a selected sample range consistent with a live
// multitrack sequence.
//
// A Tracker follows the change feed of a sequence and re-derives its
// tracked range after every insertion, deletion or modification:
//
//	// Track samples [100, 150) of two tracks
//	tr := selection.New(seq, 100, 50, []sequence.TrackID{a, b})
//	defer tr.Close()
//
//	tr.Subscribe(func(c selection.Change) {
//	    if c.Type == selection.Invalidated {
//	        cache.Invalidate(c.Track, c.First, c.Last)
//	    }
//	})
//
// # Modes
//
// A tracker created with a non-zero length tracks an independent sub-range
// of its tracks ("selection mode"). A zero length makes it mirror the whole
// sequence: the offset stays at zero, the length follows the sequence length
// and tracks inserted into the sequence are adopted automatically.
//
// # Reference Track
//
// The first tracked id is the reference track. A structural edit over
// several tracks reports the same offset and length for each of them, so
// only the reference track's event moves the tracked offset and length.
// All member tracks still receive their invalidations.
//
// # Undo
//
// A Tracker is a history.Handler. In selection mode it contributes a
// snapshot of its tracks, offset and length to every transaction started on
// the sequence's undo manager. Undoing the snapshot replays SelectRange,
// which emits the same notifications as a user re-selection so downstream
// caches resynchronize. The snapshot only holds a weak reference; undoing
// it after the tracker was closed does nothing.
//
// # Thread Safety
//
// All methods are thread-safe. Notifications are queued while the tracker
// lock is held and delivered after it has been released, so observers may
// call back into the tracker. Delivery follows the order of the state
// changes: notifications caused by a nested or concurrent call are delivered
// after everything queued before them, by whichever call is delivering.
// Such a call may therefore return before its own notifications arrive.
package selection
