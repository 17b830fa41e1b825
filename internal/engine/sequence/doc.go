// Package sequence provides an in-memory multitrack sample sequence.
//
// A Sequence is an ordered list of tracks. Every track has a stable
// TrackID that survives reordering and undo, and holds its own run of
// samples. The sequence length is the length of its longest track.
//
// Change Feed:
//
// Every mutation is reported to subscribers after it has taken effect and
// outside the sequence lock, in mutation order:
//
//	seq := sequence.New()
//	sub := seq.Subscribe(func(ev sequence.Event) {
//	    fmt.Println(ev.Type, ev.Track, ev.Offset, ev.Length)
//	})
//	defer sub.Unsubscribe()
//
//	id, _ := seq.AppendTrack(make([]sequence.Sample, 1000))
//	seq.DeleteSamples([]sequence.TrackID{id}, 100, 10)
//
// A multitrack edit emits one event per affected track, each with the same
// offset and length.
//
// Undo:
//
// While the sequence's undo manager has an active transaction, every edit
// appends an action that reverses it. Undoing a track deletion re-creates
// the track under its original id.
package sequence
