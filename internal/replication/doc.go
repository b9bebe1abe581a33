// Package replication keeps the durable store's copy of the tower file
// current.
//
// Every tick the scheduler snapshots the source file and overwrites the
// "tower_file" key, then, only if that write succeeded, the
// "tower_metadata" key. Readers therefore never see metadata newer than
// the blob it describes. A failed tick is logged and skipped; the next one
// starts from scratch.
package replication
