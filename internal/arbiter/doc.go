// Package arbiter runs the receiver's delivery paths concurrently and lets
// exactly one of them write the destination file.
package arbiter
