// Package receiver runs the standby role of one failover attempt.
//
// The push path dials the sender and the fallback path reads the durable
// store at the same time. The arbiter lets exactly one of them replace the
// output file. Dial attempts are retried within receiver.dial_timeout and
// stop early once the fallback path has committed.
package receiver
