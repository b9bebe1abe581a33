// Package sender runs the role that holds the authoritative tower file.
//
// A sender pushes the file to every receiver that connects and, when a
// durable store is configured, replicates it there on a fixed interval.
// The push server and the scheduler run side by side; failures of either
// are logged per connection or per tick and never stop the other. Only
// startup failures, such as an unusable listen address or unreadable
// credentials, end the process.
package sender
