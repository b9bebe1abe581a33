// Package domain defines the core types shared by the sender and receiver
// roles: the freshness metadata record, push session identifiers and the
// structured error taxonomy.
package domain
