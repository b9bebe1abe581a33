// Package main provides the entry point for towerlink.
//
// towerlink keeps a standby validator's tower file current. The sender
// role serves the file over QUIC and copies it to a durable store; the
// receiver role fetches it once, from the sender when reachable and from
// the store otherwise, and writes it atomically.
//
// Usage:
//
//	towerlink sender -c cert.pem -k key.pem -t tower.bin -p 4433
//	towerlink receiver -s 10.0.0.1:4433 -o tower.bin --cloudflare-token $TOKEN
package main
