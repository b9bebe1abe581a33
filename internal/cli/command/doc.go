// Package command defines the towerlink command line.
//
//	towerlink sender   -c cert.pem -k key.pem -t tower.bin -p 4433
//	towerlink receiver -s 10.0.0.1:4433 -o /var/lib/validator/tower.bin
//	towerlink config show|check
//	towerlink status --addr 127.0.0.1:9090
//
// Settings resolve as flags, then TOWERLINK_ environment variables, then
// the --config YAML file, then built-in defaults.
package command
