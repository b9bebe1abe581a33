// Package confloader loads towerlink configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables, TOWERLINK_ prefixed
//  3. YAML configuration file
//  4. Values already present in the target struct
//
// Environment keys separate sections with a double underscore so that
// keys which themselves contain underscores survive the mapping:
//
//	TOWERLINK_SENDER__TOWER_FILE=/var/lib/tower.bin -> sender.tower_file
//
// Watcher reports edits to the configuration file for the few settings
// that may change at runtime.
package confloader
