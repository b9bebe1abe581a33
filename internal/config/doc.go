// Package config defines the towerlink configuration structure.
//
// The package is split the same way for every section:
//
//   - spec.go: Config struct definition with koanf tags
//   - default.go: default values
//   - verify.go: per-role validation, run once at startup
//   - sanitize.go: masking of secrets before the config is logged
//   - render.go: koanf-keyed map form, for `towerlink config show`
//
// Configuration is loaded via internal/infra/confloader with the priority
// flags > environment > file > defaults.
package config
