// Package output renders command results as a table, JSON or YAML.
//
// Nested maps (such as a rendered configuration) are flattened to dotted
// keys in table mode; JSON and YAML keep the nesting.
package output
