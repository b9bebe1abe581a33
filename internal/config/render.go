package config

import (
	"reflect"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Map renders the configuration as nested maps keyed by koanf tags, the
// same shape a YAML config file has. Durations are rendered as strings
// ("30s") so the result can be fed back through the loader.
func (c *Config) Map() map[string]any {
	return structMap(reflect.ValueOf(c).Elem())
}

func structMap(v reflect.Value) map[string]any {
	out := make(map[string]any, v.NumField())
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("koanf")
		if key == "" || key == "-" || !field.IsExported() {
			continue
		}

		fv := v.Field(i)
		switch {
		case fv.Type() == durationType:
			out[key] = time.Duration(fv.Int()).String()
		case fv.Kind() == reflect.Struct:
			out[key] = structMap(fv)
		default:
			out[key] = fv.Interface()
		}
	}
	return out
}
