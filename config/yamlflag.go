package config

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

// yamlFlag sets an optional structured value from a flow-style YAML
// flag, e.g. -open-telemetry={debug-exporter: true}. Unknown keys are
// rejected.
type yamlFlag[T any] struct {
	Ptr   **T
	value string
}

func newYamlFlag[T any](ptr **T) *yamlFlag[T] {
	return &yamlFlag[T]{Ptr: ptr}
}

func (yf *yamlFlag[T]) Set(value string) error {
	opts := new(T)
	if err := yaml.UnmarshalStrict([]byte(value), opts); err != nil {
		return fmt.Errorf("failed to parse yaml: %w", err)
	}

	*yf.Ptr = opts
	yf.value = value
	return nil
}

func (yf *yamlFlag[T]) String() string {
	if yf == nil {
		return ""
	}

	return yf.value
}
