package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/recorder/otel"
)

func TestYamlFlag(t *testing.T) {
	for _, tt := range []struct {
		name    string
		value   string
		want    *otel.Options
		wantErr bool
	}{{
		name:  "flow style",
		value: "{debug-exporter: true}",
		want:  &otel.Options{DebugExporter: true},
	}, {
		name:  "empty",
		value: "",
		want:  &otel.Options{},
	}, {
		name:  "empty object",
		value: "{}",
		want:  &otel.Options{},
	}, {
		name:    "unknown key",
		value:   "{exporter: otlp}",
		wantErr: true,
	}, {
		name:    "invalid yaml",
		value:   "{debug-exporter: [",
		wantErr: true,
	}} {
		t.Run(tt.name, func(t *testing.T) {
			var o *otel.Options
			f := newYamlFlag(&o)

			err := f.Set(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, o)
				assert.Equal(t, "", f.String())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, o)
			assert.Equal(t, tt.value, f.String())
		})
	}
}
