package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		env       string
		wantJSON  bool
		wantDebug bool
	}{
		{env: "dev", wantJSON: false, wantDebug: true},
		{env: "", wantJSON: false, wantDebug: true},
		{env: "staging", wantJSON: true, wantDebug: true},
		{env: "prod", wantJSON: true, wantDebug: false},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(tt.env, &buf)

			log.Debug("debug line")
			assert.Equal(t, tt.wantDebug, strings.Contains(buf.String(), "debug line"))

			buf.Reset()
			log.Info("info line")
			if tt.wantJSON {
				var rec map[string]any
				require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
				assert.Equal(t, "info line", rec["msg"])
			} else {
				assert.Contains(t, buf.String(), "msg=\"info line\"")
			}
		})
	}
}
