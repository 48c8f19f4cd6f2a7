package instrument

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("OPCOST_METRICS_DIR", "/tmp/opcost-metrics")
	assert.Equal(t, Config{Dir: "/tmp/opcost-metrics"}, LoadConfig())
}

func TestLoadConfigDefault(t *testing.T) {
	t.Setenv("OPCOST_METRICS_DIR", "")
	assert.Equal(t, DefaultDir, LoadConfig().Dir)
}
