package instrument

import (
	"github.com/spf13/viper"
)

const (
	// DefaultDir is where sample logs are written when the environment does
	// not name a directory.
	DefaultDir = "target/metrics"

	// EnvPrefix prefixes the environment variables read by LoadConfig.
	EnvPrefix = "OPCOST"
)

// Config holds the settings a Recorder takes from the process environment.
type Config struct {
	// Dir is the output directory for sample logs (OPCOST_METRICS_DIR).
	Dir string
}

// LoadConfig reads the recorder configuration from the environment.
func LoadConfig() Config {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetDefault("metrics_dir", DefaultDir)
	_ = v.BindEnv("metrics_dir")
	dir := v.GetString("metrics_dir")
	if dir == "" {
		dir = DefaultDir
	}
	return Config{Dir: dir}
}
