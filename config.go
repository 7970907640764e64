package semlayer

import "time"

// Config consolidates the compiler's ambient settings: nothing here is
// read by the resolver/planner/dialect stages themselves (they are pure
// functions of their arguments), nor by the Pipeline. The CLI reads
// Compile.DefaultDialect and Compile.QueryTimeout; no code reads the other
// fields (the planner's CTE name is a fixed constant).
type Config struct {
	Compile CompileConfig `json:"compile"`
	Logging LoggingConfig `json:"logging"`
}

// CompileConfig contains pipeline-level defaults.
type CompileConfig struct {
	DefaultDialect    string        `json:"defaultDialect"`
	CFLCTEName        string        `json:"cflCteName"` // defaults to "composite_01"
	EnableSyntaxCheck bool          `json:"enableSyntaxCheck"`
	QueryTimeout      time.Duration `json:"queryTimeout"`
}

// LoggingConfig controls the optional zap logger threaded through the pipeline.
type LoggingConfig struct {
	Level            string `json:"level"` // debug, info, warn, error
	Format           string `json:"format"`
	EnableStructured bool   `json:"enableStructured"`
}

// DefaultConfig returns the configuration the CLI uses; the CLI reads no
// configuration file.
func DefaultConfig() *Config {
	return &Config{
		Compile: CompileConfig{
			DefaultDialect:    "postgres",
			CFLCTEName:        "composite_01",
			EnableSyntaxCheck: true,
			QueryTimeout:      30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:            "info",
			Format:           "json",
			EnableStructured: true,
		},
	}
}
