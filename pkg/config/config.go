package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readability
var (
	DataDir           string // root directory containing one subdirectory per circuit
	HTTPServerAddr    string // listen addr for the HTTP server
	LogLevel          string // sets the log level (zap log level values)
	LogFormat         string // text vs json
	LogFilter         string // zapfilter rules for named loggers
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry
	ProfilingPort     int    // port for providing profiling data
	WatchData         bool   // watch the data dir for new files
	AnalysisCacheSize int    // max number of cached comparison results
	CoachURL          string // endpoint of the coaching text service (empty: disabled)
	CoachModel        string // model hint passed to the coaching text service
	CoachAPIKey       string // api key for the coaching text service
	CoachTimeout      string // request timeout for the coaching text service
)

// Config holds configuration values used by the application beyond CLI wiring
type Config struct {
	MaxReplayPoints int // point budget for replay timelines
}
