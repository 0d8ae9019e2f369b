package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

// The whole service logs JSON lines to stdout through one logger, so request
// logs, audit entries and token-rejection warnings interleave in one stream.
var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the process-wide line logger. No prefix, no flags: every
// line is a self-contained JSON object.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest marshals entry and emits it as one line. A marshal failure is
// itself logged rather than dropped silently.
func LogRequest(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log entry marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}
