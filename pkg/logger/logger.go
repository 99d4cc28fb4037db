// Package logger builds the gateway's zerolog logger.
//
// Entries pass through a redacting writer: values under credential keys such
// as "password" or "token" are replaced before they reach the sink. Init keeps
// a process-wide instance for code that has no logger injected.
package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Redacted replaces the value of every sensitive field.
const Redacted = "[REDACTED]"

// sensitiveKeys are matched case-insensitively against top-level field names.
var sensitiveKeys = []string{
	"password",
	"password_hash",
	"passwordhash",
	"token",
	"authorization",
	"jwt_secret",
	"secret",
}

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level is trace, debug, info, warn or error. Anything else means info.
	Level string
	// Pretty switches to zerolog's console writer.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service is attached to every entry as the "service" field.
	Service string
}

var (
	instance    zerolog.Logger
	once        sync.Once
	initialized bool
)

// New builds a logger from opts without touching the shared instance.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(redactingWriter{out: out}).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp().
		Caller()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	return ctx.Logger()
}

// Init builds the shared logger on the first call and returns it on every
// call after that.
func Init(opts Options) zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		zerolog.SetGlobalLevel(parseLevel(opts.Level))
		instance = New(opts)
		initialized = true
	})
	return instance
}

// Get returns the shared logger. Panics if Init has not been called yet.
func Get() zerolog.Logger {
	if !initialized {
		panic("logger: Get() called before Init()")
	}
	return instance
}

// Reset clears the shared logger. Tests only.
func Reset() {
	once = sync.Once{}
	instance = zerolog.Logger{}
	initialized = false
}

func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return zerolog.WarnLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel || lvl > zerolog.ErrorLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// redactingWriter rewrites JSON entries that carry a sensitive field. Entries
// without one are written unchanged.
type redactingWriter struct {
	out io.Writer
}

func (w redactingWriter) Write(p []byte) (int, error) {
	if !mentionsSensitiveKey(p) {
		return w.out.Write(p)
	}

	var entry map[string]json.RawMessage
	if err := json.Unmarshal(p, &entry); err != nil {
		return w.out.Write(p)
	}
	changed := false
	for k := range entry {
		if isSensitive(k) {
			entry[k] = json.RawMessage(`"` + Redacted + `"`)
			changed = true
		}
	}
	if !changed {
		return w.out.Write(p)
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return 0, err
	}
	if _, err := w.out.Write(append(b, '\n')); err != nil {
		return 0, err
	}
	return len(p), nil
}

func mentionsSensitiveKey(p []byte) bool {
	lower := bytes.ToLower(p)
	for _, k := range sensitiveKeys {
		if bytes.Contains(lower, []byte(`"`+k+`"`)) {
			return true
		}
	}
	return false
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, k := range sensitiveKeys {
		if key == k {
			return true
		}
	}
	return false
}
