// Package logger provides a leveled, component-tagged logger used across the
// relay. Components pass a short tag ("webhook", "teneo", "messenger") so log
// lines from interleaved pipelines can be told apart.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var (
	mu    sync.Mutex
	level = INFO
	out   = log.New(os.Stderr, "", log.LstdFlags)
)

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// ParseLevel maps a config string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// SetOutput redirects log output, used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = log.New(w, "", log.LstdFlags)
}

func logC(l Level, component, msg string, fields map[string]any) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}

	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(levelNames[l])
	sb.WriteString("] [")
	sb.WriteString(component)
	sb.WriteString("] ")
	sb.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, fields[k]))
		}
	}

	out.Println(sb.String())
}

func DebugC(component, msg string) { logC(DEBUG, component, msg, nil) }
func InfoC(component, msg string)  { logC(INFO, component, msg, nil) }
func WarnC(component, msg string)  { logC(WARN, component, msg, nil) }
func ErrorC(component, msg string) { logC(ERROR, component, msg, nil) }

func DebugCF(component, msg string, fields map[string]any) { logC(DEBUG, component, msg, fields) }
func InfoCF(component, msg string, fields map[string]any)  { logC(INFO, component, msg, fields) }
func WarnCF(component, msg string, fields map[string]any)  { logC(WARN, component, msg, fields) }
func ErrorCF(component, msg string, fields map[string]any) { logC(ERROR, component, msg, fields) }
