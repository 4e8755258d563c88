package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// correlationKeys are written ahead of the other fields in text output and
// kept at the top level in JSON output.
var correlationKeys = []string{"request_id", "user_id", "ride_id", "driver_id", "component"}

var levelColors = map[logrus.Level]int{
	logrus.TraceLevel: 37,
	logrus.DebugLevel: 37,
	logrus.InfoLevel:  36,
	logrus.WarnLevel:  33,
	logrus.ErrorLevel: 31,
	logrus.FatalLevel: 31,
	logrus.PanicLevel: 31,
}

func isCorrelationKey(key string) bool {
	for _, k := range correlationKeys {
		if k == key {
			return true
		}
	}
	return false
}

// fieldValue makes error values readable once encoded.
func fieldValue(v interface{}) interface{} {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}

func timestampLayout(layout string) string {
	if layout == "" {
		return time.RFC3339
	}
	return layout
}

func callerString(entry *logrus.Entry) string {
	if !entry.HasCaller() {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
}

// CustomJSONFormatter writes one JSON object per entry. Correlation ids stay
// at the top level; everything else is nested under "fields".
type CustomJSONFormatter struct {
	TimestampFormat string
	PrettyPrint     bool
	AppName         string
	Version         string
}

func (f *CustomJSONFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	out := map[string]interface{}{
		"timestamp": entry.Time.Format(timestampLayout(f.TimestampFormat)),
		"level":     entry.Level.String(),
		"message":   entry.Message,
	}
	if f.AppName != "" {
		out["app"] = f.AppName
	}
	if f.Version != "" {
		out["version"] = f.Version
	}
	if caller := callerString(entry); caller != "" {
		out["caller"] = caller
	}

	extra := make(map[string]interface{})
	for k, v := range entry.Data {
		if isCorrelationKey(k) {
			out[k] = fieldValue(v)
			continue
		}
		extra[k] = fieldValue(v)
	}
	if len(extra) > 0 {
		out["fields"] = extra
	}

	var (
		data []byte
		err  error
	)
	if f.PrettyPrint {
		data, err = json.MarshalIndent(out, "", "  ")
	} else {
		data, err = json.Marshal(out)
	}
	if err != nil {
		return nil, fmt.Errorf("marshal log entry: %w", err)
	}
	return append(data, '\n'), nil
}

// CustomTextFormatter writes a single human readable line per entry:
// time, level, app, message, then correlation ids and the remaining fields.
type CustomTextFormatter struct {
	TimestampFormat string
	ForceColors     bool
	DisableColors   bool
	AppName         string
}

func (f *CustomTextFormatter) colored() bool {
	return f.ForceColors && !f.DisableColors
}

func (f *CustomTextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	b.WriteString(entry.Time.Format(timestampLayout(f.TimestampFormat)))
	b.WriteByte(' ')

	level := strings.ToUpper(entry.Level.String())
	if f.colored() {
		fmt.Fprintf(&b, "\x1b[%dm%-5s\x1b[0m", levelColors[entry.Level], level)
	} else {
		fmt.Fprintf(&b, "%-5s", level)
	}

	if f.AppName != "" {
		fmt.Fprintf(&b, " [%s]", f.AppName)
	}
	if caller := callerString(entry); caller != "" {
		fmt.Fprintf(&b, " (%s)", caller)
	}
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	for _, k := range correlationKeys {
		if v, ok := entry.Data[k]; ok {
			fmt.Fprintf(&b, " %s=%v", k, fieldValue(v))
		}
	}

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if !isCorrelationKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fieldValue(entry.Data[k]))
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}
