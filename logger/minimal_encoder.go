package logger

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Seed glyph shown in place of the tree symbol in HUD-related messages
const symSeed = "🌱"

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

type palette struct {
	fg        string
	time      string
	id        string
	number    string
	accent    string
	channel   string
	runtime   string
	lifecycle string
	warn      string
	warnBg    string
	err       string
	errBg     string
}

// Everforest Dark (natural forest greens)
var everforest = palette{
	fg:        "\x1b[38;5;223m",
	time:      "\x1b[38;5;107m",
	id:        "\x1b[38;5;109m",
	number:    "\x1b[38;5;108m",
	accent:    "\x1b[38;5;208m",
	channel:   "\x1b[38;5;107m",
	runtime:   "\x1b[38;5;108m",
	lifecycle: "\x1b[38;5;65m",
	warn:      "\x1b[38;5;179m",
	warnBg:    "\x1b[48;5;58m",
	err:       "\x1b[38;5;167m",
	errBg:     "\x1b[48;5;52m",
}

// Gruvbox Dark (warm, muted)
var gruvbox = palette{
	fg:        "\x1b[38;5;223m",
	time:      "\x1b[38;5;108m",
	id:        "\x1b[38;5;109m",
	number:    "\x1b[38;5;175m",
	accent:    "\x1b[38;5;208m",
	channel:   "\x1b[38;5;109m",
	runtime:   "\x1b[38;5;142m",
	lifecycle: "\x1b[38;5;208m",
	warn:      "\x1b[38;5;214m",
	warnBg:    "\x1b[48;5;58m",
	err:       "\x1b[38;5;167m",
	errBg:     "\x1b[48;5;88m",
}

var currentTheme = "everforest"

// SetTheme configures the color scheme for log output.
// Unknown names are ignored.
func SetTheme(theme string) {
	if theme == "everforest" || theme == "gruvbox" {
		currentTheme = theme
	}
}

func colors() palette {
	if currentTheme == "gruvbox" {
		return gruvbox
	}
	return everforest
}

func colorComponent(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	c := colors()
	switch hash % 3 {
	case 0:
		return c.runtime
	case 1:
		return c.lifecycle
	default:
		return c.accent
	}
}

func colorMessage(msg string) string {
	lower := strings.ToLower(msg)
	c := colors()
	switch {
	case containsAny(lower, "heartbeat", "connected", "channel", "reconnect", "welcome"):
		return c.channel
	case containsAny(lower, "document", "comment", "runtime", "source", "sync"):
		return c.runtime
	case containsAny(lower, "starting", "stopped", "config", "server override"):
		return c.lifecycle
	}
	return c.fg
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

var bracketPattern = regexp.MustCompile(`\[([^\]]+)\]`)

// colorizeMessage colors bracketed contexts such as [doc:xyz] or [welcome]
func colorizeMessage(msg string) string {
	c := colors()
	base := colorMessage(msg)

	var result strings.Builder
	last := 0
	for _, m := range bracketPattern.FindAllStringSubmatchIndex(msg, -1) {
		if before := msg[last:m[0]]; before != "" {
			result.WriteString(base + colorizeSymbols(before, c.runtime) + colorReset)
		}
		color := c.accent
		if strings.HasPrefix(msg[m[2]:m[3]], "doc:") {
			color = c.id
		}
		result.WriteString(color + msg[m[0]:m[1]] + colorReset)
		last = m[1]
	}
	if rest := msg[last:]; rest != "" {
		result.WriteString(base + colorizeSymbols(rest, c.runtime) + colorReset)
	}
	return result.String()
}

func colorizeSymbols(text, color string) string {
	return strings.ReplaceAll(text, symSeed, color+symSeed+colorReset)
}

// minimalEncoder is a compact console encoder with theme support.
// Format: "13:04:35  heartbeat  Heartbeat connected  server=wss://worldtree.online"
type minimalEncoder struct {
	zapcore.Encoder
}

func newMinimalEncoder() *minimalEncoder {
	return &minimalEncoder{Encoder: zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{Encoder: enc.Encoder.Clone()}
}

var bufferPool = buffer.NewPool()

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	c := colors()
	final := bufferPool.Get()

	final.AppendString(c.time)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	if lvl := levelColorString(ent.Level); lvl != "" {
		final.AppendString("  ")
		final.AppendString(lvl)
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(colorComponent(ent.LoggerName))
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	final.AppendString(colorizeMessage(ent.Message))

	if rendered := renderFields(fields); rendered != "" {
		final.AppendString("  ")
		final.AppendString(rendered)
	}

	final.AppendString("\n")
	return final, nil
}

func levelColorString(level zapcore.Level) string {
	c := colors()
	switch level {
	case zapcore.InfoLevel:
		return ""
	case zapcore.DebugLevel:
		return c.fg + "DEBUG" + colorReset
	case zapcore.WarnLevel:
		return colorBold + c.warnBg + c.warn + "WARN" + colorReset
	default:
		return colorBold + c.errBg + c.err + level.CapitalString() + colorReset
	}
}

// abbreviateName shortens component names: crdt.bridge -> c.bridge
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 && parts[0] != "" {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

// renderFields prints every field as key=value in call order. Identifier
// and counter keys get their own colors; nothing is dropped.
func renderFields(fields []zapcore.Field) string {
	if len(fields) == 0 {
		return ""
	}
	c := colors()
	m := zapcore.NewMapObjectEncoder()

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.SkipType {
			continue
		}
		f.AddTo(m)
		v, ok := m.Fields[f.Key]
		if !ok {
			continue
		}
		val := fmt.Sprintf("%v", v)
		switch f.Key {
		case FieldDocID, FieldCommentID, FieldServer, FieldURL:
			val = c.id + val + colorReset
		case FieldUsers, FieldEnergy, FieldBytesIn, FieldBytesOut, FieldCount, FieldAttempt:
			val = c.number + val + colorReset
		case FieldDurationMS, FieldDelayMS:
			val = c.number + val + colorReset + "ms"
		case FieldError:
			val = c.err + val + colorReset
		}
		out = append(out, f.Key+"="+val)
	}
	return strings.Join(out, " ")
}
