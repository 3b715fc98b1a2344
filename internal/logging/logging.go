package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Mode controls the handler style used when constructing a logger.
type Mode int

const (
	// ModeCLI renders log records in a terse text-oriented format.
	ModeCLI Mode = iota
	// ModeJSON renders log records as JSON.
	ModeJSON
)

// New constructs a logger targeting the provided writer using the requested mode.
// If level is nil, slog.LevelInfo is used. CLI output is colored when w is a terminal.
func New(mode Mode, w io.Writer, level slog.Leveler) *slog.Logger {
	if w == nil {
		panic("logging: writer must not be nil")
	}
	if level == nil {
		level = slog.LevelInfo
	}

	switch mode {
	case ModeJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	default:
		return slog.New(newCLIHandler(w, level, isTerminalWriter(w)))
	}
}

// NewCLI constructs a logger that emits human-readable records suitable for CLI use.
func NewCLI(w io.Writer, level slog.Leveler) *slog.Logger {
	return New(ModeCLI, w, level)
}

// NewJSON constructs a logger that emits structured JSON records.
func NewJSON(w io.Writer, level slog.Leveler) *slog.Logger {
	return New(ModeJSON, w, level)
}

// Ensure returns the provided logger or the process default if nil.
func Ensure(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// ParseLevel maps a --log-level value onto a slog level.
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
	}
}

// ParseMode maps a --log-format value onto a Mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "cli", "text":
		return ModeCLI, nil
	case "json":
		return ModeJSON, nil
	default:
		return ModeCLI, fmt.Errorf("unknown log format %q", value)
	}
}

// Switchable forwards records to a handler that can be replaced after loggers
// derived from it were handed out, so flags parsed late still take effect.
type Switchable struct {
	mu      sync.RWMutex
	handler slog.Handler
}

// NewSwitchable wraps handler.
func NewSwitchable(handler slog.Handler) *Switchable {
	return &Switchable{handler: handler}
}

// Set replaces the target handler.
func (s *Switchable) Set(handler slog.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

func (s *Switchable) current() slog.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

func (s *Switchable) Enabled(ctx context.Context, level slog.Level) bool {
	return s.current().Enabled(ctx, level)
}

func (s *Switchable) Handle(ctx context.Context, record slog.Record) error {
	return s.current().Handle(ctx, record)
}

func (s *Switchable) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &derived{root: s, attrs: attrs}
}

func (s *Switchable) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	return &derived{root: s, group: name}
}

// derived replays attributes and groups onto whatever handler is current.
type derived struct {
	root   *Switchable
	parent *derived
	attrs  []slog.Attr
	group  string
}

func (d *derived) resolve() slog.Handler {
	var h slog.Handler
	if d.parent != nil {
		h = d.parent.resolve()
	} else {
		h = d.root.current()
	}
	if d.group != "" {
		return h.WithGroup(d.group)
	}
	return h.WithAttrs(d.attrs)
}

func (d *derived) Enabled(ctx context.Context, level slog.Level) bool {
	return d.root.current().Enabled(ctx, level)
}

func (d *derived) Handle(ctx context.Context, record slog.Record) error {
	return d.resolve().Handle(ctx, record)
}

func (d *derived) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &derived{root: d.root, parent: d, attrs: attrs}
}

func (d *derived) WithGroup(name string) slog.Handler {
	if name == "" {
		return d
	}
	return &derived{root: d.root, parent: d, group: name}
}

type cliHandler struct {
	writer io.Writer
	level  slog.Leveler
	styles map[slog.Level]lipgloss.Style

	mu     *sync.Mutex
	attrs  []scopedAttr
	groups []string
}

// scopedAttr remembers the groups that were open when the attribute was added.
type scopedAttr struct {
	groups []string
	attr   slog.Attr
}

func newCLIHandler(w io.Writer, level slog.Leveler, color bool) slog.Handler {
	h := &cliHandler{
		writer: w,
		level:  level,
		mu:     &sync.Mutex{},
	}
	if color {
		renderer := lipgloss.NewRenderer(w)
		h.styles = map[slog.Level]lipgloss.Style{
			slog.LevelDebug: renderer.NewStyle().Foreground(lipgloss.Color("8")),
			slog.LevelInfo:  renderer.NewStyle().Foreground(lipgloss.Color("6")),
			slog.LevelWarn:  renderer.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
			slog.LevelError: renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		}
	}
	return h
}

func (h *cliHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= currentLevel(h.level)
}

func (h *cliHandler) Handle(_ context.Context, record slog.Record) error {
	var builder strings.Builder
	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	builder.WriteString(h.levelLabel(record.Level))
	builder.WriteByte(' ')
	builder.WriteString(timestamp.UTC().Format(time.RFC3339))
	builder.WriteString(" | ")
	builder.WriteString(record.Message)

	for _, scoped := range h.attrs {
		h.appendAttr(&builder, scoped.groups, scoped.attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		h.appendAttr(&builder, h.groups, attr)
		return true
	})

	builder.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := io.WriteString(h.writer, builder.String())
	return err
}

func (h *cliHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	for _, attr := range attrs {
		clone.attrs = append(clone.attrs, scopedAttr{groups: clone.groups, attr: attr})
	}
	return clone
}

func (h *cliHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *cliHandler) clone() *cliHandler {
	return &cliHandler{
		writer: h.writer,
		level:  h.level,
		styles: h.styles,
		mu:     h.mu,
		attrs:  append([]scopedAttr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

func (h *cliHandler) levelLabel(level slog.Level) string {
	label := strings.ToUpper(level.String())
	style, ok := h.styles[level]
	if !ok {
		return label
	}
	return style.Render(label)
}

func (h *cliHandler) appendAttr(builder *strings.Builder, groups []string, attr slog.Attr) {
	value := resolveValue(attr.Value)
	if value.Kind() == slog.KindGroup {
		nested := append(append([]string(nil), groups...), attr.Key)
		for _, inner := range value.Group() {
			h.appendAttr(builder, nested, inner)
		}
		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(append(append([]string(nil), groups...), key), ".")
	}

	builder.WriteByte(' ')
	builder.WriteString(key)
	builder.WriteByte('=')
	builder.WriteString(quoteIfNeeded(formatValue(value)))
}

func formatValue(value slog.Value) string {
	switch value.Kind() {
	case slog.KindString:
		return value.String()
	case slog.KindInt64:
		return strconv.FormatInt(value.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(value.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(value.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(value.Bool())
	case slog.KindDuration:
		return value.Duration().String()
	case slog.KindTime:
		return value.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok && err != nil {
			return err.Error()
		}
		return fmt.Sprint(value.Any())
	default:
		return value.String()
	}
}

// quoteIfNeeded keeps key=value pairs splittable on spaces.
func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func currentLevel(level slog.Leveler) slog.Level {
	if level == nil {
		return slog.LevelInfo
	}
	return level.Level()
}

func resolveValue(value slog.Value) slog.Value {
	for i := 0; i < 4; i++ {
		if value.Kind() != slog.KindLogValuer {
			return value
		}
		value = value.Resolve()
	}
	return value
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminal(f.Fd())
}
