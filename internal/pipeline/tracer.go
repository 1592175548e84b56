package pipeline

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"firestige.xyz/osisim/internal/core"
	"firestige.xyz/osisim/internal/log"
)

// Event describes one codec step. Err is set when the step failed; Value
// holds the codec output otherwise.
type Event struct {
	Layer     core.Layer
	Direction core.Direction
	Codec     string
	Value     core.Payload
	Err       error
}

// String renders the event as "<Layer> <Direction>: <value>".
func (e Event) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %v", e.Layer, e.Direction, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Layer, e.Direction, e.Value)
}

// Observer receives pipeline events synchronously. Implementations must
// be safe for concurrent use when the pipeline is shared.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// LogTracer writes events through the logger: steps at debug, failures at warn.
type LogTracer struct {
	logger log.Logger
}

// NewLogTracer creates a tracer logging through logger.
func NewLogTracer(logger log.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

func (t *LogTracer) Observe(e Event) {
	entry := t.logger.WithFields(map[string]interface{}{
		"layer": e.Layer.Key(),
		"codec": e.Codec,
	})
	if e.Err != nil {
		entry.WithError(e.Err).Warnf("%s %s failed", e.Layer, e.Direction)
		return
	}
	if t.logger.IsDebugEnabled() {
		entry.Debugf("%s %s: %s", e.Layer, e.Direction, e.Value)
	}
}

// ConsoleTracer prints one line per event to w, styling the layer label
// when color is enabled and w is a terminal.
type ConsoleTracer struct {
	mu    sync.Mutex
	w     io.Writer
	color bool

	send lipgloss.Style
	recv lipgloss.Style
	fail lipgloss.Style
}

// NewConsoleTracer creates a tracer writing to w.
func NewConsoleTracer(w io.Writer, color bool) *ConsoleTracer {
	r := lipgloss.NewRenderer(w)
	return &ConsoleTracer{
		w:     w,
		color: color,
		send:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		recv:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		fail:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}

func (t *ConsoleTracer) Observe(e Event) {
	label := fmt.Sprintf("%s %s", e.Layer, e.Direction)
	if t.color {
		switch {
		case e.Err != nil:
			label = t.fail.Render(label)
		case e.Direction == core.Sending:
			label = t.send.Render(label)
		default:
			label = t.recv.Render(label)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if e.Err != nil {
		fmt.Fprintf(t.w, "%s failed: %v\n", label, e.Err)
		return
	}
	fmt.Fprintf(t.w, "%s: %s\n", label, e.Value)
}
