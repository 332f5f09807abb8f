package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Engine speaks extracted text aloud. Implementations must honor context
// cancellation so in-progress speech can be interrupted.
type Engine interface {
	Speak(ctx context.Context, text string) error
}

// CommandEngine shells out to an external text-to-speech program, passing the
// text as the final argument. Killing the process via context is the only
// cancellation mechanism these programs offer.
type CommandEngine struct {
	command string
	args    []string
	logger  *slog.Logger
}

// NewCommandEngine builds an engine from a command line such as
// "espeak-ng -s 140". An empty command yields a disabled engine.
func NewCommandEngine(commandLine string, logger *slog.Logger) *CommandEngine {
	if logger == nil {
		logger = slog.Default()
	}
	fields := strings.Fields(commandLine)
	engine := &CommandEngine{logger: logger}
	if len(fields) > 0 {
		engine.command = fields[0]
		engine.args = fields[1:]
	}
	return engine
}

// Speak runs the configured command with the text appended as an argument.
func (e *CommandEngine) Speak(ctx context.Context, text string) error {
	if e == nil || e.command == "" {
		return fmt.Errorf("text-to-speech is not configured")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("text is required")
	}

	args := append(append([]string{}, e.args...), text)
	cmd := exec.CommandContext(ctx, e.command, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("run %s: %w", e.command, err)
	}
	e.logger.Debug("spoke text", "command", e.command, "chars", len(text))
	return nil
}
