// Package player runs the external audio player for each track.
package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"jukebox/internal/config"
	"jukebox/internal/logging"
	"jukebox/internal/services"
)

// FilePlaceholder in player args is replaced with the track path. When no
// arg contains it the path is appended.
const FilePlaceholder = "{file}"

const (
	stopGracePeriod = 5 * time.Second
	stderrTailBytes = 2048
)

// Player plays a single audio file to completion.
type Player interface {
	Play(ctx context.Context, path string) error
}

// ExecPlayer shells out to a command line player such as mpg123 or mpv.
type ExecPlayer struct {
	command string
	args    []string
	timeout time.Duration
	logger  *slog.Logger
}

// New builds an ExecPlayer from the player configuration.
func New(cfg config.Player, logger *slog.Logger) *ExecPlayer {
	if logger == nil {
		logger = logging.NewNop()
	}
	var timeout time.Duration
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &ExecPlayer{
		command: strings.TrimSpace(cfg.Command),
		args:    append([]string(nil), cfg.Args...),
		timeout: timeout,
		logger:  logger,
	}
}

// Command returns the configured player binary.
func (p *ExecPlayer) Command() string { return p.command }

func (p *ExecPlayer) buildArgs(path string) []string {
	args := make([]string, 0, len(p.args)+1)
	substituted := false
	for _, arg := range p.args {
		if strings.Contains(arg, FilePlaceholder) {
			arg = strings.ReplaceAll(arg, FilePlaceholder, path)
			substituted = true
		}
		args = append(args, arg)
	}
	if !substituted {
		args = append(args, path)
	}
	return args
}

// Play runs the player for path and blocks until it exits. Cancelling ctx
// interrupts the player; a configured timeout bounds each track.
func (p *ExecPlayer) Play(ctx context.Context, path string) error {
	if p.command == "" {
		return services.Wrap(services.ErrConfiguration, "player", "play", "player.command is empty", nil)
	}
	playCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		playCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(playCtx, p.command, p.buildArgs(path)...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = stopGracePeriod
	var stderr tailBuffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	if err == nil {
		p.logger.Debug("player finished",
			logging.String("path", path),
			logging.Duration("elapsed", elapsed),
		)
		return nil
	}

	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(playCtx.Err(), context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "player", "play",
			fmt.Sprintf("exceeded %s playing %s", p.timeout, path), playCtx.Err())
	case errors.Is(err, exec.ErrNotFound):
		return services.Wrap(services.ErrConfiguration, "player", "play",
			fmt.Sprintf("player %q not found", p.command), err)
	}
	detail := fmt.Sprintf("%s exited after %s", p.command, elapsed.Round(time.Millisecond))
	if tail := strings.TrimSpace(stderr.String()); tail != "" {
		detail += ": " + tail
	}
	return services.Wrap(services.ErrExternalTool, "player", "play", detail, err)
}

// tailBuffer keeps the last stderrTailBytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - stderrTailBytes; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string { return t.buf.String() }
