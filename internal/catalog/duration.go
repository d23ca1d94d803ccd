package catalog

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DurationReader reports the playing time of the audio file at path.
type DurationReader func(ctx context.Context, path string) (time.Duration, error)

// FFprobeDurations reads durations with an ffprobe-compatible command. It
// returns nil when command is not on PATH.
func FFprobeDurations(command string) DurationReader {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil
	}
	binary, err := exec.LookPath(command)
	if err != nil {
		return nil
	}
	return func(ctx context.Context, path string) (time.Duration, error) {
		cmd := exec.CommandContext(ctx, binary,
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path,
		)
		out, err := cmd.Output()
		if err != nil {
			return 0, fmt.Errorf("read duration: %w", err)
		}
		return parseSeconds(string(out))
	}
}

func parseSeconds(raw string) (time.Duration, error) {
	value := strings.TrimSpace(raw)
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, fmt.Errorf("read duration: unexpected output %q", value)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
