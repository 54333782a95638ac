package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/voxpipe/voxpipe/pkg/config"
)

// Error wraps diarization failures. Callers treat these as non-fatal and
// fall back to a single-speaker transcript.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("diarization: %s: %v", e.Msg, e.Err)
	}
	return "diarization: " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

var speakerNumPattern = regexp.MustCompile(`\d+`)

// Diarizer runs speaker diarization through an external model runner
// command. The runner reads an audio path argument and prints a JSON array
// of {speaker, start, end} segments on stdout. Availability is checked
// lazily on first use and cached.
type Diarizer struct {
	cfg config.DiarizationConfig

	checked   bool
	available bool
}

func NewDiarizer(cfg config.DiarizationConfig) *Diarizer {
	return &Diarizer{cfg: cfg}
}

// ensureRunner verifies the runner command exists and a token is
// configured. The result is cached for the lifetime of the diarizer.
func (d *Diarizer) ensureRunner() error {
	if d.checked {
		if !d.available {
			return &Error{Msg: "runner unavailable"}
		}
		return nil
	}
	d.checked = true

	if d.cfg.HFToken == "" {
		return &Error{Msg: "HUGGINGFACE_TOKEN is not set"}
	}
	if _, err := exec.LookPath(d.cfg.Command); err != nil {
		return &Error{Msg: fmt.Sprintf("runner command %q not found", d.cfg.Command), Err: err}
	}

	d.available = true
	return nil
}

// Diarize runs the model runner against the audio file and returns speaker
// segments sorted by start time, with labels normalized to SPEAKER_NN.
func (d *Diarizer) Diarize(ctx context.Context, audioPath string) ([]SpeakerSegment, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, &Error{Msg: "audio file not accessible", Err: err}
	}
	if info.IsDir() {
		return nil, &Error{Msg: "path is not a file: " + audioPath}
	}
	if err := d.ensureRunner(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	start := time.Now()
	slog.Info("Running speaker diarization", "file", audioPath, "command", d.cfg.Command)

	cmd := exec.CommandContext(runCtx, d.cfg.Command, audioPath)
	cmd.Env = append(os.Environ(), "HUGGINGFACE_TOKEN="+d.cfg.HFToken)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, &Error{Msg: fmt.Sprintf("runner timed out after %s", d.cfg.Timeout)}
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[len(msg)-300:]
		}
		return nil, &Error{Msg: "runner failed: " + msg, Err: err}
	}

	segments, err := parseRunnerOutput(stdout.Bytes())
	if err != nil {
		return nil, err
	}

	slog.Info("Diarization complete",
		"segments", len(segments),
		"speakers", countSpeakers(segments),
		"duration", time.Since(start).Round(time.Millisecond))
	return segments, nil
}

func parseRunnerOutput(data []byte) ([]SpeakerSegment, error) {
	var segments []SpeakerSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, &Error{Msg: "invalid runner output", Err: err}
	}
	for i := range segments {
		segments[i].Speaker = normalizeSpeakerLabel(segments[i].Speaker)
	}
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	return segments, nil
}

// normalizeSpeakerLabel maps arbitrary runner labels to SPEAKER_NN. Labels
// with a numeric suffix keep their number; single letters map A->00, B->01;
// anything else becomes SPEAKER_00.
func normalizeSpeakerLabel(label string) string {
	if m := speakerNumPattern.FindString(label); m != "" {
		n, _ := strconv.Atoi(m)
		return fmt.Sprintf("SPEAKER_%02d", n)
	}
	if len(label) == 1 {
		c := strings.ToUpper(label)[0]
		if c >= 'A' && c <= 'Z' {
			return fmt.Sprintf("SPEAKER_%02d", c-'A')
		}
	}
	return DefaultSpeaker
}

func countSpeakers(segments []SpeakerSegment) int {
	seen := make(map[string]struct{}, 4)
	for _, seg := range segments {
		seen[seg.Speaker] = struct{}{}
	}
	return len(seen)
}
