// Package recorder produces the video clip for a capture, either by running an
// external capture command or by importing an existing file.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/moodlog/internal/logger"
	"github.com/julianstephens/moodlog/internal/models"
)

// ErrEmptyClip is returned when a recording ended without writing any data.
var ErrEmptyClip = errors.New("recording produced an empty clip")

// Request describes one clip to produce.
type Request struct {
	Output      string
	MaxDuration time.Duration
	Facing      models.Facing
}

// Result is a finished clip. Duration is zero when the recorder does not know
// the clip length and the caller should measure wall time instead.
type Result struct {
	Path     string
	Duration time.Duration
}

// Recorder starts recordings. Start returns once the device is capturing.
type Recorder interface {
	Start(ctx context.Context, req Request) (Recording, error)
}

// Recording is a capture in progress.
type Recording interface {
	// Stop asks the recorder to finish the clip early.
	Stop() error
	// Wait blocks until the clip is finished.
	Wait() (Result, error)
}

// Command runs an argv template such as ffmpeg. Placeholders {output},
// {max_seconds} and {facing} are substituted in each argument.
type Command struct {
	Args []string
	// StopGrace is how long the process gets to finalize after an interrupt.
	StopGrace time.Duration
	log       *log.Logger
}

func NewCommand(args []string) *Command {
	return &Command{Args: args, StopGrace: 3 * time.Second, log: logger.Component("recorder")}
}

// Expand substitutes the request into the template.
func Expand(args []string, req Request) []string {
	r := strings.NewReplacer(
		"{output}", req.Output,
		"{max_seconds}", strconv.Itoa(int(req.MaxDuration.Seconds())),
		"{facing}", string(req.Facing),
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

func (c *Command) Start(ctx context.Context, req Request) (Recording, error) {
	if len(c.Args) == 0 {
		return nil, errors.New("capture command is empty")
	}
	if err := os.MkdirAll(filepath.Dir(req.Output), 0700); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}

	argv := Expand(c.Args, req)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = c.StopGrace
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start capture command %q: %w", argv[0], err)
	}
	c.log.Debug("Capture command started", "pid", cmd.Process.Pid, "output", req.Output)

	rec := &commandRecording{cmd: cmd, ctx: ctx, output: req.Output, stderr: &stderr, done: make(chan struct{})}
	go rec.wait()
	return rec, nil
}

type commandRecording struct {
	cmd    *exec.Cmd
	ctx    context.Context
	output string
	stderr *strings.Builder

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
	err     error
}

func (r *commandRecording) wait() {
	err := r.cmd.Wait()
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()

	// An interrupted recorder exits non-zero but still finalizes the clip.
	if err != nil && (stopped || r.ctx.Err() != nil) {
		if info, statErr := os.Stat(r.output); statErr == nil && info.Size() > 0 {
			err = nil
		}
	}
	if err != nil {
		msg := strings.TrimSpace(r.stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
	}
	r.err = err
	close(r.done)
}

func (r *commandRecording) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.done:
		return nil
	default:
	}
	r.stopped = true
	if err := r.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (r *commandRecording) Wait() (Result, error) {
	<-r.done
	if r.err != nil {
		return Result{}, r.err
	}
	if err := checkClip(r.output); err != nil {
		return Result{}, err
	}
	return Result{Path: r.output}, nil
}

// File imports an existing clip. The source is copied, never moved, so the
// user's file is untouched if the capture is later discarded.
type File struct {
	Source   string
	Duration time.Duration
}

func (f *File) Start(ctx context.Context, req Request) (Recording, error) {
	if _, err := os.Stat(f.Source); err != nil {
		return nil, fmt.Errorf("video file not accessible: %w", err)
	}
	rec := &fileRecording{done: make(chan struct{})}
	go func() {
		defer close(rec.done)
		if err := copyFile(ctx, f.Source, req.Output); err != nil {
			rec.err = err
			return
		}
		d := f.Duration
		if req.MaxDuration > 0 && d > req.MaxDuration {
			d = req.MaxDuration
		}
		rec.res = Result{Path: req.Output, Duration: d}
	}()
	return rec, nil
}

type fileRecording struct {
	done chan struct{}
	res  Result
	err  error
}

func (r *fileRecording) Stop() error { return nil }

func (r *fileRecording) Wait() (Result, error) {
	<-r.done
	if r.err != nil {
		return Result{}, r.err
	}
	if err := checkClip(r.res.Path); err != nil {
		return Result{}, err
	}
	return r.res, nil
}

func checkClip(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("recording produced no clip: %w", err)
	}
	if info.Size() == 0 {
		return ErrEmptyClip
	}
	return nil
}

func copyFile(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return fmt.Errorf("failed to create capture directory: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open video file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create clip: %w", err)
	}
	if _, err := io.Copy(out, &ctxReader{ctx: ctx, r: in}); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy video file: %w", err)
	}
	return out.Close()
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
