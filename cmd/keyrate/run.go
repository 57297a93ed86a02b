package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meenmo/keyrate/cmd/keyrate/internal/task"
	"github.com/meenmo/keyrate/config"
)

// errTaskFailed marks a run where at least one task reported an error; the
// error itself is already in the JSON output.
var errTaskFailed = errors.New("one or more tasks failed")

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Logging.Level = zapcore.DebugLevel.String()
	}
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	a.logger.Debug("configuration loaded", zap.String("path", a.configPath), zap.Any("config", cfg))
	return nil
}

func (a *app) command(use, short, long string, pick func(*task.Runner) task.Func) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := task.NewRunner(a.cfg, a.logger.Named(use))
			return a.run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), r, pick(r))
		},
	}
}

func (a *app) run(ctx context.Context, stdin io.Reader, stdout io.Writer, r *task.Runner, fn task.Func) error {
	raw, err := a.readInput(stdin)
	if err != nil {
		return writeError(stdout, fmt.Sprintf("read input: %v", err))
	}
	inputs, isArray, err := task.Parse(raw)
	if err != nil {
		return writeError(stdout, fmt.Sprintf("parse JSON: %v", err))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	outputs, hadError := r.RunAll(ctx, inputs, fn)

	var payload any = outputs[0]
	if isArray {
		payload = outputs
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return writeError(stdout, fmt.Sprintf("encode JSON: %v", err))
	}
	fmt.Fprintln(stdout, string(b))

	if hadError {
		return errTaskFailed
	}
	return nil
}

func (a *app) readInput(stdin io.Reader) ([]byte, error) {
	path := strings.TrimSpace(a.inputPath)
	if path != "" {
		return os.ReadFile(path)
	}
	if f, ok := stdin.(*os.File); ok {
		if stat, err := f.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			return nil, fmt.Errorf("no --input given and stdin is a terminal")
		}
	}
	return io.ReadAll(stdin)
}

func writeError(w io.Writer, msg string) error {
	b, _ := json.Marshal(task.Output{Error: msg})
	fmt.Fprintln(w, string(b))
	return errTaskFailed
}
