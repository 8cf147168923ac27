package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stolasapp/todotoday/internal/config"
	"github.com/stolasapp/todotoday/internal/storage"
)

type configKey struct{}

// revisionLen is the length of the abbreviated VCS revision in the version.
const revisionLen = 12

// prompt asks for one line of input on the command's stdin. The message is
// only written when stdin is a terminal, so input can be piped in. Masked
// input is not echoed.
func prompt(cmd *cobra.Command, msg string, mask bool) ([]byte, error) {
	in := cmd.InOrStdin()
	file, isFile := in.(*os.File)
	tty := isFile && term.IsTerminal(int(file.Fd()))
	if tty {
		if _, err := io.WriteString(cmd.ErrOrStderr(), msg); err != nil {
			return nil, err
		}
	}
	if mask && tty {
		line, err := term.ReadPassword(int(file.Fd()))
		_, _ = io.WriteString(cmd.ErrOrStderr(), "\n")
		return line, err
	}
	return readLine(in)
}

// readLine reads a byte at a time up to the next newline, leaving the rest of
// in for later prompts.
func readLine(in io.Reader) ([]byte, error) {
	var (
		buf  [1]byte
		line []byte
	)
	for {
		n, err := in.Read(buf[:])
		if n > 0 {
			if buf[0] == '\n' {
				return bytes.TrimSuffix(line, []byte{'\r'}), nil
			}
			line = append(line, buf[0])
			continue
		}
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return bytes.TrimSuffix(line, []byte{'\r'}), nil
		} else if err != nil {
			return line, err
		}
	}
}

// version is the abbreviated VCS revision the binary was built from, marked
// dirty for uncommitted changes.
func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	settings := make(map[string]string, len(info.Settings))
	for _, setting := range info.Settings {
		settings[setting.Key] = setting.Value
	}
	rev, ok := settings["vcs.revision"]
	if !ok {
		return info.Main.Version
	}
	if len(rev) > revisionLen {
		rev = rev[:revisionLen]
	}
	if settings["vcs.modified"] == "true" {
		rev += "-dirty"
	}
	return rev
}

// loadConfig returns the configuration resolved by the root command, the
// default logger, and an open store the caller must close.
func loadConfig(ctx context.Context) (config.Config, *slog.Logger, *storage.DB, error) {
	cfg, ok := ctx.Value(configKey{}).(config.Config)
	if !ok {
		return config.Config{}, nil, nil, errors.New("config file resolution failed")
	}
	logger := slog.Default()
	store, err := storage.NewDB(ctx, cfg, logger)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, logger, store, nil
}

// closeWith runs closeFn, joining any error into runErr.
func closeWith(closeFn func() error, runErr *error) {
	if err := closeFn(); err != nil {
		*runErr = errors.Join(*runErr, err)
	}
}
