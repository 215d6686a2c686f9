// Package logging routes the standard logger to stdout and an optional rotating file.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/i474232898/forecast-cache/internal/config"
)

// Setup points the standard logger at stdout and, when cfg.File is set, a
// lumberjack file that rotates by size. The returned closer releases the file.
func Setup(cfg config.LogConfig) io.Closer {
	w, closer := Writer(os.Stdout, cfg)
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags | log.LUTC)
	return closer
}

// Writer returns base alone, or base and a rotating file when cfg.File is set.
func Writer(base io.Writer, cfg config.LogConfig) (io.Writer, io.Closer) {
	if cfg.File == "" {
		return base, nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	return io.MultiWriter(base, file), file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
