package main

import (
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	audio_archiver "github.com/alanbriolat/audio-archiver"
)

const progressLogInterval = 10 * time.Second

// newProgress returns a progress callback: a byte progress bar on a terminal, otherwise a log line now and then.
func newProgress() audio_archiver.ProgressFunc {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return barProgress()
	}
	return logProgress(zap.S().Named("progress"))
}

func barProgress() audio_archiver.ProgressFunc {
	var current *audio_archiver.Task
	var bar *progressbar.ProgressBar
	return func(task *audio_archiver.Task, downloaded int64, expected int64) {
		if task != current {
			if bar != nil {
				_ = bar.Finish()
			}
			current = task
			bar = progressbar.DefaultBytes(expected, task.Filename)
		}
		if bar.GetMax64() != expected {
			bar.ChangeMax64(expected)
		}
		_ = bar.Set64(downloaded)
		if expected >= 0 && downloaded >= expected {
			_ = bar.Finish()
		}
	}
}

func logProgress(log *zap.SugaredLogger) audio_archiver.ProgressFunc {
	var current *audio_archiver.Task
	var last time.Time
	return func(task *audio_archiver.Task, downloaded int64, expected int64) {
		now := time.Now()
		if task != current {
			current = task
			last = now
			return
		}
		if now.Sub(last) < progressLogInterval {
			return
		}
		last = now
		if expected > 0 {
			log.Infow("downloading", "filename", task.Filename,
				"progress", humanize.IBytes(uint64(downloaded))+" / "+humanize.IBytes(uint64(expected)))
		} else {
			log.Infow("downloading", "filename", task.Filename, "progress", humanize.IBytes(uint64(downloaded)))
		}
	}
}
