package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
)

const scanTick = 100 * time.Millisecond

// NewProgressBar creates the standard bar used for multi-step work.
func NewProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// ScanProgress animates a bar over the expected extraction time and blocks
// until done is closed. The bar never completes on its own, so a slow
// commit is shown as still running.
func ScanProgress(w io.Writer, fileName string, expected time.Duration, done <-chan struct{}) {
	steps := int(expected / scanTick)
	if steps < 1 {
		steps = 1
	}
	bar := progressbar.NewOptions(steps,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s Scanning %s[reset]", ScanIcon, fileName)),
		progressbar.OptionClearOnFinish(),
	)

	ticker := time.NewTicker(scanTick)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			if err := bar.Finish(); err != nil {
				slog.Debug("Failed to finish scan progress", "error", err)
			}
			return
		case <-ticker.C:
			if bar.State().CurrentNum < int64(steps-1) {
				if err := bar.Add(1); err != nil {
					slog.Debug("Failed to update scan progress", "error", err)
				}
			}
		}
	}
}
