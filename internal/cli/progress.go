package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// ScanProgress draws a progress bar for an ingestion pass. The bar is
// created on the first update, once the total is known.
type ScanProgress struct {
	writer      io.Writer
	bar         *progressbar.ProgressBar
	description string
	mu          sync.Mutex
}

// NewScanProgress creates a progress reporter writing to w.
func NewScanProgress(w io.Writer, description string) *ScanProgress {
	return &ScanProgress{writer: w, description: description}
}

// Update records that done of total inputs are processed. Its signature
// matches ingest.ProgressFunc.
func (p *ScanProgress) Update(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if total <= 0 {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.writer),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]"+p.description+"[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				if _, err := fmt.Fprintln(p.writer); err != nil {
					slog.Warn("failed to write newline after progress bar", "error", err)
				}
			}),
		)
	}
	if err := p.bar.Set(done); err != nil {
		slog.Warn("failed to update progress bar", "error", err)
	}
}

// Done reports whether the bar reached its total.
func (p *ScanProgress) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bar != nil && p.bar.IsFinished()
}
