package batch

import (
	"io"

	"github.com/pterm/pterm"
)

// Progress receives per-row updates from Process.
type Progress interface {
	Start(total int)
	Row(label string)
	Stop()
}

type nopProgress struct{}

func (nopProgress) Start(int)  {}
func (nopProgress) Row(string) {}
func (nopProgress) Stop()      {}

// BarProgress draws a terminal progress bar.
type BarProgress struct {
	w   io.Writer
	bar *pterm.ProgressbarPrinter
}

// NewBarProgress returns a bar that renders to w.
func NewBarProgress(w io.Writer) *BarProgress {
	return &BarProgress{w: w}
}

// Start implements Progress.
func (p *BarProgress) Start(total int) {
	if total <= 0 {
		return
	}
	bar, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle("Generating summaries").
		WithWriter(p.w).
		Start()
	if err != nil {
		return
	}
	p.bar = bar
}

// Row implements Progress.
func (p *BarProgress) Row(label string) {
	if p.bar == nil {
		return
	}
	p.bar.UpdateTitle(label)
	p.bar.Increment()
}

// Stop implements Progress.
func (p *BarProgress) Stop() {
	if p.bar == nil {
		return
	}
	_, _ = p.bar.Stop()
	p.bar = nil
}
