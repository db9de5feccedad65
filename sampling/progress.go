package sampling

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
)

// progress is a progress bar that does nothing when disabled.
type progress struct {
	bar *progressbar.ProgressBar
}

func (s *Sampler) newProgress(n int, description string) progress {
	if !s.progress || n <= 0 {
		return progress{}
	}
	return progress{bar: progressbar.NewOptions(n,
		progressbar.OptionSetDescription(description),
		progressbar.OptionOnCompletion(func() { fmt.Print("\n") }),
	)}
}

func (p progress) add(n int) {
	if p.bar != nil {
		_ = p.bar.Add(n)
	}
}

func (p progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
