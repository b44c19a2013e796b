// Package progress reports multi-stage build progress to the terminal.
// It is a direct generalization of the teacher's ad-hoc stage printer,
// backed by cheggaaa/pb for the per-stage percentage bars.
package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
)

// Reporter drives a sequence of named stages, each optionally reporting
// fractional progress, and prints elapsed time when a stage finishes.
type Reporter struct {
	stages  int
	mu      sync.Mutex
	current int
	name    string
	start   time.Time
	bar     *pb.ProgressBar
	quiet   bool
}

// NewReporter creates a reporter for a build with the given number of
// named stages. If quiet is true, nothing is printed (used by tests and
// non-interactive CLI invocations).
func NewReporter(stages int, quiet bool) *Reporter {
	return &Reporter{stages: stages, quiet: quiet}
}

// Stage begins a new named stage, printing the elapsed time of the
// previous one (if any).
func (r *Reporter) Stage(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		r.bar.Finish()
	}
	if !r.quiet && r.current > 0 {
		fmt.Printf("Step %d/%d: %s -> %s\n", r.current, r.stages, r.name, time.Since(r.start))
	}
	r.current++
	r.name = name
	r.start = time.Now()
	if !r.quiet {
		fmt.Printf("Step %d/%d: %s...\n", r.current, r.stages, name)
	}
}

// Bar starts (or restarts) a percentage bar for the current stage over a
// known total. Callers should call Increment as work completes.
func (r *Reporter) Bar(total int64) *pb.ProgressBar {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.quiet {
		return nil
	}
	if r.bar != nil {
		r.bar.Finish()
	}
	r.bar = pb.Full.Start64(total)
	return r.bar
}

// Finish prints the terminal summary line for the whole build.
func (r *Reporter) Finish(summary string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		r.bar.Finish()
		r.bar = nil
	}
	if !r.quiet {
		if r.current > 0 {
			fmt.Printf("Step %d/%d: %s -> %s\n", r.current, r.stages, r.name, time.Since(r.start))
		}
		fmt.Println(summary)
	}
}
