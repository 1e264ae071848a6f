// File: internal/ui/deploy_console.go
// Brief: Terminal phase display for a running deploy.

// Package ui provides terminal helpers for long-running commands.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/example/liftctl/internal/deployer"
)

type DeployConsoleOptions struct {
	Enabled bool
	Width   int
}

// DeployConsole prints one line per deploy phase as the orchestrator moves
// through its states. Observe is safe to call from the deploy goroutine while
// Summary runs on the command goroutine afterwards.
type DeployConsole struct {
	out  io.Writer
	opts DeployConsoleOptions

	mu      sync.Mutex
	current deployer.State
}

func NewDeployConsole(out io.Writer, opts DeployConsoleOptions) *DeployConsole {
	if opts.Width <= 0 {
		if cols, ok := TerminalWidth(out); ok {
			opts.Width = cols
		} else {
			opts.Width = 100
		}
	}
	return &DeployConsole{out: out, opts: opts}
}

var phaseLabels = map[deployer.State]string{
	deployer.StateBuilding:       "build image",
	deployer.StatePublishing:     "publish image",
	deployer.StateGraphApplying:  "apply stack",
	deployer.StateRolloutWaiting: "wait for rollout",
	deployer.StateVerifying:      "verify endpoints",
}

// Observe records one orchestrator transition.
func (c *DeployConsole) Observe(t deployer.Transition) {
	if c == nil || !c.opts.Enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch t.To {
	case deployer.StateSucceeded:
		c.finishLocked(color.New(color.FgGreen).Sprint("ok"))
	case deployer.StateFailed:
		c.finishLocked(color.New(color.FgRed).Sprint("failed"))
	default:
		c.finishLocked(color.New(color.FgGreen).Sprint("ok"))
		if label, ok := phaseLabels[t.To]; ok {
			fmt.Fprintf(c.out, "  %s ...", c.clip(label))
			c.current = t.To
		}
	}
}

// finishLocked closes the open phase line with its outcome.
func (c *DeployConsole) finishLocked(outcome string) {
	if c.current == "" {
		return
	}
	fmt.Fprintf(c.out, " %s\n", outcome)
	c.current = ""
}

// Summary prints the terminal state and, on failure, the path that led there.
func (c *DeployConsole) Summary(res *deployer.Result) {
	if c == nil || !c.opts.Enabled || res == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if res.BuildSkipped {
		fmt.Fprintf(c.out, "  image %s already published, build skipped\n", res.ImageURI)
	}
	if res.State != deployer.StateFailed {
		return
	}
	states := make([]string, 0, len(res.Transitions)+1)
	for _, s := range res.Path() {
		states = append(states, string(s))
	}
	fmt.Fprintf(c.out, "  %s %s\n",
		color.New(color.FgRed).Sprint("deploy failed after:"),
		c.clip(strings.Join(states, " > ")))
}

func (c *DeployConsole) clip(s string) string {
	// Leave room for the outcome column.
	max := c.opts.Width - 12
	if max < 20 {
		max = 20
	}
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
