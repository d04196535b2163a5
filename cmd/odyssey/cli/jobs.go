package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/ledger/jobs"
)

// Enqueuer submits ledger tasks.
type Enqueuer interface {
	Trigger(ctx context.Context, taskType string, orgID int64) (*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    Enqueuer
	inspector jobs.QueueInspector
	closers   []io.Closer
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client := jobs.NewClient(opts)
	inspector := asynq.NewInspector(opts)
	return &JobsCLI{client: client, inspector: inspector, closers: []io.Closer{client, inspector}}
}

// NewJobsCLIWith builds the helper over explicit collaborators.
func NewJobsCLIWith(client Enqueuer, inspector jobs.QueueInspector) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	for _, closer := range c.closers {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}

// Run executes `jobs trigger <name> [--org N]` or `jobs stats`.
func (c *JobsCLI) Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "usage: odyssey jobs trigger <"+strings.Join(jobs.TaskNames, "|")+"> [--org N] | odyssey jobs stats")
		return 1
	}
	switch args[0] {
	case "trigger":
		return c.trigger(ctx, args[1:], stdout, stderr)
	case "stats":
		stats, err := jobs.Stats(c.inspector)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs stats: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d processed=%d failed=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived, stats.Processed, stats.Failed)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "jobs: unknown command %q\n", args[0])
		return 1
	}
}

func (c *JobsCLI) trigger(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "jobs trigger: task name is required")
		return 1
	}
	name := args[0]
	fs := flag.NewFlagSet("jobs trigger", flag.ContinueOnError)
	fs.SetOutput(stderr)
	org := fs.Int64("org", 0, "limit the job to one organisation")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	info, err := c.client.Trigger(ctx, name, *org)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "jobs trigger: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	return 0
}
