package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/etaflow/internal/adapters/mq/queue"
	"github.com/okian/etaflow/internal/adapters/mq/worker"
	service "github.com/okian/etaflow/internal/app"
	"github.com/okian/etaflow/internal/domain/present"
	"github.com/okian/etaflow/pkg/logger"
)

const enqueueRetryDelay = 10 * time.Millisecond

// batchLine is one JSON line of batch output.
type batchLine struct {
	JobID  string         `json:"jobId"`
	Result service.Result `json:"result"`
}

func newBatchCmd(c *cli) *cobra.Command {
	var (
		input    string
		workers  int
		capacity int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run estimates for CSV rows of driver_id,load_id[,prompt_type,user_role]",
		Long: "Reads CSV rows from --input (or stdin), runs each through a worker pool\n" +
			"and prints one JSON line per row in completion order.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}
			return c.batch(cmd.Context(), in, cmd.OutOrStdout(), workers, capacity)
		},
	}

	f := cmd.Flags()
	f.StringVar(&input, "input", "-", "CSV file, - for stdin")
	f.IntVar(&workers, "workers", 4, "concurrent pipeline runs")
	f.IntVar(&capacity, "queue", 256, "queued rows before the reader waits")
	return cmd
}

func (c *cli) batch(ctx context.Context, in io.Reader, out io.Writer, workers, capacity int) error {
	p, err := buildPipeline(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	var (
		mu       sync.Mutex
		enc      = json.NewEncoder(out)
		failures int
	)
	sink := func(_ context.Context, j queue.Job, res service.Result) {
		mu.Lock()
		defer mu.Unlock()
		if !res.Success {
			failures++
		}
		if err := enc.Encode(batchLine{JobID: j.ID, Result: res}); err != nil {
			c.log.Error(ctx, "failed to write batch result", logger.String("job_id", j.ID), logger.Error(err))
		}
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(capacity))
	pool := worker.NewPool(q, p.orch, sink,
		worker.WithWorkerCount(workers),
		worker.WithLogger(c.log.Named("batch")),
	)
	pool.Start(ctx)

	readErr := feed(ctx, q, in)
	if err := pool.Shutdown(ctx); err != nil {
		return err
	}
	if readErr != nil {
		return readErr
	}
	if failures > 0 {
		return fmt.Errorf("%w: %d of the batch", errRunFailed, failures)
	}
	return nil
}

// feed enqueues every row, waiting while the queue is full.
func feed(ctx context.Context, q *queue.InMemoryQueue, in io.Reader) error {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.Comment = '#'
	r.TrimLeadingSpace = true

	for row := 1; ; row++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read row %d: %w", row, err)
		}
		req, err := parseRow(rec)
		if err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}

		j := queue.Job{ID: strconv.Itoa(row), Request: req}
		for {
			err := q.Enqueue(ctx, j)
			if err == nil {
				break
			}
			if !errors.Is(err, queue.ErrFull) {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(enqueueRetryDelay):
			}
		}
	}
}

func parseRow(rec []string) (service.Request, error) {
	if len(rec) < 2 || len(rec) > 4 {
		return service.Request{}, fmt.Errorf("want 2 to 4 fields, got %d", len(rec))
	}
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	req := service.Request{
		DriverID:   field(0),
		LoadID:     field(1),
		PromptType: present.PromptType(field(2)),
		UserRole:   present.UserRole(field(3)),
	}
	if req.DriverID == "" || req.LoadID == "" {
		return req, errors.New("driver_id and load_id are required")
	}
	return req, nil
}
