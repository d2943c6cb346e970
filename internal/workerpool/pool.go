// Package workerpool partitions a batch of intake files across a bounded
// set of concurrent workers sharing one database connection pool (spec
// §4.10, §9 "Worker pool partitioning").
package workerpool

import (
	"context"

	"github.com/alitto/pond"

	"fileloader/internal/pipeline"
)

// Partition splits files into n contiguous, near-equal shares: share i
// gets floor(L/n) files, plus one more if i is among the first L mod n
// shares. Empty shares are omitted (spec §9).
func Partition(files []string, n int) [][]string {
	if n <= 0 {
		n = 1
	}
	l := len(files)
	base := l / n
	remainder := l % n

	var batches [][]string
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < remainder {
			size++
		}
		if size == 0 {
			continue
		}
		batches = append(batches, files[start:start+size])
		start += size
	}
	return batches
}

// Run submits one pond task per batch, each task processing its files
// sequentially through p, and collects every file's Outcome.
func Run(ctx context.Context, p *pipeline.Pipeline, files []string, workerCount int) []pipeline.Outcome {
	batches := Partition(files, workerCount)
	if len(batches) == 0 {
		return nil
	}

	pool := pond.New(len(batches), 0, pond.MinWorkers(len(batches)))

	results := make([][]pipeline.Outcome, len(batches))
	for i, batch := range batches {
		i, batch := i, batch
		pool.Submit(func() {
			outcomes := make([]pipeline.Outcome, 0, len(batch))
			for _, f := range batch {
				outcomes = append(outcomes, p.Process(ctx, f))
			}
			results[i] = outcomes
		})
	}
	pool.StopAndWait()

	var all []pipeline.Outcome
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}
