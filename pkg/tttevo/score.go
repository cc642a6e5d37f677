package tttevo

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"tttevo/internal/eval"
)

// ScoreBoards evaluates boards in parallel. Each worker scores with its own
// copy of engine's evaluator, so engine is never evaluated concurrently and
// its random stream is not consumed. Scores keep input order.
func ScoreBoards(ctx context.Context, engine *Engine, boards []eval.Board, workers int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(boards) {
		workers = len(boards)
	}
	scores := make([]float64, len(boards))
	if len(boards) == 0 {
		return scores, nil
	}

	clones := make([]*Engine, workers)
	for i := range clones {
		clones[i] = engine.scoringClone()
	}

	g, ctx := errgroup.WithContext(ctx)
	indexes := make(chan int)

	g.Go(func() error {
		defer close(indexes)
		for i := range boards {
			select {
			case indexes <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		worker := clones[w]
		g.Go(func() error {
			for i := range indexes {
				score, err := worker.Evaluate(boards[i])
				if err != nil {
					return fmt.Errorf("board %d: %w", i, err)
				}
				scores[i] = score
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}
