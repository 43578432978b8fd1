// internal/history/sink.go
package history

import (
	"context"
	"time"

	"github.com/tamzrod/kvlogger/internal/logger"
	"github.com/tamzrod/kvlogger/internal/poller"
)

const writeTimeout = 5 * time.Second

// Sink adapts SQLite to the writer contract and prunes old samples.
type Sink struct {
	repo      *SQLite
	retention time.Duration // 0 keeps everything
	log       *logger.Logger

	lastPrune time.Time
}

func NewSink(repo *SQLite, retention time.Duration, log *logger.Logger) *Sink {
	if log == nil {
		log = logger.Nop()
	}
	return &Sink{repo: repo, retention: retention, log: log}
}

// Write stores one poll result. Pruning runs at most once an hour.
func (s *Sink) Write(res poller.PollResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if _, err := s.repo.Append(ctx, res); err != nil {
		return err
	}

	if s.retention <= 0 || res.At.Sub(s.lastPrune) < time.Hour {
		return nil
	}
	s.lastPrune = res.At

	n, err := s.repo.Prune(ctx, res.At.Add(-s.retention))
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Infow("history_pruned", "rows", n)
	}
	return nil
}
