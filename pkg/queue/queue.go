// Package queue distributes capture processing jobs over NATS.
package queue

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/ohler55/ojg/oj"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/log"
)

const (
	SubjectProcessRace = "race.process"
	workQueueGroup     = "race-workers"
)

// ProcessJob asks a worker to run the pipeline for one uploaded race.
type ProcessJob struct {
	RaceID string `json:"race_id"`
}

type (
	Queue struct {
		conn *nats.Conn
		l    *log.Logger
	}
	Option func(*Queue)
)

func WithLogger(l *log.Logger) Option {
	return func(q *Queue) { q.l = l }
}

func New(conn *nats.Conn, opts ...Option) *Queue {
	ret := &Queue{conn: conn, l: log.Default().Named("queue")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// PublishProcessJob enqueues a capture for processing.
func (q *Queue) PublishProcessJob(raceID string) error {
	data, err := oj.Marshal(ProcessJob{RaceID: raceID})
	if err != nil {
		return err
	}
	q.l.Debug("publishing job", log.String("raceId", raceID))
	return q.conn.Publish(SubjectProcessRace, data)
}

// Handler processes one job.
type Handler func(ctx context.Context, job ProcessJob) error

// Subscribe consumes process jobs in a queue group so concurrent
// workers balance the load. Each job runs under the given timeout.
func (q *Queue) Subscribe(
	ctx context.Context,
	timeout time.Duration,
	handler Handler,
) (*nats.Subscription, error) {
	return q.conn.QueueSubscribe(SubjectProcessRace, workQueueGroup,
		func(msg *nats.Msg) {
			var job ProcessJob
			if err := oj.Unmarshal(msg.Data, &job); err != nil {
				q.l.Error("invalid job payload", log.ErrorField(err))
				return
			}
			jobCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if err := handler(jobCtx, job); err != nil {
				q.l.Error("job failed",
					log.String("raceId", job.RaceID),
					log.ErrorField(err))
			}
		})
}
