package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/krobus00/tick-ingestor/internal/constant"
	"github.com/krobus00/tick-ingestor/internal/entity"
	"github.com/krobus00/tick-ingestor/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// TickPublisher fans committed continuous-contract ticks out to JetStream so
// strategy services can follow the series without polling the database.
type TickPublisher struct {
	js nats.JetStreamContext
}

func NewTickPublisher(js nats.JetStreamContext) *TickPublisher {
	return &TickPublisher{js: js}
}

func (p *TickPublisher) EnsureStream(ctx context.Context) error {
	streamConfig := &nats.StreamConfig{
		Name:      constant.TickStreamName,
		Subjects:  []string{constant.TickStreamSubjectAll},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    5 * time.Minute,
		Replicas:  1,
	}

	stream, err := p.js.StreamInfo(constant.TickStreamName)
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}

	if stream == nil {
		logrus.Infof("creating stream: %s", constant.TickStreamName)
		_, err = p.js.AddStream(streamConfig, nats.Context(ctx))
		return err
	}

	_, err = p.js.UpdateStream(streamConfig, nats.Context(ctx))
	if err != nil {
		return err
	}

	logrus.Infof("stream %s is ready", constant.TickStreamName)

	return nil
}

// BatchApplied publishes every continuous op of a committed batch. Publish
// failures are logged and skipped, the rows are already durable.
func (p *TickPublisher) BatchApplied(_ context.Context, ops []entity.WriteOp) {
	for _, op := range ops {
		if op.Kind != entity.WriteOpContinuous {
			continue
		}

		if err := util.PublishEvent(p.js, constant.TickStreamSubjectApplied, op.Continuous); err != nil {
			logrus.Warnf("publish applied tick for %s: %v", op.Continuous.Symbol, err)
		}
	}
}
