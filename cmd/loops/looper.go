package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fairtrace/fairtrace/cmd/loops/recurring"
	taskguardian "github.com/fairtrace/fairtrace/cmd/loops/tasks/guardian"
	tasknotary "github.com/fairtrace/fairtrace/cmd/loops/tasks/notary"
	taskoutbox "github.com/fairtrace/fairtrace/cmd/loops/tasks/outbox"
	taskreport "github.com/fairtrace/fairtrace/cmd/loops/tasks/report"
	"github.com/fairtrace/fairtrace/pkg/configs/loops"
	"github.com/fairtrace/fairtrace/pkg/conn/gateway"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/fairtrace/fairtrace/pkg/guardian"
	"github.com/fairtrace/fairtrace/pkg/lock"
	"github.com/fairtrace/fairtrace/pkg/loop"
	"github.com/fairtrace/fairtrace/pkg/notary"
	"github.com/fairtrace/fairtrace/pkg/notify"
	"github.com/fairtrace/fairtrace/pkg/report"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// outbox messages published in a task run.
const outboxBatchSize = 100

// Wrapper for monitoring loop tasks
//
// Log the start and end of each time a task is executed.
func monitor[T any](logger *zap.Logger, task loop.Task[T]) loop.Task[T] {
	var counter uint64
	return func(ctx context.Context, t T) (ret T, next loop.Next) {
		counter += 1
		timestamp := time.Now()

		logger.Debug("task start", zap.Uint64("run", counter))
		defer func() {
			logger.Debug(
				"task end",
				zap.Uint64("run", counter),
				zap.Duration("elapsed", time.Since(timestamp)),
				zap.Stringer("next", next),
			)
		}()

		ret, next = task(ctx, t)
		return
	}
}

// Manifest for starting a loop, which determines how the loop should behave.
type LoopManifest struct {
	Type LoopType

	// Policy for the looping. Not used by the notify loop.
	Policy recurring.Policy
}

func StartLoop(
	ctx context.Context,
	logger *zap.Logger,
	dbase fdb.Database,
	conf *loops.LoopsConfig,
	manifest LoopManifest,
) error {
	l := logger.Named(manifest.Type.String())
	switch manifest.Type {
	case Report:
		return StartReportLoop(ctx, l, dbase, conf, manifest)
	case Guardian:
		return StartGuardianLoop(ctx, l, dbase, conf, manifest)
	case Notary:
		return StartNotaryLoop(ctx, l, dbase, conf, manifest)
	case Outbox:
		return StartOutboxLoop(ctx, l, dbase, conf, manifest)
	case Notify:
		return StartNotifyConsumer(ctx, l, conf)
	default:
		return fmt.Errorf("unknown loop type: %s", manifest.Type)
	}
}

func missing(section string, typ LoopType) error {
	return fmt.Errorf("config: %s is required for %s loop", section, typ)
}

func StartReportLoop(
	ctx context.Context,
	logger *zap.Logger,
	dbase fdb.Database,
	conf *loops.LoopsConfig,
	manifest LoopManifest,
) error {
	if conf.Reports() == nil {
		return missing("reports", manifest.Type)
	}
	generator := report.NewGenerator(dbase, conf.Reports().Directory())

	_, err := loop.Start(
		ctx, taskreport.Seed(),
		monitor(
			logger,
			taskreport.Task(dbase.Reports(), generator.Generate).Applied(manifest.Policy),
		),
		loop.WithTimeout(5*time.Minute),
	)
	return err
}

func StartGuardianLoop(
	ctx context.Context,
	logger *zap.Logger,
	dbase fdb.Database,
	conf *loops.LoopsConfig,
	manifest LoopManifest,
) error {
	g := conf.Guardian()
	if g == nil {
		return missing("guardian", manifest.Type)
	}
	client := guardian.NewClient(gateway.New("guardian", g.Endpoint(), g.Token()))

	_, err := loop.Start(
		ctx, taskguardian.Seed(),
		monitor(
			logger,
			taskguardian.Task(dbase.Guardian(), client, conf.Retry(), time.Now).Applied(manifest.Policy),
		),
		loop.WithTimeout(30*time.Second),
	)
	return err
}

func StartNotaryLoop(
	ctx context.Context,
	logger *zap.Logger,
	dbase fdb.Database,
	conf *loops.LoopsConfig,
	manifest LoopManifest,
) error {
	n := conf.Notary()
	if n == nil {
		return missing("notary", manifest.Type)
	}
	client := notary.NewClient(gateway.New("notary", n.Endpoint(), n.Token()))

	var locker lock.Locker = lock.Nop{}
	if r := conf.Redis(); r != nil {
		rc := redis.NewClient(&redis.Options{Addr: r.Address()})
		defer rc.Close()
		locker = lock.New(rc)
	} else {
		logger.Warn("redis is not configured. notary loop runs without lock: do not run replicas.")
	}

	_, err := loop.Start(
		ctx, tasknotary.Seed(),
		monitor(
			logger,
			tasknotary.Task(locker, dbase.Notary(), client, n.Topic(), conf.Retry(), time.Now).Applied(manifest.Policy),
		),
		loop.WithTimeout(30*time.Second),
	)
	return err
}

func dial(conf *loops.LoopsConfig, typ LoopType) (*amqp.Connection, *amqp.Channel, error) {
	mq := conf.RabbitMQ()
	if mq == nil {
		return nil, nil, missing("rabbitmq", typ)
	}
	conn, err := amqp.Dial(mq.URL())
	if err != nil {
		return nil, nil, xe.WrapWithNote("connect rabbitmq", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, xe.WrapWithNote("open channel", err)
	}
	if err := notify.Declare(ch, mq.Exchange(), mq.Queue()); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

func StartOutboxLoop(
	ctx context.Context,
	logger *zap.Logger,
	dbase fdb.Database,
	conf *loops.LoopsConfig,
	manifest LoopManifest,
) error {
	conn, ch, err := dial(conf, manifest.Type)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer ch.Close()

	relay := notify.NewRelay(ch, conf.RabbitMQ().Exchange())
	_, err = loop.Start(
		ctx, taskoutbox.Seed(),
		monitor(
			logger,
			taskoutbox.Task(dbase.Outbox(), relay.Publish, outboxBatchSize).Applied(manifest.Policy),
		),
		loop.WithTimeout(30*time.Second),
	)
	return err
}

// StartNotifyConsumer delivers notifications in the queue until ctx is done.
func StartNotifyConsumer(ctx context.Context, logger *zap.Logger, conf *loops.LoopsConfig) error {
	s := conf.SMS()
	if s == nil {
		return missing("sms", Notify)
	}
	conn, ch, err := dial(conf, Notify)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer ch.Close()

	if err := ch.Qos(10, 0, false); err != nil {
		return xe.WrapWithNote("set qos", err)
	}
	deliveries, err := ch.Consume(conf.RabbitMQ().Queue(), "fairtrace-notify", false, false, false, false, nil)
	if err != nil {
		return xe.WrapWithNote("consume", err)
	}

	sender := notify.NewSender(gateway.New("sms", s.Endpoint(), s.Token()))
	return notify.Consume(ctx, logger, sender, deliveries)
}
