// Package consumer processes publication evaluation messages. Delivery is
// at-least-once: processing is idempotent through the coordinator's upsert,
// non-retryable failures go to the dead-letter topic with enough context to
// replay, and retryable failures rewind the consume position so the failed
// record is redelivered on the next poll.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nvi/internal/candidate/metrics"
	"nvi/internal/candidate/models"
	"nvi/internal/candidate/service"
	"nvi/internal/platform/config"
	pkgerrors "nvi/pkg/domain-errors"
)

// Evaluator turns publication metadata into an evaluation result.
type Evaluator interface {
	Evaluate(ctx context.Context, meta models.PublicationMetadata) (models.Evaluation, error)
}

// Consumer owns the Kafka consumer group for evaluation messages.
type Consumer struct {
	client   *kgo.Client
	eval     Evaluator
	coord    *service.Service
	metrics  *metrics.Metrics
	logger   *slog.Logger
	dlqTopic string
	tracer   trace.Tracer
}

// New connects the consumer group and ensures the evaluation and dead-letter
// topics exist.
func New(ctx context.Context, cfg config.Kafka, eval Evaluator, coord *service.Service, m *metrics.Metrics, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(cfg.EvaluationTopic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := ensureTopics(ctx, client, cfg.EvaluationTopic, cfg.DLQTopic); err != nil {
		client.Close()
		return nil, err
	}
	return &Consumer{
		client:   client,
		eval:     eval,
		coord:    coord,
		metrics:  m,
		logger:   logger,
		dlqTopic: cfg.DLQTopic,
		tracer:   otel.Tracer("nvi/events/consumer"),
	}, nil
}

// Close shuts down the Kafka client.
func (c *Consumer) Close() { c.client.Close() }

// Run polls and processes until the context is canceled. A retryable failure
// stops the current batch: the prefix processed before the failure is
// committed, and the consume position of every partition with an unprocessed
// record is rewound to its earliest such offset. Polling already advanced the
// client past those records, so without the rewind a later commit would move
// the group offset over them and they would never be redelivered.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "fetch error",
				"topic", topic, "partition", partition, "error", err.Error())
		})

		var b batch
		fetches.EachRecord(func(record *kgo.Record) {
			if b.failed {
				b.skip(record)
				return
			}
			if err := c.process(ctx, record); err != nil {
				c.logger.WarnContext(ctx, "retryable failure, rewinding for redelivery",
					"topic", record.Topic,
					"partition", record.Partition,
					"offset", record.Offset,
					"error", err.Error(),
				)
				b.fail(record)
				return
			}
			b.done(record)
		})

		if len(b.commit) > 0 {
			if err := c.client.CommitRecords(ctx, b.commit...); err != nil {
				c.logger.ErrorContext(ctx, "commit failed", "error", err.Error())
			}
		}
		if b.failed {
			c.client.SetOffsets(b.rewind)
		}
	}
}

// batch tracks one poll's outcome: the prefix of records safe to commit, and
// the per-partition offsets to rewind to when a record fails retryably. Every
// unprocessed record (the failed one and everything after it) lands in the
// rewind set so the next poll re-fetches it.
type batch struct {
	commit []*kgo.Record
	rewind map[string]map[int32]kgo.EpochOffset
	failed bool
}

func (b *batch) done(record *kgo.Record) {
	b.commit = append(b.commit, record)
}

func (b *batch) fail(record *kgo.Record) {
	b.failed = true
	b.skip(record)
}

func (b *batch) skip(record *kgo.Record) {
	if b.rewind == nil {
		b.rewind = make(map[string]map[int32]kgo.EpochOffset)
	}
	partitions := b.rewind[record.Topic]
	if partitions == nil {
		partitions = make(map[int32]kgo.EpochOffset)
		b.rewind[record.Topic] = partitions
	}
	if at, ok := partitions[record.Partition]; !ok || record.Offset < at.Offset {
		partitions[record.Partition] = kgo.EpochOffset{Epoch: record.LeaderEpoch, Offset: record.Offset}
	}
}

// process handles one message. A nil return means the offset may be
// committed: success, or a non-retryable failure already routed to the
// dead-letter topic.
func (c *Consumer) process(ctx context.Context, record *kgo.Record) error {
	ctx, span := c.tracer.Start(ctx, "evaluation.process",
		trace.WithAttributes(attribute.String("messaging.kafka.topic", record.Topic)))
	defer span.End()

	meta, err := DecodeEvaluationMessage(record.Value)
	if err != nil {
		return c.handleFailure(ctx, span, record, "", err)
	}
	span.SetAttributes(attribute.String("publication.id", meta.PublicationID))

	eval, err := c.eval.Evaluate(ctx, meta)
	if err != nil {
		return c.handleFailure(ctx, span, record, meta.PublicationID, err)
	}

	if _, err := c.coord.Upsert(ctx, eval); err != nil {
		return c.handleFailure(ctx, span, record, meta.PublicationID, err)
	}

	switch eval.(type) {
	case models.CandidateEvaluation:
		c.metrics.RecordEvaluation("candidate")
	case models.NonCandidateEvaluation:
		c.metrics.RecordEvaluation("non_candidate")
	}
	return nil
}

// handleFailure routes non-retryable failures to the dead-letter topic and
// reports retryable ones to the poll loop.
func (c *Consumer) handleFailure(ctx context.Context, span trace.Span, record *kgo.Record, publicationID string, cause error) error {
	span.RecordError(cause)
	span.SetStatus(codes.Error, string(pkgerrors.CodeOf(cause)))
	c.metrics.RecordEvaluation("error")

	if pkgerrors.IsRetryable(cause) {
		return cause
	}

	dlqRecord := &kgo.Record{
		Topic: c.dlqTopic,
		Key:   record.Key,
		Value: record.Value,
		Headers: []kgo.RecordHeader{
			{Key: "error-class", Value: []byte(pkgerrors.CodeOf(cause))},
			{Key: "error-message", Value: []byte(cause.Error())},
			{Key: "publication-id", Value: []byte(publicationID)},
		},
	}
	if err := c.client.ProduceSync(ctx, dlqRecord).FirstErr(); err != nil {
		// Failing to dead-letter must not drop the message; report it as
		// retryable so the poll loop rewinds and redelivers it.
		c.logger.ErrorContext(ctx, "dead-letter produce failed",
			"publication_id", publicationID, "error", err.Error())
		return pkgerrors.Wrap(pkgerrors.CodeDependency, "produce to dead-letter topic", err)
	}
	c.logger.WarnContext(ctx, "message dead-lettered",
		"publication_id", publicationID,
		"error_class", string(pkgerrors.CodeOf(cause)),
		"error", cause.Error(),
	)
	return nil
}

func ensureTopics(ctx context.Context, client *kgo.Client, topics ...string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, t := range resp.Sorted() {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}
