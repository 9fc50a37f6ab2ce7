package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fairpipe/fairpipe-api/internal/config"
	"github.com/fairpipe/fairpipe-api/internal/metrics"
	"github.com/fairpipe/fairpipe-api/pkg/logger"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Job is the message the resolution and transcription workers consume.
type Job struct {
	JobID     uuid.UUID `json:"job_id"`
	ObjectKey string    `json:"object_key"`
}

// JobPublisher publishes processing jobs to durable queues on the default
// exchange and waits for a broker confirm for each message.
type JobPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	confirms chan amqp.Confirmation
	config   *config.RabbitMQConfig
	mu       sync.Mutex
}

// NewJobPublisher connects and declares the resolution and transcription queues.
func NewJobPublisher(cfg *config.RabbitMQConfig) (*JobPublisher, error) {
	jp := &JobPublisher{
		config: cfg,
	}

	jp.mu.Lock()
	defer jp.mu.Unlock()
	if err := jp.connect(); err != nil {
		return nil, err
	}

	return jp, nil
}

// connect must be called with mu held.
func (jp *JobPublisher) connect() error {
	connURL := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		jp.config.User, jp.config.Password, jp.config.Host, jp.config.Port)

	conn, err := amqp.Dial(connURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	for _, queue := range jp.queues() {
		_, err = ch.QueueDeclare(
			queue, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}

	jp.conn = conn
	jp.channel = ch
	jp.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	logger.Log.Info("Connected to RabbitMQ",
		zap.String("resolutionQueue", jp.config.ResolutionQueue),
		zap.String("transcribeQueue", jp.config.TranscribeQueue),
	)

	return nil
}

func (jp *JobPublisher) queues() []string {
	return []string{jp.config.ResolutionQueue, jp.config.TranscribeQueue}
}

// PublishResolution asks the resolution worker to transcode an upload.
func (jp *JobPublisher) PublishResolution(ctx context.Context, job Job) error {
	return jp.publish(ctx, jp.config.ResolutionQueue, job)
}

// PublishTranscription asks the transcription worker to generate subtitles.
func (jp *JobPublisher) PublishTranscription(ctx context.Context, job Job) error {
	return jp.publish(ctx, jp.config.TranscribeQueue, job)
}

func (jp *JobPublisher) publish(ctx context.Context, queue string, job Job) (err error) {
	defer func() {
		metrics.JobsPublishedTotal.WithLabelValues(queue, metrics.Result(err)).Inc()
	}()

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	// one in-flight message at a time keeps confirms paired with publishes
	jp.mu.Lock()
	defer jp.mu.Unlock()

	if jp.conn == nil || jp.conn.IsClosed() {
		logger.Log.Warn("RabbitMQ connection lost, reconnecting")
		if err := jp.connect(); err != nil {
			return err
		}
	}

	err = jp.channel.PublishWithContext(
		ctx,
		"",    // default exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    job.JobID.String(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	timeout := jp.config.ConfirmTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	select {
	case confirm, ok := <-jp.confirms:
		if !ok {
			return fmt.Errorf("channel closed before publish confirmation")
		}
		if !confirm.Ack {
			return fmt.Errorf("message was not acknowledged by broker")
		}
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for publish confirmation")
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Log.Debug("Published job to RabbitMQ",
		zap.String("jobId", job.JobID.String()),
		zap.String("queue", queue),
	)

	return nil
}

// Close closes the channel and the connection.
func (jp *JobPublisher) Close() error {
	jp.mu.Lock()
	defer jp.mu.Unlock()

	var errs []error
	if jp.channel != nil {
		if err := jp.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if jp.conn != nil && !jp.conn.IsClosed() {
		if err := jp.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing publisher: %v", errs)
	}

	logger.Log.Info("RabbitMQ publisher closed")
	return nil
}

// IsHealthy reports whether the connection and channel are open.
func (jp *JobPublisher) IsHealthy() bool {
	jp.mu.Lock()
	defer jp.mu.Unlock()

	return jp.conn != nil && !jp.conn.IsClosed() && jp.channel != nil
}
