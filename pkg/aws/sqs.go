package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

// SQSAPI is the part of *sqs.Client the consumer calls.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// MessageHandler processes one message body. A nil return deletes the message;
// an error leaves it for redelivery after the visibility timeout.
type MessageHandler func(ctx context.Context, body string) error

// SQSConsumer long-polls a single queue and hands bodies to a handler one at a time.
type SQSConsumer struct {
	client   SQSAPI
	queueURL string

	// VisibilityTimeout should cover the slowest handler run.
	VisibilityTimeout int32
	// HandlerTimeout bounds a single handler call; zero means no bound.
	HandlerTimeout time.Duration
	// ErrorBackoff is the pause after a failed receive.
	ErrorBackoff time.Duration
}

func NewSQSConsumer(cfg sdkaws.Config, queueURL string) *SQSConsumer {
	return NewSQSConsumerWithClient(sqs.NewFromConfig(cfg), queueURL)
}

func NewSQSConsumerWithClient(client SQSAPI, queueURL string) *SQSConsumer {
	return &SQSConsumer{
		client:            client,
		queueURL:          queueURL,
		VisibilityTimeout: 900,
		ErrorBackoff:      time.Second,
	}
}

// StartPolling runs until ctx is cancelled and then returns ctx.Err().
func (c *SQSConsumer) StartPolling(ctx context.Context, handler MessageHandler) error {
	log := zap.L().With(zap.String("queue", c.queueURL))
	log.Info("sqs polling started")

	for {
		if ctx.Err() != nil {
			log.Info("sqs polling stopped")
			return ctx.Err()
		}

		msgs, err := c.receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error("sqs receive failed", zap.Error(err))
			select {
			case <-time.After(c.ErrorBackoff):
			case <-ctx.Done():
			}
			continue
		}
		for _, msg := range msgs {
			c.handle(ctx, log, msg, handler)
		}
	}
}

func (c *SQSConsumer) receive(ctx context.Context) ([]types.Message, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            sdkaws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   c.VisibilityTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("receive from %s: %w", c.queueURL, err)
	}
	return out.Messages, nil
}

func (c *SQSConsumer) handle(ctx context.Context, log *zap.Logger, msg types.Message, handler MessageHandler) {
	id := sdkaws.ToString(msg.MessageId)
	if msg.Body == nil {
		log.Warn("sqs message without body", zap.String("message_id", id))
		return
	}

	hctx := ctx
	if c.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, c.HandlerTimeout)
		defer cancel()
	}
	if err := handler(hctx, *msg.Body); err != nil {
		log.Warn("sqs message left for redelivery", zap.String("message_id", id), zap.Error(err))
		return
	}

	// The import may have outlived ctx; the delete must still go through.
	if _, err := c.client.DeleteMessage(context.WithoutCancel(ctx), &sqs.DeleteMessageInput{
		QueueUrl:      sdkaws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		log.Error("sqs delete failed", zap.String("message_id", id), zap.Error(err))
	}
}
