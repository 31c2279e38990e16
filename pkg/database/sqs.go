package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// sqs long poll 上限 20 秒
const maxSQSWaitSeconds = 20

// SQSQueue JobQueue on AWS SQS, visibility window 由 SQS 自己處理
type SQSQueue struct {
	client        *sqs.Client
	queueURL      string
	deadLetterURL string
	visibility    time.Duration
}

var (
	_ JobQueue    = (*SQSQueue)(nil)
	_ JobProducer = (*SQSQueue)(nil)
)

// NewSQSQueue create sqs job queue
func NewSQSQueue(cfg aws.Config, queueURL, deadLetterURL string, visibility time.Duration) *SQSQueue {
	return &SQSQueue{
		client:        sqs.NewFromConfig(cfg),
		queueURL:      queueURL,
		deadLetterURL: deadLetterURL,
		visibility:    visibility,
	}
}

// Receive long poll one message
func (q *SQSQueue) Receive(ctx context.Context, wait time.Duration) (*QueueMessage, error) {
	waitSeconds := int32(wait / time.Second)
	if waitSeconds > maxSQSWaitSeconds {
		waitSeconds = maxSQSWaitSeconds
	}

	input := &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     waitSeconds,
		AttributeNames:      []types.QueueAttributeName{types.QueueAttributeName("ApproximateReceiveCount")},
	}
	if q.visibility > 0 {
		input.VisibilityTimeout = int32(q.visibility / time.Second)
	}

	out, err := q.client.ReceiveMessage(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("sqs receive message: %w", err)
	}
	if len(out.Messages) == 0 {
		return nil, nil
	}

	m := out.Messages[0]
	count, _ := strconv.Atoi(m.Attributes["ApproximateReceiveCount"])
	return &QueueMessage{
		ID:            aws.ToString(m.MessageId),
		Body:          []byte(aws.ToString(m.Body)),
		ReceiptHandle: aws.ToString(m.ReceiptHandle),
		ReceiveCount:  count,
	}, nil
}

// Delete delete message by receipt handle
func (q *SQSQueue) Delete(ctx context.Context, msg *QueueMessage) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	})
	if err != nil {
		return fmt.Errorf("sqs delete message %s: %w", msg.ID, err)
	}
	return nil
}

// DeadLetter send body to dead-letter queue then delete the original
func (q *SQSQueue) DeadLetter(ctx context.Context, msg *QueueMessage, reason string) error {
	if q.deadLetterURL == "" {
		return ErrNoDeadLetter
	}
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.deadLetterURL),
		MessageBody: aws.String(string(msg.Body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"reason":            {DataType: aws.String("String"), StringValue: aws.String(reason)},
			"original_message": {DataType: aws.String("String"), StringValue: aws.String(msg.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("sqs send dead-letter: %w", err)
	}
	return q.Delete(ctx, msg)
}

// Enqueue send a job message
func (q *SQSQueue) Enqueue(ctx context.Context, body []byte) error {
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("sqs send message: %w", err)
	}
	return nil
}
