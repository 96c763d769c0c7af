//go:build adapters_sqs

package events

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSPublisher delivers provider-switch events to an SQS queue, grounded
// on the teacher's SQS task queue adapter but stripped to send-only since
// events here are fire-and-forget notifications, not work items needing
// ack/nack.
type SQSPublisher struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSPublisher constructs a publisher against queueURL using the
// default AWS config chain, optionally pinned to region.
func NewSQSPublisher(ctx context.Context, queueURL, region string) (*SQSPublisher, error) {
	if queueURL == "" {
		return nil, fmt.Errorf("events: QueueURL is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("events: load AWS config: %w", err)
	}
	return &SQSPublisher{client: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

// NewSQSPublisherFromClient builds a publisher from an existing SQS client.
func NewSQSPublisherFromClient(client *sqs.Client, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) PublishProviderSwitch(ctx context.Context, evt ProviderSwitch) error {
	body, err := Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal provider switch: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("events: sqs SendMessage: %w", err)
	}
	return nil
}
