package queue

import (
	"context"
	"errors"
	"net"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"go.uber.org/zap"
)

// SQSAPI is the subset of the SQS client used by the worker
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// SQS implements Client on Amazon SQS. Queue identifiers are queue URLs.
type SQS struct {
	api      SQSAPI
	queueURL string
	logger   *zap.Logger
}

// NewSQS creates an SQS client reading from queueURL
func NewSQS(api SQSAPI, queueURL string, logger *zap.Logger) *SQS {
	return &SQS{
		api:      api,
		queueURL: queueURL,
		logger:   logger,
	}
}

// NewSQSFromConfig builds the SDK client with its own retryer disabled,
// so the worker's retry policy is the only retry layer.
func NewSQSFromConfig(cfg aws.Config, endpoint, queueURL string, logger *zap.Logger) *SQS {
	api := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.Retryer = aws.NopRetryer{}
	})
	return NewSQS(api, queueURL, logger)
}

// Receive long-polls the source queue
func (s *SQS) Receive(ctx context.Context, opts ReceiveOptions) ([]Message, error) {
	out, err := s.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(s.queueURL),
		MaxNumberOfMessages:   int32(opts.MaxMessages),
		WaitTimeSeconds:       int32(opts.WaitTime.Seconds()),
		VisibilityTimeout:     int32(opts.VisibilityTimeout.Seconds()),
		MessageAttributeNames: []string{"All"},
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameAll,
		},
	})
	if err != nil {
		return nil, newError("receive", err, isTransientAWSError)
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		messages = append(messages, Message{
			ID:         aws.ToString(m.MessageId),
			AckToken:   aws.ToString(m.ReceiptHandle),
			Body:       []byte(aws.ToString(m.Body)),
			Attributes: attributesOf(m),
		})
	}
	return messages, nil
}

// attributesOf merges system attributes (ApproximateReceiveCount, SentTimestamp, ...)
// with the message's own attributes
func attributesOf(m types.Message) map[string]any {
	attrs := make(map[string]any, len(m.Attributes)+len(m.MessageAttributes))
	for k, v := range m.Attributes {
		attrs[k] = v
	}
	for k, v := range m.MessageAttributes {
		switch {
		case v.StringValue != nil:
			attrs[k] = aws.ToString(v.StringValue)
		case v.BinaryValue != nil:
			attrs[k] = v.BinaryValue
		}
	}
	return attrs
}

// Send publishes body to the queue URL queueID
func (s *SQS) Send(ctx context.Context, queueID string, body []byte) error {
	_, err := s.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueID),
		MessageBody: aws.String(string(body)),
	})
	return newError("send", err, isTransientAWSError)
}

// Delete removes the message identified by its receipt handle
func (s *SQS) Delete(ctx context.Context, ackToken string) error {
	_, err := s.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: aws.String(ackToken),
	})
	return newError("delete", err, isTransientAWSError)
}

// Ping reads the source queue's attributes
func (s *SQS) Ping(ctx context.Context) error {
	_, err := s.api.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(s.queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
	})
	return newError("ping", err, isTransientAWSError)
}

// Close is a no-op; the SDK client holds no connections that need closing
func (s *SQS) Close() error {
	return nil
}

var transientAWSCodes = map[string]bool{
	"ThrottlingException":       true,
	"Throttling":                true,
	"RequestThrottled":          true,
	"RequestThrottledException": true,
	"ServiceUnavailable":        true,
	"InternalError":             true,
	"InternalFailure":           true,
	"KmsThrottled":              true,
	"KMS.ThrottlingException":   true,
	"RequestTimeout":            true,
}

func isTransientAWSError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return transientAWSCodes[apiErr.ErrorCode()] || apiErr.ErrorFault() == smithy.FaultServer
	}

	var sendErr *smithyhttp.RequestSendError
	if errors.As(err, &sendErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
