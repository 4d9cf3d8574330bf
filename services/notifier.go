package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/gatsishub/gatsishub-api/models"
)

// StatusNotification is the message published when an order changes status
type StatusNotification struct {
	OrderID    string             `json:"order_id"`
	CustomerID uint               `json:"customer_id"`
	From       models.OrderStatus `json:"from"`
	To         models.OrderStatus `json:"to"`
	Reason     string             `json:"reason,omitempty"`
	At         time.Time          `json:"at"`
}

// Notifier announces order status changes to downstream consumers
type Notifier interface {
	NotifyStatusChange(ctx context.Context, n StatusNotification) error
}

// SNSPublisher is the subset of the SNS client the notifier needs
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes status changes to an SNS topic
type SNSNotifier struct {
	client   SNSPublisher
	topicARN string
}

// NoopNotifier drops notifications; used when no topic is configured
type NoopNotifier struct{}

var notifierInstance Notifier = NoopNotifier{}

// NewSNSNotifier creates a notifier for topicARN
func NewSNSNotifier(client SNSPublisher, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

// NewSNSClient builds an SNS client from the shared AWS configuration
func NewSNSClient(cfg aws.Config) *sns.Client {
	return sns.NewFromConfig(cfg)
}

// GetNotifier returns the installed notifier
func GetNotifier() Notifier {
	return notifierInstance
}

// SetNotifier installs n as the process-wide notifier
func SetNotifier(n Notifier) {
	if n == nil {
		n = NoopNotifier{}
	}
	notifierInstance = n
}

func (n *SNSNotifier) NotifyStatusChange(ctx context.Context, msg StatusNotification) error {
	if n.topicARN == "" {
		return fmt.Errorf("empty topicArn")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode status notification: %w", err)
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(fmt.Sprintf("Order %s is now %s", msg.OrderID, msg.To)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"status": {DataType: aws.String("String"), StringValue: aws.String(string(msg.To))},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", n.topicARN, err)
	}
	return nil
}

func (NoopNotifier) NotifyStatusChange(ctx context.Context, n StatusNotification) error {
	return nil
}
