package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"signdesk-backend/internal/intake/usecase"
)

type gmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Listener pulls Gmail notifications straight from the Pub/Sub subscription.
// Used when the service runs without a public webhook URL; it feeds the same
// pipeline the push webhook does.
type Listener struct {
	client   *pubsub.Client
	pipeline *usecase.Pipeline
	topic    string
	subName  string
}

func NewListener(projectID, topicName, credentialsFile string, pipeline *usecase.Pipeline) (*Listener, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(context.Background(), projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Listener{
		client:   client,
		pipeline: pipeline,
		topic:    topicName,
		subName:  topicName + "-sub",
	}, nil
}

// Start blocks receiving messages until the context is cancelled. The
// subscription is created on first run if the topic already exists.
func (l *Listener) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting intake listener on topic %s, subscription %s", l.topic, l.subName)

	sub := l.client.Subscription(l.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := l.client.Topic(l.topic)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, cannot create subscription", l.topic)
			return
		}
		sub, err = l.client.CreateSubscription(ctx, l.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", l.subName)
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		l.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (l *Listener) Close() error {
	return l.client.Close()
}

func (l *Listener) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification gmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	log.Printf("[PubSub] Notification for %s (historyId: %d)", notification.EmailAddress, notification.HistoryID)
	if err := l.pipeline.ProcessHistoryUpdate(ctx, notification.EmailAddress, notification.HistoryID); err != nil {
		log.Printf("[PubSub] Error processing history update: %v", err)
	}
}
