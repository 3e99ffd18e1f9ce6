// Package sub creates PubSub subscriptions.
package sub

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/kodariks/iot-webapp/go/skerr"
)

const (
	// batchSize is the batch size of items to receive per Go routine.
	batchSize = 5

	// subscriptionSuffix is the name we append to a topic name to build a
	// subscription name.
	subscriptionSuffix = "-prod"
)

// SubNameProvider is an interface for how a subscription name gets generated
// for a PubSub topic.
type SubNameProvider interface {
	SubName() (string, error)
}

// RoundRobinNameProvider implements SubNameProvider. In production every
// instance uses the same subscription name so that they load-balance pulling
// items from the topic. Locally every host gets its own subscription.
type RoundRobinNameProvider struct {
	local     bool
	topicName string
}

// NewRoundRobinNameProvider returns a new RoundRobinNameProvider.
func NewRoundRobinNameProvider(local bool, topicName string) RoundRobinNameProvider {
	return RoundRobinNameProvider{
		local:     local,
		topicName: topicName,
	}
}

// SubName implements SubNameProvider.
func (r RoundRobinNameProvider) SubName() (string, error) {
	if !r.local {
		return r.topicName + subscriptionSuffix, nil
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "", skerr.Wrapf(err, "failed to get hostname")
	}
	return fmt.Sprintf("%s-%s", r.topicName, hostname), nil
}

// ConstNameProvider implements SubNameProvider that always returns the same
// subscription name.
type ConstNameProvider string

// SubName implements SubNameProvider.
func (c ConstNameProvider) SubName() (string, error) {
	return string(c), nil
}

// New returns a new *pubsub.Subscription to topicName in project, creating
// the topic and the subscription if they don't already exist, which requires
// the "PubSub Admin" role.
//
// numGoRoutines sets sub.ReceiveSettings.NumGoroutines and, scaled by
// batchSize, sub.ReceiveSettings.MaxOutstandingMessages. Both can be changed
// on the returned subscription.
func New(ctx context.Context, project, topicName string, subNameProvider SubNameProvider, numGoRoutines int, opts ...option.ClientOption) (*pubsub.Subscription, error) {
	subName, err := subNameProvider.SubName()
	if err != nil {
		return nil, skerr.Wrapf(err, "failed to get subscription name")
	}

	pubsubClient, err := pubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, skerr.Wrapf(err, "failed to create PubSub client for project %s", project)
	}
	topic, err := EnsureTopic(ctx, pubsubClient, topicName)
	if err != nil {
		return nil, skerr.Wrap(err)
	}

	sub := pubsubClient.Subscription(subName)
	ok, err := sub.Exists(ctx)
	if err != nil {
		return nil, skerr.Wrapf(err, "failed checking subscription existence: %q", subName)
	}
	if !ok {
		sub, err = pubsubClient.CreateSubscription(ctx, subName, pubsub.SubscriptionConfig{
			Topic: topic,
		})
		if err != nil {
			return nil, skerr.Wrapf(err, "failed creating subscription %q", subName)
		}
	}

	sub.ReceiveSettings.MaxOutstandingMessages = numGoRoutines * batchSize
	sub.ReceiveSettings.NumGoroutines = numGoRoutines
	return sub, nil
}

// EnsureTopic returns the named topic, creating it if it does not exist.
func EnsureTopic(ctx context.Context, client *pubsub.Client, topicName string) (*pubsub.Topic, error) {
	topic := client.Topic(topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, skerr.Wrapf(err, "failed to check existence of PubSub topic %q", topicName)
	}
	if exists {
		return topic, nil
	}
	topic, err = client.CreateTopic(ctx, topicName)
	if err != nil {
		return nil, skerr.Wrapf(err, "failed to create PubSub topic %q", topicName)
	}
	return topic, nil
}
