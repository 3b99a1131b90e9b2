// Package pubsub publishes order events to a single Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/config"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

// OrderingAttribute is the message attribute used as the ordering key, so
// every event of one order is delivered in publish order.
const OrderingAttribute = "order_id"

var errNotInitialized = errors.New("pubsub client not initialized")

type Client struct {
	client    *pubsub.Client
	topic     string
	topicPath string
	publisher *pubsub.Publisher
}

// NewClient connects to Pub/Sub and fails unless the orders topic already
// exists; topics are provisioned outside the service.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	path, err := topicPath(gcp.ProjectID, cfg.OrdersTopic)
	if err != nil {
		return nil, err
	}

	ps, err := pubsub.NewClient(ctx, strings.TrimSpace(gcp.ProjectID))
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: ps, topic: strings.TrimSpace(cfg.OrdersTopic), topicPath: path}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	c.publisher = ps.Publisher(path)
	c.publisher.EnableMessageOrdering = true

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", path), "pubsub.connected")
	}
	return c, nil
}

func (c *Client) OrdersTopic() string {
	if c == nil {
		return ""
	}
	return c.topic
}

// Publish sends one message to topic, which must be the orders topic, and
// waits for the server ack. A message carrying OrderingAttribute is ordered
// by it; a failed ordered publish resumes the key so later events still go out.
func (c *Client) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	if c == nil || c.publisher == nil {
		return "", errNotInitialized
	}
	if t := strings.TrimSpace(topic); t != c.topic && t != c.topicPath {
		return "", fmt.Errorf("topic %q is not published by this service", topic)
	}

	msg := &pubsub.Message{Data: data, Attributes: attrs, OrderingKey: attrs[OrderingAttribute]}
	id, err := c.publisher.Publish(ctx, msg).Get(ctx)
	if err != nil {
		if msg.OrderingKey != "" {
			c.publisher.ResumePublish(msg.OrderingKey)
		}
		return "", fmt.Errorf("publish to %s: %w", c.topic, err)
	}
	return id, nil
}

// Ping checks that the orders topic exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topicPath})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %s does not exist", c.topicPath)
	default:
		return fmt.Errorf("checking topic %s: %w", c.topicPath, err)
	}
}

// Close flushes pending messages before closing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.publisher != nil {
		c.publisher.Stop()
	}
	return c.client.Close()
}

// topicPath accepts a bare topic id or a full projects/<p>/topics/<t> path.
func topicPath(project, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", errors.New("pubsub orders topic is required")
	}
	if strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/") {
		return topic, nil
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return "", errors.New("gcp project id is required")
	}
	return "projects/" + project + "/topics/" + topic, nil
}
