package pubsub

import (
	"context"
	"errors"
	"testing"
)

func TestTopicPath(t *testing.T) {
	cases := []struct {
		project, topic, want string
		fails                bool
	}{
		{"nilgiris-prod", "nf-order-events", "projects/nilgiris-prod/topics/nf-order-events", false},
		{" nilgiris-prod ", "  nf-order-events ", "projects/nilgiris-prod/topics/nf-order-events", false},
		{"", "projects/shared/topics/nf-order-events", "projects/shared/topics/nf-order-events", false},
		{"", "nf-order-events", "", true},
		{"nilgiris-prod", " ", "", true},
	}
	for _, tc := range cases {
		got, err := topicPath(tc.project, tc.topic)
		if (err != nil) != tc.fails || got != tc.want {
			t.Fatalf("topicPath(%q, %q) = %q, %v", tc.project, tc.topic, got, err)
		}
	}
}

func TestUnconnectedClient(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, errNotInitialized) {
		t.Fatalf("ping: %v", err)
	}
	if _, err := c.Publish(context.Background(), "nf-order-events", []byte("{}"), nil); !errors.Is(err, errNotInitialized) {
		t.Fatalf("publish: %v", err)
	}
	if c.OrdersTopic() != "" {
		t.Fatal("nil client has no topic")
	}
}
