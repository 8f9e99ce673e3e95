// Package pubsub owns the Pub/Sub v2 client used by the outbox relay and the
// API readiness probe.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

const topicCheckConcurrency = 4

var errProjectIDRequired = errors.New("gcp project id is required")

type Client struct {
	client    *pubsub.Client
	projectID string
	topics    []string
}

// NewClient connects and fails unless every configured topic already exists.
// Topics are never created here; infra owns them.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	topics := topicNames(cfg)
	if len(topics) == 0 {
		return nil, errors.New("at least one pubsub topic is required")
	}

	raw, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client for %s: %w", projectID, err)
	}
	c := &Client{client: raw, projectID: projectID, topics: topics}
	if err := c.checkTopics(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"gcp_project": projectID, "topics": topics}), "pubsub.connected")
	}
	return c, nil
}

// clientOptions prefers inline credentials JSON over a key file path; with
// neither, the library falls back to ADC or PUBSUB_EMULATOR_HOST.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

func topicNames(cfg config.PubSubConfig) []string {
	var names []string
	for _, name := range []string{cfg.OrdersTopic, cfg.CatalogTopic} {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// checkTopics looks every topic up in parallel and reports all failures
// together.
func (c *Client) checkTopics(ctx context.Context) error {
	errs := make([]error, len(c.topics))
	var g errgroup.Group
	g.SetLimit(topicCheckConcurrency)
	for i, name := range c.topics {
		g.Go(func() error {
			errs[i] = c.checkTopic(ctx, name)
			return nil
		})
	}
	_ = g.Wait()
	return multierr.Combine(errs...)
}

func (c *Client) checkTopic(ctx context.Context, name string) error {
	full := TopicResourceName(c.projectID, name)
	if full == "" {
		return fmt.Errorf("topic %q: no resource name", name)
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %s does not exist", full)
	case err != nil:
		return fmt.Errorf("get topic %s: %w", full, err)
	}
	return nil
}

// Publisher returns the library's cached publisher for a topic id or full
// resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := TopicResourceName(c.projectID, name)
	if full == "" {
		return nil
	}
	return c.client.Publisher(full)
}

// Ping re-checks the configured topics.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.checkTopics(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// TopicResourceName expands a bare topic id to projects/<p>/topics/<id>.
// Names that are already full resource names pass through.
func TopicResourceName(projectID, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/") {
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/topics/" + name
}
