package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/blues/pledges/internal/logger"
	"github.com/blues/pledges/internal/model"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
)

// AudienceKind tags who a notification is addressed to.
type AudienceKind string

const (
	AudienceOrgMembers AudienceKind = "org_members"
	AudienceUser       AudienceKind = "user"
	AudienceEmail      AudienceKind = "email"
)

// Audience is the delivery target of one notification.
type Audience struct {
	Kind  AudienceKind `json:"kind"`
	ID    uuid.UUID    `json:"id,omitempty"`
	Email string       `json:"email,omitempty"`
}

// Sink is the outbound notification transport. The transport itself
// (email, in-app feed, push) is outside the core.
type Sink interface {
	Deliver(ctx context.Context, audience Audience, n Notification) error
}

// LogSink logs notifications instead of delivering them. Used until a
// real transport is wired in, and in tests.
type LogSink struct{}

func (LogSink) Deliver(_ context.Context, audience Audience, n Notification) error {
	logger.Info("notification %s to %s %s", n.Type, audience.Kind, audience.ID)
	return nil
}

// AsyncDispatcher fans deliveries out on a goroutine pool. Failures are
// logged and dropped; the committed state change is already durable.
type AsyncDispatcher struct {
	pool   *ants.Pool
	sink   Sink
	client *http.Client
}

// NewAsyncDispatcher creates a dispatcher with the given pool size.
func NewAsyncDispatcher(workers int, sink Sink) (*AsyncDispatcher, error) {
	if workers <= 0 {
		workers = 8
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch pool: %w", err)
	}

	return &AsyncDispatcher{
		pool:   pool,
		sink:   sink,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Release shuts the pool down.
func (d *AsyncDispatcher) Release() {
	d.pool.Release()
}

func (d *AsyncDispatcher) submit(task func()) {
	if err := d.pool.Submit(task); err != nil {
		logger.Error("Failed to submit dispatch task: %v", err)
	}
}

// SendToOrgMembers implements Dispatcher.
func (d *AsyncDispatcher) SendToOrgMembers(ctx context.Context, orgID uuid.UUID, n Notification) {
	d.deliver(Audience{Kind: AudienceOrgMembers, ID: orgID}, n)
}

// SendToUser implements Dispatcher.
func (d *AsyncDispatcher) SendToUser(ctx context.Context, userID uuid.UUID, n Notification) {
	d.deliver(Audience{Kind: AudienceUser, ID: userID}, n)
}

// SendToPledger implements Dispatcher.
func (d *AsyncDispatcher) SendToPledger(ctx context.Context, pledge *model.Pledge, n Notification) {
	switch {
	case pledge.ByUserID != nil:
		d.deliver(Audience{Kind: AudienceUser, ID: *pledge.ByUserID}, n)
	case pledge.ByOrganizationID != nil:
		d.deliver(Audience{Kind: AudienceOrgMembers, ID: *pledge.ByOrganizationID}, n)
	case pledge.Email != "":
		d.deliver(Audience{Kind: AudienceEmail, Email: pledge.Email}, n)
	default:
		logger.Warn("Pledge %s has no reachable pledger, dropping %s", pledge.ID, n.Type)
	}
}

func (d *AsyncDispatcher) deliver(audience Audience, n Notification) {
	d.submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := d.sink.Deliver(ctx, audience, n); err != nil {
			logger.Error("Failed to deliver %s to %s %s: %v", n.Type, audience.Kind, audience.ID, err)
		}
	})
}

// SendWebhook implements Dispatcher.
func (d *AsyncDispatcher) SendWebhook(ctx context.Context, org *model.Organization, event WebhookEventType, payload interface{}) {
	if org.WebhookURL == "" {
		return
	}

	url := org.WebhookURL
	orgID := org.ID
	d.submit(func() {
		if err := d.postWebhook(url, event, payload); err != nil {
			logger.Error("Failed to send %s webhook to org %s: %v", event, orgID, err)
		}
	})
}

func (d *AsyncDispatcher) postWebhook(url string, event WebhookEventType, payload interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"type": event,
		"data": payload,
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode webhook payload")
	}

	resp, err := d.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "failed to post webhook to %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.Errorf("webhook endpoint %s returned status %d", url, resp.StatusCode)
	}
	return nil
}
