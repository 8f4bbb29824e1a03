package notify

import (
	"context"

	"github.com/blues/pledges/internal/model"
	"github.com/google/uuid"
)

// Dispatcher delivers notifications and webhooks asynchronously. Delivery
// failures are the dispatcher's concern, not the caller's: no method
// returns an error and none blocks on the transport.
type Dispatcher interface {
	// SendToOrgMembers notifies every member of an organization.
	SendToOrgMembers(ctx context.Context, orgID uuid.UUID, n Notification)

	// SendToUser notifies one user.
	SendToUser(ctx context.Context, userID uuid.UUID, n Notification)

	// SendToPledger notifies whoever made the pledge: the pledging user,
	// the pledging org's members, or the stored email for anonymous
	// pledges.
	SendToPledger(ctx context.Context, pledge *model.Pledge, n Notification)

	// SendWebhook posts an event to the organization's webhook endpoint.
	SendWebhook(ctx context.Context, org *model.Organization, event WebhookEventType, payload interface{})
}
