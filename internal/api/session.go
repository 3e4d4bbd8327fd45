package api

import (
	"context"
	"net/http"

	"github.com/trailblaze/fieldops/internal/models"
)

// Notifications fetches the caller's notifications.
func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var ns []models.Notification
	err := c.doJSON(ctx, http.MethodGet, "/notify-out/notifications", nil, &ns)
	return ns, err
}

// Logout invalidates the token on the backend.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/logout/jwt", nil, nil)
}
