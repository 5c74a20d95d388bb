package directory

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cuongbtq/jobmatch-applications/internal/api/domain"
)

// UserClient resolves user facts from the user service
type UserClient struct {
	client *trpcClient
}

// NewUserClient creates a new UserClient
func NewUserClient(config Config, logger *slog.Logger) *UserClient {
	return &UserClient{client: newTRPCClient(config, logger)}
}

// GetUser returns the user or domain.ErrUserNotFound
func (c *UserClient) GetUser(ctx context.Context, userID string) (*domain.UserFact, error) {
	user, err := query[domain.UserFact](ctx, c.client, "user.getById", map[string]string{"userId": userID})
	if errors.Is(err, errNoData) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
