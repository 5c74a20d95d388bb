package directory

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cuongbtq/jobmatch-applications/internal/api/domain"
)

// JobClient resolves job facts from the job service
type JobClient struct {
	client *trpcClient
}

// NewJobClient creates a new JobClient
func NewJobClient(config Config, logger *slog.Logger) *JobClient {
	return &JobClient{client: newTRPCClient(config, logger)}
}

// GetJob returns the job or domain.ErrJobNotFound
func (c *JobClient) GetJob(ctx context.Context, jobID string) (*domain.JobFact, error) {
	job, err := query[domain.JobFact](ctx, c.client, "job.getJob", map[string]string{"jobId": jobID})
	if errors.Is(err, errNoData) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}
