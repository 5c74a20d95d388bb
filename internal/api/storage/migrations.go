package storage

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS applications (
	application_id UUID PRIMARY KEY,
	job_id         TEXT        NOT NULL,
	job_seeker_id  TEXT        NOT NULL,
	status         TEXT        NOT NULL CHECK (status IN ('pending', 'accepted', 'rejected')),
	cover_letter   TEXT,
	cv_url         TEXT,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	responded_at   TIMESTAMPTZ,
	CHECK ((status = 'pending') = (responded_at IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_applications_job_seeker_id ON applications (job_seeker_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_applications_job_id ON applications (job_id, created_at DESC);
`

// Migrate creates the applications table and its indexes if they are missing
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
