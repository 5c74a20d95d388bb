package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cuongbtq/jobmatch-applications/internal/api/domain"
	"github.com/cuongbtq/jobmatch-applications/internal/events"
)

// memStore is an in-memory Store with the same conditional write semantics as
// the Postgres store
type memStore struct {
	mu   sync.Mutex
	apps map[string]domain.Application

	createErr error
	updateErr error
	readErr   error
}

func newMemStore() *memStore {
	return &memStore{apps: make(map[string]domain.Application)}
}

func (m *memStore) Create(_ context.Context, app *domain.Application, policy domain.ReapplicationPolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.apps {
		if existing.JobID == app.JobID && existing.JobSeekerID == app.JobSeekerID && policy.Blocks(existing.Status) {
			return domain.ErrDuplicateApplication
		}
	}
	if _, ok := m.apps[app.ID]; ok {
		return domain.ErrDuplicateApplication
	}
	m.apps[app.ID] = *app
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readErr != nil {
		return nil, m.readErr
	}
	app, ok := m.apps[id]
	if !ok {
		return nil, nil
	}
	return &app, nil
}

func (m *memStore) GetByJobSeekerID(_ context.Context, id string) ([]domain.Application, error) {
	return m.filter(func(a domain.Application) bool { return a.JobSeekerID == id })
}

func (m *memStore) GetByJobID(_ context.Context, id string) ([]domain.Application, error) {
	return m.filter(func(a domain.Application) bool { return a.JobID == id })
}

func (m *memStore) filter(keep func(domain.Application) bool) ([]domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readErr != nil {
		return nil, m.readErr
	}
	var out []domain.Application
	for _, a := range m.apps {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ExistsByJobAndJobSeeker(_ context.Context, jobID, jobSeekerID string, policy domain.ReapplicationPolicy) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readErr != nil {
		return false, m.readErr
	}
	for _, a := range m.apps {
		if a.JobID == jobID && a.JobSeekerID == jobSeekerID && policy.Blocks(a.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpdateStatus(_ context.Context, expected domain.Status, next domain.Application) (*domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return nil, m.updateErr
	}
	current, ok := m.apps[next.ID]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	if current.Status != expected {
		return nil, domain.ErrStatusConflict
	}
	current.Status = next.Status
	current.RespondedAt = next.RespondedAt
	current.UpdatedAt = next.UpdatedAt
	m.apps[next.ID] = current
	return &current, nil
}

func (m *memStore) put(app domain.Application) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[app.ID] = app
}

func (m *memStore) get(id string) domain.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apps[id]
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.apps)
}

var errDirectoryDown = errors.New("directory unavailable")

type fakeJobs struct {
	jobs   map[string]domain.JobFact
	broken map[string]bool
}

func (f *fakeJobs) GetJob(_ context.Context, jobID string) (*domain.JobFact, error) {
	if f.broken[jobID] {
		return nil, errDirectoryDown
	}
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return &job, nil
}

type fakeUsers struct {
	users  map[string]domain.UserFact
	broken map[string]bool
	// delay holds a lookup back until it elapses or ctx is done
	delay map[string]time.Duration
}

func (f *fakeUsers) GetUser(ctx context.Context, userID string) (*domain.UserFact, error) {
	if d := f.delay[userID]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.broken[userID] {
		return nil, errDirectoryDown
	}
	user, ok := f.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &user, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []events.Event
	calls  int
}

func (f *fakePublisher) Publish(_ context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return f.err
	}
	if err := events.Validate(event); err != nil {
		return err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) published() []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.Event(nil), f.events...)
}

func (f *fakePublisher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
