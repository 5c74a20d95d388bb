package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/jobmatch-applications/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAppID = "5b1c2a52-6a4e-4b8f-9f0e-0d3c1f9a7e21"

type settlement struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAcknowledger struct {
	settled chan settlement
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.settled <- settlement{tag: tag, ack: true}
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.settled <- settlement{tag: tag, requeue: requeue}
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type fakeSource struct {
	deliveries chan amqp.Delivery
	qosErr     error
	prefetch   int
	tag        string
}

func (s *fakeSource) Qos(prefetchCount int) error {
	s.prefetch = prefetchCount
	return s.qosErr
}

func (s *fakeSource) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	s.tag = consumerTag
	return s.deliveries, nil
}

type fakeDedup struct {
	mu          sync.Mutex
	claimed     map[string]bool
	completed   []string
	released    []string
	claimErr    error
	completeErr error
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{claimed: map[string]bool{}}
}

func (d *fakeDedup) Claim(ctx context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.claimErr != nil {
		return false, d.claimErr
	}
	if d.claimed[key] {
		return false, nil
	}
	d.claimed[key] = true
	return true, nil
}

func (d *fakeDedup) Complete(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.completeErr != nil {
		return d.completeErr
	}
	d.completed = append(d.completed, key)
	return nil
}

func (d *fakeDedup) completedKeys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.completed...)
}

func (d *fakeDedup) Release(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.claimed, key)
	d.released = append(d.released, key)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	sent     []events.Event
	failures int
}

func (n *fakeNotifier) Notify(ctx context.Context, event events.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failures > 0 {
		n.failures--
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, event)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type harness struct {
	worker   *Worker
	source   *fakeSource
	dedup    *fakeDedup
	notifier *fakeNotifier
	acker    *fakeAcknowledger
	cancel   context.CancelFunc
	done     chan error
}

func startHarness(t *testing.T, notifier *fakeNotifier, dedup *fakeDedup) *harness {
	t.Helper()

	h := &harness{
		source:   &fakeSource{deliveries: make(chan amqp.Delivery)},
		dedup:    dedup,
		notifier: notifier,
		acker:    &fakeAcknowledger{settled: make(chan settlement, 16)},
		done:     make(chan error, 1),
	}
	h.worker = NewWorker(&Config{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Source:      h.source,
		Dedup:       dedup,
		Notifier:    notifier,
		WorkerID:    "worker-test",
		Concurrency: 2,
		JobTimeout:  time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.worker.Start(ctx) }()

	t.Cleanup(func() {
		cancel()
		h.worker.Stop()
	})
	return h
}

func (h *harness) deliver(t *testing.T, tag uint64, body []byte, messageID string) settlement {
	t.Helper()

	h.source.deliveries <- amqp.Delivery{
		Acknowledger: h.acker,
		DeliveryTag:  tag,
		MessageId:    messageID,
		Body:         body,
	}

	select {
	case s := <-h.acker.settled:
		require.Equal(t, tag, s.tag)
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("delivery %d was not settled", tag)
		return settlement{}
	}
}

func acceptedEvent(t *testing.T) ([]byte, string) {
	t.Helper()
	event := events.NewApplicationAccepted(testAppID, "seeker@example.com", "Ann Lee", "Backend Engineer", "Acme")
	body, err := events.Encode(event)
	require.NoError(t, err)
	return body, events.DedupKey(event)
}

func TestWorker_DeliversUniqueEvents(t *testing.T) {
	dedup := newFakeDedup()
	h := startHarness(t, &fakeNotifier{}, dedup)
	body, key := acceptedEvent(t)

	s := h.deliver(t, 1, body, key)
	assert.True(t, s.ack)
	assert.Equal(t, 1, h.notifier.count())
	assert.Equal(t, []string{key}, dedup.completedKeys())
	assert.Equal(t, "worker-test", h.source.tag)
	assert.Equal(t, defaultPrefetchCount, h.source.prefetch)
}

func TestWorker_SkipsDuplicates(t *testing.T) {
	h := startHarness(t, &fakeNotifier{}, newFakeDedup())
	body, key := acceptedEvent(t)

	assert.True(t, h.deliver(t, 1, body, key).ack)
	assert.True(t, h.deliver(t, 2, body, key).ack, "duplicates are acknowledged")
	assert.Equal(t, 1, h.notifier.count())
}

func TestWorker_DropsMalformedMessages(t *testing.T) {
	h := startHarness(t, &fakeNotifier{}, newFakeDedup())

	tests := []struct {
		name string
		body []byte
	}{
		{name: "not json", body: []byte("{not json")},
		{name: "unknown type", body: []byte(`{"type":"APPLICATION_WITHDRAWN","applicationId":"` + testAppID + `"}`)},
		{name: "missing fields", body: []byte(`{"type":"APPLICATION_ACCEPTED","applicationId":"` + testAppID + `"}`)},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := h.deliver(t, uint64(i+1), tt.body, "")
			assert.False(t, s.ack)
			assert.False(t, s.requeue)
		})
	}
	assert.Zero(t, h.notifier.count())
}

func TestWorker_RequeuesNotifierFailures(t *testing.T) {
	dedup := newFakeDedup()
	h := startHarness(t, &fakeNotifier{failures: 1}, dedup)
	body, key := acceptedEvent(t)

	s := h.deliver(t, 1, body, key)
	assert.False(t, s.ack)
	assert.True(t, s.requeue)
	assert.Equal(t, []string{key}, dedup.released)
	assert.Empty(t, dedup.completedKeys(), "failed notifications are not completed")

	// the redelivery is not treated as a duplicate
	assert.True(t, h.deliver(t, 2, body, key).ack)
	assert.Equal(t, 1, h.notifier.count())
}

func TestWorker_AcksWhenCompletionFails(t *testing.T) {
	dedup := newFakeDedup()
	dedup.completeErr = errors.New("redis down")
	h := startHarness(t, &fakeNotifier{}, dedup)
	body, key := acceptedEvent(t)

	s := h.deliver(t, 1, body, key)
	assert.True(t, s.ack, "the notification was sent")
	assert.Equal(t, 1, h.notifier.count())
	assert.Empty(t, dedup.released)
}

func TestWorker_RequeuesDedupStoreFailures(t *testing.T) {
	dedup := newFakeDedup()
	dedup.claimErr = errors.New("redis down")
	h := startHarness(t, &fakeNotifier{}, dedup)
	body, key := acceptedEvent(t)

	s := h.deliver(t, 1, body, key)
	assert.False(t, s.ack)
	assert.True(t, s.requeue)
	assert.Zero(t, h.notifier.count())
}

func TestWorker_StartErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("qos failure", func(t *testing.T) {
		w := NewWorker(&Config{
			Logger: logger,
			Source: &fakeSource{qosErr: errors.New("channel closed")},
		})
		err := w.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to set QoS")
	})

	t.Run("delivery channel closed", func(t *testing.T) {
		source := &fakeSource{deliveries: make(chan amqp.Delivery)}
		close(source.deliveries)
		w := NewWorker(&Config{
			Logger:   logger,
			Source:   source,
			Dedup:    newFakeDedup(),
			Notifier: &fakeNotifier{},
		})

		err := w.Start(context.Background())
		assert.ErrorIs(t, err, ErrDeliveriesClosed)
		w.Stop()
	})
}

func TestWorker_StopsOnCancel(t *testing.T) {
	h := startHarness(t, &fakeNotifier{}, newFakeDedup())
	h.cancel()

	select {
	case err := <-h.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, resultDelivered, outcome(nil))
	assert.Equal(t, resultDuplicate, outcome(ErrDuplicateDelivery))
	assert.Equal(t, resultMalformed, outcome(errors.Join(ErrMalformedEvent, errors.New("bad json"))))
	assert.Equal(t, resultRetry, outcome(NewRetryableError(errors.New("timeout"))))
	assert.Equal(t, resultFailed, outcome(errors.New("unexpected")))
}
