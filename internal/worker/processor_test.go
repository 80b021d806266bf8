package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdhoang/marketplace-notify/internal/mailer"
	"github.com/tdhoang/marketplace-notify/internal/notify"
)

type sentEmail struct {
	To      string
	Subject string
	HTML    string
}

// fakeMailer records sends and fails on command
type fakeMailer struct {
	sent    []sentEmail
	failAt  int // 1-based index of the send that fails, 0 = never
	blockAt int // 1-based index of the send that blocks until ctx expires
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, html string) error {
	call := len(m.sent) + 1

	if m.blockAt == call {
		<-ctx.Done()
		return ctx.Err()
	}

	if m.failAt == call {
		return fmt.Errorf("provider rejected message")
	}

	m.sent = append(m.sent, sentEmail{To: to, Subject: subject, HTML: html})
	return nil
}

// fakeAcker records settlement outcomes
type fakeAcker struct {
	acked   []uint64
	nacked  []uint64
	requeue bool
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple bool, requeue bool) error {
	a.nacked = append(a.nacked, tag)
	a.requeue = requeue
	return nil
}

// fakeRecorder captures delivery history writes
type fakeRecorder struct {
	jobs    []*notify.Job
	failErr error
}

func (r *fakeRecorder) RecordDelivery(_ context.Context, job *notify.Job) error {
	if r.failErr != nil {
		return r.failErr
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func newTestWorker(m mailer.Mailer, r DeliveryRecorder) *Worker {
	return NewWorker(&Config{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Mailer:      m,
		Recorder:    r,
		Concurrency: 1,
		SendTimeout: 50 * time.Millisecond,
	})
}

func encodeJob(t *testing.T, kind notify.Kind) []byte {
	t.Helper()
	body, err := notify.Encode(&notify.Job{
		Kind:       kind,
		BuyerEmail: "b@x.com",
		BuyerName:  "Alice",
		OwnerEmail: "o@x.com",
		OwnerName:  "Bob",
		Items:      []notify.LineItem{{Name: "Desk Mat", Quantity: 1, Price: 25.5}},
		TotalPrice: 25.5,
	})
	require.NoError(t, err)
	return body
}

func TestProcessDeliveryPurchase(t *testing.T) {
	m := &fakeMailer{}
	a := &fakeAcker{}
	rec := &fakeRecorder{}
	w := newTestWorker(m, rec)

	body := encodeJob(t, notify.KindPurchase)
	err := w.processDelivery(context.Background(), body)
	require.NoError(t, err)

	require.Len(t, m.sent, 2)
	assert.Equal(t, "b@x.com", m.sent[0].To)
	assert.Equal(t, "Your order is confirmed", m.sent[0].Subject)
	assert.Equal(t, "o@x.com", m.sent[1].To)
	assert.Equal(t, "You sold an item", m.sent[1].Subject)

	require.Len(t, rec.jobs, 1)
	assert.Equal(t, notify.KindPurchase, rec.jobs[0].Kind)

	w.settle("test-worker", &delivery{Body: body, Tag: 7, acks: a}, err)
	assert.Equal(t, []uint64{7}, a.acked)
	assert.Empty(t, a.nacked)
}

func TestProcessDeliveryCancel(t *testing.T) {
	m := &fakeMailer{}
	w := newTestWorker(m, nil)

	err := w.processDelivery(context.Background(), encodeJob(t, notify.KindCancel))
	require.NoError(t, err)

	require.Len(t, m.sent, 2)
	assert.Equal(t, "Your order has been cancelled", m.sent[0].Subject)
	assert.Equal(t, "An order was cancelled", m.sent[1].Subject)
}

func TestProcessDeliveryOwnerSendFails(t *testing.T) {
	m := &fakeMailer{failAt: 2}
	a := &fakeAcker{}
	w := newTestWorker(m, nil)

	body := encodeJob(t, notify.KindPurchase)
	err := w.processDelivery(context.Background(), body)
	require.Error(t, err)

	// Buyer send happened before the owner send failed
	require.Len(t, m.sent, 1)
	assert.Equal(t, "b@x.com", m.sent[0].To)

	w.settle("test-worker", &delivery{Body: body, Tag: 3, acks: a}, err)
	assert.Empty(t, a.acked)
	assert.Equal(t, []uint64{3}, a.nacked)
	assert.True(t, a.requeue)
}

func TestProcessDeliveryAllSendsFail(t *testing.T) {
	m := &fakeMailer{failAt: 1}
	a := &fakeAcker{}
	w := newTestWorker(m, nil)

	body := encodeJob(t, notify.KindPurchase)
	err := w.processDelivery(context.Background(), body)
	require.Error(t, err)
	assert.Empty(t, m.sent)

	w.settle("test-worker", &delivery{Body: body, Tag: 9, acks: a}, err)
	assert.Equal(t, []uint64{9}, a.nacked)
	assert.True(t, a.requeue)
}

func TestProcessDeliverySendTimeout(t *testing.T) {
	m := &fakeMailer{blockAt: 1}
	a := &fakeAcker{}
	w := newTestWorker(m, nil)

	body := encodeJob(t, notify.KindPurchase)
	err := w.processDelivery(context.Background(), body)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	w.settle("test-worker", &delivery{Body: body, Tag: 4, acks: a}, err)
	assert.Equal(t, []uint64{4}, a.nacked)
	assert.True(t, a.requeue)
}

func TestPoisonMessagesAreDrained(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "malformed JSON", body: []byte(`{"type":`)},
		{name: "unknown kind", body: []byte(`{"type":"refund","buyerEmail":"b@x.com","ownerEmail":"o@x.com","items":[{"name":"Thing","quantity":1,"price":1}]}`)},
		{name: "missing items", body: []byte(`{"type":"purchase","buyerEmail":"b@x.com","ownerEmail":"o@x.com","items":[]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMailer{}
			a := &fakeAcker{}
			w := newTestWorker(m, nil)

			err := w.processDelivery(context.Background(), tt.body)
			require.Error(t, err)
			assert.True(t, isPoison(err))
			assert.Empty(t, m.sent)

			// Poison messages are acked away, never requeued
			w.settle("test-worker", &delivery{Body: tt.body, Tag: 11, acks: a}, err)
			assert.Equal(t, []uint64{11}, a.acked)
			assert.Empty(t, a.nacked)
		})
	}
}

func TestRecorderFailureDoesNotBlockAck(t *testing.T) {
	m := &fakeMailer{}
	a := &fakeAcker{}
	rec := &fakeRecorder{failErr: fmt.Errorf("database unavailable")}
	w := newTestWorker(m, rec)

	body := encodeJob(t, notify.KindPurchase)
	err := w.processDelivery(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, m.sent, 2)

	w.settle("test-worker", &delivery{Body: body, Tag: 5, acks: a}, err)
	assert.Equal(t, []uint64{5}, a.acked)
}

func TestWorkerPoolProcessesAndStops(t *testing.T) {
	m := &fakeMailer{}
	a := &fakeAcker{}
	w := newTestWorker(m, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.spawnWorkerPool(ctx)

	w.jobsChan <- &delivery{Body: encodeJob(t, notify.KindPurchase), Tag: 1, acks: a}
	w.jobsChan <- &delivery{Body: encodeJob(t, notify.KindCancel), Tag: 2, acks: a}

	w.Stop()

	assert.Len(t, m.sent, 4)
	assert.ElementsMatch(t, []uint64{1, 2}, a.acked)
}

// gatedMailer blocks its first send until released, then fails it. Later
// sends succeed.
type gatedMailer struct {
	release chan struct{}
	calls   int
}

func (m *gatedMailer) Send(_ context.Context, _, _, _ string) error {
	m.calls++
	if m.calls == 1 {
		<-m.release
		return fmt.Errorf("channel closed mid-send")
	}
	return nil
}

func TestInFlightDeliverySettlesOnItsOwnChannel(t *testing.T) {
	release := make(chan struct{})
	m := &gatedMailer{release: release}
	oldAcks := &fakeAcker{}
	newAcks := &fakeAcker{}
	w := newTestWorker(m, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.spawnWorkerPool(ctx)

	// Tag 42 arrives on the first channel and stalls inside the mailer
	w.jobsChan <- &delivery{Body: encodeJob(t, notify.KindPurchase), Tag: 42, acks: oldAcks}

	// The consumer re-subscribes while tag 42 is still in flight; later
	// deliveries carry the replacement channel. Tags restart per channel,
	// so the new channel also has a tag 42 waiting.
	close(release)
	w.jobsChan <- &delivery{Body: encodeJob(t, notify.KindCancel), Tag: 1, acks: newAcks}

	w.Stop()

	// The stalled delivery was rejected on the channel it arrived on, and
	// only there
	assert.Equal(t, []uint64{42}, oldAcks.nacked)
	assert.True(t, oldAcks.requeue)
	assert.Empty(t, oldAcks.acked)

	assert.Equal(t, []uint64{1}, newAcks.acked)
	assert.Empty(t, newAcks.nacked)
}

func TestDispatchStopRequeuesBlockedHandoff(t *testing.T) {
	a := &fakeAcker{}
	w := newTestWorker(&fakeMailer{}, nil)

	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- amqp.Delivery{Body: encodeJob(t, notify.KindPurchase), DeliveryTag: 8}

	// No pool goroutines: the handoff to jobsChan blocks until shutdown
	done := make(chan struct{})
	go func() {
		w.dispatch(context.Background(), deliveries, a)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}

	assert.Equal(t, []uint64{8}, a.nacked)
	assert.True(t, a.requeue)
	assert.Empty(t, a.acked)
}
