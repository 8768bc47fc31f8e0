package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducerPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "index.complete")

	err := p.Publish(context.Background(), "run-1", map[string]int{"terms": 7})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "run-1", string(w.msgs[0].Key))

	var got map[string]int
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, 7, got["terms"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducerPublishError(t *testing.T) {
	boom := errors.New("leader not available")
	p := newProducer(&fakeWriter{err: boom}, "index.complete")
	err := p.Publish(context.Background(), "k", "v")
	assert.ErrorIs(t, err, boom)
}

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.pending[0]
	r.pending = r.pending[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func okHandler(seen *[]bool) Handler {
	return func(_ context.Context, _, value []byte) error {
		v, err := Decode[struct {
			OK bool `json:"ok"`
		}](value)
		if err != nil {
			return Discard(err)
		}
		*seen = append(*seen, v.OK)
		if !v.OK {
			return errors.New("rejected")
		}
		return nil
	}
}

func TestConsumerStopsBeforeCommittingPastFailure(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{
		{Partition: 0, Offset: 1, Value: []byte(`{"ok":true}`)},
		{Partition: 0, Offset: 2, Value: []byte(`{"ok":false}`)},
		{Partition: 0, Offset: 3, Value: []byte(`{"ok":true}`)},
	}}
	var seen []bool

	err := newConsumer(r, "index.complete", okHandler(&seen)).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset 2")
	assert.Equal(t, []bool{true, false}, seen)
	assert.Equal(t, []int64{1}, r.committed)
	assert.Len(t, r.pending, 1, "messages after the failure stay unfetched")
}

func TestConsumerCommitsDiscardedMessages(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{
		{Offset: 1, Value: []byte(`{"ok":true}`)},
		{Offset: 2, Value: []byte("{not json")},
		{Offset: 3, Value: []byte(`{"ok":true}`)},
	}}
	var seen []bool

	err := newConsumer(r, "index.complete", okHandler(&seen)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, seen)
	assert.Equal(t, []int64{1, 2, 3}, r.committed)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode[map[string]any]([]byte("{not json"))
	assert.Error(t, err)
}
