package kafka

import (
	"context"
	stderrors "errors"
	"io"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScreen/internal/domain/run"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/internal/intelligence/common"
	"github.com/turtacn/ChemScreen/pkg/errors"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

func sampleRun(t *testing.T) *run.Run {
	t.Helper()
	rn, err := run.NewRun(mtypes.ClassAntibacterial, 42)
	require.NoError(t, err)
	rn.TotalRows = 120
	rn.TrainRows = 84
	rn.ValidationRows = 36
	rn.DroppedRows = 3
	rn.Reports = map[string]*common.Report{
		"random_forest": {Model: "random_forest", Accuracy: 0.92, AUC: 0.95},
	}
	return rn
}

func TestNewRunEventCompleted(t *testing.T) {
	rn := sampleRun(t)
	rn.Complete()

	ev := NewRunEvent(EventRunCompleted, rn)
	assert.Equal(t, EventRunCompleted, ev.Type)
	assert.Equal(t, rn.ID.String(), ev.RunID)
	assert.Equal(t, string(mtypes.ClassAntibacterial), ev.Positive)
	assert.Equal(t, int64(42), ev.Seed)
	require.NotNil(t, ev.Summary)
	assert.Equal(t, 120, ev.Summary.TotalRows)
	assert.Equal(t, 36, ev.Summary.ValidationRows)
	assert.Equal(t, 3, ev.Summary.DroppedRows)
	assert.InDelta(t, 0.95, ev.Summary.ModelAUC["random_forest"], 1e-12)
	assert.Empty(t, ev.Error)
}

func TestNewRunEventFailed(t *testing.T) {
	rn := sampleRun(t)
	rn.Fail(stderrors.New("descriptor extraction blew up"))

	ev := NewRunEvent(EventRunFailed, rn)
	assert.Equal(t, EventRunFailed, ev.Type)
	assert.Nil(t, ev.Summary)
	assert.Contains(t, ev.Error, "blew up")
}

func TestRunEventRoundTrip(t *testing.T) {
	rn := sampleRun(t)
	rn.Complete()
	ev := NewRunEvent(EventRunCompleted, rn)

	data, err := ev.Encode()
	require.NoError(t, err)

	decoded, err := DecodeRunEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ev.RunID, decoded.RunID)
	assert.Equal(t, ev.Type, decoded.Type)
	require.NotNil(t, decoded.Summary)
	assert.Equal(t, ev.Summary.TotalRows, decoded.Summary.TotalRows)
}

func TestDecodeRunEventRejectsBadInput(t *testing.T) {
	_, err := DecodeRunEvent([]byte("not json"))
	require.Error(t, err)

	_, err = DecodeRunEvent([]byte(`{"type":"run.exploded","run_id":"x"}`))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSerialization, errors.GetCode(err))
}

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestProducerPublish(t *testing.T) {
	fw := &fakeWriter{}
	p := &Producer{writer: fw, logger: logging.NewNop()}

	rn := sampleRun(t)
	rn.Complete()
	require.NoError(t, p.Publish(context.Background(), EventRunCompleted, rn))

	require.Len(t, fw.msgs, 1)
	assert.Equal(t, rn.ID.String(), string(fw.msgs[0].Key))

	ev, err := DecodeRunEvent(fw.msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, EventRunCompleted, ev.Type)

	require.NoError(t, p.Close())
	assert.True(t, fw.closed)
}

func TestProducerPublishWriteError(t *testing.T) {
	fw := &fakeWriter{err: stderrors.New("broker unreachable")}
	p := &Producer{writer: fw, logger: logging.NewNop()}

	err := p.Publish(context.Background(), EventRunStarted, sampleRun(t))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeMessagingError, errors.GetCode(err))
}

type fakeReader struct {
	msgs []kafkago.Message
	pos  int
}

func (f *fakeReader) ReadMessage(_ context.Context) (kafkago.Message, error) {
	if f.pos >= len(f.msgs) {
		return kafkago.Message{}, io.EOF
	}
	m := f.msgs[f.pos]
	f.pos++
	return m, nil
}

func (f *fakeReader) Close() error { return nil }

func TestConsumerDispatchesEvents(t *testing.T) {
	rn := sampleRun(t)
	started := NewRunEvent(EventRunStarted, rn)
	rn.Complete()
	completed := NewRunEvent(EventRunCompleted, rn)

	startedData, err := started.Encode()
	require.NoError(t, err)
	completedData, err := completed.Encode()
	require.NoError(t, err)

	fr := &fakeReader{msgs: []kafkago.Message{
		{Value: startedData},
		{Value: []byte("garbage")}, // skipped, not fatal
		{Value: completedData},
	}}
	c := &Consumer{reader: fr, logger: logging.NewNop()}

	var seen []EventType
	err = c.Consume(context.Background(), func(ev RunEvent) error {
		seen = append(seen, ev.Type)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []EventType{EventRunStarted, EventRunCompleted}, seen)
}

func TestConsumerHandlerErrorStopsLoop(t *testing.T) {
	rn := sampleRun(t)
	ev := NewRunEvent(EventRunStarted, rn)
	data, err := ev.Encode()
	require.NoError(t, err)

	fr := &fakeReader{msgs: []kafkago.Message{{Value: data}, {Value: data}}}
	c := &Consumer{reader: fr, logger: logging.NewNop()}

	calls := 0
	err = c.Consume(context.Background(), func(RunEvent) error {
		calls++
		return stderrors.New("stop here")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNewProducerAndConsumerDefaults(t *testing.T) {
	p := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}}, nil)
	require.NotNil(t, p)
	w, ok := p.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, DefaultTopic, w.Topic)
	require.NoError(t, p.Close())

	c := NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9092"}, GroupID: "g"}, nil)
	require.NotNil(t, c)
	require.NoError(t, c.Close())
}
