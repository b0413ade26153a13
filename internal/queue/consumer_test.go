package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/pdfocr/internal/errors"
	"github.com/adverant/nexus/pdfocr/internal/extract"
	"github.com/adverant/nexus/pdfocr/internal/storage"
)

type fakeExtractor struct {
	result *extract.Result
	err    error
	// block waits for ctx cancellation before returning.
	block bool
	pages int

	got extract.Request
}

func (f *fakeExtractor) Run(ctx context.Context, req extract.Request) (*extract.Result, error) {
	f.got = req
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	for i := 1; i <= f.pages; i++ {
		if req.OnPage != nil {
			req.OnPage(i, f.pages)
		}
	}
	return f.result, f.err
}

type memoryStore struct {
	mu        sync.Mutex
	updates   []storage.JobUpdate
	completed *extract.Result
	failWith  error
}

func (m *memoryStore) UpdateJobStatus(ctx context.Context, update *storage.JobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, *update)
	return nil
}

func (m *memoryStore) CompleteJob(ctx context.Context, update *storage.JobUpdate, result *extract.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.completed = result
	m.updates = append(m.updates, *update)
	return nil
}

func (m *memoryStore) last() storage.JobUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates[len(m.updates)-1]
}

func newTask(t *testing.T, data *JobData) *asynq.Task {
	t.Helper()
	task, err := NewExtractTask(data)
	require.NoError(t, err)
	return task
}

func TestProcessTaskCompletesJob(t *testing.T) {
	result := extract.Assemble("a.pdf", []extract.PageResult{{Number: 1, Text: "hello", Image: "aW1n"}}, false)
	extractor := &fakeExtractor{result: result, pages: 2}
	store := &memoryStore{}
	h := NewHandler(extractor, store, time.Minute, nil)

	err := h.ProcessTask(context.Background(), newTask(t, &JobData{
		JobID:      "job-1",
		Filename:   "a.pdf",
		Diagrams:   true,
		FileBuffer: []byte("%PDF-1.4"),
	}))
	require.NoError(t, err)

	assert.Equal(t, "job-1", extractor.got.JobID)
	assert.Equal(t, []byte("%PDF-1.4"), extractor.got.Data)
	assert.True(t, extractor.got.Diagrams)
	assert.Same(t, result, store.completed)

	require.Len(t, store.updates, 4)
	assert.Equal(t, storage.StatusProcessing, store.updates[0].Status)
	assert.Equal(t, 50, store.updates[1].Progress)
	assert.Equal(t, 100, store.updates[2].Progress)
	assert.Equal(t, 2, store.updates[2].Pages)
	assert.Equal(t, "job-1", store.last().JobID)
}

func TestProcessTaskRecordsFailure(t *testing.T) {
	extractor := &fakeExtractor{err: errors.NewOCRFailedError(2, stderrors.New("tesseract crashed"))}
	store := &memoryStore{}
	h := NewHandler(extractor, store, time.Minute, nil)

	err := h.ProcessTask(context.Background(), newTask(t, &JobData{JobID: "job-2", FileBuffer: []byte("x")}))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, asynq.SkipRetry))

	last := store.last()
	assert.Equal(t, storage.StatusFailed, last.Status)
	assert.Equal(t, string(errors.ErrorOCRFailed), last.ErrorCode)
	assert.NotEmpty(t, last.ErrorMessage)
	assert.Equal(t, "job-2", last.Metadata["job_id"])
	assert.Nil(t, store.completed)
}

func TestProcessTaskTimesOut(t *testing.T) {
	extractor := &fakeExtractor{block: true}
	store := &memoryStore{}
	h := NewHandler(extractor, store, 20*time.Millisecond, nil)

	err := h.ProcessTask(context.Background(), newTask(t, &JobData{JobID: "job-3", FileBuffer: []byte("x")}))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, asynq.SkipRetry))
	assert.Equal(t, string(errors.ErrorProcessingTimeout), store.last().ErrorCode)
}

func TestProcessTaskStorageFailure(t *testing.T) {
	extractor := &fakeExtractor{result: extract.Assemble("a.pdf", nil, false)}
	store := &memoryStore{failWith: stderrors.New("redis down")}
	h := NewHandler(extractor, store, time.Minute, nil)

	err := h.ProcessTask(context.Background(), newTask(t, &JobData{JobID: "job-4", FileBuffer: []byte("x")}))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, asynq.SkipRetry))
	assert.Contains(t, err.Error(), string(errors.ErrorStorageFailed))
}

func TestProcessTaskRejectsBadPayload(t *testing.T) {
	h := NewHandler(&fakeExtractor{}, &memoryStore{}, time.Minute, nil)

	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeExtractText, []byte("{not json")))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, asynq.SkipRetry))
}

func TestJobDataAcceptsBase64AndBufferObject(t *testing.T) {
	var fromBase64 JobData
	require.NoError(t, json.Unmarshal([]byte(`{"jobId":"a","fileBuffer":"JVBERg=="}`), &fromBase64))
	assert.Equal(t, "a", fromBase64.JobID)
	assert.Equal(t, []byte("%PDF"), fromBase64.FileBuffer)

	var fromBuffer JobData
	require.NoError(t, json.Unmarshal([]byte(`{"jobId":"b","fileBuffer":{"type":"Buffer","data":[37,80,68,70]}}`), &fromBuffer))
	assert.Equal(t, []byte("%PDF"), fromBuffer.FileBuffer)

	var bad JobData
	assert.Error(t, json.Unmarshal([]byte(`{"fileBuffer":{"type":"Buffer","data":[300]}}`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`{"fileBuffer":{"type":"Blob"}}`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`{"fileBuffer":42}`), &bad))
}

func TestNewExtractTask(t *testing.T) {
	_, err := NewExtractTask(&JobData{FileBuffer: []byte("x")})
	assert.Error(t, err)
	_, err = NewExtractTask(&JobData{JobID: "a"})
	assert.Error(t, err)

	data := &JobData{JobID: "a", Filename: "f.pdf", FileBuffer: []byte("%PDF")}
	task, err := NewExtractTask(data)
	require.NoError(t, err)
	assert.Equal(t, TypeExtractText, task.Type())
	assert.Equal(t, int64(4), data.FileSize)

	var decoded JobData
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, data.FileBuffer, decoded.FileBuffer)
	assert.Equal(t, "f.pdf", decoded.Filename)
}

func TestConfigValidation(t *testing.T) {
	h := NewHandler(&fakeExtractor{}, &memoryStore{}, 0, nil)
	assert.Equal(t, DefaultProcessingTimeout, h.timeout)

	_, err := NewConsumer(&ConsumerConfig{QueueName: "q", Handler: h})
	assert.Error(t, err)
	_, err = NewConsumer(&ConsumerConfig{RedisURL: "redis://localhost:6379", Handler: h})
	assert.Error(t, err)
	_, err = NewConsumer(&ConsumerConfig{RedisURL: "redis://localhost:6379", QueueName: "q"})
	assert.Error(t, err)

	_, err = NewProducer(ProducerConfig{QueueName: "q"})
	assert.Error(t, err)
	_, err = NewProducer(ProducerConfig{RedisURL: "redis://localhost:6379"})
	assert.Error(t, err)
}

func TestProducerTaskOptions(t *testing.T) {
	p := &Producer{queueName: "pdfocr", timeout: time.Minute}
	opts := p.taskOptions("job-1")
	require.Len(t, opts, 4)
	assert.Equal(t, asynq.QueueOpt, opts[0].Type())
	assert.Equal(t, "pdfocr", opts[0].Value())
	assert.Equal(t, "job-1", opts[1].Value())
	assert.Equal(t, 0, opts[2].Value())
	assert.Equal(t, 90*time.Second, opts[3].Value())
}

func TestConsumerStatisticsCountOutcomes(t *testing.T) {
	result := extract.Assemble("a.pdf", []extract.PageResult{{Number: 1, Text: "hello", Image: "aW1n"}}, false)
	h := NewHandler(&fakeExtractor{result: result}, &memoryStore{}, time.Minute, nil)
	c, err := NewConsumer(&ConsumerConfig{RedisURL: "redis://localhost:6379", QueueName: "pdfocr", Handler: h})
	require.NoError(t, err)

	require.NoError(t, h.ProcessTask(context.Background(), newTask(t, &JobData{JobID: "job-1", FileBuffer: []byte("x")})))
	require.NoError(t, h.ProcessTask(context.Background(), newTask(t, &JobData{JobID: "job-2", FileBuffer: []byte("x")})))
	h.extractor = &fakeExtractor{err: errors.NewOCRFailedError(1, stderrors.New("tesseract crashed"))}
	require.Error(t, h.ProcessTask(context.Background(), newTask(t, &JobData{JobID: "job-3", FileBuffer: []byte("x")})))

	assert.Equal(t, map[string]interface{}{
		"concurrency": 4,
		"queue":       "pdfocr",
		"completed":   int64(2),
		"failed":      int64(1),
	}, c.GetStatistics())
}
