package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oip/rfmengine/common/entity"
	"oip/rfmengine/common/model"
	"oip/rfmengine/internal/business"
	"oip/rfmengine/internal/domains/common"
	"oip/rfmengine/internal/framework"
	"oip/rfmengine/pkg/config"
	"oip/rfmengine/pkg/logger"
)

// memoryQueue 进程内队列：每个 job 只投递一次
type memoryQueue struct {
	mu        sync.Mutex
	pending   []*framework.Message
	acked     []string
	callbacks []model.RFMJobCallback
}

func (q *memoryQueue) Consume(queue string, _ time.Duration, _ time.Duration) (*framework.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		time.Sleep(time.Millisecond)
		return nil, nil
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	msg.Queue = queue
	return msg, nil
}

func (q *memoryQueue) Ack(_ string, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, jobID)
	return nil
}

func (q *memoryQueue) PublishJSON(_ string, v interface{}) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.callbacks = append(q.callbacks, v.(model.RFMJobCallback))
	return "cb", nil
}

func (q *memoryQueue) snapshot() ([]string, []model.RFMJobCallback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...), append([]model.RFMJobCallback(nil), q.callbacks...)
}

type fakeCalculator struct {
	mu   sync.Mutex
	reqs []business.CalculateRequest
	err  error
}

func (c *fakeCalculator) Calculate(_ context.Context, req business.CalculateRequest) (*business.RunResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	if c.err != nil {
		return nil, c.err
	}
	return &business.RunResult{RunID: "run", Status: entity.RunStatusCompleted}, nil
}

func workerConfig() *config.Config {
	return &config.Config{
		RFM: config.RFMConfig{RunTimeout: time.Minute},
		Workers: []config.WorkerConfig{{
			Name:          "rfm-worker",
			QueueName:     "rfm_jobs",
			CallbackQueue: "rfm_callbacks",
			Subscriber:    config.SubscriberConfig{Threads: 1, ErrorBackoff: time.Millisecond},
			Processor:     config.ProcessorConfig{Threads: 1, BufferSize: 1},
		}},
	}
}

func TestManager_ProcessesJobsAndShutsDown(t *testing.T) {
	raw, err := json.Marshal(model.NewRFMJob("req-9", model.ActionRFMCalculate, "rfm",
		model.RFMCalculateData{AsOf: "2026-03-01"}))
	require.NoError(t, err)

	queue := &memoryQueue{pending: []*framework.Message{{ID: "job-9", Data: raw}}}
	calc := &fakeCalculator{}
	m, err := newManager(workerConfig(), queue, &common.Deps{Calculator: calc}, logger.NewNop())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, m.Start())
	}()

	require.Eventually(t, func() bool {
		acked, _ := queue.snapshot()
		return len(acked) == 1
	}, 5*time.Second, 5*time.Millisecond)

	m.Shutdown()
	m.Shutdown()
	<-done

	acked, callbacks := queue.snapshot()
	assert.Equal(t, []string{"job-9"}, acked)
	require.Len(t, callbacks, 1)
	assert.Equal(t, "req-9", callbacks[0].RequestID)
	assert.Equal(t, model.CallbackStatusSuccess, callbacks[0].Status)

	require.Len(t, calc.reqs, 1)
	assert.Equal(t, model.TriggerQueue, calc.reqs[0].Trigger)
}

func TestManager_InvalidSchedulerSpec(t *testing.T) {
	cfg := workerConfig()
	cfg.Scheduler = config.SchedulerConfig{Enabled: true, Spec: "every night"}
	_, err := newManager(cfg, &memoryQueue{}, &common.Deps{Calculator: &fakeCalculator{}}, logger.NewNop())
	assert.Error(t, err)
}

func TestScheduler_Next(t *testing.T) {
	s, err := NewScheduler("0 3 * * *", &fakeCalculator{}, 0, logger.NewNop())
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC), s.Next(now))
}

func TestScheduler_RunOnce(t *testing.T) {
	calc := &fakeCalculator{}
	s, err := NewScheduler("0 3 * * *", calc, time.Minute, logger.NewNop())
	require.NoError(t, err)

	s.RunOnce(context.Background())
	require.Len(t, calc.reqs, 1)
	assert.Equal(t, model.TriggerScheduler, calc.reqs[0].Trigger)
	assert.True(t, calc.reqs[0].AsOf.IsZero(), "scheduler uses the default as-of")

	calc.err = business.ErrCalculationInProgress
	s.RunOnce(context.Background())
	assert.Len(t, calc.reqs, 2)
}

func TestScheduler_StopIsPrompt(t *testing.T) {
	s, err := NewScheduler("0 3 * * *", &fakeCalculator{}, 0, logger.NewNop())
	require.NoError(t, err)

	s.Start(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Stop()
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
