package domains

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/bitleak/lmstfy/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"oip/rfmengine/common/entity"
	"oip/rfmengine/common/model"
	"oip/rfmengine/internal/business"
	"oip/rfmengine/internal/domains/common"
	"oip/rfmengine/pkg/errorutil"
	"oip/rfmengine/pkg/lmstfyx"
	"oip/rfmengine/pkg/logger"
)

type mockCalculator struct {
	mock.Mock
}

func (m *mockCalculator) Calculate(ctx context.Context, req business.CalculateRequest) (*business.RunResult, error) {
	args := m.Called(ctx, req)
	run, _ := args.Get(0).(*business.RunResult)
	return run, args.Error(1)
}

type stubSeeder struct {
	n   int
	err error
}

func (s stubSeeder) SeedSegments(context.Context) (int, error) {
	return s.n, s.err
}

type recordingPublisher struct {
	mu        sync.Mutex
	callbacks []model.RFMJobCallback
}

func (p *recordingPublisher) PublishJSON(_ string, v interface{}) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, v.(model.RFMJobCallback))
	return "cb-1", nil
}

func encodeJob(t *testing.T, actionType string, data interface{}) *client.Job {
	t.Helper()
	raw, err := json.Marshal(model.NewRFMJob("req-1", actionType, "rfm", data))
	require.NoError(t, err)
	return &client.Job{ID: "job-1", Queue: "rfm_jobs", Data: raw}
}

func newProc(calc common.Calculator, seeder common.Seeder, pub *recordingPublisher) lmstfyx.Proc {
	return GetProcess(logger.NewNop(), &common.Deps{Calculator: calc, Seeder: seeder},
		Callback{Publisher: pub, Queue: "rfm_callbacks"})
}

func TestGetProcess_CalculateSuccess(t *testing.T) {
	calc := &mockCalculator{}
	calc.On("Calculate", mock.Anything, mock.MatchedBy(func(req business.CalculateRequest) bool {
		return req.Trigger == model.TriggerQueue && req.AsOf.Format(model.AsOfLayout) == "2026-03-01"
	})).Return(&business.RunResult{RunID: "run-1", Status: entity.RunStatusCompleted, Calculated: 12}, nil)
	pub := &recordingPublisher{}

	resp := newProc(calc, nil, pub)(context.Background(),
		encodeJob(t, model.ActionRFMCalculate, model.RFMCalculateData{AsOf: "2026-03-01"}))

	assert.Equal(t, lmstfyx.JobRespStatusSuccess, resp.Action)
	calc.AssertExpectations(t)

	require.Len(t, pub.callbacks, 1)
	cb := pub.callbacks[0]
	assert.Equal(t, "req-1", cb.RequestID)
	assert.Equal(t, model.CallbackStatusSuccess, cb.Status)
	assert.Contains(t, string(cb.Result), `"run_id":"run-1"`)
}

func TestGetProcess_RetryableFailureIsReleased(t *testing.T) {
	calc := &mockCalculator{}
	calc.On("Calculate", mock.Anything, mock.Anything).Return(nil, business.ErrCalculationInProgress)
	pub := &recordingPublisher{}

	resp := newProc(calc, nil, pub)(context.Background(), encodeJob(t, model.ActionRFMCalculate, nil))

	assert.Equal(t, lmstfyx.JobRespStatusRelease, resp.Action)
	assert.Empty(t, pub.callbacks, "released jobs run again, no callback yet")
}

func TestGetProcess_PartialIsFinal(t *testing.T) {
	tests := []struct {
		name      string
		retryable bool
	}{
		{"persist failures recommend retry", true},
		{"metric failures do not", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			partial := errorutil.Partial("rfm calculation partially failed: 1 of 10 customers")
			partial.Retryable = tt.retryable
			calc := &mockCalculator{}
			calc.On("Calculate", mock.Anything, mock.Anything).
				Return(&business.RunResult{RunID: "run-2", Status: entity.RunStatusPartial, Calculated: 9}, partial)
			pub := &recordingPublisher{}

			resp := newProc(calc, nil, pub)(context.Background(), encodeJob(t, model.ActionRFMCalculate, nil))

			assert.Equal(t, lmstfyx.JobRespStatusSuccess, resp.Action, "membership is already swapped, no redelivery")
			require.Len(t, pub.callbacks, 1)
			cb := pub.callbacks[0]
			assert.Equal(t, model.CallbackStatusPartial, cb.Status)
			assert.Equal(t, tt.retryable, cb.Retryable)
			assert.Contains(t, string(cb.Result), `"calculated":9`)
			assert.Contains(t, string(cb.Result), `"status":"PARTIAL"`)
			calc.AssertNumberOfCalls(t, "Calculate", 1)
		})
	}
}

func TestGetProcess_BadPayloads(t *testing.T) {
	calc := &mockCalculator{}
	pub := &recordingPublisher{}
	proc := newProc(calc, nil, pub)

	resp := proc(context.Background(), &client.Job{ID: "j", Data: []byte("not json")})
	assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)

	resp = proc(context.Background(), &client.Job{ID: "j", Data: []byte(`{"payload":{}}`)})
	assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)

	resp = proc(context.Background(), encodeJob(t, model.ActionRFMCalculate, model.RFMCalculateData{AsOf: "03/01/2026"}))
	assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)

	resp = proc(context.Background(), encodeJob(t, "order_diagnose", nil))
	assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)

	calc.AssertNotCalled(t, "Calculate", mock.Anything, mock.Anything)
	assert.Len(t, pub.callbacks, 2, "parsed jobs report their failure")
}

func TestGetProcess_Seed(t *testing.T) {
	pub := &recordingPublisher{}
	resp := newProc(nil, stubSeeder{n: 6}, pub)(context.Background(), encodeJob(t, model.ActionSegmentSeed, model.SegmentSeedData{}))
	assert.Equal(t, lmstfyx.JobRespStatusSuccess, resp.Action)
	require.Len(t, pub.callbacks, 1)
	assert.Contains(t, string(pub.callbacks[0].Result), `"segments":6`)

	resp = newProc(nil, stubSeeder{err: errorutil.Retriable("db down").WithCause(errors.New("dial tcp"))}, pub)(
		context.Background(), encodeJob(t, model.ActionSegmentSeed, nil))
	assert.Equal(t, lmstfyx.JobRespStatusRelease, resp.Action)
}

type panickingCalculator struct{}

func (panickingCalculator) Calculate(context.Context, business.CalculateRequest) (*business.RunResult, error) {
	panic("nil map")
}

func TestGetProcess_HandlerPanicIsBuried(t *testing.T) {
	pub := &recordingPublisher{}
	resp := newProc(panickingCalculator{}, nil, pub)(context.Background(), encodeJob(t, model.ActionRFMCalculate, nil))
	assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)
	require.Len(t, pub.callbacks, 1)
	assert.Contains(t, pub.callbacks[0].Error, "handler panic")
}
