package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sortbench/pkg/model"
)

// MockJobRepository is a mock implementation of the JobRepository interface.
type MockJobRepository struct {
	mock.Mock
}

// GetPendingJobs mocks the GetPendingJobs method.
func (m *MockJobRepository) GetPendingJobs(ctx context.Context, limit int) ([]*model.Job, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Job), args.Error(1)
}

// GetJobByID mocks the GetJobByID method.
func (m *MockJobRepository) GetJobByID(ctx context.Context, id int64) (*model.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Job), args.Error(1)
}

// GetJobByUUID mocks the GetJobByUUID method.
func (m *MockJobRepository) GetJobByUUID(ctx context.Context, jid string) (*model.Job, error) {
	args := m.Called(ctx, jid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Job), args.Error(1)
}

// CreateJob mocks the CreateJob method.
func (m *MockJobRepository) CreateJob(ctx context.Context, job *model.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// ClaimJob mocks the ClaimJob method.
func (m *MockJobRepository) ClaimJob(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// CompleteJob mocks the CompleteJob method.
func (m *MockJobRepository) CompleteJob(ctx context.Context, id int64, runStatus model.RunStatus, resultFile string) error {
	args := m.Called(ctx, id, runStatus, resultFile)
	return args.Error(0)
}

// FailJob mocks the FailJob method.
func (m *MockJobRepository) FailJob(ctx context.Context, id int64, info string) error {
	args := m.Called(ctx, id, info)
	return args.Error(0)
}

// ExpectGetPendingJobs sets up an expectation for GetPendingJobs.
func (m *MockJobRepository) ExpectGetPendingJobs(limit int, jobs []*model.Job, err error) *mock.Call {
	return m.On("GetPendingJobs", mock.Anything, limit).Return(jobs, err)
}

// ExpectClaimJob sets up an expectation for ClaimJob.
func (m *MockJobRepository) ExpectClaimJob(id int64, claimed bool, err error) *mock.Call {
	return m.On("ClaimJob", mock.Anything, id).Return(claimed, err)
}

// ExpectFailJob sets up an expectation for FailJob.
func (m *MockJobRepository) ExpectFailJob(id int64, err error) *mock.Call {
	return m.On("FailJob", mock.Anything, id, mock.Anything).Return(err)
}

// MockRunRepository is a mock implementation of the RunRepository interface.
type MockRunRepository struct {
	mock.Mock
}

// SaveRun mocks the SaveRun method.
func (m *MockRunRepository) SaveRun(ctx context.Context, res *model.RunResult) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

// GetRunByUUID mocks the GetRunByUUID method.
func (m *MockRunRepository) GetRunByUUID(ctx context.Context, rid string) (*model.RunResult, error) {
	args := m.Called(ctx, rid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RunResult), args.Error(1)
}

// ListRuns mocks the ListRuns method.
func (m *MockRunRepository) ListRuns(ctx context.Context, limit int) ([]*model.RunResult, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RunResult), args.Error(1)
}

// SaveTrials mocks the SaveTrials method.
func (m *MockRunRepository) SaveTrials(ctx context.Context, rid string, trials []model.TrialResult) error {
	args := m.Called(ctx, rid, trials)
	return args.Error(0)
}

// GetTrials mocks the GetTrials method.
func (m *MockRunRepository) GetTrials(ctx context.Context, rid string) ([]model.TrialResult, error) {
	args := m.Called(ctx, rid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TrialResult), args.Error(1)
}

// ExpectSaveRun sets up an expectation for SaveRun.
func (m *MockRunRepository) ExpectSaveRun(err error) *mock.Call {
	return m.On("SaveRun", mock.Anything, mock.Anything).Return(err)
}

// ExpectGetRunByUUID sets up an expectation for GetRunByUUID.
func (m *MockRunRepository) ExpectGetRunByUUID(rid string, res *model.RunResult, err error) *mock.Call {
	return m.On("GetRunByUUID", mock.Anything, rid).Return(res, err)
}

// ExpectListRuns sets up an expectation for ListRuns.
func (m *MockRunRepository) ExpectListRuns(limit int, runs []*model.RunResult, err error) *mock.Call {
	return m.On("ListRuns", mock.Anything, limit).Return(runs, err)
}

// MockFindingRepository is a mock implementation of the FindingRepository interface.
type MockFindingRepository struct {
	mock.Mock
}

// SaveFindings mocks the SaveFindings method.
func (m *MockFindingRepository) SaveFindings(ctx context.Context, findings []model.Finding) error {
	args := m.Called(ctx, findings)
	return args.Error(0)
}

// GetFindingsByRunUUID mocks the GetFindingsByRunUUID method.
func (m *MockFindingRepository) GetFindingsByRunUUID(ctx context.Context, rid string) ([]model.Finding, error) {
	args := m.Called(ctx, rid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Finding), args.Error(1)
}

// GetFindingRules mocks the GetFindingRules method.
func (m *MockFindingRepository) GetFindingRules(ctx context.Context) ([]model.FindingRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FindingRule), args.Error(1)
}

// ExpectSaveFindings sets up an expectation for SaveFindings.
func (m *MockFindingRepository) ExpectSaveFindings(err error) *mock.Call {
	return m.On("SaveFindings", mock.Anything, mock.Anything).Return(err)
}

// ExpectGetFindingRules sets up an expectation for GetFindingRules.
func (m *MockFindingRepository) ExpectGetFindingRules(rules []model.FindingRule, err error) *mock.Call {
	return m.On("GetFindingRules", mock.Anything).Return(rules, err)
}
