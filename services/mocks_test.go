package services

import (
	"context"
	"time"

	"healthscreen/models"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/mock"
)

// MockResultRepository is a mock type for the ResultRepository interface
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) CreateAssessmentRecord(ctx context.Context, rec *models.AssessmentRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockResultRepository) GetAssessmentRecordByID(ctx context.Context, id uint) (*models.AssessmentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AssessmentRecord), args.Error(1)
}

func (m *MockResultRepository) GetAssessmentRecordsByUserID(ctx context.Context, userID string, since *time.Time) ([]*models.AssessmentRecord, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AssessmentRecord), args.Error(1)
}

// MockPlanRepository is a mock type for the PlanRepository interface
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) CreatePlan(plan *models.Plan) error {
	args := m.Called(plan)
	return args.Error(0)
}

func (m *MockPlanRepository) GetPlanByID(planID uint) (*models.Plan, error) {
	args := m.Called(planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *MockPlanRepository) GetPlanByRecordID(recordID uint) (*models.Plan, error) {
	args := m.Called(recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *MockPlanRepository) GetPlansByUserID(userID string) ([]*models.Plan, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Plan), args.Error(1)
}

func (m *MockPlanRepository) UpdatePlan(plan *models.Plan) error {
	args := m.Called(plan)
	return args.Error(0)
}

func (m *MockPlanRepository) GetTaskByID(taskID uint) (*models.PlanTask, error) {
	args := m.Called(taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlanTask), args.Error(1)
}

func (m *MockPlanRepository) UpdatePlanTask(task *models.PlanTask) error {
	args := m.Called(task)
	return args.Error(0)
}

// MockAnalysisClient is a mock type for the AnalysisClient interface
type MockAnalysisClient struct {
	mock.Mock
}

func (m *MockAnalysisClient) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalysisResult), args.Error(1)
}

func (m *MockAnalysisClient) Name() string { return "mock" }

// MockChatCompleter is a mock type for the ChatCompleter interface
type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}
