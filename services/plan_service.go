package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"healthscreen/models"
	"healthscreen/repository"
	"healthscreen/utils"

	"go.uber.org/zap"
)

var (
	ErrPlanNotFound         = errors.New("plan not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrPlanForbidden        = errors.New("not allowed to access this plan")
	ErrGuestPlan            = errors.New("care plans are only available to registered users")
	ErrTaskAlreadyCompleted = errors.New("cannot skip an already completed task")
)

// MentalHealthHotline is the Thai Department of Mental Health hotline.
const MentalHealthHotline = "1323"

var selfHarmFactors = map[string]bool{
	"self-harm-thoughts":      true,
	"self-harm-intent":        true,
	"self-injury":             true,
	"suicidal-ideation":       true,
	"suicidal-thoughts":       true,
	"suicide-plan":            true,
	"suicide-preparation":     true,
	"suicide-attempt-recent":  true,
	"suicide-attempt-history": true,
}

// IsSelfHarmFactor reports whether a risk factor tag concerns self-harm or suicide.
func IsSelfHarmFactor(tag string) bool {
	return selfHarmFactors[tag]
}

// PlanService defines the interface for managing plans and tasks.
type PlanService interface {
	GeneratePlan(ctx context.Context, userID string, resultID uint) (*models.Plan, error)
	GetPlanDetails(planID uint, userID string) (*models.Plan, error)
	GetActivePlanForUser(userID string) (*models.Plan, error) // Most recent active plan, or nil
	ListPlans(userID string) ([]*models.Plan, error)
	MarkTaskCompleted(taskID uint, userID string) (*models.PlanTask, error)
	MarkTaskSkipped(taskID uint, userID string) (*models.PlanTask, error)
}

type planService struct {
	planRepo   repository.PlanRepository
	resultRepo repository.ResultRepository
	log        *zap.Logger
	now        func() time.Time
}

// NewPlanService creates a new instance of PlanService.
func NewPlanService(planRepo repository.PlanRepository, resultRepo repository.ResultRepository, log *zap.Logger) PlanService {
	return &planService{
		planRepo:   planRepo,
		resultRepo: resultRepo,
		log:        log.Named("PlanService"),
		now:        time.Now,
	}
}

// GeneratePlan builds follow-up tasks from a stored result. A result has at most one plan; asking
// again returns the existing one. Older active plans for the same questionnaire are cancelled.
func (s *planService) GeneratePlan(ctx context.Context, userID string, resultID uint) (*models.Plan, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty")
	}
	if utils.IsGuestID(userID) {
		return nil, ErrGuestPlan
	}

	rec, err := s.resultRepo.GetAssessmentRecordByID(ctx, resultID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch result %d for plan generation: %w", resultID, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %d", ErrResultNotFound, resultID)
	}
	if rec.UserID != userID {
		s.log.Warn("Plan requested for another user's result", zap.String("user_id", userID), zap.Uint("record_id", resultID))
		return nil, ErrPlanForbidden
	}

	existing, err := s.planRepo.GetPlanByRecordID(resultID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up plan for result %d: %w", resultID, err)
	}
	if existing != nil {
		return existing, nil
	}

	result, err := rec.DecodeResult()
	if err != nil {
		return nil, err
	}

	if err := s.cancelActive(userID, rec.QuestionnaireID); err != nil {
		return nil, err
	}

	lang := rec.Language
	presentation := result.RiskLevel.Presentation()
	plan := &models.Plan{
		UserID:          userID,
		RecordID:        rec.ID,
		QuestionnaireID: rec.QuestionnaireID,
		RiskLevel:       result.RiskLevel,
		Title:           tr(lang, "แผนติดตามผล: "+presentation.Label.In(lang), "Follow-up plan: "+presentation.Label.In(lang)),
		Description:     presentation.Advice.In(lang),
		Status:          models.PlanStatusActive,
		Tasks:           buildTasks(result, lang, s.now()),
	}
	if err := s.planRepo.CreatePlan(plan); err != nil {
		return nil, fmt.Errorf("failed to create plan for userID %s: %w", userID, err)
	}
	s.log.Info("Generated plan",
		zap.Uint("plan_id", plan.ID),
		zap.String("user_id", userID),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.Int("tasks", len(plan.Tasks)),
	)
	return plan, nil
}

func (s *planService) cancelActive(userID, questionnaireID string) error {
	plans, err := s.planRepo.GetPlansByUserID(userID)
	if err != nil {
		return fmt.Errorf("failed to get plans for userID %s: %w", userID, err)
	}
	for _, p := range plans {
		if p.Status != models.PlanStatusActive || p.QuestionnaireID != questionnaireID {
			continue
		}
		p.Status = models.PlanStatusCancelled
		if err := s.planRepo.UpdatePlan(p); err != nil {
			return fmt.Errorf("failed to cancel plan %d: %w", p.ID, err)
		}
	}
	return nil
}

func tr(lang models.Language, th, en string) string {
	if lang == models.LanguageEnglish {
		return en
	}
	return th
}

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

// buildTasks maps a result to ordered plan tasks. Self-harm factors always put the hotline first.
func buildTasks(result *models.AssessmentResult, lang models.Language, now time.Time) []models.PlanTask {
	var tasks []models.PlanTask
	add := func(t models.PlanTask, due time.Duration) {
		if due > 0 {
			at := now.Add(due)
			t.DueAt = &at
		}
		t.Status = models.TaskStatusPending
		t.Order = len(tasks) + 1
		tasks = append(tasks, t)
	}

	for _, f := range result.RiskFactors {
		if IsSelfHarmFactor(f) {
			add(models.PlanTask{
				Type:        models.TaskTypeHotline,
				Title:       tr(lang, "โทรสายด่วนสุขภาพจิต "+MentalHealthHotline, "Call the mental health hotline "+MentalHealthHotline),
				Description: tr(lang, "พูดคุยกับผู้เชี่ยวชาญได้ตลอด 24 ชั่วโมง", "Trained counsellors are available 24 hours a day."),
				Urgent:      true,
			}, 0)
			break
		}
	}

	retake := func(after int) {
		add(models.PlanTask{
			Type:        models.TaskTypeRetake,
			Title:       tr(lang, "ทำแบบประเมินซ้ำ", "Retake the screening"),
			Description: tr(lang, fmt.Sprintf("ประเมินซ้ำภายใน %d วันเพื่อติดตามการเปลี่ยนแปลง", after), fmt.Sprintf("Repeat this screening within %d days to follow changes.", after)),
		}, days(after))
	}
	consult := func(urgent bool, within int) {
		add(models.PlanTask{
			Type:        models.TaskTypeConsultation,
			Title:       tr(lang, "นัดปรึกษาแพทย์ทางไกล", "Book a teleconsultation"),
			Description: tr(lang, "ปรึกษาแพทย์หรือผู้เชี่ยวชาญเกี่ยวกับผลการประเมิน", "Talk to a doctor or specialist about your result."),
			Urgent:      urgent,
		}, days(within))
	}

	switch result.RiskLevel {
	case models.RiskVeryHigh:
		consult(true, 1)
		retake(14)
	case models.RiskHigh:
		consult(false, 7)
		retake(30)
	case models.RiskMedium:
		add(models.PlanTask{
			Type:        models.TaskTypeSelfCare,
			Title:       tr(lang, "ดูแลตัวเอง", "Self-care"),
			Description: models.RiskMedium.Presentation().Advice.In(lang),
		}, days(7))
		retake(14)
	default:
		retake(90)
	}

	for i, r := range result.Recommendations {
		if i == 3 {
			break
		}
		add(models.PlanTask{
			Type:        models.TaskTypeRecommendation,
			Title:       tr(lang, "คำแนะนำ", "Recommendation"),
			Description: r,
		}, 0)
	}
	return tasks
}

// GetPlanDetails retrieves a plan and its tasks. Only the owner may read it.
func (s *planService) GetPlanDetails(planID uint, userID string) (*models.Plan, error) {
	plan, err := s.planRepo.GetPlanByID(planID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan details for planID %d: %w", planID, err)
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: %d", ErrPlanNotFound, planID)
	}
	if plan.UserID != userID {
		return nil, ErrPlanForbidden
	}
	return plan, nil
}

func (s *planService) GetActivePlanForUser(userID string) (*models.Plan, error) {
	plans, err := s.planRepo.GetPlansByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plans for userID %s: %w", userID, err)
	}
	for _, plan := range plans {
		if plan.Status == models.PlanStatusActive {
			return plan, nil
		}
	}
	return nil, nil
}

func (s *planService) ListPlans(userID string) ([]*models.Plan, error) {
	plans, err := s.planRepo.GetPlansByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plans for userID %s: %w", userID, err)
	}
	if plans == nil {
		plans = []*models.Plan{}
	}
	return plans, nil
}

// ownedTask loads a task and checks that its plan belongs to userID.
func (s *planService) ownedTask(taskID uint, userID string) (*models.PlanTask, *models.Plan, error) {
	task, err := s.planRepo.GetTaskByID(taskID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch task ID %d: %w", taskID, err)
	}
	if task == nil {
		return nil, nil, fmt.Errorf("%w: %d", ErrTaskNotFound, taskID)
	}
	plan, err := s.planRepo.GetPlanByID(task.PlanID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch plan ID %d for task ID %d: %w", task.PlanID, taskID, err)
	}
	if plan == nil {
		s.log.Error("Task without plan", zap.Uint("task_id", taskID), zap.Uint("plan_id", task.PlanID))
		return nil, nil, fmt.Errorf("%w: plan of task %d", ErrPlanNotFound, taskID)
	}
	if plan.UserID != userID {
		s.log.Warn("Unauthorized task update", zap.String("user_id", userID), zap.Uint("task_id", taskID))
		return nil, nil, ErrPlanForbidden
	}
	return task, plan, nil
}

func (s *planService) MarkTaskCompleted(taskID uint, userID string) (*models.PlanTask, error) {
	task, plan, err := s.ownedTask(taskID, userID)
	if err != nil {
		return nil, err
	}
	if task.Status == models.TaskStatusCompleted {
		return task, nil
	}

	task.Status = models.TaskStatusCompleted
	task.CompletedAt.Time = s.now()
	task.CompletedAt.Valid = true
	if err := s.planRepo.UpdatePlanTask(task); err != nil {
		return nil, fmt.Errorf("failed to update task ID %d to completed: %w", taskID, err)
	}
	s.log.Info("Task completed", zap.Uint("task_id", taskID), zap.String("user_id", userID))
	return task, s.finishIfDone(plan, task)
}

func (s *planService) MarkTaskSkipped(taskID uint, userID string) (*models.PlanTask, error) {
	task, plan, err := s.ownedTask(taskID, userID)
	if err != nil {
		return nil, err
	}
	switch task.Status {
	case models.TaskStatusSkipped:
		return task, nil
	case models.TaskStatusCompleted:
		return nil, ErrTaskAlreadyCompleted
	}

	task.Status = models.TaskStatusSkipped
	task.CompletedAt.Valid = false
	if err := s.planRepo.UpdatePlanTask(task); err != nil {
		return nil, fmt.Errorf("failed to update task ID %d to skipped: %w", taskID, err)
	}
	s.log.Info("Task skipped", zap.Uint("task_id", taskID), zap.String("user_id", userID))
	return task, s.finishIfDone(plan, task)
}

// finishIfDone completes an active plan once none of its tasks is pending.
func (s *planService) finishIfDone(plan *models.Plan, updated *models.PlanTask) error {
	if plan.Status != models.PlanStatusActive {
		return nil
	}
	for _, t := range plan.Tasks {
		status := t.Status
		if t.ID == updated.ID {
			status = updated.Status
		}
		if status == models.TaskStatusPending {
			return nil
		}
	}
	plan.Status = models.PlanStatusCompleted
	plan.CompletedAt.Time = s.now()
	plan.CompletedAt.Valid = true
	if err := s.planRepo.UpdatePlan(plan); err != nil {
		return fmt.Errorf("failed to complete plan %d: %w", plan.ID, err)
	}
	s.log.Info("Plan completed", zap.Uint("plan_id", plan.ID))
	return nil
}
