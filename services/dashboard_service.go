package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"healthscreen/models"
	"healthscreen/repository"
	"healthscreen/utils"

	"go.uber.org/zap"
)

const dateFormat = "2006-01-02"

// DashboardService summarises a user's screening history.
type DashboardService interface {
	GenerateDashboard(ctx context.Context, userID string, period models.DashboardPeriod, referenceDate string, lang models.Language) (*models.DashboardResponse, error)
}

type dashboardService struct {
	questionnaires QuestionnaireSource
	resultRepo     repository.ResultRepository
	guestRepo      repository.GuestResultRepository
	planRepo       repository.PlanRepository
	log            *zap.Logger
	now            func() time.Time
}

// NewDashboardService creates a new instance of DashboardService.
func NewDashboardService(
	questionnaires QuestionnaireSource,
	resultRepo repository.ResultRepository,
	guestRepo repository.GuestResultRepository,
	planRepo repository.PlanRepository,
	log *zap.Logger,
) DashboardService {
	return &dashboardService{
		questionnaires: questionnaires,
		resultRepo:     resultRepo,
		guestRepo:      guestRepo,
		planRepo:       planRepo,
		log:            log.Named("DashboardService"),
		now:            time.Now,
	}
}

// resolvePeriod returns the window ending on referenceDate (today when empty or invalid).
// For PeriodAll the start is nil.
func (s *dashboardService) resolvePeriod(period models.DashboardPeriod, referenceDate string) (models.ReportPeriod, *time.Time, time.Time) {
	endDate := s.now()
	if referenceDate != "" {
		parsed, err := time.ParseInLocation(dateFormat, referenceDate, endDate.Location())
		if err != nil {
			s.log.Warn("Invalid reference date, using today", zap.String("reference_date", referenceDate), zap.Error(err))
		} else {
			endDate = parsed
		}
	}
	endDate = time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 23, 59, 59, 0, endDate.Location())

	var back int
	switch period {
	case models.PeriodAll:
		return models.ReportPeriod{EndDate: endDate.Format(dateFormat), PeriodType: period}, nil, endDate
	case models.PeriodLast30Days:
		back = 29
	case models.PeriodLast7Days:
		back = 6
	default:
		s.log.Warn("Unsupported period, defaulting to last_7_days", zap.String("period", string(period)))
		period = models.PeriodLast7Days
		back = 6
	}
	start := endDate.AddDate(0, 0, -back)
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	return models.ReportPeriod{
		StartDate:  start.Format(dateFormat),
		EndDate:    endDate.Format(dateFormat),
		PeriodType: period,
	}, &start, endDate
}

func (s *dashboardService) GenerateDashboard(ctx context.Context, userID string, period models.DashboardPeriod, referenceDate string, lang models.Language) (*models.DashboardResponse, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty")
	}
	reportPeriod, start, end := s.resolvePeriod(period, referenceDate)

	results, err := s.results(ctx, userID, start)
	if err != nil {
		return nil, err
	}
	inWindow := results[:0]
	for _, r := range results {
		if !r.CreatedAt.After(end) {
			inWindow = append(inWindow, r)
		}
	}

	resp := &models.DashboardResponse{
		UserID:         userID,
		ReportPeriod:   reportPeriod,
		Questionnaires: progressByQuestionnaire(inWindow, s.questionnaires, lang),
		RiskCounts:     make(map[models.RiskLevel]int, len(models.RiskLevels)),
		GeneratedAt:    s.now(),
	}
	for _, level := range models.RiskLevels {
		resp.RiskCounts[level] = 0
	}
	for _, r := range inWindow {
		resp.RiskCounts[r.RiskLevel]++
	}

	if !utils.IsGuestID(userID) {
		plans, err := s.planRepo.GetPlansByUserID(userID)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve plans for userID %s: %w", userID, err)
		}
		resp.Plans = summarisePlans(plans, start, end)
	}

	s.log.Info("Generated dashboard",
		zap.String("user_id", userID),
		zap.String("period", string(reportPeriod.PeriodType)),
		zap.Int("results", len(inWindow)),
	)
	return resp, nil
}

// results returns the user's results since start, newest first.
func (s *dashboardService) results(ctx context.Context, userID string, start *time.Time) ([]*models.AssessmentResult, error) {
	if utils.IsGuestID(userID) {
		var out []*models.AssessmentResult
		for _, r := range s.guestRepo.List(userID) {
			if start == nil || !r.CreatedAt.Before(*start) {
				out = append(out, r)
			}
		}
		return out, nil
	}

	recs, err := s.resultRepo.GetAssessmentRecordsByUserID(ctx, userID, start)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve results for userID %s: %w", userID, err)
	}
	out := make([]*models.AssessmentResult, 0, len(recs))
	for _, rec := range recs {
		r, err := rec.DecodeResult()
		if err != nil {
			s.log.Warn("Skipping undecodable record", zap.Uint("record_id", rec.ID), zap.Error(err))
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// trend compares the latest total with the one before it. Lower totals are healthier.
func trend(latest, previous float64) models.Trend {
	switch {
	case latest < previous:
		return models.TrendImproving
	case latest > previous:
		return models.TrendWorsening
	default:
		return models.TrendStable
	}
}

// progressByQuestionnaire groups newest-first results. Groups are ordered by their latest result.
func progressByQuestionnaire(results []*models.AssessmentResult, questionnaires QuestionnaireSource, lang models.Language) []models.QuestionnaireProgress {
	out := []models.QuestionnaireProgress{}
	index := make(map[string]int)

	for _, r := range results {
		i, seen := index[r.QuestionnaireID]
		if !seen {
			title := r.QuestionnaireID
			if q, ok := questionnaires.Questionnaire(r.QuestionnaireID); ok {
				title = q.Title.In(lang)
			}
			index[r.QuestionnaireID] = len(out)
			out = append(out, models.QuestionnaireProgress{
				QuestionnaireID: r.QuestionnaireID,
				Title:           title,
				Count:           1,
				Latest:          r,
				Trend:           models.TrendStable,
			})
			continue
		}
		p := &out[i]
		if p.Count == 1 {
			p.Trend = trend(p.Latest.TotalScore, r.TotalScore)
		}
		p.Count++
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Latest.CreatedAt.After(out[j].Latest.CreatedAt) })
	return out
}

// summarisePlans counts tasks of plans created inside the window.
func summarisePlans(plans []*models.Plan, start *time.Time, end time.Time) models.PlanSummary {
	var sum models.PlanSummary
	for _, plan := range plans {
		if plan.CreatedAt.After(end) || (start != nil && plan.CreatedAt.Before(*start)) {
			continue
		}
		for _, task := range plan.Tasks {
			sum.TotalTasks++
			switch task.Status {
			case models.TaskStatusCompleted:
				sum.CompletedTasks++
			case models.TaskStatusSkipped:
				sum.SkippedTasks++
			}
		}
	}
	if denom := sum.TotalTasks - sum.SkippedTasks; denom > 0 {
		sum.CompletionRate = float64(sum.CompletedTasks) / float64(denom)
	}
	return sum
}
