package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-scheduler/internal/dto"
	"github.com/noah-isme/sma-exam-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-exam-scheduler/pkg/errors"
)

// RunRecorder persists a summary row per scheduling run.
type RunRecorder interface {
	Insert(ctx context.Context, run *models.ScheduleRun) error
}

// ScheduleService orchestrates the scheduling pipeline: slot derivation,
// conflict aggregation, clique hinting, model construction, the CP solve and
// result analysis.
type ScheduleService struct {
	slots     *SlotService
	conflicts *ConflictService
	cliques   *CliqueService
	builder   *ModelBuilder
	solver    *SolverService
	analysis  *AnalysisService
	runs      RunRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService wires the pipeline. The run recorder may be nil.
func NewScheduleService(
	slots *SlotService,
	conflicts *ConflictService,
	cliques *CliqueService,
	builder *ModelBuilder,
	solver *SolverService,
	analysis *AnalysisService,
	runs RunRecorder,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		slots:     slots,
		conflicts: conflicts,
		cliques:   cliques,
		builder:   builder,
		solver:    solver,
		analysis:  analysis,
		runs:      runs,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// CreateSchedule runs the whole pipeline once. It never panics outward: any
// unexpected failure is converted into an ERROR result. The invocation is
// not reentrant; concurrent calls must use disjoint service instances.
func (s *ScheduleService) CreateSchedule(
	ctx context.Context,
	req dto.ScheduleRequest,
	cfg dto.ScheduleConfig,
	timeLimit time.Duration,
	callback dto.StatusCallback,
) (result dto.ScheduleResult) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("schedule creation panicked", zap.Any("panic", r))
			result = dto.ScheduleResult{
				Status: dto.StatusError,
				Error:  fmt.Sprintf("schedule creation failed: %v", r),
			}
		}
		s.record(ctx, &result, time.Since(started))
	}()

	notify := func(message string, progress int) {
		if callback != nil {
			callback(message, progress)
		}
	}

	if err := s.validator.Struct(req); err != nil {
		return errorResult(appErrors.Wrap(err, appErrors.ErrInput.Code, "invalid scheduling request"))
	}
	if err := s.validator.Struct(cfg); err != nil {
		return errorResult(appErrors.Wrap(err, appErrors.ErrInput.Code, "invalid scheduling config"))
	}

	notify("시험 슬롯을 생성하고 있습니다...", 10)
	plan, err := s.slots.BuildSlots(req.Calendar)
	if err != nil {
		return errorResult(err)
	}

	sets := s.conflicts.Aggregate(req.Subjects, req.Roster, req.Conflicts)
	s.addRelationConflicts(&sets, req.Relations, req.Subjects)

	fixed := map[string][]string{}
	if cfg.UseFixedAssignments {
		fixed = req.FixedAssignments
	}

	inputs := ModelInputs{
		Subjects:           req.Subjects,
		Conflicts:          sets,
		Relations:          req.Relations,
		TeacherBlackouts:   req.TeacherBlackouts,
		SubjectSlotBans:    req.SubjectSlotBans,
		TeacherSlotBans:    req.TeacherSlotBans,
		Fixed:              fixed,
		Roster:             req.Roster,
		Hard:               req.HardSubjects,
		MaxExamsPerDay:     cfg.MaxExamsPerDay,
		MaxHardExamsPerDay: cfg.MaxHardExamsPerDay,
	}

	notify("최대 클리크를 분석하고 있습니다...", 20)
	rng := s.newRand(cfg.RandomSeed)
	cliqueResult, placement := s.runCliqueStage(plan, inputs, rng)

	notify("최적화 모델을 구축하고 있습니다...", 30)
	em := s.builder.Build(plan, inputs)

	notify("목적함수를 설정하고 있습니다...", 40)
	s.builder.SetObjective(em, inputs)
	if s.metrics != nil {
		s.metrics.SetModelSize(em.VarCount(), em.ConstraintCount())
	}

	if issues := Validate(em, sets.Union()); len(issues) > 0 {
		notify("제약조건 검증에 실패했습니다.", 85)
		return dto.ScheduleResult{
			Status:    dto.StatusInfeasible,
			Error:     "제약조건 검증 실패",
			Details:   issues,
			Diagnosis: Diagnose(em, sets.Student),
		}
	}

	hintsPlaced := 0
	if len(placement.Placed) > 0 {
		notify("클리크 힌트를 설정하고 있습니다...", 50)
		hintsPlaced = s.cliques.ApplyHints(em, placement.Placed)
	}

	notify("최적화를 실행하고 있습니다...", 60)
	response, err := s.solver.Solve(em, timeLimit, cfg.RandomSeed, callback)
	if err != nil {
		return errorResult(err)
	}

	if !Feasible(response) {
		notify("최적화 실패, 문제를 진단하고 있습니다...", 80)
		diagnosis := Diagnose(em, sets.Student)
		notify("문제 진단을 완료했습니다.", 90)
		return dto.ScheduleResult{
			Status:    dto.StatusNoSolution,
			Error:     "시험 시간표를 생성할 수 없습니다",
			Details:   []string{solverStatusDetail(response)},
			Diagnosis: diagnosis,
		}
	}

	notify("최적화 완료, 솔루션을 검증하고 있습니다...", 80)
	assignments := ExtractAssignments(em, response)

	notify("결과를 분석하고 있습니다...", 90)
	analysis := s.analysis.Analyze(assignments, plan, req.Roster, req.HardSubjects)

	result = dto.ScheduleResult{
		Status:          dto.StatusSuccess,
		SlotAssignments: assignments,
		StudentAnalysis: analysis,
		Days:            plan.Days,
		Slots:           plan.Slots,
		SlotToDay:       plan.DayOf,
	}
	if len(cliqueResult.Selected) > 0 {
		result.CliqueInfo = &dto.CliqueInfo{
			Size:        cliqueResult.MaxSize,
			Subjects:    cliqueResult.Selected,
			HintsPlaced: hintsPlaced,
			Placements:  placement.Placed,
		}
	}

	notify("시간표 생성이 완료되었습니다.", 100)
	return result
}

// addRelationConflicts folds avoid_same_time pairs into the student conflict
// map; the aggregator leaves pairwise relations to the model-build stage.
func (s *ScheduleService) addRelationConflicts(
	sets *ConflictSets,
	relations []models.SubjectRelation,
	subjects models.SubjectInfo,
) {
	builder := newConflictBuilder(nil)
	for subject, conflicts := range sets.Student {
		for _, other := range conflicts {
			builder.add(subject, other)
		}
	}
	for _, rel := range relations {
		if rel.Type != models.RelationAvoidSameTime {
			continue
		}
		if _, ok := subjects[rel.Subject1]; !ok {
			continue
		}
		if _, ok := subjects[rel.Subject2]; !ok {
			continue
		}
		builder.add(rel.Subject1, rel.Subject2)
	}
	sets.Student = builder.build()
}

// runCliqueStage executes the preprocessor with panic isolation: a failure
// here degrades to a hint-free run, never an aborted one.
func (s *ScheduleService) runCliqueStage(
	plan *SlotPlan,
	inputs ModelInputs,
	rng *rand.Rand,
) (cliqueResult CliqueResult, placement CliquePlacement) {
	placement.Placed = map[string]string{}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("clique preprocessing failed, continuing without hints", zap.Any("panic", r))
			cliqueResult = CliqueResult{}
			placement = CliquePlacement{Placed: map[string]string{}}
		}
	}()

	cliqueResult = s.cliques.FindMaximumClique(inputs.Subjects, inputs.Conflicts.Union(), inputs.Fixed, rng)
	if s.metrics != nil {
		s.metrics.SetCliqueSize(cliqueResult.MaxSize)
	}
	if len(cliqueResult.Selected) == 0 {
		return cliqueResult, placement
	}
	placement = s.cliques.PlaceClique(cliqueResult.Selected, plan, inputs, rng)
	return cliqueResult, placement
}

func (s *ScheduleService) newRand(seed *int64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewSource(*seed))
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// record persists the run summary and bumps the metrics; both best-effort.
func (s *ScheduleService) record(ctx context.Context, result *dto.ScheduleResult, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.CountRun(result.Status)
	}
	if s.runs == nil {
		return
	}
	run := &models.ScheduleRun{
		ID:            uuid.NewString(),
		Status:        result.Status,
		TotalSlots:    len(result.Slots),
		TotalSubjects: countAssigned(result.SlotAssignments),
		DurationMS:    elapsed.Milliseconds(),
		CreatedAt:     time.Now().UTC(),
	}
	if result.CliqueInfo != nil {
		run.CliqueSize = result.CliqueInfo.Size
	}
	if err := s.runs.Insert(ctx, run); err != nil {
		s.logger.Warn("failed to record schedule run", zap.Error(err))
	}
}

func countAssigned(assignments map[string][]string) int {
	total := 0
	for _, subjects := range assignments {
		total += len(subjects)
	}
	return total
}

func errorResult(err error) dto.ScheduleResult {
	e := appErrors.FromError(err)
	return dto.ScheduleResult{
		Status: dto.StatusError,
		Error:  e.Error(),
	}
}

func solverStatusDetail(response *cmpb.CpSolverResponse) string {
	return fmt.Sprintf("solver status: %s", response.GetStatus().String())
}
