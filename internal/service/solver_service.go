package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
	sppb "github.com/google/or-tools/ortools/sat/proto/satparameters"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/noah-isme/sma-exam-scheduler/internal/dto"
	appErrors "github.com/noah-isme/sma-exam-scheduler/pkg/errors"
)

// SolverService runs the CP search under a wall-clock budget and extracts
// the assignment.
type SolverService struct {
	logger  *zap.Logger
	metrics *MetricsService
}

// NewSolverService wires the solver driver.
func NewSolverService(metrics *MetricsService, logger *zap.Logger) *SolverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SolverService{logger: logger, metrics: metrics}
}

// Solve invokes CP-SAT with the given time budget. A cooperating timer task
// posts a remaining-time message to the callback roughly once per second and
// observes a stop flag set after the solver returns; the timeout passed to
// the solver is the sole cutoff — extraction is never interrupted.
func (s *SolverService) Solve(
	em *ExamModel,
	timeLimit time.Duration,
	seed *int64,
	callback dto.StatusCallback,
) (*cmpb.CpSolverResponse, error) {
	model, err := em.Builder.Model()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to finalise the CP model")
	}

	params := &sppb.SatParameters{
		MaxTimeInSeconds: proto.Float64(timeLimit.Seconds()),
	}
	if seed != nil {
		params.RandomSeed = proto.Int32(int32(*seed))
	}

	stop := make(chan struct{})
	if callback != nil {
		go s.tickRemaining(timeLimit, callback, stop)
	}

	started := time.Now()
	response, err := cpmodel.SolveCpModelWithParameters(model, params)
	close(stop)

	elapsed := time.Since(started)
	if s.metrics != nil {
		s.metrics.ObserveSolve(elapsed)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "CP solver failed")
	}

	s.logger.Debug("solver finished",
		zap.String("status", response.GetStatus().String()),
		zap.Duration("elapsed", elapsed),
		zap.Float64("objective", response.GetObjectiveValue()))
	return response, nil
}

// tickRemaining posts remaining-time updates until the stop flag closes.
func (s *SolverService) tickRemaining(budget time.Duration, callback dto.StatusCallback, stop <-chan struct{}) {
	started := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	callback(remainingMessage(budget), 75)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			remaining := budget - time.Since(started)
			if remaining <= 0 {
				return
			}
			callback(remainingMessage(remaining), 75)
		}
	}
}

func remainingMessage(remaining time.Duration) string {
	return fmt.Sprintf("최적화 알고리즘을 실행하고 있습니다... (약 %d초 남음)", int(remaining.Seconds()))
}

// Feasible reports whether the response carries a usable assignment.
func Feasible(response *cmpb.CpSolverResponse) bool {
	status := response.GetStatus()
	return status == cmpb.CpSolverStatus_OPTIMAL || status == cmpb.CpSolverStatus_FEASIBLE
}

// ExtractAssignments collects the placed subjects per slot. Iteration is
// deterministic: slots in emission order, subjects sorted within each slot.
func ExtractAssignments(em *ExamModel, response *cmpb.CpSolverResponse) map[string][]string {
	assignments := make(map[string][]string)
	for _, slot := range em.Plan.Slots {
		var placed []string
		for _, subject := range em.SubjectNames() {
			v, ok := em.Vars[subject][slot]
			if !ok {
				continue
			}
			if cpmodel.SolutionBooleanValue(response, v) {
				placed = append(placed, subject)
			}
		}
		if len(placed) > 0 {
			sort.Strings(placed)
			assignments[slot] = placed
		}
	}
	return assignments
}
