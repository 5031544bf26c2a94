package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/noah-isme/sma-exam-scheduler/internal/dto"
	"github.com/noah-isme/sma-exam-scheduler/internal/repository"
	"github.com/noah-isme/sma-exam-scheduler/internal/service"
	"github.com/noah-isme/sma-exam-scheduler/pkg/config"
	"github.com/noah-isme/sma-exam-scheduler/pkg/logger"
)

var CLI struct {
	Version kong.VersionFlag

	Run  RunCmd  `cmd:"" help:"Create an exam timetable from an input bundle."`
	Runs RunsCmd `cmd:"" help:"List recent scheduling runs from the run store."`
}

// appContext carries the wired services into the subcommands.
type appContext struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *service.MetricsService
	schedule *service.ScheduleService
	analysis *service.AnalysisService
	runs     *repository.RunRepository
}

type RunCmd struct {
	Inputs     string `help:"Path to the JSON input bundle." type:"path" required:""`
	Out        string `help:"Path for the result JSON." type:"path" default:"schedule_result.json"`
	SummaryOut string `help:"Path for the summary JSON." type:"path" default:"schedule_summary.json"`
	TimeLimit  int    `help:"Solver wall-clock budget in seconds (0 uses SOLVER_TIME_LIMIT)." default:"0"`
}

func (c *RunCmd) Run(app *appContext) error {
	raw, err := os.ReadFile(c.Inputs)
	if err != nil {
		return fmt.Errorf("failed to read input bundle: %w", err)
	}
	var req dto.ScheduleRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("failed to decode input bundle: %w", err)
	}

	timeLimit := app.cfg.Solver.TimeLimit
	if c.TimeLimit > 0 {
		timeLimit = time.Duration(c.TimeLimit) * time.Second
	}

	solverCfg := app.cfg.Solver
	runCfg := dto.ScheduleConfig{
		MaxExamsPerDay:      solverCfg.MaxExams(),
		MaxHardExamsPerDay:  solverCfg.MaxHardExams(),
		UseFixedAssignments: solverCfg.UseFixedAssignments,
	}
	if solverCfg.RandomSeed != 0 {
		seed := solverCfg.RandomSeed
		runCfg.RandomSeed = &seed
	}

	sugar := app.logger.Sugar()
	result := app.schedule.CreateSchedule(context.Background(), req, runCfg, timeLimit,
		func(message string, progress int) {
			sugar.Infow("progress", "message", message, "percent", progress)
		})

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := os.WriteFile(c.Out, encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	sugar.Infow("schedule run finished", "status", result.Status, "out", c.Out)
	if families, err := app.metrics.Gather(); err == nil {
		sugar.Debugw("metrics snapshot", "families", len(families))
	}
	if result.Status == dto.StatusSuccess {
		summary := app.analysis.Summary(result.StudentAnalysis,
			len(req.Subjects), len(result.Slots),
			runCfg.MaxExamsPerDay, runCfg.MaxHardExamsPerDay)
		if encoded, err := json.MarshalIndent(summary, "", "  "); err == nil {
			if err := os.WriteFile(c.SummaryOut, encoded, 0o644); err != nil {
				sugar.Warnw("failed to write summary", "error", err)
			}
		}
		for _, slot := range result.Slots {
			if subjects, ok := result.SlotAssignments[slot]; ok {
				fmt.Printf("%s: %s\n", slot, strings.Join(subjects, ", "))
			}
		}
		return nil
	}

	fmt.Printf("%s: %s\n", result.Status, result.Error)
	for _, detail := range result.Details {
		fmt.Printf("  - %s\n", detail)
	}
	return nil
}

type RunsCmd struct {
	Limit int `help:"Number of runs to show." default:"20"`
}

func (c *RunsCmd) Run(app *appContext) error {
	if app.runs == nil {
		return fmt.Errorf("run store disabled; set ENABLE_RUN_STORE=true")
	}
	runs, err := app.runs.ListRecent(context.Background(), c.Limit)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("%s  %-12s slots=%d subjects=%d clique=%d %dms  %s\n",
			run.ID, run.Status, run.TotalSlots, run.TotalSubjects,
			run.CliqueSize, run.DurationMS, run.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	metrics := service.NewMetricsService()

	var runRepo *repository.RunRepository
	if cfg.Store.Enabled {
		db, err := sqlx.Connect("sqlite", cfg.Store.Path)
		if err != nil {
			logr.Sugar().Fatalw("failed to open run store", "error", err)
		}
		defer db.Close()
		runRepo = repository.NewRunRepository(db)
		if err := runRepo.EnsureSchema(context.Background()); err != nil {
			logr.Sugar().Fatalw("failed to initialise run store", "error", err)
		}
	}

	slotSvc := service.NewSlotService(logr)
	conflictSvc := service.NewConflictService(logr)
	cliqueSvc := service.NewCliqueService(logr)
	builder := service.NewModelBuilder(logr)
	solverSvc := service.NewSolverService(metrics, logr)
	analysisSvc := service.NewAnalysisService(logr)

	var recorder service.RunRecorder
	if runRepo != nil {
		recorder = runRepo
	}
	scheduleSvc := service.NewScheduleService(
		slotSvc, conflictSvc, cliqueSvc, builder, solverSvc, analysisSvc,
		recorder, metrics, nil, logr,
	)

	app := &appContext{
		cfg:      cfg,
		logger:   logr,
		metrics:  metrics,
		schedule: scheduleSvc,
		analysis: analysisSvc,
		runs:     runRepo,
	}

	ctx := kong.Parse(&CLI,
		kong.Name("examsched"),
		kong.Description("Constraint-based exam timetable scheduler"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)
	if err := ctx.Run(app); err != nil {
		logr.Sugar().Fatalw("command failed", "error", err)
	}
}
