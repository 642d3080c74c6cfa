package internal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/flexprice/installments/internal/cache"
	"github.com/flexprice/installments/internal/config"
	"github.com/flexprice/installments/internal/domain/installment"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/postgres"
	repo "github.com/flexprice/installments/internal/repository/postgres"
	"github.com/flexprice/installments/internal/types"
)

// PlanImportRecord is one line of the import file: a subscriber and its stored plan document
// as exported from the membership records
type PlanImportRecord struct {
	SubscriberID    string          `json:"subscriber_id"`
	InstallmentPlan json.RawMessage `json:"installment_plan"`
}

// PlanImportSummary contains statistics about the import process
type PlanImportSummary struct {
	TotalRows     int
	PlansImported int
	PlansRejected int
	Errors        []string
}

type planImportScript struct {
	cfg      *config.Configuration
	log      *logger.Logger
	pgClient postgres.IClient
	planRepo installment.Repository
	cache    cache.Cache
	dryRun   bool
	summary  PlanImportSummary
}

func newPlanImportScript(dryRun bool) (*planImportScript, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pgClient := postgres.NewClient(db, log)

	return &planImportScript{
		cfg:      cfg,
		log:      log,
		pgClient: pgClient,
		planRepo: repo.NewInstallmentPlanRepository(pgClient, log),
		cache:    cache.NewCache(cfg, log, nil),
		dryRun:   dryRun,
	}, nil
}

// parseImportFile reads one JSON record per line. Unreadable lines are counted as rejected.
func (s *planImportScript) parseImportFile(filePath string) ([]PlanImportRecord, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var records []PlanImportRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		s.summary.TotalRows++

		var record PlanImportRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil || record.SubscriberID == "" {
			s.reject(fmt.Sprintf("line %d: unreadable record", line))
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	s.log.Infow("parsed plan import file", "total_rows", s.summary.TotalRows, "records", len(records))
	return records, nil
}

// importRecord upgrades the legacy document and replaces the stored plan under the ledger lock
func (s *planImportScript) importRecord(ctx context.Context, record PlanImportRecord) error {
	plan, err := installment.ParseDocument(record.SubscriberID, record.InstallmentPlan)
	if err != nil {
		return err
	}

	if s.dryRun {
		s.log.Infow("dry run: plan would be imported",
			"subscriber_id", plan.SubscriberID,
			"num_installments", plan.NumInstallments,
			"paid", installment.Analyze(plan, types.Today(s.cfg.DueAlerts.Timezone)).PaidCount,
		)
		return nil
	}

	timeout := s.cfg.Ledger.LockTimeout
	err = s.pgClient.WithTx(ctx, func(ctx context.Context) error {
		if err := s.pgClient.LockKey(ctx, types.LockRequest{
			Key: types.GenerateLockKey(types.LockScopeSubscriberPlan, map[string]interface{}{
				"subscriber_id": plan.SubscriberID,
			}),
			Timeout: &timeout,
		}); err != nil {
			return err
		}
		return s.planRepo.Save(ctx, plan)
	})
	if err != nil {
		return err
	}

	cache.InvalidateSummaries(ctx, s.cache, plan.SubscriberID, s.cfg.Cache.SummaryTTL)
	return nil
}

func (s *planImportScript) reject(msg string) {
	s.summary.PlansRejected++
	s.summary.Errors = append(s.summary.Errors, msg)
}

// ImportPlans imports installment plan documents from a JSON lines file. Each document goes
// through the legacy upgrade; documents that still fail validation are reported and skipped.
func ImportPlans(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("file path is required")
	}

	s, err := newPlanImportScript(os.Getenv("DRY_RUN") == "true")
	if err != nil {
		return err
	}

	return s.run(context.Background(), filePath)
}

// run parses the file and imports every readable record, counting rejections
func (s *planImportScript) run(ctx context.Context, filePath string) error {
	records, err := s.parseImportFile(filePath)
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := s.importRecord(ctx, record); err != nil {
			s.log.Warnw("rejected installment plan", "subscriber_id", record.SubscriberID, "error", err)
			s.reject(fmt.Sprintf("%s: %v", record.SubscriberID, err))
			continue
		}
		s.summary.PlansImported++
	}

	s.log.Infow("plan import completed",
		"dry_run", s.dryRun,
		"total_rows", s.summary.TotalRows,
		"imported", s.summary.PlansImported,
		"rejected", s.summary.PlansRejected,
	)
	for _, e := range s.summary.Errors {
		s.log.Warnw("import error", "detail", e)
	}
	return nil
}
