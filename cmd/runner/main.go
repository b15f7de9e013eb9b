package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/paylane/payroll-engine-go/internal/config"
	"github.com/paylane/payroll-engine-go/internal/domain/audit"
	"github.com/paylane/payroll-engine-go/internal/domain/payroll"
	"github.com/paylane/payroll-engine-go/internal/domain/policy"
	"github.com/paylane/payroll-engine-go/internal/domain/rates"
	"github.com/paylane/payroll-engine-go/internal/pkg/database"
	"github.com/paylane/payroll-engine-go/internal/pkg/events"
	"github.com/paylane/payroll-engine-go/internal/pkg/lock"
	"github.com/paylane/payroll-engine-go/internal/pkg/logger"
	"github.com/paylane/payroll-engine-go/internal/repository/postgresql"
	payrollService "github.com/paylane/payroll-engine-go/internal/service/payroll"
	"github.com/paylane/payroll-engine-go/internal/service/payslip"
)

func main() {
	var (
		companyID = flag.String("company", "", "company id to run payroll for")
		month     = flag.Int("month", int(time.Now().UTC().Month()), "payroll month (1-12)")
		year      = flag.Int("year", time.Now().UTC().Year(), "payroll year")
		startedBy = flag.String("actor", "", "user id recorded as the run actor")
		retry     = flag.String("retry", "", "payroll id: retry its failed items instead of starting a run")
		cancel    = flag.String("cancel", "", "payroll id: cancel the run instead of starting one")
		payslips  = flag.String("payslips", "", "directory to write payslip PDFs for settled items")
	)
	flag.Parse()

	if *companyID == "" {
		fmt.Fprintln(os.Stderr, "usage: runner -company <id> [-month M -year Y | -retry <payroll-id> | -cancel <payroll-id>]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error building logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()

	employeeRepo := postgresql.NewEmployeeRepository(db)
	payrollRepo := postgresql.NewPayrollRepository(db)

	sinks := audit.Sinks{postgresql.NewAuditRepository(db, log)}
	if cfg.Kafka.Enabled {
		publisher := events.NewKafkaAuditPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer func() { _ = publisher.Close() }()
		sinks = append(sinks, publisher)
	}

	var locker lock.Locker = lock.Noop{}
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = client.Close() }()
		locker = lock.NewRedisLocker(client, cfg.Redis.LockTTL)
	}

	svc := payrollService.NewService(
		employeeRepo,
		payrollRepo,
		payrollService.NewLedger(payrollRepo),
		rates.DefaultSchedule(),
		policy.NewStaticPolicy(cfg.Engine.OnLeavePaid),
		sinks,
		locker,
		log,
		payrollService.Config{
			Workers:     cfg.Engine.Workers,
			ItemTimeout: cfg.Engine.ItemTimeout,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *cancel != "":
		if err := svc.CancelRun(ctx, *companyID, *cancel, actor(startedBy)); err != nil {
			log.Fatal("cancel run", zap.String("payroll_id", *cancel), zap.Error(err))
		}
		log.Info("run cancelled", zap.String("payroll_id", *cancel))
	case *retry != "":
		result, err := svc.RetryFailedItems(ctx, *companyID, *retry)
		if err != nil {
			log.Fatal("retry failed items", zap.String("payroll_id", *retry), zap.Error(err))
		}
		report(log, result)
		writePayslips(ctx, log, db, *payslips, result)
	default:
		result, err := svc.StartRun(ctx, payroll.StartRunRequest{
			CompanyID: *companyID,
			Month:     *month,
			Year:      *year,
			StartedBy: actor(startedBy),
		})
		if err != nil {
			log.Fatal("start run", zap.Int("month", *month), zap.Int("year", *year), zap.Error(err))
		}
		report(log, result)
		writePayslips(ctx, log, db, *payslips, result)
	}
}

// writePayslips renders a PDF per settled item into dir. Rendering is
// best-effort; a failed payslip never fails the run that produced it.
func writePayslips(ctx context.Context, log *zap.Logger, db *database.DB, dir string, result payroll.RunResult) {
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error("create payslip directory", zap.String("dir", dir), zap.Error(err))
		return
	}

	companyRepo := postgresql.NewCompanyRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	payrollRepo := postgresql.NewPayrollRepository(db)
	generator := payslip.NewGenerator()

	comp, err := companyRepo.GetByID(ctx, result.Payroll.CompanyID)
	if err != nil {
		log.Error("load company for payslips", zap.Error(err))
		return
	}

	items, err := payrollRepo.ListItems(ctx, result.Payroll.ID)
	if err != nil {
		log.Error("list items for payslips", zap.Error(err))
		return
	}

	for _, item := range items {
		if !item.Status.Settled() {
			continue
		}
		emp, err := employeeRepo.GetByID(ctx, item.EmployeeID, item.CompanyID)
		if err != nil {
			log.Error("load employee for payslip", zap.String("employee_id", item.EmployeeID), zap.Error(err))
			continue
		}
		doc, err := generator.Render(comp, emp, result.Payroll, item)
		if err != nil {
			log.Error("render payslip", zap.String("item_id", item.ID), zap.Error(err))
			continue
		}
		name := fmt.Sprintf("%s-%d-%02d.pdf", item.EmployeeID, result.Payroll.Year, result.Payroll.Month)
		if err := os.WriteFile(filepath.Join(dir, name), doc, 0o644); err != nil {
			log.Error("write payslip", zap.String("file", name), zap.Error(err))
		}
	}
	log.Info("payslips written", zap.String("dir", dir))
}

func actor(flagValue *string) *string {
	if flagValue == nil || *flagValue == "" {
		return nil
	}
	return flagValue
}

func report(log *zap.Logger, result payroll.RunResult) {
	log.Info("run finished",
		zap.String("payroll_id", result.Payroll.ID),
		zap.String("status", string(result.Payroll.Status)),
		zap.Int("completed", result.Summary.Completed),
		zap.Int("reviewed", result.Summary.Reviewed),
		zap.Int("failed", result.Summary.Failed),
		zap.Int("pending", result.Summary.Pending),
	)
	for _, item := range result.Items {
		if item.Error != "" {
			log.Warn("item failed",
				zap.String("item_id", item.ItemID),
				zap.String("employee_id", item.EmployeeID),
				zap.String("failure_code", item.FailureCode),
				zap.String("error", item.Error),
			)
		}
	}
}
