package payroll

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/paylane/payroll-engine-go/internal/domain/audit"
	"github.com/paylane/payroll-engine-go/internal/domain/employee"
	"github.com/paylane/payroll-engine-go/internal/domain/payroll"
	"github.com/paylane/payroll-engine-go/internal/domain/policy"
	"github.com/paylane/payroll-engine-go/internal/domain/rates"
	"github.com/paylane/payroll-engine-go/internal/domain/tenant"
	"github.com/paylane/payroll-engine-go/internal/pkg/lock"
	"github.com/paylane/payroll-engine-go/internal/service/orgchart"
)

// Config tunes the run controller.
type Config struct {
	Workers     int
	ItemTimeout time.Duration
}

// Service orchestrates payroll runs: the DRAFT -> PROCESSING ->
// {COMPLETED, CANCELLED} state machine, bounded fan-out of item
// calculations, and idempotent retries. The controller itself is
// stateless between calls; all run state lives in the persisted
// Payroll/PayrollItem rows, and concurrency safety comes from the
// ledger's compare-and-set writes.
type Service struct {
	employeeRepo employee.EmployeeRepository
	payrollRepo  payroll.PayrollRepository
	ledger       *Ledger
	rates        rates.Schedule
	policy       policy.EligibilityPolicy
	audit        audit.Sink
	locker       lock.Locker
	logger       *zap.Logger
	workers      int
	itemTimeout  time.Duration

	// cancelFlags holds the run-scoped cancellation flags, keyed by
	// payroll id. Cross-process cancellation falls back to the persisted
	// CANCELLED status.
	cancelFlags sync.Map
}

func NewService(
	employeeRepo employee.EmployeeRepository,
	payrollRepo payroll.PayrollRepository,
	ledger *Ledger,
	schedule rates.Schedule,
	eligibility policy.EligibilityPolicy,
	sink audit.Sink,
	locker lock.Locker,
	logger *zap.Logger,
	cfg Config,
) *Service {
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = 5 * time.Second
	}
	if sink == nil {
		sink = audit.Discard{}
	}
	if locker == nil {
		locker = lock.Noop{}
	}
	return &Service{
		employeeRepo: employeeRepo,
		payrollRepo:  payrollRepo,
		ledger:       ledger,
		rates:        schedule,
		policy:       eligibility,
		audit:        sink,
		locker:       locker,
		logger:       logger,
		workers:      cfg.Workers,
		itemTimeout:  cfg.ItemTimeout,
	}
}

// StartRun executes one payroll run for (companyID, month, year).
// Precondition failures (duplicate run, cyclic manager graph, cross-
// tenant reads) abort before any item is created; per-item calculation
// failures are recorded and never abort the run.
func (s *Service) StartRun(ctx context.Context, req payroll.StartRunRequest) (payroll.RunResult, error) {
	if err := req.Validate(); err != nil {
		return payroll.RunResult{}, err
	}

	scope := tenant.NewScope(req.CompanyID)

	release, err := s.locker.Acquire(ctx, fmt.Sprintf("%s:%d:%d", req.CompanyID, req.Month, req.Year))
	if err != nil {
		if errors.Is(err, lock.ErrAlreadyLocked) {
			return payroll.RunResult{}, payroll.ErrDuplicateRun
		}
		return payroll.RunResult{}, err
	}
	defer release()

	// Application-layer duplicate check, on top of the storage unique
	// constraint. A leftover DRAFT (e.g. an earlier run aborted by
	// hierarchy validation) is resumed, not duplicated.
	p, err := s.payrollRepo.GetPayrollByPeriod(ctx, req.CompanyID, req.Month, req.Year)
	switch {
	case err == nil:
		if err := scope.CheckPayroll(p); err != nil {
			return payroll.RunResult{}, err
		}
		if p.Status != payroll.PayrollStatusDraft {
			return payroll.RunResult{}, payroll.ErrDuplicateRun
		}
	case errors.Is(err, payroll.ErrPayrollNotFound):
		p, err = s.payrollRepo.CreatePayroll(ctx, payroll.Payroll{
			ID:        uuid.NewString(),
			CompanyID: req.CompanyID,
			Month:     req.Month,
			Year:      req.Year,
			Status:    payroll.PayrollStatusDraft,
		})
		if err != nil {
			return payroll.RunResult{}, err
		}
	default:
		return payroll.RunResult{}, err
	}

	onLeavePaid, err := s.policy.OnLeavePaid(ctx, req.CompanyID)
	if err != nil {
		return payroll.RunResult{}, err
	}

	// Roster snapshot: read once at run start, never re-read mid-run.
	roster, err := s.employeeRepo.ListByCompanyID(ctx, req.CompanyID)
	if err != nil {
		return payroll.RunResult{}, err
	}

	nodes := make([]orgchart.Node, 0, len(roster))
	eligible := make(map[string]employee.Employee)
	for _, emp := range roster {
		if err := scope.CheckEmployee(emp); err != nil {
			return payroll.RunResult{}, err
		}
		nodes = append(nodes, orgchart.Node{EmployeeID: emp.ID, ManagerID: emp.ManagerID})
		if emp.Status.Payable(onLeavePaid) {
			eligible[emp.ID] = emp
		}
	}

	// The whole roster must form a forest before any item is created;
	// on failure the payroll stays DRAFT.
	forest, err := orgchart.Validate(nodes)
	if err != nil {
		return payroll.RunResult{}, err
	}

	// Take the PROCESSING transition before touching any item, so a lost
	// race leaves no mutation behind.
	applied, err := s.payrollRepo.UpdatePayrollStatus(ctx, p.ID, payroll.PayrollStatusDraft, payroll.PayrollStatusProcessing)
	if err != nil {
		return payroll.RunResult{}, err
	}
	if !applied {
		return payroll.RunResult{}, payroll.ErrDuplicateRun
	}
	p.Status = payroll.PayrollStatusProcessing

	// Reuse existing items from an interrupted run, create the missing
	// ones in deterministic traversal order.
	existing, err := s.payrollRepo.ListItems(ctx, p.ID)
	if err != nil {
		return payroll.RunResult{}, err
	}
	itemByEmployee := make(map[string]payroll.PayrollItem, len(existing))
	for _, it := range existing {
		if err := scope.CheckItem(it); err != nil {
			return payroll.RunResult{}, err
		}
		itemByEmployee[it.EmployeeID] = it
	}

	var (
		toCreate, dispatch []payroll.PayrollItem
		outcomes           []payroll.ItemOutcome
	)
	for _, id := range forest.TraversalOrder() {
		emp, ok := eligible[id]
		if !ok {
			continue
		}
		it, ok := itemByEmployee[emp.ID]
		if !ok {
			it = payroll.PayrollItem{
				ID:         uuid.NewString(),
				PayrollID:  p.ID,
				EmployeeID: emp.ID,
				CompanyID:  p.CompanyID,
				Status:     payroll.ItemStatusPending,
			}
			toCreate = append(toCreate, it)
			dispatch = append(dispatch, it)
			continue
		}
		switch it.Status {
		case payroll.ItemStatusPending:
			dispatch = append(dispatch, it)
		case payroll.ItemStatusFailed:
			if it.Permanent {
				continue
			}
			reopened, err := s.ledger.Reopen(ctx, it.ID)
			if err != nil {
				return payroll.RunResult{}, err
			}
			if reopened {
				it.Status = payroll.ItemStatusPending
				dispatch = append(dispatch, it)
			}
		}
	}

	// Items left over from an interrupted attempt whose employees are no
	// longer eligible can never settle on their own; fail them permanently
	// so a stale PENDING item cannot wedge the run.
	for _, it := range existing {
		if _, ok := eligible[it.EmployeeID]; ok {
			continue
		}
		if it.Status != payroll.ItemStatusPending &&
			(it.Status != payroll.ItemStatusFailed || it.Permanent) {
			continue
		}
		if _, err := s.payrollRepo.FailItem(ctx, it.ID, payroll.FailureCodeIneligible, true, it.Status); err != nil {
			return payroll.RunResult{}, err
		}
		outcomes = append(outcomes, payroll.ItemOutcome{
			ItemID:      it.ID,
			EmployeeID:  it.EmployeeID,
			Status:      payroll.ItemStatusFailed,
			FailureCode: payroll.FailureCodeIneligible,
			Error:       payroll.ErrIneligibleEmployee.Error(),
		})
	}

	if len(toCreate) > 0 {
		if err := s.payrollRepo.CreateItems(ctx, toCreate); err != nil {
			return payroll.RunResult{}, err
		}
	}

	s.logger.Info("payroll run started",
		zap.String("payroll_id", p.ID),
		zap.String("company_id", p.CompanyID),
		zap.Int("month", p.Month),
		zap.Int("year", p.Year),
		zap.Int("items", len(dispatch)),
	)
	s.emit(ctx, audit.Event{
		UserID:     req.StartedBy,
		Action:     audit.ActionRunStarted,
		Resource:   audit.ResourcePayroll,
		ResourceID: p.ID,
		Payload: map[string]any{
			"company_id": p.CompanyID,
			"month":      p.Month,
			"year":       p.Year,
			"items":      len(dispatch),
		},
	})

	outcomes = append(outcomes, s.dispatchItems(ctx, p, dispatch, eligible, onLeavePaid, req.StartedBy)...)
	return s.finishRun(ctx, p, outcomes, req.StartedBy)
}

// RetryFailedItems re-dispatches calculation only for items currently
// FAILED and not marked permanent. Eligibility is re-evaluated: an
// employee terminated since the last attempt fails permanently and is
// not retried again.
func (s *Service) RetryFailedItems(ctx context.Context, companyID, payrollID string) (payroll.RunResult, error) {
	scope := tenant.NewScope(companyID)

	p, err := s.payrollRepo.GetPayrollByID(ctx, payrollID, companyID)
	if err != nil {
		return payroll.RunResult{}, err
	}
	if err := scope.CheckPayroll(p); err != nil {
		return payroll.RunResult{}, err
	}
	if p.Status != payroll.PayrollStatusProcessing {
		return payroll.RunResult{}, fmt.Errorf("%w: cannot retry items of a %s payroll", payroll.ErrInvalidTransition, p.Status)
	}

	release, err := s.locker.Acquire(ctx, fmt.Sprintf("%s:%d:%d", p.CompanyID, p.Month, p.Year))
	if err != nil {
		return payroll.RunResult{}, err
	}
	defer release()

	onLeavePaid, err := s.policy.OnLeavePaid(ctx, companyID)
	if err != nil {
		return payroll.RunResult{}, err
	}

	items, err := s.payrollRepo.ListItems(ctx, payrollID)
	if err != nil {
		return payroll.RunResult{}, err
	}

	var (
		dispatch  []payroll.PayrollItem
		outcomes  []payroll.ItemOutcome
		employees = make(map[string]employee.Employee)
	)
	for _, it := range items {
		if it.Status != payroll.ItemStatusFailed || it.Permanent {
			continue
		}
		if err := scope.CheckItem(it); err != nil {
			return payroll.RunResult{}, err
		}

		emp, err := s.employeeRepo.GetByID(ctx, it.EmployeeID, companyID)
		if err != nil {
			if errors.Is(err, employee.ErrEmployeeNotFound) {
				if _, err := s.payrollRepo.FailItem(ctx, it.ID, payroll.FailureCodeIneligible, true, payroll.ItemStatusFailed); err != nil {
					return payroll.RunResult{}, err
				}
				outcomes = append(outcomes, payroll.ItemOutcome{
					ItemID:      it.ID,
					EmployeeID:  it.EmployeeID,
					Status:      payroll.ItemStatusFailed,
					FailureCode: payroll.FailureCodeIneligible,
					Error:       employee.ErrEmployeeNotFound.Error(),
				})
				continue
			}
			return payroll.RunResult{}, err
		}
		if err := scope.CheckEmployee(emp); err != nil {
			return payroll.RunResult{}, err
		}

		if emp.Status == employee.StatusTerminated && emp.TerminationDate != nil {
			excluded, err := s.policy.TerminationExcludes(ctx, companyID, *emp.TerminationDate, p.PeriodStart())
			if err != nil {
				return payroll.RunResult{}, err
			}
			if excluded {
				if _, err := s.payrollRepo.FailItem(ctx, it.ID, payroll.FailureCodeIneligible, true, payroll.ItemStatusFailed); err != nil {
					return payroll.RunResult{}, err
				}
				outcomes = append(outcomes, payroll.ItemOutcome{
					ItemID:      it.ID,
					EmployeeID:  it.EmployeeID,
					Status:      payroll.ItemStatusFailed,
					FailureCode: payroll.FailureCodeIneligible,
					Error:       payroll.ErrIneligibleEmployee.Error(),
				})
				continue
			}
		}

		applied, err := s.ledger.Reopen(ctx, it.ID)
		if err != nil {
			return payroll.RunResult{}, err
		}
		if applied {
			it.Status = payroll.ItemStatusPending
			employees[it.EmployeeID] = emp
			dispatch = append(dispatch, it)
		}
	}

	outcomes = append(outcomes, s.dispatchItems(ctx, p, dispatch, employees, onLeavePaid, nil)...)
	return s.finishRun(ctx, p, outcomes, nil)
}

// CancelRun transitions a payroll to CANCELLED. Allowed from DRAFT, or
// from PROCESSING while no item has COMPLETED; paid-out calculations are
// never silently discarded.
func (s *Service) CancelRun(ctx context.Context, companyID, payrollID string, cancelledBy *string) error {
	scope := tenant.NewScope(companyID)

	p, err := s.payrollRepo.GetPayrollByID(ctx, payrollID, companyID)
	if err != nil {
		return err
	}
	if err := scope.CheckPayroll(p); err != nil {
		return err
	}

	switch p.Status {
	case payroll.PayrollStatusDraft:
		applied, err := s.payrollRepo.UpdatePayrollStatus(ctx, p.ID, payroll.PayrollStatusDraft, payroll.PayrollStatusCancelled)
		if err != nil {
			return err
		}
		if !applied {
			return payroll.ErrInvalidTransition
		}
	case payroll.PayrollStatusProcessing:
		summary, err := s.ledger.Summary(ctx, p.ID)
		if err != nil {
			return err
		}
		if summary.Completed+summary.Reviewed > 0 {
			return payroll.ErrCannotCancelCompletedWork
		}
		applied, err := s.payrollRepo.UpdatePayrollStatus(ctx, p.ID, payroll.PayrollStatusProcessing, payroll.PayrollStatusCancelled)
		if err != nil {
			return err
		}
		if !applied {
			return payroll.ErrInvalidTransition
		}
	case payroll.PayrollStatusCompleted:
		return payroll.ErrCannotCancelCompletedWork
	default:
		return fmt.Errorf("%w: payroll is already cancelled", payroll.ErrInvalidTransition)
	}

	// In-flight tasks observe the flag at their next checkpoint; they are
	// not hard-killed mid-calculation. Only an in-flight dispatch owns a
	// flag entry, so a cancel with no run underway touches nothing.
	if v, ok := s.cancelFlags.Load(p.ID); ok {
		v.(*atomic.Bool).Store(true)
	}

	s.logger.Info("payroll run cancelled", zap.String("payroll_id", p.ID))
	s.emit(ctx, audit.Event{
		UserID:     cancelledBy,
		Action:     audit.ActionRunCancelled,
		Resource:   audit.ResourcePayroll,
		ResourceID: p.ID,
		Payload:    map[string]any{"company_id": p.CompanyID},
	})
	return nil
}

// ReviewItem acknowledges a COMPLETED item (human-in-the-loop). It does
// not affect the payroll's own state machine.
func (s *Service) ReviewItem(ctx context.Context, companyID, itemID string, reviewedBy *string) (payroll.PayrollItem, error) {
	scope := tenant.NewScope(companyID)

	it, err := s.payrollRepo.GetItemByID(ctx, itemID, companyID)
	if err != nil {
		return payroll.PayrollItem{}, err
	}
	if err := scope.CheckItem(it); err != nil {
		return payroll.PayrollItem{}, err
	}
	if !it.Status.CanTransition(payroll.ItemStatusReviewed) {
		return payroll.PayrollItem{}, fmt.Errorf("%w: cannot review a %s item", payroll.ErrInvalidTransition, it.Status)
	}

	applied, err := s.payrollRepo.ReviewItem(ctx, itemID)
	if err != nil {
		return payroll.PayrollItem{}, err
	}
	if !applied {
		return payroll.PayrollItem{}, fmt.Errorf("%w: item settled concurrently", payroll.ErrInvalidTransition)
	}
	it.Status = payroll.ItemStatusReviewed

	s.emit(ctx, audit.Event{
		UserID:     reviewedBy,
		Action:     audit.ActionItemReviewed,
		Resource:   audit.ResourcePayrollItem,
		ResourceID: it.ID,
		Payload:    map[string]any{"payroll_id": it.PayrollID, "employee_id": it.EmployeeID},
	})
	return it, nil
}

// RunSummary returns item counts by status for a payroll.
func (s *Service) RunSummary(ctx context.Context, companyID, payrollID string) (payroll.RunSummary, error) {
	scope := tenant.NewScope(companyID)

	p, err := s.payrollRepo.GetPayrollByID(ctx, payrollID, companyID)
	if err != nil {
		return payroll.RunSummary{}, err
	}
	if err := scope.CheckPayroll(p); err != nil {
		return payroll.RunSummary{}, err
	}
	return s.ledger.Summary(ctx, p.ID)
}

// dispatchItems fans the pending items out on a bounded pool and joins
// all tasks before returning; completion order is unordered but the run
// decision always waits for every dispatched task.
func (s *Service) dispatchItems(ctx context.Context, p payroll.Payroll, items []payroll.PayrollItem, employees map[string]employee.Employee, onLeavePaid bool, actor *string) []payroll.ItemOutcome {
	if len(items) == 0 {
		return nil
	}

	flag := s.cancelFlag(p.ID)
	defer s.cancelFlags.Delete(p.ID)

	var (
		mu       sync.Mutex
		outcomes []payroll.ItemOutcome
	)

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, it := range items {
		if flag.Load() {
			break
		}
		it := it
		g.Go(func() error {
			outcome := s.runItem(ctx, p, it, employees[it.EmployeeID], onLeavePaid, actor)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}
	// Task failures live in the ledger, not in returned errors.
	_ = g.Wait()

	return outcomes
}

// runItem executes one calculation under the per-item timeout and records
// the outcome through the ledger. A timed-out item is recorded FAILED,
// never left PENDING.
func (s *Service) runItem(ctx context.Context, p payroll.Payroll, it payroll.PayrollItem, emp employee.Employee, onLeavePaid bool, actor *string) payroll.ItemOutcome {
	cctx, cancel := context.WithTimeout(ctx, s.itemTimeout)
	defer cancel()

	type calcOut struct {
		res CalcResult
		err error
	}
	ch := make(chan calcOut, 1)
	go func() {
		rules, err := s.rates.Lookup(cctx, emp.Country, p.Month, p.Year)
		if err != nil {
			ch <- calcOut{err: fmt.Errorf("%w: %v", payroll.ErrInvalidRateSchedule, err)}
			return
		}
		res, err := Calculate(CalcInput{
			Employee:    emp,
			Month:       p.Month,
			Year:        p.Year,
			Rules:       rules,
			OnLeavePaid: onLeavePaid,
		})
		ch <- calcOut{res: res, err: err}
	}()

	var (
		outcome Outcome
		calcErr error
	)
	select {
	case <-cctx.Done():
		calcErr = payroll.ErrCalculationTimeout
	case out := <-ch:
		calcErr = out.err
		if out.err == nil {
			outcome = Outcome{Status: payroll.ItemStatusCompleted, Result: &out.res}
		}
	}
	if calcErr != nil {
		outcome = Outcome{
			Status:      payroll.ItemStatusFailed,
			FailureCode: payroll.FailureCodeFor(calcErr),
			Permanent:   errors.Is(calcErr, payroll.ErrIneligibleEmployee),
		}
	}

	// The outcome must be recorded even when the run context was the
	// reason the calculation timed out.
	recordCtx := context.WithoutCancel(ctx)
	status, err := s.ledger.RecordAttempt(recordCtx, it, outcome)
	if err != nil {
		s.logger.Error("record item outcome",
			zap.String("payroll_id", p.ID),
			zap.String("item_id", it.ID),
			zap.Error(err),
		)
		return payroll.ItemOutcome{ItemID: it.ID, EmployeeID: it.EmployeeID, Status: it.Status, Error: err.Error()}
	}

	result := payroll.ItemOutcome{ItemID: it.ID, EmployeeID: it.EmployeeID, Status: status}
	if calcErr != nil {
		result.FailureCode = outcome.FailureCode
		result.Error = calcErr.Error()
		s.logger.Warn("payroll item failed",
			zap.String("payroll_id", p.ID),
			zap.String("employee_id", it.EmployeeID),
			zap.String("failure_code", result.FailureCode),
		)
		s.emit(recordCtx, audit.Event{
			UserID:     actor,
			Action:     audit.ActionItemFailed,
			Resource:   audit.ResourcePayrollItem,
			ResourceID: it.ID,
			Payload: map[string]any{
				"payroll_id":   p.ID,
				"employee_id":  it.EmployeeID,
				"failure_code": result.FailureCode,
			},
		})
	}
	return result
}

// finishRun decides the run outcome: all items settled -> COMPLETED; any
// failure leaves the payroll PROCESSING, reported as partial.
func (s *Service) finishRun(ctx context.Context, p payroll.Payroll, outcomes []payroll.ItemOutcome, actor *string) (payroll.RunResult, error) {
	summary, err := s.ledger.Summary(ctx, p.ID)
	if err != nil {
		return payroll.RunResult{}, err
	}

	if p.Status == payroll.PayrollStatusProcessing && summary.AllSettled() {
		applied, err := s.payrollRepo.UpdatePayrollStatus(ctx, p.ID, payroll.PayrollStatusProcessing, payroll.PayrollStatusCompleted)
		if err != nil {
			return payroll.RunResult{}, err
		}
		if applied {
			p.Status = payroll.PayrollStatusCompleted
			s.logger.Info("payroll run completed",
				zap.String("payroll_id", p.ID),
				zap.Int("items", summary.Total()),
			)
			s.emit(ctx, audit.Event{
				UserID:     actor,
				Action:     audit.ActionRunCompleted,
				Resource:   audit.ResourcePayroll,
				ResourceID: p.ID,
				Payload:    map[string]any{"completed": summary.Completed, "reviewed": summary.Reviewed},
			})
		} else {
			// Cancelled underneath us; report the persisted state.
			current, err := s.payrollRepo.GetPayrollByID(ctx, p.ID, p.CompanyID)
			if err == nil {
				p = current
			}
		}
	} else if summary.Failed > 0 {
		s.logger.Warn("payroll run partially completed",
			zap.String("payroll_id", p.ID),
			zap.Int("completed", summary.Completed),
			zap.Int("failed", summary.Failed),
		)
	}

	return payroll.RunResult{Payroll: p, Summary: summary, Items: outcomes}, nil
}

func (s *Service) cancelFlag(payrollID string) *atomic.Bool {
	v, _ := s.cancelFlags.LoadOrStore(payrollID, &atomic.Bool{})
	return v.(*atomic.Bool)
}

// emit writes an audit event fire-and-forget: sinks swallow their own
// failures and an audit write never blocks or fails the operation.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	event.CreatedAt = time.Now().UTC()
	s.audit.Record(context.WithoutCancel(ctx), event)
}
