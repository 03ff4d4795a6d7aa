/*
Package sqlite provides a SQLite-backed implementation of the storage ports.

PURPOSE:
  Implements all persistence interfaces (engine repositories, payroll
  stores, benefit stores) using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  engine.EmployeeRepository      Employee records
  engine.RateTypeRepository      Allowance/deduction/benefit type definitions
  engine.RateOverrideRepository  Per-employee rate overrides
  payroll.PeriodStore            Payroll period lifecycle
  payroll.ItemStore              Payroll items and their lines
  benefit.CycleStore             Benefit cycle lifecycle
  benefit.ItemStore              Benefit items
  benefit.AdjustmentStore        Append-only adjustment ledger

KEY CONSTRAINTS:
  - UNIQUE(period_id, employee_id) on payroll_items: one item per employee
    per period; concurrent duplicate computation converges on one row.
  - UNIQUE(cycle_id, employee_id) on benefit_items: same for benefits.
  - Status transitions use UPDATE ... WHERE status IN (...): the row's
    current status is the compare-and-swap guard, so two concurrent
    identical transitions cannot both succeed.
  - benefit_adjustments has no UPDATE or DELETE path: corrections are
    recorded as new ledger entries.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store/memory.go: In-memory implementation for testing
  - payroll/types.go, benefit/types.go: Port definitions
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/payroll-engine/benefit"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/payroll"
)

// Store implements all storage ports using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		appointment_date TEXT NOT NULL,
		daily_rate TEXT NOT NULL,
		monthly_salary TEXT NOT NULL
	);

	-- Rate types (allowances, deductions, benefits)
	CREATE TABLE IF NOT EXISTS rate_types (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		calculation TEXT NOT NULL,
		default_amount TEXT NOT NULL,
		percentage_rate TEXT NOT NULL,
		percentage_base TEXT,
		formula TEXT,
		is_taxable BOOLEAN DEFAULT FALSE,
		is_prorated BOOLEAN DEFAULT FALSE,
		frequency TEXT,
		is_active BOOLEAN DEFAULT TRUE,
		category TEXT,
		minimum_service_months INTEGER DEFAULT 0,
		tax_rate TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rate_types_kind ON rate_types(kind);

	-- Per-employee rate overrides. Overlap rejection happens in
	-- engine.ValidateOverrides before the insert.
	CREATE TABLE IF NOT EXISTS rate_overrides (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		rate_type_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_overrides_employee_type
		ON rate_overrides(employee_id, rate_type_id, effective_from);

	-- Payroll periods. The partial unique index allows re-creating a
	-- period with the same (year, month, number) after a soft delete.
	CREATE TABLE IF NOT EXISTS payroll_periods (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		period_number INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		standard_working_days INTEGER NOT NULL,
		status TEXT NOT NULL,
		deleted_at TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_periods_unique
		ON payroll_periods(year, month, period_number)
		WHERE deleted_at IS NULL;

	-- Payroll items
	-- CRITICAL: one item per employee per period. A concurrent duplicate
	-- computation hits this index and is converted into an update.
	CREATE TABLE IF NOT EXISTS payroll_items (
		id TEXT PRIMARY KEY,
		period_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		working_days INTEGER NOT NULL,
		daily_rate TEXT NOT NULL,
		basic_pay TEXT NOT NULL,
		total_allowances TEXT NOT NULL,
		total_deductions TEXT NOT NULL,
		gross_pay TEXT NOT NULL,
		net_pay TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_ref TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_payroll_items_period_employee
		ON payroll_items(period_id, employee_id);
	CREATE INDEX IF NOT EXISTS idx_payroll_items_status
		ON payroll_items(status);

	-- Payroll item lines (replaced wholesale with their item)
	CREATE TABLE IF NOT EXISTS payroll_item_lines (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		rate_type_id TEXT,
		description TEXT NOT NULL,
		basis TEXT,
		amount TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_lines_item
		ON payroll_item_lines(item_id, position);

	-- Benefit cycles
	CREATE TABLE IF NOT EXISTS benefit_cycles (
		id TEXT PRIMARY KEY,
		benefit_type_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		name TEXT NOT NULL,
		applicable_date TEXT NOT NULL,
		status TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		employee_count INTEGER DEFAULT 0,
		cancel_reason TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_cycles_unique
		ON benefit_cycles(benefit_type_id, year, name);

	-- Benefit items
	CREATE TABLE IF NOT EXISTS benefit_items (
		id TEXT PRIMARY KEY,
		cycle_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		base_salary TEXT NOT NULL,
		service_months INTEGER NOT NULL,
		is_eligible BOOLEAN NOT NULL,
		eligibility_notes TEXT,
		calculated_amount TEXT NOT NULL,
		adjustment_amount TEXT NOT NULL,
		final_amount TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		net_amount TEXT NOT NULL,
		tax_rate TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_ref TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_benefit_items_cycle_employee
		ON benefit_items(cycle_id, employee_id);
	CREATE INDEX IF NOT EXISTS idx_benefit_items_status
		ON benefit_items(status);

	-- Benefit adjustments (append-only ledger)
	CREATE TABLE IF NOT EXISTS benefit_adjustments (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		reason TEXT NOT NULL,
		approved_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_adjustments_item
		ON benefit_adjustments(item_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEES (engine.EmployeeRepository)
// =============================================================================

func (s *Store) Get(ctx context.Context, id engine.EmployeeID) (engine.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, status, appointment_date, daily_rate, monthly_salary
		FROM employees WHERE id = ?`, id)
	return scanEmployee(row)
}

func (s *Store) List(ctx context.Context) ([]engine.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, status, appointment_date, daily_rate, monthly_salary
		FROM employees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var out []engine.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) PutEmployee(ctx context.Context, emp engine.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, status, appointment_date, daily_rate, monthly_salary)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			appointment_date = excluded.appointment_date,
			daily_rate = excluded.daily_rate,
			monthly_salary = excluded.monthly_salary`,
		emp.ID, emp.Name, emp.Status, emp.AppointmentDate.String(),
		moneyStr(emp.DailyRate), moneyStr(emp.MonthlySalary))
	if err != nil {
		return fmt.Errorf("failed to store employee: %w", err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEmployee(row scannable) (engine.Employee, error) {
	var (
		emp           engine.Employee
		appointment   string
		dailyRate     string
		monthlySalary string
	)
	err := row.Scan(&emp.ID, &emp.Name, &emp.Status, &appointment, &dailyRate, &monthlySalary)
	if err == sql.ErrNoRows {
		return emp, engine.ErrNotFound
	}
	if err != nil {
		return emp, fmt.Errorf("failed to scan employee: %w", err)
	}
	emp.AppointmentDate = engine.ParseDate(appointment)
	emp.DailyRate = engine.MoneyFromString(dailyRate)
	emp.MonthlySalary = engine.MoneyFromString(monthlySalary)
	return emp, nil
}

// =============================================================================
// RATE TYPES (engine.RateTypeRepository)
// =============================================================================

func (s *Store) RateTypes() engine.RateTypeRepository { return &rateTypeStore{s: s} }

type rateTypeStore struct{ s *Store }

const rateTypeColumns = `id, code, name, kind, calculation, default_amount,
	percentage_rate, percentage_base, formula, is_taxable, is_prorated,
	frequency, is_active, category, minimum_service_months, tax_rate`

func (r *rateTypeStore) Get(ctx context.Context, id engine.RateTypeID) (engine.RateType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row := r.s.db.QueryRowContext(ctx,
		`SELECT `+rateTypeColumns+` FROM rate_types WHERE id = ?`, id)
	return scanRateType(row)
}

func (r *rateTypeStore) GetByCode(ctx context.Context, code string) (engine.RateType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row := r.s.db.QueryRowContext(ctx,
		`SELECT `+rateTypeColumns+` FROM rate_types WHERE code = ?`, code)
	return scanRateType(row)
}

func (r *rateTypeStore) List(ctx context.Context, kind engine.RateKind) ([]engine.RateType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	query := `SELECT ` + rateTypeColumns + ` FROM rate_types`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY code`

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate types: %w", err)
	}
	defer rows.Close()

	var out []engine.RateType
	for rows.Next() {
		rt, err := scanRateType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r *rateTypeStore) Put(ctx context.Context, rt engine.RateType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, err := r.s.db.ExecContext(ctx, `
		INSERT INTO rate_types (`+rateTypeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			kind = excluded.kind,
			calculation = excluded.calculation,
			default_amount = excluded.default_amount,
			percentage_rate = excluded.percentage_rate,
			percentage_base = excluded.percentage_base,
			formula = excluded.formula,
			is_taxable = excluded.is_taxable,
			is_prorated = excluded.is_prorated,
			frequency = excluded.frequency,
			is_active = excluded.is_active,
			category = excluded.category,
			minimum_service_months = excluded.minimum_service_months,
			tax_rate = excluded.tax_rate`,
		rt.ID, rt.Code, rt.Name, rt.Kind, rt.Calculation,
		moneyStr(rt.DefaultAmount), moneyStr(rt.PercentageRate),
		string(rt.PercentageBase), rt.Formula, rt.IsTaxable, rt.IsProrated,
		string(rt.Frequency), rt.IsActive, string(rt.Category),
		rt.MinimumServiceMonths, moneyStr(rt.TaxRate))
	if err != nil {
		if isUniqueConstraintError(err) {
			return engine.ErrDuplicateItem
		}
		return fmt.Errorf("failed to store rate type: %w", err)
	}
	return nil
}

func scanRateType(row scannable) (engine.RateType, error) {
	var (
		rt             engine.RateType
		defaultAmount  string
		percentageRate string
		percentageBase sql.NullString
		formula        sql.NullString
		frequency      sql.NullString
		category       sql.NullString
		taxRate        string
	)
	err := row.Scan(&rt.ID, &rt.Code, &rt.Name, &rt.Kind, &rt.Calculation,
		&defaultAmount, &percentageRate, &percentageBase, &formula,
		&rt.IsTaxable, &rt.IsProrated, &frequency, &rt.IsActive,
		&category, &rt.MinimumServiceMonths, &taxRate)
	if err == sql.ErrNoRows {
		return rt, engine.ErrNotFound
	}
	if err != nil {
		return rt, fmt.Errorf("failed to scan rate type: %w", err)
	}
	rt.DefaultAmount = engine.MoneyFromString(defaultAmount)
	rt.PercentageRate = engine.MoneyFromString(percentageRate)
	rt.PercentageBase = engine.PercentageBase(percentageBase.String)
	rt.Formula = formula.String
	rt.Frequency = engine.Frequency(frequency.String)
	rt.Category = engine.BenefitCategory(category.String)
	rt.TaxRate = engine.MoneyFromString(taxRate)
	return rt, nil
}

// =============================================================================
// RATE OVERRIDES (engine.RateOverrideRepository)
// =============================================================================

func (s *Store) Overrides() engine.RateOverrideRepository { return &overrideStore{s: s} }

type overrideStore struct{ s *Store }

func (o *overrideStore) ActiveOverride(ctx context.Context, employee engine.EmployeeID, rateType engine.RateTypeID, asOf engine.Date) (engine.RateOverride, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	row := o.s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, rate_type_id, amount, effective_from, effective_to, reason
		FROM rate_overrides
		WHERE employee_id = ? AND rate_type_id = ?
		  AND effective_from <= ?
		  AND (effective_to IS NULL OR effective_to >= ?)
		ORDER BY effective_from DESC
		LIMIT 1`,
		employee, rateType, asOf.String(), asOf.String())
	return scanOverride(row)
}

func (o *overrideStore) Put(ctx context.Context, ov engine.RateOverride) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	existing, err := o.listByEmployee(ctx, ov.Employee)
	if err != nil {
		return err
	}
	if err := engine.ValidateOverrides(existing, ov); err != nil {
		return err
	}

	var to any
	if ov.Effective.End != nil {
		to = ov.Effective.End.String()
	}
	_, err = o.s.db.ExecContext(ctx, `
		INSERT INTO rate_overrides (id, employee_id, rate_type_id, amount, effective_from, effective_to, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ov.ID, ov.Employee, ov.RateType, moneyStr(ov.Amount),
		ov.Effective.Start.String(), to, ov.Reason)
	if err != nil {
		return fmt.Errorf("failed to store override: %w", err)
	}
	return nil
}

func (o *overrideStore) ListByEmployee(ctx context.Context, employee engine.EmployeeID) ([]engine.RateOverride, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	return o.listByEmployee(ctx, employee)
}

func (o *overrideStore) listByEmployee(ctx context.Context, employee engine.EmployeeID) ([]engine.RateOverride, error) {
	rows, err := o.s.db.QueryContext(ctx, `
		SELECT id, employee_id, rate_type_id, amount, effective_from, effective_to, reason
		FROM rate_overrides WHERE employee_id = ? ORDER BY effective_from`, employee)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	var out []engine.RateOverride
	for rows.Next() {
		ov, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ov)
	}
	return out, rows.Err()
}

func scanOverride(row scannable) (engine.RateOverride, error) {
	var (
		ov     engine.RateOverride
		amount string
		from   string
		to     sql.NullString
		reason sql.NullString
	)
	err := row.Scan(&ov.ID, &ov.Employee, &ov.RateType, &amount, &from, &to, &reason)
	if err == sql.ErrNoRows {
		return ov, engine.ErrNotFound
	}
	if err != nil {
		return ov, fmt.Errorf("failed to scan override: %w", err)
	}
	ov.Amount = engine.MoneyFromString(amount)
	ov.Effective.Start = engine.ParseDate(from)
	if to.Valid {
		end := engine.ParseDate(to.String)
		ov.Effective.End = &end
	}
	ov.Reason = reason.String
	return ov, nil
}

// =============================================================================
// PAYROLL PERIODS (payroll.PeriodStore)
// =============================================================================

func (s *Store) Periods() payroll.PeriodStore { return &periodStore{s: s} }

type periodStore struct{ s *Store }

func (p *periodStore) Get(ctx context.Context, id engine.PeriodID) (payroll.Period, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	row := p.s.db.QueryRowContext(ctx, `
		SELECT id, year, month, period_number, start_date, end_date,
		       standard_working_days, status, deleted_at
		FROM payroll_periods WHERE id = ? AND deleted_at IS NULL`, id)
	return scanPeriod(row)
}

func (p *periodStore) Create(ctx context.Context, period payroll.Period) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	_, err := p.s.db.ExecContext(ctx, `
		INSERT INTO payroll_periods
		(id, year, month, period_number, start_date, end_date, standard_working_days, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		period.ID, period.Year, int(period.Month), period.PeriodNumber,
		period.StartDate.String(), period.EndDate.String(),
		period.StandardWorkingDays, period.Status)
	if err != nil {
		if isUniqueConstraintError(err) {
			return engine.ErrDuplicateItem
		}
		return fmt.Errorf("failed to create period: %w", err)
	}
	return nil
}

func (p *periodStore) List(ctx context.Context) ([]payroll.Period, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	rows, err := p.s.db.QueryContext(ctx, `
		SELECT id, year, month, period_number, start_date, end_date,
		       standard_working_days, status, deleted_at
		FROM payroll_periods WHERE deleted_at IS NULL
		ORDER BY year, month, period_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()

	var out []payroll.Period
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, period)
	}
	return out, rows.Err()
}

func (p *periodStore) Transition(ctx context.Context, id engine.PeriodID, from []payroll.PeriodStatus, to payroll.PeriodStatus) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	args := []any{string(to), string(id)}
	for _, f := range from {
		args = append(args, string(f))
	}
	res, err := p.s.db.ExecContext(ctx,
		`UPDATE payroll_periods SET status = ? WHERE id = ? AND status IN (`+placeholders(len(from))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to transition period: %w", err)
	}
	return p.s.checkTransition(ctx, res, "payroll_periods", string(id), string(to))
}

func (p *periodStore) SoftDelete(ctx context.Context, id engine.PeriodID, at time.Time) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	res, err := p.s.db.ExecContext(ctx,
		`UPDATE payroll_periods SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to delete period: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func scanPeriod(row scannable) (payroll.Period, error) {
	var (
		period    payroll.Period
		month     int
		start     string
		end       string
		deletedAt sql.NullString
	)
	err := row.Scan(&period.ID, &period.Year, &month, &period.PeriodNumber,
		&start, &end, &period.StandardWorkingDays, &period.Status, &deletedAt)
	if err == sql.ErrNoRows {
		return period, engine.ErrNotFound
	}
	if err != nil {
		return period, fmt.Errorf("failed to scan period: %w", err)
	}
	period.Month = time.Month(month)
	period.StartDate = engine.ParseDate(start)
	period.EndDate = engine.ParseDate(end)
	if deletedAt.Valid {
		t, _ := time.Parse(time.RFC3339, deletedAt.String)
		period.DeletedAt = &t
	}
	return period, nil
}

// =============================================================================
// PAYROLL ITEMS (payroll.ItemStore)
// =============================================================================

func (s *Store) PayrollItems() payroll.ItemStore { return &payrollItemStore{s: s} }

type payrollItemStore struct{ s *Store }

const payrollItemColumns = `id, period_id, employee_id, working_days, daily_rate,
	basic_pay, total_allowances, total_deductions, gross_pay, net_pay, status, payment_ref`

func (st *payrollItemStore) Find(ctx context.Context, period engine.PeriodID, employee engine.EmployeeID) (payroll.Item, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	row := st.s.db.QueryRowContext(ctx,
		`SELECT `+payrollItemColumns+` FROM payroll_items WHERE period_id = ? AND employee_id = ?`,
		period, employee)
	return scanPayrollItem(row)
}

func (st *payrollItemStore) Get(ctx context.Context, id engine.ItemID) (payroll.Item, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	row := st.s.db.QueryRowContext(ctx,
		`SELECT `+payrollItemColumns+` FROM payroll_items WHERE id = ?`, id)
	return scanPayrollItem(row)
}

func (st *payrollItemStore) Lines(ctx context.Context, id engine.ItemID) ([]payroll.ItemLine, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	rows, err := st.s.db.QueryContext(ctx, `
		SELECT id, item_id, kind, rate_type_id, description, basis, amount
		FROM payroll_item_lines WHERE item_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	var out []payroll.ItemLine
	for rows.Next() {
		var (
			line     payroll.ItemLine
			rateType sql.NullString
			basis    sql.NullString
			amount   string
		)
		if err := rows.Scan(&line.ID, &line.ItemID, &line.Kind, &rateType,
			&line.Description, &basis, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}
		if rateType.Valid {
			id := engine.RateTypeID(rateType.String)
			line.RateType = &id
		}
		line.Basis = basis.String
		line.Amount = engine.MoneyFromString(amount)
		out = append(out, line)
	}
	return out, rows.Err()
}

func (st *payrollItemStore) ListByPeriod(ctx context.Context, period engine.PeriodID) ([]payroll.Item, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	rows, err := st.s.db.QueryContext(ctx,
		`SELECT `+payrollItemColumns+` FROM payroll_items WHERE period_id = ? ORDER BY employee_id`,
		period)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var out []payroll.Item
	for rows.Next() {
		item, err := scanPayrollItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Replace upserts the item and replaces its lines in one database
// transaction. On a (period, employee) collision the existing row's id
// wins, so a concurrent duplicate insert converges into an update.
func (st *payrollItemStore) Replace(ctx context.Context, item payroll.Item, lines []payroll.ItemLine) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	sqlTx, err := st.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	var existingID string
	err = sqlTx.QueryRowContext(ctx,
		`SELECT id FROM payroll_items WHERE period_id = ? AND employee_id = ?`,
		item.PeriodID, item.EmployeeID).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to look up item: %w", err)
	}
	if existingID != "" {
		item.ID = engine.ItemID(existingID)
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO payroll_items (`+payrollItemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			working_days = excluded.working_days,
			daily_rate = excluded.daily_rate,
			basic_pay = excluded.basic_pay,
			total_allowances = excluded.total_allowances,
			total_deductions = excluded.total_deductions,
			gross_pay = excluded.gross_pay,
			net_pay = excluded.net_pay,
			status = excluded.status,
			payment_ref = excluded.payment_ref`,
		item.ID, item.PeriodID, item.EmployeeID, item.WorkingDays,
		moneyStr(item.DailyRate), moneyStr(item.BasicPay),
		moneyStr(item.TotalAllowances), moneyStr(item.TotalDeductions),
		moneyStr(item.GrossPay), moneyStr(item.NetPay),
		item.Status, nullString(item.PaymentRef))
	if err != nil {
		return fmt.Errorf("failed to store item: %w", err)
	}

	if _, err := sqlTx.ExecContext(ctx,
		`DELETE FROM payroll_item_lines WHERE item_id = ?`, item.ID); err != nil {
		return fmt.Errorf("failed to clear lines: %w", err)
	}
	for i, line := range lines {
		var rateType any
		if line.RateType != nil {
			rateType = string(*line.RateType)
		}
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO payroll_item_lines
			(id, item_id, kind, rate_type_id, description, basis, amount, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID, item.ID, line.Kind, rateType, line.Description,
			line.Basis, moneyStr(line.Amount), i)
		if err != nil {
			return fmt.Errorf("failed to store line: %w", err)
		}
	}

	return sqlTx.Commit()
}

func (st *payrollItemStore) Transition(ctx context.Context, id engine.ItemID, from []payroll.ItemStatus, to payroll.ItemStatus) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	args := []any{string(to), string(id)}
	for _, f := range from {
		args = append(args, string(f))
	}
	res, err := st.s.db.ExecContext(ctx,
		`UPDATE payroll_items SET status = ? WHERE id = ? AND status IN (`+placeholders(len(from))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to transition item: %w", err)
	}
	return st.s.checkTransition(ctx, res, "payroll_items", string(id), string(to))
}

func (st *payrollItemStore) MarkPaid(ctx context.Context, id engine.ItemID, ref string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	res, err := st.s.db.ExecContext(ctx,
		`UPDATE payroll_items SET status = ?, payment_ref = ? WHERE id = ? AND status = ?`,
		payroll.ItemPaid, ref, id, payroll.ItemFinalized)
	if err != nil {
		return fmt.Errorf("failed to mark item paid: %w", err)
	}
	return st.s.checkTransition(ctx, res, "payroll_items", string(id), string(payroll.ItemPaid))
}

func scanPayrollItem(row scannable) (payroll.Item, error) {
	var (
		item       payroll.Item
		dailyRate  string
		basicPay   string
		allowances string
		deductions string
		gross      string
		net        string
		paymentRef sql.NullString
	)
	err := row.Scan(&item.ID, &item.PeriodID, &item.EmployeeID, &item.WorkingDays,
		&dailyRate, &basicPay, &allowances, &deductions, &gross, &net,
		&item.Status, &paymentRef)
	if err == sql.ErrNoRows {
		return item, engine.ErrNotFound
	}
	if err != nil {
		return item, fmt.Errorf("failed to scan item: %w", err)
	}
	item.DailyRate = engine.MoneyFromString(dailyRate)
	item.BasicPay = engine.MoneyFromString(basicPay)
	item.TotalAllowances = engine.MoneyFromString(allowances)
	item.TotalDeductions = engine.MoneyFromString(deductions)
	item.GrossPay = engine.MoneyFromString(gross)
	item.NetPay = engine.MoneyFromString(net)
	item.PaymentRef = paymentRef.String
	return item, nil
}

// =============================================================================
// BENEFIT CYCLES (benefit.CycleStore)
// =============================================================================

func (s *Store) Cycles() benefit.CycleStore { return &cycleStore{s: s} }

type cycleStore struct{ s *Store }

func (c *cycleStore) Get(ctx context.Context, id engine.CycleID) (benefit.Cycle, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	row := c.s.db.QueryRowContext(ctx, `
		SELECT id, benefit_type_id, year, name, applicable_date, status,
		       total_amount, employee_count, cancel_reason
		FROM benefit_cycles WHERE id = ?`, id)
	return scanCycle(row)
}

func (c *cycleStore) Create(ctx context.Context, cycle benefit.Cycle) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	_, err := c.s.db.ExecContext(ctx, `
		INSERT INTO benefit_cycles
		(id, benefit_type_id, year, name, applicable_date, status, total_amount, employee_count, cancel_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cycle.ID, cycle.BenefitTypeID, cycle.Year, cycle.Name,
		cycle.ApplicableDate.String(), cycle.Status,
		moneyStr(cycle.TotalAmount), cycle.EmployeeCount,
		nullString(cycle.CancelReason))
	if err != nil {
		if isUniqueConstraintError(err) {
			return engine.ErrDuplicateItem
		}
		return fmt.Errorf("failed to create cycle: %w", err)
	}
	return nil
}

func (c *cycleStore) List(ctx context.Context) ([]benefit.Cycle, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	rows, err := c.s.db.QueryContext(ctx, `
		SELECT id, benefit_type_id, year, name, applicable_date, status,
		       total_amount, employee_count, cancel_reason
		FROM benefit_cycles ORDER BY year, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var out []benefit.Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cycle)
	}
	return out, rows.Err()
}

func (c *cycleStore) Transition(ctx context.Context, id engine.CycleID, from []benefit.CycleStatus, to benefit.CycleStatus) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	args := []any{string(to), string(id)}
	for _, f := range from {
		args = append(args, string(f))
	}
	res, err := c.s.db.ExecContext(ctx,
		`UPDATE benefit_cycles SET status = ? WHERE id = ? AND status IN (`+placeholders(len(from))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to transition cycle: %w", err)
	}
	return c.s.checkTransition(ctx, res, "benefit_cycles", string(id), string(to))
}

func (c *cycleStore) UpdateAggregates(ctx context.Context, id engine.CycleID, total engine.Money, count int) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	res, err := c.s.db.ExecContext(ctx,
		`UPDATE benefit_cycles SET total_amount = ?, employee_count = ? WHERE id = ?`,
		moneyStr(total), count, id)
	if err != nil {
		return fmt.Errorf("failed to update aggregates: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func (c *cycleStore) SetCancelReason(ctx context.Context, id engine.CycleID, reason string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	res, err := c.s.db.ExecContext(ctx,
		`UPDATE benefit_cycles SET cancel_reason = ? WHERE id = ?`, reason, id)
	if err != nil {
		return fmt.Errorf("failed to set cancel reason: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func scanCycle(row scannable) (benefit.Cycle, error) {
	var (
		cycle        benefit.Cycle
		applicable   string
		total        string
		cancelReason sql.NullString
	)
	err := row.Scan(&cycle.ID, &cycle.BenefitTypeID, &cycle.Year, &cycle.Name,
		&applicable, &cycle.Status, &total, &cycle.EmployeeCount, &cancelReason)
	if err == sql.ErrNoRows {
		return cycle, engine.ErrNotFound
	}
	if err != nil {
		return cycle, fmt.Errorf("failed to scan cycle: %w", err)
	}
	cycle.ApplicableDate = engine.ParseDate(applicable)
	cycle.TotalAmount = engine.MoneyFromString(total)
	cycle.CancelReason = cancelReason.String
	return cycle, nil
}

// =============================================================================
// BENEFIT ITEMS (benefit.ItemStore)
// =============================================================================

func (s *Store) BenefitItems() benefit.ItemStore { return &benefitItemStore{s: s} }

type benefitItemStore struct{ s *Store }

const benefitItemColumns = `id, cycle_id, employee_id, base_salary, service_months,
	is_eligible, eligibility_notes, calculated_amount, adjustment_amount,
	final_amount, tax_amount, net_amount, tax_rate, status, payment_ref`

func (st *benefitItemStore) Find(ctx context.Context, cycle engine.CycleID, employee engine.EmployeeID) (benefit.Item, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	row := st.s.db.QueryRowContext(ctx,
		`SELECT `+benefitItemColumns+` FROM benefit_items WHERE cycle_id = ? AND employee_id = ?`,
		cycle, employee)
	return scanBenefitItem(row)
}

func (st *benefitItemStore) Get(ctx context.Context, id engine.ItemID) (benefit.Item, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	row := st.s.db.QueryRowContext(ctx,
		`SELECT `+benefitItemColumns+` FROM benefit_items WHERE id = ?`, id)
	return scanBenefitItem(row)
}

func (st *benefitItemStore) ListByCycle(ctx context.Context, cycle engine.CycleID) ([]benefit.Item, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	rows, err := st.s.db.QueryContext(ctx,
		`SELECT `+benefitItemColumns+` FROM benefit_items WHERE cycle_id = ? ORDER BY employee_id`,
		cycle)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var out []benefit.Item
	for rows.Next() {
		item, err := scanBenefitItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Replace upserts the item in one database transaction. On a
// (cycle, employee) collision the existing row's id wins, so a concurrent
// duplicate insert converges into an update.
func (st *benefitItemStore) Replace(ctx context.Context, item benefit.Item) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	sqlTx, err := st.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	var existingID string
	err = sqlTx.QueryRowContext(ctx,
		`SELECT id FROM benefit_items WHERE cycle_id = ? AND employee_id = ?`,
		item.CycleID, item.EmployeeID).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to look up item: %w", err)
	}
	if existingID != "" {
		item.ID = engine.ItemID(existingID)
	}

	if err := upsertBenefitItem(ctx, sqlTx, item); err != nil {
		if !isUniqueConstraintError(err) {
			return fmt.Errorf("failed to store item: %w", err)
		}
		// A writer outside this process slipped in between the lookup and
		// the insert: adopt its row id and update in place.
		err = sqlTx.QueryRowContext(ctx,
			`SELECT id FROM benefit_items WHERE cycle_id = ? AND employee_id = ?`,
			item.CycleID, item.EmployeeID).Scan(&existingID)
		if err != nil {
			return fmt.Errorf("failed to re-read item after duplicate insert: %w", err)
		}
		item.ID = engine.ItemID(existingID)
		if err := upsertBenefitItem(ctx, sqlTx, item); err != nil {
			return fmt.Errorf("failed to store item: %w", err)
		}
	}
	return sqlTx.Commit()
}

func upsertBenefitItem(ctx context.Context, sqlTx *sql.Tx, item benefit.Item) error {
	_, err := sqlTx.ExecContext(ctx, `
		INSERT INTO benefit_items (`+benefitItemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			base_salary = excluded.base_salary,
			service_months = excluded.service_months,
			is_eligible = excluded.is_eligible,
			eligibility_notes = excluded.eligibility_notes,
			calculated_amount = excluded.calculated_amount,
			adjustment_amount = excluded.adjustment_amount,
			final_amount = excluded.final_amount,
			tax_amount = excluded.tax_amount,
			net_amount = excluded.net_amount,
			tax_rate = excluded.tax_rate,
			status = excluded.status,
			payment_ref = excluded.payment_ref`,
		item.ID, item.CycleID, item.EmployeeID, moneyStr(item.BaseSalary),
		item.ServiceMonths, item.IsEligible, item.EligibilityNotes,
		moneyStr(item.CalculatedAmount), moneyStr(item.AdjustmentAmount),
		moneyStr(item.FinalAmount), moneyStr(item.TaxAmount),
		moneyStr(item.NetAmount), moneyStr(item.TaxRate),
		item.Status, nullString(item.PaymentRef))
	return err
}

func (st *benefitItemStore) UpdateAmounts(ctx context.Context, id engine.ItemID, adjustment, final, tax, net engine.Money) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	res, err := st.s.db.ExecContext(ctx, `
		UPDATE benefit_items
		SET adjustment_amount = ?, final_amount = ?, tax_amount = ?, net_amount = ?
		WHERE id = ? AND status NOT IN (?, ?)`,
		moneyStr(adjustment), moneyStr(final), moneyStr(tax), moneyStr(net),
		id, benefit.ItemPaid, benefit.ItemCancelled)
	if err != nil {
		return fmt.Errorf("failed to update amounts: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		if !st.s.rowExists(ctx, "benefit_items", string(id)) {
			return engine.ErrNotFound
		}
		return engine.ErrAlreadyPaid
	}
	return nil
}

func (st *benefitItemStore) Transition(ctx context.Context, id engine.ItemID, from []benefit.ItemStatus, to benefit.ItemStatus) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	args := []any{string(to), string(id)}
	for _, f := range from {
		args = append(args, string(f))
	}
	res, err := st.s.db.ExecContext(ctx,
		`UPDATE benefit_items SET status = ? WHERE id = ? AND status IN (`+placeholders(len(from))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to transition item: %w", err)
	}
	return st.s.checkTransition(ctx, res, "benefit_items", string(id), string(to))
}

func (st *benefitItemStore) MarkPaid(ctx context.Context, id engine.ItemID, ref string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	res, err := st.s.db.ExecContext(ctx,
		`UPDATE benefit_items SET status = ?, payment_ref = ? WHERE id = ? AND status = ?`,
		benefit.ItemPaid, ref, id, benefit.ItemApproved)
	if err != nil {
		return fmt.Errorf("failed to mark item paid: %w", err)
	}
	return st.s.checkTransition(ctx, res, "benefit_items", string(id), string(benefit.ItemPaid))
}

func (st *benefitItemStore) CancelNonPaid(ctx context.Context, cycle engine.CycleID) (int, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	res, err := st.s.db.ExecContext(ctx,
		`UPDATE benefit_items SET status = ? WHERE cycle_id = ? AND status NOT IN (?, ?)`,
		benefit.ItemCancelled, cycle, benefit.ItemPaid, benefit.ItemCancelled)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel items: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanBenefitItem(row scannable) (benefit.Item, error) {
	var (
		item       benefit.Item
		baseSalary string
		notes      sql.NullString
		calculated string
		adjustment string
		final      string
		tax        string
		net        string
		taxRate    string
		paymentRef sql.NullString
	)
	err := row.Scan(&item.ID, &item.CycleID, &item.EmployeeID, &baseSalary,
		&item.ServiceMonths, &item.IsEligible, &notes, &calculated,
		&adjustment, &final, &tax, &net, &taxRate, &item.Status, &paymentRef)
	if err == sql.ErrNoRows {
		return item, engine.ErrNotFound
	}
	if err != nil {
		return item, fmt.Errorf("failed to scan item: %w", err)
	}
	item.BaseSalary = engine.MoneyFromString(baseSalary)
	item.EligibilityNotes = notes.String
	item.CalculatedAmount = engine.MoneyFromString(calculated)
	item.AdjustmentAmount = engine.MoneyFromString(adjustment)
	item.FinalAmount = engine.MoneyFromString(final)
	item.TaxAmount = engine.MoneyFromString(tax)
	item.NetAmount = engine.MoneyFromString(net)
	item.TaxRate = engine.MoneyFromString(taxRate)
	item.PaymentRef = paymentRef.String
	return item, nil
}

// =============================================================================
// BENEFIT ADJUSTMENTS (benefit.AdjustmentStore, append-only)
// =============================================================================

func (s *Store) Adjustments() benefit.AdjustmentStore { return &adjustmentStore{s: s} }

type adjustmentStore struct{ s *Store }

func (a *adjustmentStore) Append(ctx context.Context, adj benefit.Adjustment) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	_, err := a.s.db.ExecContext(ctx, `
		INSERT INTO benefit_adjustments (id, item_id, type, amount, reason, approved_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		adj.ID, adj.ItemID, adj.Type, moneyStr(adj.Amount), adj.Reason,
		nullString(adj.ApprovedBy), adj.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to append adjustment: %w", err)
	}
	return nil
}

func (a *adjustmentStore) ListByItem(ctx context.Context, item engine.ItemID) ([]benefit.Adjustment, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	rows, err := a.s.db.QueryContext(ctx, `
		SELECT id, item_id, type, amount, reason, approved_by, created_at
		FROM benefit_adjustments WHERE item_id = ?
		ORDER BY created_at, id`, item)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer rows.Close()

	var out []benefit.Adjustment
	for rows.Next() {
		var (
			adj        benefit.Adjustment
			amount     string
			approvedBy sql.NullString
			createdAt  string
		)
		if err := rows.Scan(&adj.ID, &adj.ItemID, &adj.Type, &amount,
			&adj.Reason, &approvedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		adj.Amount = engine.MoneyFromString(amount)
		adj.ApprovedBy = approvedBy.String
		adj.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, adj)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// checkTransition converts a zero-row status CAS into the right error:
// missing row vs. a row whose current status refused the swap.
func (s *Store) checkTransition(ctx context.Context, res sql.Result, table, id, to string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var current string
	err = s.db.QueryRowContext(ctx,
		`SELECT status FROM `+table+` WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return engine.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}
	return &engine.TransitionError{ID: id, From: current, To: to}
}

func (s *Store) rowExists(ctx context.Context, table, id string) bool {
	var count int
	s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id).Scan(&count)
	return count > 0
}

// isUniqueConstraintError recognizes UNIQUE index violations so callers
// can surface them as duplicates rather than opaque storage failures.
func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func moneyStr(m engine.Money) string {
	return m.Value.String()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func placeholders(n int) string {
	if n == 0 {
		return "''"
	}
	return strings.Repeat("?, ", n-1) + "?"
}
