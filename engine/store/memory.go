// Package store provides in-memory implementations of the engine,
// payroll, and benefit store ports. Used by tests and the dev server;
// store/sqlite is the production implementation.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/payroll-engine/benefit"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory implements every store port behind one RWMutex. The lock is the
// in-memory stand-in for the storage-level constraints: uniqueness checks
// and status compare-and-swaps happen atomically under it.
type Memory struct {
	mu sync.RWMutex

	employees map[engine.EmployeeID]engine.Employee
	rateTypes map[engine.RateTypeID]engine.RateType
	overrides map[engine.OverrideID]engine.RateOverride

	periods      map[engine.PeriodID]payroll.Period
	payrollItems map[engine.ItemID]payroll.Item
	payrollByKey map[payrollKey]engine.ItemID
	payrollLines map[engine.ItemID][]payroll.ItemLine

	cycles       map[engine.CycleID]benefit.Cycle
	benefitItems map[engine.ItemID]benefit.Item
	benefitByKey map[benefitKey]engine.ItemID
	adjustments  map[engine.ItemID][]benefit.Adjustment
}

type payrollKey struct {
	Period   engine.PeriodID
	Employee engine.EmployeeID
}

type benefitKey struct {
	Cycle    engine.CycleID
	Employee engine.EmployeeID
}

func NewMemory() *Memory {
	return &Memory{
		employees:    make(map[engine.EmployeeID]engine.Employee),
		rateTypes:    make(map[engine.RateTypeID]engine.RateType),
		overrides:    make(map[engine.OverrideID]engine.RateOverride),
		periods:      make(map[engine.PeriodID]payroll.Period),
		payrollItems: make(map[engine.ItemID]payroll.Item),
		payrollByKey: make(map[payrollKey]engine.ItemID),
		payrollLines: make(map[engine.ItemID][]payroll.ItemLine),
		cycles:       make(map[engine.CycleID]benefit.Cycle),
		benefitItems: make(map[engine.ItemID]benefit.Item),
		benefitByKey: make(map[benefitKey]engine.ItemID),
		adjustments:  make(map[engine.ItemID][]benefit.Adjustment),
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) Get(_ context.Context, id engine.EmployeeID) (engine.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[id]
	if !ok {
		return engine.Employee{}, engine.ErrNotFound
	}
	return emp, nil
}

func (m *Memory) List(_ context.Context) ([]engine.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		out = append(out, emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) PutEmployee(_ context.Context, emp engine.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
	return nil
}

// =============================================================================
// RATE TYPES
// =============================================================================

// RateTypes exposes the rate-type port (method set kept separate because
// Get/List collide with the employee port).
func (m *Memory) RateTypes() engine.RateTypeRepository { return &memoryRateTypes{m: m} }

type memoryRateTypes struct{ m *Memory }

func (r *memoryRateTypes) Get(_ context.Context, id engine.RateTypeID) (engine.RateType, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	rt, ok := r.m.rateTypes[id]
	if !ok {
		return engine.RateType{}, engine.ErrNotFound
	}
	return rt, nil
}

func (r *memoryRateTypes) GetByCode(_ context.Context, code string) (engine.RateType, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, rt := range r.m.rateTypes {
		if rt.Code == code {
			return rt, nil
		}
	}
	return engine.RateType{}, engine.ErrNotFound
}

func (r *memoryRateTypes) List(_ context.Context, kind engine.RateKind) ([]engine.RateType, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []engine.RateType
	for _, rt := range r.m.rateTypes {
		if kind == "" || rt.Kind == kind {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memoryRateTypes) Put(_ context.Context, rt engine.RateType) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.rateTypes[rt.ID] = rt
	return nil
}

// =============================================================================
// RATE OVERRIDES
// =============================================================================

func (m *Memory) Overrides() engine.RateOverrideRepository { return &memoryOverrides{m: m} }

type memoryOverrides struct{ m *Memory }

func (o *memoryOverrides) ActiveOverride(_ context.Context, employee engine.EmployeeID, rateType engine.RateTypeID, asOf engine.Date) (engine.RateOverride, error) {
	o.m.mu.RLock()
	defer o.m.mu.RUnlock()
	for _, ov := range o.m.overrides {
		if ov.Employee == employee && ov.RateType == rateType && ov.Effective.Contains(asOf) {
			return ov, nil
		}
	}
	return engine.RateOverride{}, engine.ErrNotFound
}

func (o *memoryOverrides) Put(_ context.Context, ov engine.RateOverride) error {
	o.m.mu.Lock()
	defer o.m.mu.Unlock()
	existing := make([]engine.RateOverride, 0, len(o.m.overrides))
	for _, e := range o.m.overrides {
		existing = append(existing, e)
	}
	if err := engine.ValidateOverrides(existing, ov); err != nil {
		return err
	}
	o.m.overrides[ov.ID] = ov
	return nil
}

func (o *memoryOverrides) ListByEmployee(_ context.Context, employee engine.EmployeeID) ([]engine.RateOverride, error) {
	o.m.mu.RLock()
	defer o.m.mu.RUnlock()
	var out []engine.RateOverride
	for _, ov := range o.m.overrides {
		if ov.Employee == employee {
			out = append(out, ov)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// PAYROLL PERIODS
// =============================================================================

func (m *Memory) Periods() payroll.PeriodStore { return &memoryPeriods{m: m} }

type memoryPeriods struct{ m *Memory }

func (p *memoryPeriods) Get(_ context.Context, id engine.PeriodID) (payroll.Period, error) {
	p.m.mu.RLock()
	defer p.m.mu.RUnlock()
	period, ok := p.m.periods[id]
	if !ok || period.DeletedAt != nil {
		return payroll.Period{}, engine.ErrNotFound
	}
	return period, nil
}

func (p *memoryPeriods) Create(_ context.Context, period payroll.Period) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	for _, existing := range p.m.periods {
		if existing.DeletedAt == nil &&
			existing.Year == period.Year &&
			existing.Month == period.Month &&
			existing.PeriodNumber == period.PeriodNumber {
			return engine.ErrDuplicateItem
		}
	}
	p.m.periods[period.ID] = period
	return nil
}

func (p *memoryPeriods) List(_ context.Context) ([]payroll.Period, error) {
	p.m.mu.RLock()
	defer p.m.mu.RUnlock()
	var out []payroll.Period
	for _, period := range p.m.periods {
		if period.DeletedAt == nil {
			out = append(out, period)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *memoryPeriods) Transition(_ context.Context, id engine.PeriodID, from []payroll.PeriodStatus, to payroll.PeriodStatus) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	period, ok := p.m.periods[id]
	if !ok {
		return engine.ErrNotFound
	}
	for _, f := range from {
		if period.Status == f {
			period.Status = to
			p.m.periods[id] = period
			return nil
		}
	}
	return &engine.TransitionError{ID: string(id), From: string(period.Status), To: string(to)}
}

func (p *memoryPeriods) SoftDelete(_ context.Context, id engine.PeriodID, at time.Time) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	period, ok := p.m.periods[id]
	if !ok {
		return engine.ErrNotFound
	}
	period.DeletedAt = &at
	p.m.periods[id] = period
	return nil
}

// =============================================================================
// PAYROLL ITEMS
// =============================================================================

func (m *Memory) PayrollItems() payroll.ItemStore { return &memoryPayrollItems{m: m} }

type memoryPayrollItems struct{ m *Memory }

func (s *memoryPayrollItems) Find(_ context.Context, period engine.PeriodID, employee engine.EmployeeID) (payroll.Item, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	id, ok := s.m.payrollByKey[payrollKey{Period: period, Employee: employee}]
	if !ok {
		return payroll.Item{}, engine.ErrNotFound
	}
	return s.m.payrollItems[id], nil
}

func (s *memoryPayrollItems) Get(_ context.Context, id engine.ItemID) (payroll.Item, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	item, ok := s.m.payrollItems[id]
	if !ok {
		return payroll.Item{}, engine.ErrNotFound
	}
	return item, nil
}

func (s *memoryPayrollItems) Lines(_ context.Context, id engine.ItemID) ([]payroll.ItemLine, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	lines := make([]payroll.ItemLine, len(s.m.payrollLines[id]))
	copy(lines, s.m.payrollLines[id])
	return lines, nil
}

func (s *memoryPayrollItems) ListByPeriod(_ context.Context, period engine.PeriodID) ([]payroll.Item, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var out []payroll.Item
	for _, item := range s.m.payrollItems {
		if item.PeriodID == period {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// Replace upserts the item and its lines in one critical section. The
// byKey index enforces the (period, employee) uniqueness invariant: a
// concurrent duplicate insert lands on the same key and becomes an update.
func (s *memoryPayrollItems) Replace(_ context.Context, item payroll.Item, lines []payroll.ItemLine) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	key := payrollKey{Period: item.PeriodID, Employee: item.EmployeeID}
	if existingID, ok := s.m.payrollByKey[key]; ok && existingID != item.ID {
		// A concurrent writer created the row first; update that row.
		item.ID = existingID
	}
	s.m.payrollByKey[key] = item.ID
	s.m.payrollItems[item.ID] = item
	replaced := make([]payroll.ItemLine, len(lines))
	copy(replaced, lines)
	s.m.payrollLines[item.ID] = replaced
	return nil
}

func (s *memoryPayrollItems) Transition(_ context.Context, id engine.ItemID, from []payroll.ItemStatus, to payroll.ItemStatus) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	item, ok := s.m.payrollItems[id]
	if !ok {
		return engine.ErrNotFound
	}
	for _, f := range from {
		if item.Status == f {
			item.Status = to
			s.m.payrollItems[id] = item
			return nil
		}
	}
	return &engine.TransitionError{ID: string(id), From: string(item.Status), To: string(to)}
}

func (s *memoryPayrollItems) MarkPaid(_ context.Context, id engine.ItemID, ref string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	item, ok := s.m.payrollItems[id]
	if !ok {
		return engine.ErrNotFound
	}
	if item.Status != payroll.ItemFinalized {
		return &engine.TransitionError{ID: string(id), From: string(item.Status), To: string(payroll.ItemPaid)}
	}
	item.Status = payroll.ItemPaid
	item.PaymentRef = ref
	s.m.payrollItems[id] = item
	return nil
}

// =============================================================================
// BENEFIT CYCLES
// =============================================================================

func (m *Memory) Cycles() benefit.CycleStore { return &memoryCycles{m: m} }

type memoryCycles struct{ m *Memory }

func (c *memoryCycles) Get(_ context.Context, id engine.CycleID) (benefit.Cycle, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	cycle, ok := c.m.cycles[id]
	if !ok {
		return benefit.Cycle{}, engine.ErrNotFound
	}
	return cycle, nil
}

func (c *memoryCycles) Create(_ context.Context, cycle benefit.Cycle) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	for _, existing := range c.m.cycles {
		if existing.BenefitTypeID == cycle.BenefitTypeID &&
			existing.Year == cycle.Year &&
			existing.Name == cycle.Name {
			return engine.ErrDuplicateItem
		}
	}
	c.m.cycles[cycle.ID] = cycle
	return nil
}

func (c *memoryCycles) List(_ context.Context) ([]benefit.Cycle, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	out := make([]benefit.Cycle, 0, len(c.m.cycles))
	for _, cycle := range c.m.cycles {
		out = append(out, cycle)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memoryCycles) Transition(_ context.Context, id engine.CycleID, from []benefit.CycleStatus, to benefit.CycleStatus) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	cycle, ok := c.m.cycles[id]
	if !ok {
		return engine.ErrNotFound
	}
	for _, f := range from {
		if cycle.Status == f {
			cycle.Status = to
			c.m.cycles[id] = cycle
			return nil
		}
	}
	return &engine.TransitionError{ID: string(id), From: string(cycle.Status), To: string(to)}
}

func (c *memoryCycles) UpdateAggregates(_ context.Context, id engine.CycleID, total engine.Money, count int) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	cycle, ok := c.m.cycles[id]
	if !ok {
		return engine.ErrNotFound
	}
	cycle.TotalAmount = total
	cycle.EmployeeCount = count
	c.m.cycles[id] = cycle
	return nil
}

func (c *memoryCycles) SetCancelReason(_ context.Context, id engine.CycleID, reason string) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	cycle, ok := c.m.cycles[id]
	if !ok {
		return engine.ErrNotFound
	}
	cycle.CancelReason = reason
	c.m.cycles[id] = cycle
	return nil
}

// =============================================================================
// BENEFIT ITEMS
// =============================================================================

func (m *Memory) BenefitItems() benefit.ItemStore { return &memoryBenefitItems{m: m} }

type memoryBenefitItems struct{ m *Memory }

func (s *memoryBenefitItems) Find(_ context.Context, cycle engine.CycleID, employee engine.EmployeeID) (benefit.Item, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	id, ok := s.m.benefitByKey[benefitKey{Cycle: cycle, Employee: employee}]
	if !ok {
		return benefit.Item{}, engine.ErrNotFound
	}
	return s.m.benefitItems[id], nil
}

func (s *memoryBenefitItems) Get(_ context.Context, id engine.ItemID) (benefit.Item, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	item, ok := s.m.benefitItems[id]
	if !ok {
		return benefit.Item{}, engine.ErrNotFound
	}
	return item, nil
}

func (s *memoryBenefitItems) ListByCycle(_ context.Context, cycle engine.CycleID) ([]benefit.Item, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var out []benefit.Item
	for _, item := range s.m.benefitItems {
		if item.CycleID == cycle {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (s *memoryBenefitItems) Replace(_ context.Context, item benefit.Item) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	key := benefitKey{Cycle: item.CycleID, Employee: item.EmployeeID}
	if existingID, ok := s.m.benefitByKey[key]; ok && existingID != item.ID {
		item.ID = existingID
	}
	s.m.benefitByKey[key] = item.ID
	s.m.benefitItems[item.ID] = item
	return nil
}

func (s *memoryBenefitItems) UpdateAmounts(_ context.Context, id engine.ItemID, adjustment, final, tax, net engine.Money) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	item, ok := s.m.benefitItems[id]
	if !ok {
		return engine.ErrNotFound
	}
	if item.Status.Terminal() {
		return engine.ErrAlreadyPaid
	}
	item.AdjustmentAmount = adjustment
	item.FinalAmount = final
	item.TaxAmount = tax
	item.NetAmount = net
	s.m.benefitItems[id] = item
	return nil
}

func (s *memoryBenefitItems) Transition(_ context.Context, id engine.ItemID, from []benefit.ItemStatus, to benefit.ItemStatus) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	item, ok := s.m.benefitItems[id]
	if !ok {
		return engine.ErrNotFound
	}
	for _, f := range from {
		if item.Status == f {
			item.Status = to
			s.m.benefitItems[id] = item
			return nil
		}
	}
	return &engine.TransitionError{ID: string(id), From: string(item.Status), To: string(to)}
}

func (s *memoryBenefitItems) MarkPaid(_ context.Context, id engine.ItemID, ref string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	item, ok := s.m.benefitItems[id]
	if !ok {
		return engine.ErrNotFound
	}
	if item.Status != benefit.ItemApproved {
		return &engine.TransitionError{ID: string(id), From: string(item.Status), To: string(benefit.ItemPaid)}
	}
	item.Status = benefit.ItemPaid
	item.PaymentRef = ref
	s.m.benefitItems[id] = item
	return nil
}

func (s *memoryBenefitItems) CancelNonPaid(_ context.Context, cycle engine.CycleID) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cancelled := 0
	for id, item := range s.m.benefitItems {
		if item.CycleID != cycle || item.Status == benefit.ItemPaid || item.Status == benefit.ItemCancelled {
			continue
		}
		item.Status = benefit.ItemCancelled
		s.m.benefitItems[id] = item
		cancelled++
	}
	return cancelled, nil
}

// =============================================================================
// BENEFIT ADJUSTMENTS - append-only
// =============================================================================

func (m *Memory) Adjustments() benefit.AdjustmentStore { return &memoryAdjustments{m: m} }

type memoryAdjustments struct{ m *Memory }

func (a *memoryAdjustments) Append(_ context.Context, adj benefit.Adjustment) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	a.m.adjustments[adj.ItemID] = append(a.m.adjustments[adj.ItemID], adj)
	return nil
}

func (a *memoryAdjustments) ListByItem(_ context.Context, item engine.ItemID) ([]benefit.Adjustment, error) {
	a.m.mu.RLock()
	defer a.m.mu.RUnlock()
	out := make([]benefit.Adjustment, len(a.m.adjustments[item]))
	copy(out, a.m.adjustments[item])
	return out, nil
}
