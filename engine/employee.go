package engine

import "context"

// =============================================================================
// EMPLOYEE - Read-only snapshot consumed by the engines
// =============================================================================

// EmploymentStatus drives benefit eligibility by category.
type EmploymentStatus string

const (
	StatusActive       EmploymentStatus = "active"
	StatusProbationary EmploymentStatus = "probationary"
	StatusOnLeave      EmploymentStatus = "on_leave"
	StatusResigned     EmploymentStatus = "resigned"
	StatusRetired      EmploymentStatus = "retired"
	StatusSeparated    EmploymentStatus = "separated"
)

// IsSeparating reports whether the employee is leaving or has left
// (the statuses a Terminal-category benefit requires).
func (s EmploymentStatus) IsSeparating() bool {
	return s == StatusResigned || s == StatusRetired || s == StatusSeparated
}

// Employee is the snapshot the engines calculate from. It is read-only
// from the engine's perspective; the hosting layer owns the record.
type Employee struct {
	ID              EmployeeID
	Name            string
	Status          EmploymentStatus
	AppointmentDate Date
	DailyRate       Money
	MonthlySalary   Money
}

// ServiceMonthsAsOf returns whole months of service as of a reference date.
func (e Employee) ServiceMonthsAsOf(asOf Date) int {
	return MonthsBetween(e.AppointmentDate, asOf)
}

// EmployeeRepository is implemented by the hosting layer (out of scope here;
// the in-memory and SQLite stores provide implementations for tests/dev).
type EmployeeRepository interface {
	Get(ctx context.Context, id EmployeeID) (Employee, error)
	List(ctx context.Context) ([]Employee, error)
}
