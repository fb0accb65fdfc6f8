package pgsql

import (
	"context"
	"fmt"

	portsrepo "github.com/campusbooks/fee_ledger_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// reportingRepository implements the DuesReader interface. Every query here
// derives from the same active set the balance engine uses: non-reversed
// entries only, summed with COALESCE so an empty ledger reads as zero.
type reportingRepository struct {
	BaseRepository
}

// newReportingRepository creates a new reporting repository
func newReportingRepository(db *pgxpool.Pool) portsrepo.DuesReader {
	return &reportingRepository{
		BaseRepository: BaseRepository{Pool: db},
	}
}

// Ensure reportingRepository implements the DuesReader interface
var _ portsrepo.DuesReader = (*reportingRepository)(nil)

// SumDebits returns the total non-reversed debit amount for a student.
func (r *reportingRepository) SumDebits(ctx context.Context, studentID string) (decimal.Decimal, error) {
	return r.sumColumn(ctx, studentID, "debit_amount")
}

// SumCredits returns the total non-reversed credit amount for a student.
func (r *reportingRepository) SumCredits(ctx context.Context, studentID string) (decimal.Decimal, error) {
	return r.sumColumn(ctx, studentID, "credit_amount")
}

func (r *reportingRepository) sumColumn(ctx context.Context, studentID string, column string) (decimal.Decimal, error) {
	// column is one of the two amount column names above, never user input.
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(%s), 0)
		FROM ledger_entries
		WHERE student_id = $1 AND NOT is_reversed;
	`, column)

	var total decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, studentID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("error summing %s for student %s: %w", column, studentID, err)
	}
	return total, nil
}

// SumCreditsForSession scopes the credit sum to one academic session.
func (r *reportingRepository) SumCreditsForSession(ctx context.Context, studentID string, sessionID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(credit_amount), 0)
		FROM ledger_entries
		WHERE student_id = $1 AND session_id = $2 AND NOT is_reversed;
	`
	var total decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, studentID, sessionID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("error summing session credits for student %s: %w", studentID, err)
	}
	return total, nil
}

// TotalPendingDues returns the institution-wide net receivable position as
// one aggregate, equivalent to summing every student's current balance but
// computed in a single pass. Advances (negative nets) reduce the total.
func (r *reportingRepository) TotalPendingDues(ctx context.Context) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(debit_amount - credit_amount), 0)
		FROM ledger_entries
		WHERE NOT is_reversed;
	`
	var total decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("error computing total pending dues: %w", err)
	}
	return total, nil
}

// StudentIDsWithDues returns students whose non-reversed debit sum exceeds
// their credit sum.
func (r *reportingRepository) StudentIDsWithDues(ctx context.Context) ([]string, error) {
	query := `
		SELECT student_id
		FROM ledger_entries
		WHERE NOT is_reversed
		GROUP BY student_id
		HAVING SUM(debit_amount - credit_amount) > 0
		ORDER BY student_id;
	`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying students with dues: %w", err)
	}
	defer rows.Close()

	studentIDs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning student with dues: %w", err)
		}
		studentIDs = append(studentIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating students with dues: %w", err)
	}

	return studentIDs, nil
}

// HasFeeChargeEntries reports whether at least one non-reversed FEE_CHARGE
// entry exists for the student/session pair. The fee-charge generator checks
// this to avoid double-charging a session.
func (r *reportingRepository) HasFeeChargeEntries(ctx context.Context, studentID string, sessionID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM ledger_entries
			WHERE student_id = $1 AND session_id = $2
			  AND reference_type = 'FEE_CHARGE' AND NOT is_reversed
		);
	`
	var exists bool
	if err := r.Pool.QueryRow(ctx, query, studentID, sessionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking fee charges for student %s session %s: %w", studentID, sessionID, err)
	}
	return exists, nil
}
