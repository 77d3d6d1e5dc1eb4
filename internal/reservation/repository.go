package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/reservation-service/internal/pkg/apperror"
	"github.com/nekogravitycat/reservation-service/internal/pkg/timespan"
)

const (
	schemaName = "rsvp"
	tableName  = "reservations"
	table      = schemaName + "." + tableName
)

var columns = []string{"id", "user_id", "resource_id", "timespan", "note", "status::text"}

type Repository interface {
	// Create inserts r with status pending and sets r.ID. An overlap with an
	// existing reservation of the same resource yields a *ConflictError.
	Create(ctx context.Context, r *Reservation) error
	// ConfirmPending moves a pending reservation to confirmed in one statement.
	ConfirmPending(ctx context.Context, id int64) (*Reservation, error)
	UpdateNote(ctx context.Context, id int64, note string) (*Reservation, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Reservation, error)
	// Query calls yield for every matching row until rows run out or yield fails.
	Query(ctx context.Context, q Query, yield func(*Reservation) error) error
	// ListByKeyset returns up to FetchLimit(f) rows starting at f.Cursor inclusive.
	ListByKeyset(ctx context.Context, f Filter) ([]*Reservation, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func statementBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func statusExpr(s Status) squirrel.Sqlizer {
	return squirrel.Expr("?::rsvp.reservation_status", s.String())
}

func (r *pgxRepository) Create(ctx context.Context, rsvp *Reservation) error {
	query, args, err := statementBuilder().Insert(table).
		Columns("user_id", "resource_id", "timespan", "note", "status").
		Values(rsvp.UserID, rsvp.ResourceID, rsvp.Range.ToPg(), rsvp.Note, statusExpr(StatusPending)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create reservation query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rsvp.ID); err != nil {
		if info, ok := overlapViolation(err); ok {
			return &ConflictError{Info: info}
		}
		return apperror.WrapAs(ErrDatabase, fmt.Errorf("create reservation failed: %w", err))
	}
	rsvp.Status = StatusPending
	return nil
}

// overlapViolation recognizes the exclusion constraint on rsvp.reservations.
// Any other database error is left for the caller to pass through.
func overlapViolation(err error) (ConflictInfo, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ConflictInfo{}, false
	}
	if pgErr.Code != pgerrcode.ExclusionViolation || pgErr.SchemaName != schemaName || pgErr.TableName != tableName {
		return ConflictInfo{}, false
	}
	return ParseConflict(pgErr.Detail), true
}

func (r *pgxRepository) ConfirmPending(ctx context.Context, id int64) (*Reservation, error) {
	query, args, err := statementBuilder().Update(table).
		Set("status", statusExpr(StatusConfirmed)).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Expr("status = ?::rsvp.reservation_status", StatusPending.String())).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build confirm reservation query failed: %w", err)
	}

	return r.scanOne(ctx, "confirm reservation", query, args)
}

func (r *pgxRepository) UpdateNote(ctx context.Context, id int64, note string) (*Reservation, error) {
	query, args, err := statementBuilder().Update(table).
		Set("note", note).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update note query failed: %w", err)
	}

	return r.scanOne(ctx, "update note", query, args)
}

func (r *pgxRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := statementBuilder().Delete(table).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete reservation query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return apperror.WrapAs(ErrDatabase, fmt.Errorf("delete reservation failed: %w", err))
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id int64) (*Reservation, error) {
	query, args, err := statementBuilder().Select(columns...).
		From(table).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reservation query failed: %w", err)
	}

	return r.scanOne(ctx, "get reservation", query, args)
}

func (r *pgxRepository) Query(ctx context.Context, q Query, yield func(*Reservation) error) error {
	q = q.normalize()

	builder := statementBuilder().Select(columns...).
		From(table).
		Where(squirrel.Expr("timespan && ?", q.Range.ToPg()))
	builder = applyCommonFilters(builder, q.UserID, q.ResourceID, q.Status)

	query, args, err := builder.
		OrderBy("id " + direction(q.Desc)).
		Limit(uint64(q.PageSize)).
		Offset(q.offset()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query reservations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return apperror.WrapAs(ErrDatabase, fmt.Errorf("query reservations failed: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		rsvp, err := scanReservation(rows)
		if err != nil {
			return scanError(err)
		}
		if err := yield(rsvp); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return apperror.WrapAs(ErrDatabase, fmt.Errorf("query reservations failed: %w", err))
	}
	return nil
}

func (r *pgxRepository) ListByKeyset(ctx context.Context, f Filter) ([]*Reservation, error) {
	builder := statementBuilder().Select(columns...).From(table)
	if f.HasCursor() {
		if f.Desc {
			builder = builder.Where(squirrel.LtOrEq{"id": f.Cursor})
		} else {
			builder = builder.Where(squirrel.GtOrEq{"id": f.Cursor})
		}
	}
	builder = applyCommonFilters(builder, f.UserID, f.ResourceID, f.Status)

	query, args, err := builder.
		OrderBy("id " + direction(f.Desc)).
		Limit(uint64(FetchLimit(f))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build keyset query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.WrapAs(ErrDatabase, fmt.Errorf("keyset query failed: %w", err))
	}
	defer rows.Close()

	var result []*Reservation
	for rows.Next() {
		rsvp, err := scanReservation(rows)
		if err != nil {
			return nil, scanError(err)
		}
		result = append(result, rsvp)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.WrapAs(ErrDatabase, fmt.Errorf("keyset query failed: %w", err))
	}
	return result, nil
}

func (r *pgxRepository) scanOne(ctx context.Context, op, query string, args []any) (*Reservation, error) {
	rsvp, err := scanReservation(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if errors.Is(err, ErrUnknown) {
			return nil, err
		}
		return nil, apperror.WrapAs(ErrDatabase, fmt.Errorf("%s failed: %w", op, err))
	}
	return rsvp, nil
}

func applyCommonFilters(b squirrel.SelectBuilder, userID, resourceID string, status Status) squirrel.SelectBuilder {
	if userID != "" {
		b = b.Where(squirrel.Eq{"user_id": userID})
	}
	if resourceID != "" {
		b = b.Where(squirrel.Eq{"resource_id": resourceID})
	}
	if status != StatusUnknown {
		b = b.Where(squirrel.Expr("status = ?::rsvp.reservation_status", status.String()))
	}
	return b
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	var (
		rsvp   Reservation
		span   pgtype.Range[pgtype.Timestamptz]
		status string
	)
	if err := row.Scan(&rsvp.ID, &rsvp.UserID, &rsvp.ResourceID, &span, &rsvp.Note, &status); err != nil {
		return nil, err
	}

	rng, err := timespan.FromPg(span)
	if err != nil {
		return nil, apperror.WrapAs(ErrUnknown, fmt.Errorf("decode timespan of reservation %d: %w", rsvp.ID, err))
	}
	rsvp.Range = rng
	rsvp.Status = ParseStatus(status)
	return &rsvp, nil
}

// scanError keeps ErrUnknown for rows that scanned but hold an undecodable
// value; anything else is a database failure.
func scanError(err error) error {
	if errors.Is(err, ErrUnknown) {
		return err
	}
	return apperror.WrapAs(ErrDatabase, fmt.Errorf("scan reservation failed: %w", err))
}

func columnList() string {
	return strings.Join(columns, ", ")
}

func direction(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}
