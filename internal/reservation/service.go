package reservation

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/nekogravitycat/reservation-service/internal/pkg/metrics"
	"github.com/nekogravitycat/reservation-service/internal/pkg/timespan"
)

// queryBufferSize bounds how far the query producer may run ahead of its consumer.
const queryBufferSize = 128

// Manager is the entry point every caller uses. It holds no mutable state;
// overlap prevention and the pending->confirmed transition are atomic
// statements in the store.
type Manager interface {
	Reserve(ctx context.Context, r *Reservation) (*Reservation, error)
	// ChangeStatus confirms a pending reservation. An unknown id and a
	// reservation that is not pending both report ErrNotFound.
	ChangeStatus(ctx context.Context, id int64) (*Reservation, error)
	UpdateNote(ctx context.Context, id int64, note string) (*Reservation, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*Reservation, error)
	// Query streams matching reservations. The channel is closed after the
	// last row or after a single error result.
	Query(ctx context.Context, q Query) <-chan QueryResult
	Filter(ctx context.Context, f Filter) (Pager, []*Reservation, error)
}

type manager struct {
	repo    Repository
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewManager(repo Repository, log *zap.Logger, m *metrics.Metrics) Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &manager{
		repo:    repo,
		log:     log.Named("reservation"),
		metrics: m,
	}
}

func (m *manager) Reserve(ctx context.Context, r *Reservation) (*Reservation, error) {
	if err := r.Validate(); err != nil {
		m.metrics.ObserveReservation(metrics.OutcomeInvalid)
		return nil, err
	}

	rsvp := &Reservation{
		UserID:     r.UserID,
		ResourceID: r.ResourceID,
		Range:      timespan.New(r.Range.Start, r.Range.End),
		Note:       r.Note,
		Status:     StatusPending,
	}

	if err := m.repo.Create(ctx, rsvp); err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			m.metrics.ObserveReservation(metrics.OutcomeConflict)
			m.log.Warn("reservation conflict",
				zap.String("resource_id", rsvp.ResourceID),
				zap.String("user_id", rsvp.UserID),
				zap.Bool("parsed", conflict.Info.Parsed()),
			)
			return nil, err
		}
		m.metrics.ObserveReservation(metrics.OutcomeError)
		m.log.Error("create reservation failed", zap.Error(err))
		return nil, err
	}

	m.metrics.ObserveReservation(metrics.OutcomeSuccess)
	m.log.Info("reservation created",
		zap.Int64("id", rsvp.ID),
		zap.String("resource_id", rsvp.ResourceID),
	)
	return rsvp, nil
}

func (m *manager) ChangeStatus(ctx context.Context, id int64) (*Reservation, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	rsvp, err := m.repo.ConfirmPending(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			m.metrics.ObserveStatusChange(StatusConfirmed.String(), "not_found")
		} else {
			m.metrics.ObserveStatusChange(StatusConfirmed.String(), metrics.OutcomeError)
			m.log.Error("confirm reservation failed", zap.Int64("id", id), zap.Error(err))
		}
		return nil, err
	}

	m.metrics.ObserveStatusChange(StatusConfirmed.String(), metrics.OutcomeSuccess)
	return rsvp, nil
}

func (m *manager) UpdateNote(ctx context.Context, id int64, note string) (*Reservation, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	rsvp, err := m.repo.UpdateNote(ctx, id, note)
	if err != nil {
		m.logStoreError("update note failed", id, err)
		return nil, err
	}
	return rsvp, nil
}

func (m *manager) Delete(ctx context.Context, id int64) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := m.repo.Delete(ctx, id); err != nil {
		m.logStoreError("delete reservation failed", id, err)
		return err
	}
	m.log.Info("reservation deleted", zap.Int64("id", id))
	return nil
}

func (m *manager) Get(ctx context.Context, id int64) (*Reservation, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	rsvp, err := m.repo.GetByID(ctx, id)
	if err != nil {
		m.logStoreError("get reservation failed", id, err)
		return nil, err
	}
	return rsvp, nil
}

func (m *manager) Query(ctx context.Context, q Query) <-chan QueryResult {
	ch := make(chan QueryResult, queryBufferSize)

	if err := q.Validate(); err != nil {
		ch <- QueryResult{Err: err}
		close(ch)
		return ch
	}

	go func() {
		defer close(ch)

		err := m.repo.Query(ctx, q, func(r *Reservation) error {
			return send(ctx, ch, QueryResult{Reservation: r})
		})
		if err != nil && ctx.Err() == nil {
			m.log.Error("query reservations failed", zap.Error(err))
			_ = send(ctx, ch, QueryResult{Err: err})
		}
	}()

	return ch
}

// send blocks until the consumer takes res or ctx is done.
func send(ctx context.Context, ch chan<- QueryResult, res QueryResult) error {
	select {
	case ch <- res:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *manager) Filter(ctx context.Context, f Filter) (Pager, []*Reservation, error) {
	f.PageSize = NormalizePageSize(f.PageSize)

	rows, err := m.repo.ListByKeyset(ctx, f)
	if err != nil {
		m.log.Error("keyset query failed", zap.Error(err))
		return Pager{}, nil, err
	}

	pager, page := Paginate(rows, f.Cursor, f.PageSize)
	return pager, page, nil
}

func (m *manager) logStoreError(msg string, id int64, err error) {
	if errors.Is(err, ErrNotFound) {
		return
	}
	m.log.Error(msg, zap.Int64("id", id), zap.Error(err))
}
