package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/feeledger"
	"github.com/xraph/feeledger/apportion"
	"github.com/xraph/feeledger/fee"
	"github.com/xraph/feeledger/id"
	"github.com/xraph/feeledger/payment"
	feeledgerstore "github.com/xraph/feeledger/store"
)

// compile-time interface check
var _ feeledgerstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("feeledger/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("feeledger/postgres: %w: %v", feeledger.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Group Store ====================

func (s *Store) CreateGroup(ctx context.Context, g *payment.Group) error {
	m := toGroupModel(g)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetGroup(ctx context.Context, groupID id.GroupID) (*payment.Group, error) {
	m := new(groupModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", groupID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, feeledger.ErrGroupNotFound
		}
		return nil, err
	}
	return fromGroupModel(m)
}

func (s *Store) GetGroupByReference(ctx context.Context, reference string) (*payment.Group, error) {
	m := new(groupModel)
	err := s.pg.NewSelect(m).
		Where("reference = $1", reference).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, feeledger.ErrGroupNotFound
		}
		return nil, err
	}
	return fromGroupModel(m)
}

// ==================== Fee Store ====================

func (s *Store) CreateFee(ctx context.Context, f *fee.Fee) error {
	m := toFeeModel(f)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetFee(ctx context.Context, feeID id.FeeID) (*fee.Fee, error) {
	m := new(feeModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", feeID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, feeledger.ErrFeeNotFound
		}
		return nil, err
	}
	return fromFeeModel(m)
}

func (s *Store) ListGroupFees(ctx context.Context, groupID id.GroupID, opts fee.ListOpts) ([]*fee.Fee, error) {
	var models []feeModel
	q := s.pg.NewSelect(&models).Where("group_id = $1", groupID.String())

	if !opts.IncludeRemoved {
		q = q.Where("removed = FALSE")
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	// Insertion order: allocation depends on it.
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*fee.Fee, len(models))
	for i := range models {
		f, err := fromFeeModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = f
	}
	return result, nil
}

func (s *Store) RemoveFee(ctx context.Context, feeID id.FeeID) error {
	res, err := s.pg.NewUpdate((*feeModel)(nil)).
		Set("removed = $1", true).
		Set("updated_at = $2", now()).
		Where("id = $3", feeID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return feeledger.ErrFeeNotFound
	}
	return nil
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	m := toPaymentModel(p)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetPayment(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	m := new(paymentModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", paymentID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, feeledger.ErrPaymentNotFound
		}
		return nil, err
	}
	return fromPaymentModel(m)
}

func (s *Store) GetPaymentByReference(ctx context.Context, reference string) (*payment.Payment, error) {
	m := new(paymentModel)
	err := s.pg.NewSelect(m).
		Where("reference = $1", reference).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, feeledger.ErrPaymentNotFound
		}
		return nil, err
	}
	return fromPaymentModel(m)
}

func (s *Store) ListGroupPayments(ctx context.Context, groupID id.GroupID, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel
	q := s.pg.NewSelect(&models).Where("group_id = $1", groupID.String())

	argIdx := 1
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*payment.Payment, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, paymentID id.PaymentID, status payment.Status) error {
	res, err := s.pg.NewUpdate((*paymentModel)(nil)).
		Set("status = $1", string(status)).
		Set("updated_at = $2", now()).
		Where("id = $3", paymentID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return feeledger.ErrPaymentNotFound
	}
	return nil
}

// ==================== Apportionment Record Store ====================

func (s *Store) ListPaymentRecords(ctx context.Context, paymentID id.PaymentID) ([]*apportion.Record, error) {
	var models []recordModel
	err := s.pg.NewSelect(&models).
		Where("payment_id = $1", paymentID.String()).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return fromRecordModels(models)
}

func (s *Store) ListFeeRecords(ctx context.Context, feeID id.FeeID) ([]*apportion.Record, error) {
	var models []recordModel
	err := s.pg.NewSelect(&models).
		Where("fee_id = $1", feeID.String()).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return fromRecordModels(models)
}

func fromRecordModels(models []recordModel) ([]*apportion.Record, error) {
	result := make([]*apportion.Record, len(models))
	for i := range models {
		r, err := fromRecordModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Ledger commits ====================

// CommitAllocation bumps the group version with a conditional update before
// touching any other row. Only one writer can win the bump for a given
// version, so losers never write fee balances or records.
//
// Records are inserted before any balance write and each fee row is
// snapshotted before it is updated, so any failure unwinds to the
// pre-commit state: delete the inserted records, rewrite the snapshots.
func (s *Store) CommitAllocation(ctx context.Context, groupID id.GroupID, expectedVersion int64, fees []*fee.Fee, records []*apportion.Record) error {
	if err := s.bumpGroupVersion(ctx, groupID, expectedVersion); err != nil {
		return err
	}

	inserted := make([]string, 0, len(records))
	for _, r := range records {
		m := toRecordModel(r)
		if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
			s.deleteRecords(ctx, inserted)
			return fmt.Errorf("feeledger/postgres: allocation commit: insert record %s: %w", r.ID.String(), err)
		}
		inserted = append(inserted, m.ID)
	}

	applied := make([]*feeModel, 0, len(fees))
	for _, f := range fees {
		prior, err := s.snapshotFee(ctx, f.ID)
		if err == nil {
			err = s.updateFeeBalances(ctx, f)
		}
		if err != nil {
			s.restoreFees(ctx, applied)
			s.deleteRecords(ctx, inserted)
			return fmt.Errorf("feeledger/postgres: allocation commit: update fee %s: %w", f.ID.String(), err)
		}
		applied = append(applied, prior)
	}
	return nil
}

// CommitReadjustment applies the same version bump protocol as
// CommitAllocation for a single fee and its reversal record.
func (s *Store) CommitReadjustment(ctx context.Context, groupID id.GroupID, expectedVersion int64, f *fee.Fee, record *apportion.Record) error {
	if err := s.bumpGroupVersion(ctx, groupID, expectedVersion); err != nil {
		return err
	}

	m := toRecordModel(record)
	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("feeledger/postgres: readjustment commit: insert record %s: %w", record.ID.String(), err)
	}

	// Single-row fee update is the last fallible step; on failure the
	// reversal record is removed so balances and ledger stay in step.
	if err := s.updateFeeBalances(ctx, f); err != nil {
		s.deleteRecords(ctx, []string{m.ID})
		return fmt.Errorf("feeledger/postgres: readjustment commit: update fee %s: %w", f.ID.String(), err)
	}
	return nil
}

func (s *Store) bumpGroupVersion(ctx context.Context, groupID id.GroupID, expectedVersion int64) error {
	res, err := s.pg.NewUpdate((*groupModel)(nil)).
		Set("version = $1", expectedVersion+1).
		Set("updated_at = $2", now()).
		Where("id = $3", groupID.String()).
		Where("version = $4", expectedVersion).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return feeledger.ErrConcurrentModification
	}
	return nil
}

func (s *Store) updateFeeBalances(ctx context.Context, f *fee.Fee) error {
	m := toFeeModel(f)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return feeledger.ErrFeeNotFound
	}
	return nil
}

// snapshotFee reads the stored fee row so a failed commit can rewrite it.
func (s *Store) snapshotFee(ctx context.Context, feeID id.FeeID) (*feeModel, error) {
	m := new(feeModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", feeID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, feeledger.ErrFeeNotFound
		}
		return nil, err
	}
	return m, nil
}

// restoreFees is a best-effort rewrite of pre-commit fee rows.
func (s *Store) restoreFees(ctx context.Context, snapshots []*feeModel) {
	for _, m := range snapshots {
		q := s.pg.NewUpdate(m).WherePK()
		_, _ = q.Exec(ctx) //nolint:errcheck // best-effort
	}
}

// deleteRecords is a best-effort cleanup for a partially applied commit.
func (s *Store) deleteRecords(ctx context.Context, ids []string) {
	for _, recordID := range ids {
		q := s.pg.NewDelete((*recordModel)(nil)).Where("id = $1", recordID)
		_, _ = q.Exec(ctx) //nolint:errcheck // best-effort
	}
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
