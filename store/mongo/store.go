package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/feeledger"
	"github.com/xraph/feeledger/apportion"
	"github.com/xraph/feeledger/fee"
	"github.com/xraph/feeledger/id"
	"github.com/xraph/feeledger/payment"
	feeledgerstore "github.com/xraph/feeledger/store"
)

// Collection name constants.
const (
	colGroups   = "feeledger_payment_groups"
	colFees     = "feeledger_fees"
	colPayments = "feeledger_payments"
	colRecords  = "feeledger_apportionment_records"
)

// compile-time interface check
var _ feeledgerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all feeledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("feeledger/mongo: %w: %s indexes: %v", feeledger.ErrMigrationFailed, col, err)
		}
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("feeledger/mongo: create group: %w", err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID id.GroupID) (*payment.Group, error) {
	var m groupModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": groupID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, feeledger.ErrGroupNotFound
		}
		return nil, fmt.Errorf("feeledger/mongo: get group: %w", err)
	}
	return fromGroupModel(&m)
}

func (s *Store) GetGroupByReference(ctx context.Context, reference string) (*payment.Group, error) {
	var m groupModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"reference": reference}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, feeledger.ErrGroupNotFound
		}
		return nil, fmt.Errorf("feeledger/mongo: get group by reference: %w", err)
	}
	return fromGroupModel(&m)
}

// ==================== Fee Store ====================

func (s *Store) CreateFee(ctx context.Context, f *fee.Fee) error {
	m := toFeeModel(f)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("feeledger/mongo: create fee: %w", err)
	}
	return nil
}

func (s *Store) GetFee(ctx context.Context, feeID id.FeeID) (*fee.Fee, error) {
	var m feeModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": feeID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, feeledger.ErrFeeNotFound
		}
		return nil, fmt.Errorf("feeledger/mongo: get fee: %w", err)
	}
	return fromFeeModel(&m)
}

func (s *Store) ListGroupFees(ctx context.Context, groupID id.GroupID, opts fee.ListOpts) ([]*fee.Fee, error) {
	var models []feeModel

	filter := bson.M{"group_id": groupID.String()}
	if !opts.IncludeRemoved {
		filter["removed"] = false
	}

	// Insertion order: allocation depends on it.
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("feeledger/mongo: list group fees: %w", err)
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
	res, err := s.mdb.NewUpdate((*feeModel)(nil)).
		Filter(bson.M{"_id": feeID.String()}).
		Set("removed", true).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("feeledger/mongo: remove fee: %w", err)
	}
	if res.MatchedCount() == 0 {
		return feeledger.ErrFeeNotFound
	}
	return nil
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	m := toPaymentModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("feeledger/mongo: create payment: %w", err)
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	var m paymentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": paymentID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, feeledger.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("feeledger/mongo: get payment: %w", err)
	}
	return fromPaymentModel(&m)
}

func (s *Store) GetPaymentByReference(ctx context.Context, reference string) (*payment.Payment, error) {
	var m paymentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"reference": reference}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, feeledger.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("feeledger/mongo: get payment by reference: %w", err)
	}
	return fromPaymentModel(&m)
}

func (s *Store) ListGroupPayments(ctx context.Context, groupID id.GroupID, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel

	filter := bson.M{"group_id": groupID.String()}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("feeledger/mongo: list group payments: %w", err)
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
	res, err := s.mdb.NewUpdate((*paymentModel)(nil)).
		Filter(bson.M{"_id": paymentID.String()}).
		Set("status", string(status)).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("feeledger/mongo: update payment status: %w", err)
	}
	if res.MatchedCount() == 0 {
		return feeledger.ErrPaymentNotFound
	}
	return nil
}

// ==================== Apportionment Record Store ====================

func (s *Store) ListPaymentRecords(ctx context.Context, paymentID id.PaymentID) ([]*apportion.Record, error) {
	var models []recordModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"payment_id": paymentID.String()}).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("feeledger/mongo: list payment records: %w", err)
	}
	return fromRecordModels(models)
}

func (s *Store) ListFeeRecords(ctx context.Context, feeID id.FeeID) ([]*apportion.Record, error) {
	var models []recordModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"fee_id": feeID.String()}).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("feeledger/mongo: list fee records: %w", err)
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
// touching any other document. Only one writer can win the bump for a given
// version, so losers never write fee balances or records.
//
// Records are inserted before any balance write and each fee document is
// snapshotted before it is updated, so any failure unwinds to the
// pre-commit state: delete the inserted records, rewrite the snapshots.
func (s *Store) CommitAllocation(ctx context.Context, groupID id.GroupID, expectedVersion int64, fees []*fee.Fee, records []*apportion.Record) error {
	if err := s.bumpGroupVersion(ctx, groupID, expectedVersion); err != nil {
		return err
	}

	inserted := make([]string, 0, len(records))
	for _, r := range records {
		m := toRecordModel(r)
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
			s.deleteRecords(ctx, inserted)
			return fmt.Errorf("feeledger/mongo: allocation commit: insert record %s: %w", r.ID.String(), err)
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
			return fmt.Errorf("feeledger/mongo: allocation commit: update fee %s: %w", f.ID.String(), err)
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
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("feeledger/mongo: readjustment commit: insert record %s: %w", record.ID.String(), err)
	}

	// Single-document fee update is the last fallible step; on failure the
	// reversal record is removed so balances and ledger stay in step.
	if err := s.updateFeeBalances(ctx, f); err != nil {
		s.deleteRecords(ctx, []string{m.ID})
		return fmt.Errorf("feeledger/mongo: readjustment commit: update fee %s: %w", f.ID.String(), err)
	}
	return nil
}

func (s *Store) bumpGroupVersion(ctx context.Context, groupID id.GroupID, expectedVersion int64) error {
	res, err := s.mdb.NewUpdate((*groupModel)(nil)).
		Filter(bson.M{"_id": groupID.String(), "version": expectedVersion}).
		Set("version", expectedVersion+1).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("feeledger/mongo: bump group version: %w", err)
	}
	if res.MatchedCount() == 0 {
		return feeledger.ErrConcurrentModification
	}
	return nil
}

func (s *Store) updateFeeBalances(ctx context.Context, f *fee.Fee) error {
	m := toFeeModel(f)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return err
	}
	if res.MatchedCount() == 0 {
		return feeledger.ErrFeeNotFound
	}
	return nil
}

// snapshotFee reads the stored fee document so a failed commit can rewrite it.
func (s *Store) snapshotFee(ctx context.Context, feeID id.FeeID) (*feeModel, error) {
	m := new(feeModel)
	err := s.mdb.NewFind(m).
		Filter(bson.M{"_id": feeID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, feeledger.ErrFeeNotFound
		}
		return nil, err
	}
	return m, nil
}

// restoreFees is a best-effort rewrite of pre-commit fee documents.
func (s *Store) restoreFees(ctx context.Context, snapshots []*feeModel) {
	for _, m := range snapshots {
		q := s.mdb.NewUpdate(m).Filter(bson.M{"_id": m.ID})
		_, _ = q.Exec(ctx) //nolint:errcheck // best-effort
	}
}

// deleteRecords is a best-effort cleanup for a partially applied commit.
func (s *Store) deleteRecords(ctx context.Context, ids []string) {
	for _, recordID := range ids {
		q := s.mdb.NewDelete((*recordModel)(nil)).Filter(bson.M{"_id": recordID})
		_, _ = q.Exec(ctx) //nolint:errcheck // best-effort
	}
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all feeledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colGroups: {
			{
				Keys:    bson.D{{Key: "reference", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colFees: {
			{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "code", Value: 1}, {Key: "natural_account_code", Value: 1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{
				Keys:    bson.D{{Key: "reference", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
		colRecords: {
			{Keys: bson.D{{Key: "payment_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "fee_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
}
