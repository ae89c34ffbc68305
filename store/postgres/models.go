package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/feeledger/apportion"
	"github.com/xraph/feeledger/fee"
	"github.com/xraph/feeledger/id"
	"github.com/xraph/feeledger/payment"
	"github.com/xraph/feeledger/types"
)

// ==================== Payment group models ====================

type groupModel struct {
	grove.BaseModel `grove:"table:feeledger_payment_groups"`

	ID        string    `grove:"id,pk"`
	Reference string    `grove:"reference"`
	Version   int64     `grove:"version"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toGroupModel(g *payment.Group) *groupModel {
	return &groupModel{
		ID:        g.ID.String(),
		Reference: g.Reference,
		Version:   g.Version,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func fromGroupModel(m *groupModel) (*payment.Group, error) {
	groupID, err := id.ParseGroupID(m.ID)
	if err != nil {
		return nil, err
	}

	return &payment.Group{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        groupID,
		Reference: m.Reference,
		Version:   m.Version,
	}, nil
}

// ==================== Fee models ====================

type feeModel struct {
	grove.BaseModel `grove:"table:feeledger_fees"`

	ID                      string     `grove:"id,pk"`
	GroupID                 string     `grove:"group_id"`
	Code                    string     `grove:"code"`
	FeeVersion              string     `grove:"fee_version"`
	Volume                  int64      `grove:"volume"`
	CalculatedAmountCents   int64      `grove:"calculated_amount_cents"`
	CalculatedCurrency      string     `grove:"calculated_currency"`
	NetAmountCents          int64      `grove:"net_amount_cents"`
	NetCurrency             string     `grove:"net_currency"`
	NaturalAccountCode      string     `grove:"natural_account_code"`
	MemoLine                string     `grove:"memo_line"`
	DueAmountCents          int64      `grove:"due_amount_cents"`
	DueCurrency             string     `grove:"due_currency"`
	AllocatedAmountCents    int64      `grove:"allocated_amount_cents"`
	AllocatedCurrency       string     `grove:"allocated_currency"`
	DateApportioned         *time.Time `grove:"date_apportioned"`
	Removed                 bool       `grove:"removed"`
	CreatedAt               time.Time  `grove:"created_at"`
	UpdatedAt               time.Time  `grove:"updated_at"`
}

func toFeeModel(f *fee.Fee) *feeModel {
	return &feeModel{
		ID:                    f.ID.String(),
		GroupID:               f.GroupID.String(),
		Code:                  f.Code,
		FeeVersion:            f.FeeVersion,
		Volume:                f.Volume,
		CalculatedAmountCents: f.CalculatedAmount.Amount,
		CalculatedCurrency:    f.CalculatedAmount.Currency,
		NetAmountCents:        f.NetAmount.Amount,
		NetCurrency:           f.NetAmount.Currency,
		NaturalAccountCode:    f.NaturalAccountCode,
		MemoLine:              f.MemoLine,
		DueAmountCents:        f.DueAmount.Amount,
		DueCurrency:           f.DueAmount.Currency,
		AllocatedAmountCents:  f.AllocatedAmount.Amount,
		AllocatedCurrency:     f.AllocatedAmount.Currency,
		DateApportioned:       f.DateApportioned,
		Removed:               f.Removed,
		CreatedAt:             f.CreatedAt,
		UpdatedAt:             f.UpdatedAt,
	}
}

func fromFeeModel(m *feeModel) (*fee.Fee, error) {
	feeID, err := id.ParseFeeID(m.ID)
	if err != nil {
		return nil, err
	}
	groupID, err := id.ParseGroupID(m.GroupID)
	if err != nil {
		return nil, err
	}

	return &fee.Fee{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                 feeID,
		GroupID:            groupID,
		Code:               m.Code,
		FeeVersion:         m.FeeVersion,
		Volume:             m.Volume,
		CalculatedAmount:   types.Money{Amount: m.CalculatedAmountCents, Currency: m.CalculatedCurrency},
		NetAmount:          types.Money{Amount: m.NetAmountCents, Currency: m.NetCurrency},
		NaturalAccountCode: m.NaturalAccountCode,
		MemoLine:           m.MemoLine,
		DueAmount:          types.Money{Amount: m.DueAmountCents, Currency: m.DueCurrency},
		AllocatedAmount:    types.Money{Amount: m.AllocatedAmountCents, Currency: m.AllocatedCurrency},
		DateApportioned:    m.DateApportioned,
		Removed:            m.Removed,
	}, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:feeledger_payments"`

	ID             string    `grove:"id,pk"`
	GroupID        string    `grove:"group_id"`
	Reference      string    `grove:"reference"`
	AmountCents    int64     `grove:"amount_cents"`
	AmountCurrency string    `grove:"amount_currency"`
	Channel        string    `grove:"channel"`
	Status         string    `grove:"status"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	return &paymentModel{
		ID:             p.ID.String(),
		GroupID:        p.GroupID.String(),
		Reference:      p.Reference,
		AmountCents:    p.Amount.Amount,
		AmountCurrency: p.Amount.Currency,
		Channel:        p.Channel,
		Status:         string(p.Status),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
	paymentID, err := id.ParsePaymentID(m.ID)
	if err != nil {
		return nil, err
	}
	groupID, err := id.ParseGroupID(m.GroupID)
	if err != nil {
		return nil, err
	}

	return &payment.Payment{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        paymentID,
		GroupID:   groupID,
		Reference: m.Reference,
		Amount:    types.Money{Amount: m.AmountCents, Currency: m.AmountCurrency},
		Channel:   m.Channel,
		Status:    payment.Status(m.Status),
	}, nil
}

// ==================== Apportionment record models ====================

type recordModel struct {
	grove.BaseModel `grove:"table:feeledger_apportionment_records"`

	ID                     string    `grove:"id,pk"`
	PaymentID              string    `grove:"payment_id"`
	FeeID                  string    `grove:"fee_id"`
	ApportionedAmountCents int64     `grove:"apportioned_amount_cents"`
	ApportionedCurrency    string    `grove:"apportioned_currency"`
	SurplusAmountCents     int64     `grove:"surplus_amount_cents"`
	SurplusCurrency        string    `grove:"surplus_currency"`
	Kind                   string    `grove:"kind"`
	CreatedAt              time.Time `grove:"created_at"`
	UpdatedAt              time.Time `grove:"updated_at"`
}

func toRecordModel(r *apportion.Record) *recordModel {
	return &recordModel{
		ID:                     r.ID.String(),
		PaymentID:              r.PaymentID.String(),
		FeeID:                  r.FeeID.String(),
		ApportionedAmountCents: r.ApportionedAmount.Amount,
		ApportionedCurrency:    r.ApportionedAmount.Currency,
		SurplusAmountCents:     r.SurplusAmount.Amount,
		SurplusCurrency:        r.SurplusAmount.Currency,
		Kind:                   string(r.Kind),
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}

func fromRecordModel(m *recordModel) (*apportion.Record, error) {
	recordID, err := id.ParseRecordID(m.ID)
	if err != nil {
		return nil, err
	}
	feeID, err := id.ParseFeeID(m.FeeID)
	if err != nil {
		return nil, err
	}

	// Reversal records carry no payment reference.
	paymentID := id.Nil
	if m.PaymentID != "" {
		paymentID, err = id.ParsePaymentID(m.PaymentID)
		if err != nil {
			return nil, err
		}
	}

	return &apportion.Record{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                recordID,
		PaymentID:         paymentID,
		FeeID:             feeID,
		ApportionedAmount: types.Money{Amount: m.ApportionedAmountCents, Currency: m.ApportionedCurrency},
		SurplusAmount:     types.Money{Amount: m.SurplusAmountCents, Currency: m.SurplusCurrency},
		Kind:              apportion.Kind(m.Kind),
	}, nil
}
