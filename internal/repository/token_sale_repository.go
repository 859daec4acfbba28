package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/model"
)

// TokenSaleRepo stores the single-row sale configuration and purchases.
type TokenSaleRepo struct {
	db *sql.DB
}

func NewTokenSaleRepo(db *sql.DB) *TokenSaleRepo { return &TokenSaleRepo{db: db} }

// GetConfig returns the sale configuration or ErrNotFound before an admin
// has set one.
func (r *TokenSaleRepo) GetConfig(ctx context.Context) (model.TokenSaleConfig, error) {
	var c model.TokenSaleConfig
	err := r.db.QueryRowContext(ctx, `SELECT price_per_token_cents, currency, min_tokens, max_tokens, total_supply, sold, is_active, updated_at
		FROM token_sale_config WHERE id = 1`).
		Scan(&c.PricePerTokenCents, &c.Currency, &c.MinTokens, &c.MaxTokens, &c.TotalSupply, &c.Sold, &c.IsActive, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TokenSaleConfig{}, ErrNotFound
	}
	return c, err
}

// SaveConfig creates or replaces the configuration.  The sold counter is
// never written here; lowering total_supply below it is rejected by the
// table's check constraint and reported as ErrConflict.
func (r *TokenSaleRepo) SaveConfig(ctx context.Context, c model.TokenSaleConfig) error {
	const q = `INSERT INTO token_sale_config (id, price_per_token_cents, currency, min_tokens, max_tokens, total_supply, is_active)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE price_per_token_cents = VALUES(price_per_token_cents), currency = VALUES(currency),
			min_tokens = VALUES(min_tokens), max_tokens = VALUES(max_tokens), total_supply = VALUES(total_supply),
			is_active = VALUES(is_active)`
	_, err := r.db.ExecContext(ctx, q, c.PricePerTokenCents, c.Currency, c.MinTokens, c.MaxTokens, c.TotalSupply, c.IsActive)
	if database.IsCheckViolation(err) {
		return ErrConflict
	}
	return err
}

// CreatePurchase inserts a pending purchase.
func (r *TokenSaleRepo) CreatePurchase(ctx context.Context, p *model.TokenPurchase) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO token_purchases (user_id, tokens, amount_cents, status, order_id) VALUES (?, ?, ?, ?, ?)`,
		p.UserID, p.Tokens, p.AmountCents, string(model.TokenPurchasePending), p.OrderID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.Status = model.TokenPurchasePending
	return nil
}

const purchaseColumns = `id, user_id, tokens, amount_cents, status, order_id, payment_ref, created_at, updated_at`

func scanPurchase(rs rowScanner) (model.TokenPurchase, error) {
	var (
		p      model.TokenPurchase
		status string
		ref    sql.NullString
	)
	if err := rs.Scan(&p.ID, &p.UserID, &p.Tokens, &p.AmountCents, &status, &p.OrderID, &ref, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.TokenPurchase{}, err
	}
	p.Status = model.TokenPurchaseStatus(status)
	if ref.Valid {
		v := ref.String
		p.PaymentRef = &v
	}
	return p, nil
}

// GetPurchaseByOrderID looks a purchase up by gateway order id.
func (r *TokenSaleRepo) GetPurchaseByOrderID(ctx context.Context, orderID string) (model.TokenPurchase, error) {
	p, err := scanPurchase(r.db.QueryRowContext(ctx, `SELECT `+purchaseColumns+` FROM token_purchases WHERE order_id = ?`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.TokenPurchase{}, ErrNotFound
	}
	return p, err
}

// ConfirmPurchase settles a pending purchase and adds its tokens to the
// sold counter in one transaction.  The counter only moves while the result
// stays within total_supply; otherwise the purchase is marked failed and
// ErrSoldOut is returned.  Confirming twice is a no-op.
func (r *TokenSaleRepo) ConfirmPurchase(ctx context.Context, orderID string, paymentRef string) (model.TokenPurchase, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.TokenPurchase{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	p, err := scanPurchase(tx.QueryRowContext(ctx, `SELECT `+purchaseColumns+` FROM token_purchases WHERE order_id = ? FOR UPDATE`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.TokenPurchase{}, ErrNotFound
	}
	if err != nil {
		return model.TokenPurchase{}, err
	}
	switch p.Status {
	case model.TokenPurchaseConfirmed:
		return p, nil
	case model.TokenPurchaseFailed:
		return p, ErrConflict
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE token_sale_config SET sold = sold + ? WHERE id = 1 AND sold + ? <= total_supply`, p.Tokens, p.Tokens)
	if err != nil {
		return model.TokenPurchase{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.TokenPurchase{}, err
	}
	next := model.TokenPurchaseConfirmed
	if n == 0 {
		next = model.TokenPurchaseFailed
	}
	if _, err := tx.ExecContext(ctx, `UPDATE token_purchases SET status = ?, payment_ref = ? WHERE id = ?`,
		string(next), paymentRef, p.ID); err != nil {
		return model.TokenPurchase{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.TokenPurchase{}, err
	}
	committed = true

	p.Status = next
	p.PaymentRef = &paymentRef
	if next == model.TokenPurchaseFailed {
		return p, ErrSoldOut
	}
	return p, nil
}

// FailPurchase marks a pending purchase failed (denied or expired payment).
func (r *TokenSaleRepo) FailPurchase(ctx context.Context, orderID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE token_purchases SET status = 'failed' WHERE order_id = ? AND status = 'pending'`, orderID)
	return err
}
