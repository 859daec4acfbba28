package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/payment"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/session"
)

// TokenOrderPrefix tags gateway order ids that pay for tokens.
const TokenOrderPrefix = "TOK"

// TokenEvents receives token purchase events after they commit.
type TokenEvents interface {
	PublishTokensPurchased(ctx context.Context, ev queue.TokensPurchasedEvent) error
}

// TokenSaleService sells studio tokens through the hosted checkout.
type TokenSaleService struct {
	repo    *repository.TokenSaleRepo
	gateway payment.Gateway
	events  TokenEvents
	log     *zap.Logger
	now     func() time.Time
}

func NewTokenSaleService(repo *repository.TokenSaleRepo, gw payment.Gateway, events TokenEvents, log *zap.Logger) *TokenSaleService {
	return &TokenSaleService{repo: repo, gateway: gw, events: events, log: log.Named("tokens"), now: time.Now}
}

// Config returns the current offering.
func (s *TokenSaleService) Config(ctx context.Context) (model.TokenSaleConfig, error) {
	return s.repo.GetConfig(ctx)
}

// SaveConfig validates and stores the offering.  Sold is never written
// here; lowering the supply below it is a conflict.
func (s *TokenSaleService) SaveConfig(ctx context.Context, c model.TokenSaleConfig) (model.TokenSaleConfig, error) {
	switch {
	case c.PricePerTokenCents == 0:
		return model.TokenSaleConfig{}, invalid("price_per_token_cents", "must be positive")
	case !payment.WholeUnits(c.PricePerTokenCents):
		return model.TokenSaleConfig{}, invalid("price_per_token_cents", "must be a whole currency amount")
	case len(c.Currency) != 3:
		return model.TokenSaleConfig{}, invalid("currency", "expected an ISO 4217 code")
	case c.MinTokens == 0 || c.MaxTokens < c.MinTokens:
		return model.TokenSaleConfig{}, invalid("max_tokens", "must be at least min_tokens")
	case c.TotalSupply == 0:
		return model.TokenSaleConfig{}, invalid("total_supply", "must be positive")
	}
	if err := s.repo.SaveConfig(ctx, c); err != nil {
		return model.TokenSaleConfig{}, err
	}
	s.log.Info("token sale config saved", zap.Uint64("total_supply", c.TotalSupply), zap.Bool("active", c.IsActive))
	return s.repo.GetConfig(ctx)
}

// TokenCheckout is the pending purchase and the order to pay it with.
type TokenCheckout struct {
	Purchase model.TokenPurchase `json:"purchase"`
	Order    payment.Order       `json:"order"`
}

// Checkout validates the quantity against the offering and opens an
// order.  Supply is only taken when the payment is verified.
func (s *TokenSaleService) Checkout(ctx context.Context, sess session.Session, tokens uint32) (TokenCheckout, error) {
	if sess.Guest() {
		return TokenCheckout{}, repository.ErrForbidden
	}
	if s.gateway == nil {
		return TokenCheckout{}, ErrPaymentsDisabled
	}
	cfg, err := s.repo.GetConfig(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenCheckout{}, ErrSaleClosed
	}
	if err != nil {
		return TokenCheckout{}, err
	}
	if !cfg.IsActive {
		return TokenCheckout{}, ErrSaleClosed
	}
	if tokens < cfg.MinTokens || tokens > cfg.MaxTokens {
		return TokenCheckout{}, invalid("tokens", "must be between "+strconv.FormatUint(uint64(cfg.MinTokens), 10)+
			" and "+strconv.FormatUint(uint64(cfg.MaxTokens), 10))
	}
	if uint64(tokens) > cfg.Remaining() {
		return TokenCheckout{}, repository.ErrSoldOut
	}

	p := model.TokenPurchase{
		UserID:      sess.UserID,
		Tokens:      tokens,
		AmountCents: uint64(tokens) * cfg.PricePerTokenCents,
		OrderID:     payment.NewOrderID(TokenOrderPrefix),
	}
	if err := s.repo.CreatePurchase(ctx, &p); err != nil {
		return TokenCheckout{}, err
	}
	order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		OrderID:     p.OrderID,
		AmountCents: p.AmountCents,
		Currency:    cfg.Currency,
		ItemID:      "tokens",
		ItemName:    strconv.FormatUint(uint64(tokens), 10) + " studio tokens",
	})
	if err != nil {
		if ferr := s.repo.FailPurchase(context.WithoutCancel(ctx), p.OrderID); ferr != nil {
			s.log.Warn("mark purchase failed", zap.String("order_id", p.OrderID), zap.Error(ferr))
		}
		return TokenCheckout{}, err
	}
	return TokenCheckout{Purchase: p, Order: order}, nil
}

// Verify applies a signed payment result to a purchase.  Supply is added
// atomically; a purchase that no longer fits is marked failed and
// repository.ErrSoldOut is returned.
func (s *TokenSaleService) Verify(ctx context.Context, n payment.Notification) (model.TokenPurchase, error) {
	if s.gateway == nil {
		return model.TokenPurchase{}, ErrPaymentsDisabled
	}
	res, err := s.gateway.Verify(n)
	if err != nil {
		s.log.Warn("token payment verification failed", zap.String("order_id", n.OrderID), zap.Error(err))
		return model.TokenPurchase{}, err
	}
	p, err := s.repo.GetPurchaseByOrderID(ctx, res.OrderID)
	if err != nil {
		return model.TokenPurchase{}, err
	}
	switch res.Status {
	case payment.StatusPending:
		return p, nil
	case payment.StatusFailed:
		if p.Status == model.TokenPurchasePending {
			if err := s.repo.FailPurchase(ctx, p.OrderID); err != nil {
				return model.TokenPurchase{}, err
			}
			p.Status = model.TokenPurchaseFailed
		}
		return p, ErrPaymentFailed
	}
	if res.AmountCents != p.AmountCents {
		s.log.Warn("token amount mismatch", zap.String("order_id", p.OrderID),
			zap.Uint64("paid", res.AmountCents), zap.Uint64("expected", p.AmountCents))
		return p, ErrAmountMismatch
	}

	wasConfirmed := p.Status == model.TokenPurchaseConfirmed
	p, err = s.repo.ConfirmPurchase(ctx, res.OrderID, res.Reference)
	if err != nil {
		return p, err
	}
	if !wasConfirmed && s.events != nil {
		ev := queue.TokensPurchasedEvent{
			PurchaseID: p.ID, UserID: p.UserID, Tokens: p.Tokens, AmountCents: p.AmountCents,
			OrderID: p.OrderID, ConfirmedAt: s.now().UTC().Format(time.RFC3339),
		}
		if err := s.events.PublishTokensPurchased(ctx, ev); err != nil {
			s.log.Warn("publish tokens.purchased failed", zap.String("order_id", p.OrderID), zap.Error(err))
		}
	}
	return p, nil
}
