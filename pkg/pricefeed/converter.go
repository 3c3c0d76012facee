package pricefeed

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultSlippage is subtracted from converted amounts (0.4%)
var DefaultSlippage = decimal.RequireFromString("0.004")

// ErrInvalidUSD is returned for non-positive USD amounts
var ErrInvalidUSD = errors.New("usd amount must be positive")

// Source returns a SOL/USD price
type Source interface {
	Price(ctx context.Context) (decimal.Decimal, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context) (decimal.Decimal, error)

func (f SourceFunc) Price(ctx context.Context) (decimal.Decimal, error) {
	return f(ctx)
}

// PythSource reads the SOL/USD feed from Pyth
func PythSource(client *PythClient, feedID string) Source {
	return SourceFunc(func(ctx context.Context) (decimal.Decimal, error) {
		return client.Price(ctx, feedID)
	})
}

// JupiterSource reads the SOL price from Jupiter
func JupiterSource(client *JupiterClient) Source {
	return SourceFunc(func(ctx context.Context) (decimal.Decimal, error) {
		return client.Price(ctx, "SOL")
	})
}

// Quote is the result of a conversion
type Quote struct {
	USD      decimal.Decimal
	SOL      decimal.Decimal
	Price    decimal.Decimal
	Slippage decimal.Decimal
	// Source is the index of the source that answered
	Source int
}

// Converter converts USD into SOL using the first source that answers.
// The result is indicative only and is never used for settlement.
type Converter struct {
	sources  []Source
	slippage decimal.Decimal
	logger   *zap.Logger
}

// ConverterOption configures a Converter
type ConverterOption func(*Converter)

// WithSlippage overrides the slippage fraction
func WithSlippage(slippage decimal.Decimal) ConverterOption {
	return func(c *Converter) {
		c.slippage = slippage
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ConverterOption {
	return func(c *Converter) {
		c.logger = logger
	}
}

// NewConverter creates a converter trying sources in order
func NewConverter(sources []Source, opts ...ConverterOption) *Converter {
	c := &Converter{
		sources:  sources,
		slippage: DefaultSlippage,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// USDToSOL returns usd / price × (1 − slippage), rounded to 9 places
func (c *Converter) USDToSOL(ctx context.Context, usd decimal.Decimal) (*Quote, error) {
	if !usd.IsPositive() {
		return nil, ErrInvalidUSD
	}

	var errs []error
	for i, source := range c.sources {
		price, err := source.Price(ctx)
		if err == nil && !price.IsPositive() {
			err = ErrNoPrice
		}
		if err != nil {
			c.logger.Warn("price source failed", zap.Int("source", i), zap.Error(err))
			errs = append(errs, err)
			continue
		}

		sol := usd.Div(price).Mul(decimal.NewFromInt(1).Sub(c.slippage)).Round(9)
		return &Quote{USD: usd, SOL: sol, Price: price, Slippage: c.slippage, Source: i}, nil
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("no price sources configured")
	}
	return nil, fmt.Errorf("all price sources failed: %w", errors.Join(errs...))
}
