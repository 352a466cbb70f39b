package remote

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"aggregator/core"
	"aggregator/pkg/resthttp"

	"github.com/go-resty/resty/v2"
	"github.com/holiman/uint256"
)

type (
	// AmountRequest body of supply, redeem, borrow and repay
	AmountRequest struct {
		Amount *uint256.Int `json:"amount"`
		To     string       `json:"to,omitempty"`
	}

	// TargetRequest body of the target rate queries
	TargetRequest struct {
		Target *uint256.Int `json:"target"`
		Usage  core.Usage   `json:"usage"`
	}

	// AmountResponse answer of the target rate queries
	AmountResponse struct {
		Amount *uint256.Int `json:"amount"`
	}

	// Account position of one account at the backend
	Account struct {
		Supplied *uint256.Int `json:"supplied"`
		Debt     *uint256.Int `json:"debt"`
	}

	// Rates current annual rates in ray
	Rates struct {
		SupplyRate *uint256.Int `json:"supply_rate"`
		BorrowRate *uint256.Int `json:"borrow_rate"`
	}
)

// Backend lending protocol adapter deployed as a json service
type Backend struct {
	name     string
	endpoint string
	client   *resty.Client
}

// New new remote backend
func New(name, endpoint string, timeout time.Duration) *Backend {
	client := resthttp.Client()
	if timeout > 0 {
		client = resthttp.New(timeout)
	}

	return &Backend{
		name:     name,
		endpoint: endpoint,
		client:   client,
	}
}

func (b *Backend) Name() string {
	return b.name
}

func (b *Backend) url(asset string, elem ...string) string {
	u := fmt.Sprintf("%s/markets/%s", b.endpoint, url.PathEscape(asset))
	for _, e := range elem {
		u += "/" + url.PathEscape(e)
	}

	return u
}

func (b *Backend) do(ctx context.Context, method, url string, body, resp interface{}) error {
	if err := resthttp.Execute(b.client.R().SetContext(ctx), method, url, body, resp); err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}

	return nil
}

func (b *Backend) Supply(ctx context.Context, asset string, amount *uint256.Int) error {
	return b.do(ctx, "POST", b.url(asset, "supply"), AmountRequest{Amount: amount}, nil)
}

func (b *Backend) Redeem(ctx context.Context, asset string, amount *uint256.Int, to string) error {
	return b.do(ctx, "POST", b.url(asset, "redeem"), AmountRequest{Amount: amount, To: to}, nil)
}

func (b *Backend) Borrow(ctx context.Context, asset string, amount *uint256.Int, to string) error {
	return b.do(ctx, "POST", b.url(asset, "borrow"), AmountRequest{Amount: amount, To: to}, nil)
}

func (b *Backend) Repay(ctx context.Context, asset string, amount *uint256.Int) error {
	return b.do(ctx, "POST", b.url(asset, "repay"), AmountRequest{Amount: amount}, nil)
}

func (b *Backend) account(ctx context.Context, asset, account string) (*Account, error) {
	var resp Account
	if err := b.do(ctx, "GET", b.url(asset, "accounts", account), nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (b *Backend) SupplyOf(ctx context.Context, asset, account string) (*uint256.Int, error) {
	acc, err := b.account(ctx, asset, account)
	if err != nil {
		return nil, err
	}

	return orZero(acc.Supplied), nil
}

func (b *Backend) DebtOf(ctx context.Context, asset, account string) (*uint256.Int, error) {
	acc, err := b.account(ctx, asset, account)
	if err != nil {
		return nil, err
	}

	return orZero(acc.Debt), nil
}

func (b *Backend) rates(ctx context.Context, asset string) (*Rates, error) {
	var resp Rates
	if err := b.do(ctx, "GET", b.url(asset, "rates"), nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (b *Backend) CurrentSupplyRate(ctx context.Context, asset string) (*uint256.Int, error) {
	r, err := b.rates(ctx, asset)
	if err != nil {
		return nil, err
	}

	return orZero(r.SupplyRate), nil
}

func (b *Backend) CurrentBorrowRate(ctx context.Context, asset string) (*uint256.Int, error) {
	r, err := b.rates(ctx, asset)
	if err != nil {
		return nil, err
	}

	return orZero(r.BorrowRate), nil
}

func (b *Backend) Usage(ctx context.Context, asset string) (core.Usage, error) {
	var usage core.Usage
	if err := b.do(ctx, "GET", b.url(asset, "usage"), nil, &usage); err != nil {
		return core.Usage{}, err
	}

	usage.TotalSupplied = orZero(usage.TotalSupplied)
	usage.TotalBorrowed = orZero(usage.TotalBorrowed)
	return usage, nil
}

func (b *Backend) target(ctx context.Context, asset, side string, target *uint256.Int, usage core.Usage) (*uint256.Int, error) {
	var resp AmountResponse
	if err := b.do(ctx, "POST", b.url(asset, "targets", side), TargetRequest{Target: target, Usage: usage}, &resp); err != nil {
		return nil, err
	}

	return orZero(resp.Amount), nil
}

func (b *Backend) AmountForTargetSupplyRate(ctx context.Context, asset string, target *uint256.Int, usage core.Usage) (*uint256.Int, error) {
	return b.target(ctx, asset, "supply", target, usage)
}

func (b *Backend) AmountForTargetBorrowRate(ctx context.Context, asset string, target *uint256.Int, usage core.Usage) (*uint256.Int, error) {
	return b.target(ctx, asset, "borrow", target, usage)
}

func orZero(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}

	return x
}
