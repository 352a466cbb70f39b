package oracle

import (
	"context"
	"fmt"
	"time"

	"aggregator/core"
	"aggregator/pkg/resthttp"

	"github.com/bluele/gcache"
	"github.com/fox-one/pkg/logger"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Static fixed prices, typically from config
type Static map[string]decimal.Decimal

// Price price of asset
func (s Static) Price(ctx context.Context, asset string) (decimal.Decimal, error) {
	price, ok := s[asset]
	if !ok || !price.IsPositive() {
		return decimal.Zero, core.NewError(core.ErrInvalidPrice, "no price for %s", asset)
	}

	return price, nil
}

// Ticker price feed response
type Ticker struct {
	Asset     string          `json:"asset_id"`
	Price     decimal.Decimal `json:"price"`
	Timestamp int64           `json:"timestamp"`
}

type remote struct {
	endpoint string
	client   *resty.Client
}

// Remote price feed over http, GET {endpoint}/api/v2/tickers/{asset}
func Remote(endpoint string, timeout time.Duration) core.PriceOracle {
	client := resthttp.Client()
	if timeout > 0 {
		client = resthttp.New(timeout)
	}

	return &remote{endpoint: endpoint, client: client}
}

func (r *remote) Price(ctx context.Context, asset string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/api/v2/tickers/%s", r.endpoint, asset)
	logger.FromContext(ctx).Debugln("pull price:", url)

	var ticker Ticker
	if err := resthttp.Execute(r.client.R().SetContext(ctx), "GET", url, nil, &ticker); err != nil {
		return decimal.Zero, core.WrapError(core.ErrInvalidPrice, err, asset)
	}

	if !ticker.Price.IsPositive() {
		return decimal.Zero, core.NewError(core.ErrInvalidPrice, "feed price of %s is %s", asset, ticker.Price)
	}

	return ticker.Price, nil
}

type cached struct {
	core.PriceOracle
	cache gcache.Cache
	sf    *singleflight.Group
	ttl   time.Duration
}

// Cache keep prices of o for ttl, concurrent misses of one asset share a single fetch
func Cache(o core.PriceOracle, ttl time.Duration) core.PriceOracle {
	return &cached{
		PriceOracle: o,
		cache:       gcache.New(256).LRU().Build(),
		sf:          &singleflight.Group{},
		ttl:         ttl,
	}
}

func (c *cached) Price(ctx context.Context, asset string) (decimal.Decimal, error) {
	if v, err := c.cache.Get(asset); err == nil {
		if price, ok := v.(decimal.Decimal); ok {
			return price, nil
		}
	}

	v, err, _ := c.sf.Do(asset, func() (interface{}, error) {
		price, err := c.PriceOracle.Price(ctx, asset)
		if err != nil {
			return nil, err
		}

		if err := c.cache.SetWithExpire(asset, price, c.ttl); err != nil {
			logger.FromContext(ctx).WithError(err).Warnln("cache price", asset)
		}

		return price, nil
	})

	if err != nil {
		return decimal.Zero, err
	}

	return v.(decimal.Decimal), nil
}
