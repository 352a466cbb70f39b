package deposit

import (
	"context"
	"fmt"
	"time"

	"aggregator/core"
	"aggregator/pkg/resthttp"

	"github.com/go-resty/resty/v2"
)

type remote struct {
	endpoint string
	client   *resty.Client
}

// Remote deposit feed of the custody service, GET {endpoint}/deposits?offset=&limit=
func Remote(endpoint string, timeout time.Duration) core.DepositSource {
	return &remote{
		endpoint: endpoint,
		client:   resthttp.New(timeout),
	}
}

func (r *remote) Pull(ctx context.Context, offset int64, limit int) ([]*core.Deposit, error) {
	req := r.client.R().SetContext(ctx).SetQueryParams(map[string]string{
		"offset": fmt.Sprint(offset),
		"limit":  fmt.Sprint(limit),
	})

	var deposits []*core.Deposit
	if err := resthttp.Execute(req, "GET", r.endpoint+"/deposits", nil, &deposits); err != nil {
		return nil, err
	}

	return deposits, nil
}
