package transfer

import (
	"context"
	"fmt"
	"time"

	"aggregator/core"
	"aggregator/pkg/resthttp"

	"github.com/go-resty/resty/v2"
)

type payer struct {
	endpoint string
	client   *resty.Client
}

// Payer custody service over http, POST {endpoint}/transfers with the trace id as request id
func Payer(endpoint string, timeout time.Duration) core.Payer {
	return &payer{
		endpoint: endpoint,
		client:   resthttp.New(timeout),
	}
}

func (p *payer) Pay(ctx context.Context, transfer *core.Transfer) error {
	body := map[string]interface{}{
		"trace_id":    transfer.TraceID,
		"opponent_id": transfer.OpponentID,
		"asset_id":    transfer.AssetID,
		"amount":      transfer.Amount.String(),
		"memo":        transfer.Memo,
	}

	req := p.client.R().SetContext(ctx).SetHeader("X-Request-Id", transfer.TraceID)
	return resthttp.Execute(req, "POST", fmt.Sprintf("%s/transfers", p.endpoint), body, nil)
}
