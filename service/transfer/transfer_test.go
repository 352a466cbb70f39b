package transfer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aggregator/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	m := &Memory{}
	require.Nil(t, m.Transfer(context.Background(), &core.Transfer{TraceID: "a"}, &core.Transfer{TraceID: "b"}))
	require.Nil(t, m.Transfer(context.Background()))

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[1].TraceID)
}

func TestPayer(t *testing.T) {
	var got map[string]string
	var requestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Request-Id")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if got["asset_id"] == "doge" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":1,"msg":"unsupported asset"}`))
			return
		}

		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := Payer(srv.URL, time.Second)
	err := p.Pay(context.Background(), &core.Transfer{
		TraceID:    "trace",
		OpponentID: "alice",
		AssetID:    "usdc",
		Amount:     decimal.NewFromInt(42),
		Memo:       "redeem:usdc",
	})
	require.Nil(t, err)
	assert.Equal(t, "trace", requestID)
	assert.Equal(t, "42", got["amount"])
	assert.Equal(t, "alice", got["opponent_id"])

	err = p.Pay(context.Background(), &core.Transfer{TraceID: "x", AssetID: "doge", Amount: decimal.NewFromInt(1)})
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "unsupported asset")
}
