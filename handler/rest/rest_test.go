package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aggregator/core"
	"aggregator/handler/auth"
	"aggregator/handler/views"
	"aggregator/internal/interest"
	"aggregator/pkg/number"
	"aggregator/pkg/ray"
	"aggregator/service/aggregator"
	"aggregator/service/backend/simulated"
	"aggregator/service/block"
	"aggregator/service/deposit"
	"aggregator/service/ledger"
	"aggregator/service/oracle"
	"aggregator/service/reserve"
	"aggregator/service/session"
	"aggregator/service/transfer"

	"github.com/gofrs/uuid"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const admin = "admin"

func tokens(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1e18))
}

type events []*core.Event

func (e events) Create(ctx context.Context, items ...*core.Event) error { return nil }

func (e events) List(ctx context.Context, fromID uint64, limit int) ([]*core.Event, error) {
	var out []*core.Event
	for _, ev := range e {
		if ev.ID > fromID && len(out) < limit {
			out = append(out, ev)
		}
	}

	return out, nil
}

func (e events) ListByUser(ctx context.Context, user string, fromID uint64, limit int) ([]*core.Event, error) {
	var out []*core.Event
	for _, ev := range e {
		if ev.User == user && ev.ID > fromID && len(out) < limit {
			out = append(out, ev)
		}
	}

	return out, nil
}

type server struct {
	*httptest.Server
	sessions *session.Session
	deposits *deposit.Memory
}

func newServer(t *testing.T) *server {
	ctx := context.Background()
	clock := block.NewManual(1)

	model := interest.NewRateModel(
		number.Decimal("0.02"),
		number.Decimal("0.2"),
		number.Decimal("2"),
		number.Decimal("0.8"),
		number.Decimal("0.1"),
	)

	sim := simulated.New("sim", "custody", clock)
	require.Nil(t, sim.AddMarket(ctx, "usdc", model, tokens(1_000_000), tokens(400_000)))
	require.Nil(t, sim.AddMarket(ctx, "eth", model, tokens(1000), tokens(100)))

	deposits := &deposit.Memory{}
	prices := oracle.Static{"usdc": number.Decimal("1"), "eth": number.Decimal("2000")}
	l, err := ledger.New(ledger.Config{
		Custody:      "custody",
		FeeCollector: "treasury",
		Admins:       []string{admin},
		Deposits:     deposits,
	}, clock, prices, &transfer.Memory{}, nil, aggregator.New("custody", clock, nil), reserve.New())
	require.Nil(t, err)

	_, err = l.AddBackend(ctx, admin, sim)
	require.Nil(t, err)

	for _, opt := range []core.AssetOption{
		{ID: "usdc", Symbol: "USDC", Decimals: 18, Collateral: true, MaxLTV: "0.75", LiquidationLTV: "0.8", MaxLiquidateRatio: "0.5", LiquidationRewardRatio: "0.05", FeeRateBps: 1000},
		{ID: "eth", Symbol: "ETH", Decimals: 18, Collateral: true, MaxLTV: "0.75", LiquidationLTV: "0.8", MaxLiquidateRatio: "0.5", LiquidationRewardRatio: "0.05", FeeRateBps: 1000},
	} {
		asset, err := opt.Asset()
		require.Nil(t, err)
		require.Nil(t, l.AddAsset(ctx, admin, asset))
	}

	sessions := session.New(core.SessionConfig{Secret: "secret", Capacity: 8})
	stored := events{
		{ID: 1, Kind: core.EventSupplied, User: "alice"},
		{ID: 2, Kind: core.EventSupplied, User: "bob"},
	}

	h := auth.HandleAuthentication(sessions)(Handle(ledger.Serialize(l), prices, stored, nil, deposits))
	return &server{Server: httptest.NewServer(h), sessions: sessions, deposits: deposits}
}

// deposit report a custody deposit of user and return its trace id
func (s *server) deposit(t *testing.T, user, asset string, amount *uint256.Int) string {
	t.Helper()
	traceID := uuid.Must(uuid.NewV4()).String()
	require.Nil(t, s.deposits.Save(context.Background(), &core.Deposit{
		TraceID: traceID,
		UserID:  user,
		AssetID: asset,
		Amount:  decimal.NewFromBigInt(amount.ToBig(), 0),
	}))

	return traceID
}

func (s *server) call(t *testing.T, user, method, path, body string, out interface{}) int {
	t.Helper()

	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.Nil(t, err)

	if user != "" {
		token, err := s.sessions.Issue(user, time.Hour)
		require.Nil(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.Nil(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.Nil(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func TestOperations(t *testing.T) {
	s := newServer(t)
	defer s.Close()

	var done views.Default
	trace := s.deposit(t, "bob", "eth", tokens(10))
	code := s.call(t, "bob", "POST", "/supply", `{"trace_id":"`+trace+`","use_as_collateral":true,"execute_immediately":true}`, &done)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, views.DefaultSuccess, done)

	funded, err := s.deposits.Find(context.Background(), trace)
	require.Nil(t, err)
	assert.Equal(t, core.DepositStatusConsumed, funded.Status)

	code = s.call(t, "bob", "POST", "/borrow", `{"asset":"usdc","amount":"`+tokens(1000).Dec()+`"}`, nil)
	require.Equal(t, http.StatusOK, code)

	var user struct {
		User      string `json:"user"`
		Positions []struct {
			Asset      string `json:"asset"`
			Supplied   string `json:"supplied"`
			Debt       string `json:"debt"`
			Collateral bool   `json:"collateral"`
		} `json:"positions"`
		CollateralValue string `json:"collateral_value"`
		BorrowLimit     string `json:"borrow_limit"`
		DebtValue       string `json:"debt_value"`
	}

	code = s.call(t, "", "GET", "/users/bob", "", &user)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, user.Positions, 2)
	assert.Equal(t, "20000", user.CollateralValue)
	assert.Equal(t, "15000", user.BorrowLimit)
	assert.Equal(t, "1000", user.DebtValue)

	// over the borrow limit
	var failure struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	code = s.call(t, "bob", "POST", "/borrow", `{"asset":"usdc","amount":"`+tokens(20000).Dec()+`"}`, &failure)
	assert.Equal(t, http.StatusPreconditionFailed, code)
	assert.Equal(t, int(core.ErrInsufficientCollateral), failure.Code)

	trace = s.deposit(t, "bob", "usdc", tokens(1000))
	code = s.call(t, "bob", "POST", "/repay", `{"trace_id":"`+trace+`"}`, nil)
	require.Equal(t, http.StatusOK, code)

	code = s.call(t, "bob", "POST", "/repay", `{"trace_id":"`+trace+`"}`, &failure)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, int(core.ErrDepositConsumed), failure.Code)

	var deposits struct {
		Deposits []*core.Deposit `json:"deposits"`
	}
	require.Equal(t, http.StatusOK, s.call(t, "bob", "GET", "/me/deposits", "", &deposits))
	assert.Len(t, deposits.Deposits, 2)

	code = s.call(t, "bob", "POST", "/supply", `{"asset":"eth","amount":"1"}`, &failure)
	assert.Equal(t, http.StatusBadRequest, code)

	code = s.call(t, "", "POST", "/supply", `{"trace_id":"`+trace+`"}`, &failure)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUnfundedOperationsRejected(t *testing.T) {
	s := newServer(t)
	defer s.Close()

	trace := s.deposit(t, "alice", "usdc", tokens(1_000_000))
	require.Equal(t, http.StatusOK, s.call(t, "alice", "POST", "/supply", `{"trace_id":"`+trace+`","execute_immediately":true}`, nil))

	var failure struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}

	// collateral claimed without paying for it
	code := s.call(t, "mallory", "POST", "/supply", `{"trace_id":"`+uuid.Must(uuid.NewV4()).String()+`","use_as_collateral":true}`, &failure)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, int(core.ErrDepositNotFound), failure.Code)

	// nor with somebody else's deposit
	code = s.call(t, "mallory", "POST", "/supply", `{"trace_id":"`+trace+`","use_as_collateral":true}`, &failure)
	assert.Equal(t, http.StatusForbidden, code)

	code = s.call(t, "mallory", "POST", "/borrow", `{"asset":"usdc","amount":"`+tokens(500_000).Dec()+`"}`, &failure)
	assert.Equal(t, http.StatusPreconditionFailed, code)

	code = s.call(t, "mallory", "POST", "/repay", `{"trace_id":"missing"}`, &failure)
	assert.Equal(t, http.StatusNotFound, code)

	var user struct {
		Positions []struct {
			Asset    string `json:"asset"`
			Supplied string `json:"supplied"`
		} `json:"positions"`
		CollateralValue string `json:"collateral_value"`
		DebtValue       string `json:"debt_value"`
	}
	require.Equal(t, http.StatusOK, s.call(t, "", "GET", "/users/mallory", "", &user))
	assert.Equal(t, "0", user.CollateralValue)
	assert.Equal(t, "0", user.DebtValue)
}

func TestViews(t *testing.T) {
	s := newServer(t)
	defer s.Close()

	var assets []struct {
		ID    string `json:"id"`
		Index int    `json:"index"`
	}
	require.Equal(t, http.StatusOK, s.call(t, "", "GET", "/assets", "", &assets))
	require.Len(t, assets, 2)
	assert.Equal(t, "eth", assets[1].ID)

	var asset struct {
		ID      string `json:"id"`
		Indices struct {
			SupplyIndex string `json:"supply_index"`
		} `json:"indices"`
	}
	require.Equal(t, http.StatusOK, s.call(t, "", "GET", "/assets/usdc", "", &asset))
	assert.Equal(t, ray.One().Dec(), asset.Indices.SupplyIndex)

	assert.Equal(t, http.StatusNotFound, s.call(t, "", "GET", "/assets/doge", "", nil))

	var backends []core.BackendInfo
	require.Equal(t, http.StatusOK, s.call(t, "", "GET", "/backends", "", &backends))
	require.Len(t, backends, 1)
	assert.Equal(t, "sim", backends[0].Name)

	var page struct {
		Events []*core.Event `json:"events"`
		Next   uint64        `json:"next"`
	}
	require.Equal(t, http.StatusOK, s.call(t, "", "GET", "/events?user=bob", "", &page))
	require.Len(t, page.Events, 1)
	assert.Equal(t, uint64(2), page.Next)

	require.Equal(t, http.StatusOK, s.call(t, "", "GET", "/events?from=1&limit=10", "", &page))
	require.Len(t, page.Events, 1)
	assert.Equal(t, "bob", page.Events[0].User)
}

func TestAdmin(t *testing.T) {
	s := newServer(t)
	defer s.Close()

	body := `{"asset":"usdc","mask":1}`
	assert.Equal(t, http.StatusForbidden, s.call(t, "alice", "POST", "/admin/pause", body, nil))
	require.Equal(t, http.StatusOK, s.call(t, admin, "POST", "/admin/pause", body, nil))

	trace := s.deposit(t, "alice", "usdc", uint256.NewInt(100))
	code := s.call(t, "alice", "POST", "/supply", `{"trace_id":"`+trace+`"}`, nil)
	assert.Equal(t, http.StatusPreconditionFailed, code)

	dai := `{"id":"dai","symbol":"DAI","decimals":18,"max_liquidate_ratio":"0.5","liquidation_reward_ratio":"0.05","max_reserve":"1000"}`
	var listed core.Asset
	require.Equal(t, http.StatusOK, s.call(t, admin, "POST", "/admin/assets", dai, &listed))
	assert.Equal(t, 2, listed.Index)
	assert.True(t, listed.Batching())

	code = s.call(t, admin, "PUT", "/admin/assets/eth", dai, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	assert.Equal(t, http.StatusOK, s.call(t, admin, "POST", "/admin/backends/0/enabled", `{"enabled":false}`, nil))
	assert.Equal(t, http.StatusNotFound, s.call(t, admin, "DELETE", "/admin/backends/7", "", nil))
	assert.Equal(t, http.StatusOK, s.call(t, admin, "POST", "/admin/fee-collector", `{"collector":"vault"}`, nil))
	assert.Equal(t, http.StatusBadRequest, s.call(t, admin, "POST", "/admin/reserve", `{"max_pending_ratio_bps":20000}`, nil))
}
