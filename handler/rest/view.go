package rest

import (
	"context"
	"net/http"

	"aggregator/core"
	"aggregator/handler/param"
	"aggregator/handler/render"
	"aggregator/handler/request"
	"aggregator/handler/views"
	"aggregator/pkg/number"

	"github.com/go-chi/chi"
	"github.com/twitchtv/twirp"
)

func assetsHandler(ledger core.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		assets := ledger.Assets(ctx)

		items := make([]*views.Asset, 0, len(assets))
		for _, asset := range assets {
			items = append(items, &views.Asset{
				Asset:  asset,
				Paused: ledger.Paused(ctx, asset.ID),
			})
		}

		render.JSON(w, items)
	}
}

func assetHandler(ledger core.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, id := r.Context(), chi.URLParam(r, "asset")

		asset, err := ledger.AssetConfig(ctx, id)
		if err != nil {
			render.Error(w, err)
			return
		}

		view := &views.Asset{Asset: asset, Paused: ledger.Paused(ctx, id)}
		if view.Indices, err = ledger.Indices(ctx, id); err != nil {
			render.Error(w, err)
			return
		}

		if view.Supplied, err = ledger.TotalSupplied(ctx, id); err != nil {
			render.Error(w, err)
			return
		}

		if view.Borrowed, err = ledger.TotalBorrowed(ctx, id); err != nil {
			render.Error(w, err)
			return
		}

		if view.Fee, err = ledger.AccruedFee(ctx, id); err != nil {
			render.Error(w, err)
			return
		}

		if view.Pending, err = ledger.Pending(ctx, id); err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, view)
	}
}

func backendsHandler(ledger core.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, ledger.Backends(r.Context()))
	}
}

func userHandler(ledger core.LedgerService, oracle core.PriceOracle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderUser(w, r, ledger, oracle, chi.URLParam(r, "user"))
	}
}

func meHandler(ledger core.LedgerService, oracle core.PriceOracle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := request.NewContext(r.Context()).GetUser()
		renderUser(w, r, ledger, oracle, user)
	}
}

func renderUser(w http.ResponseWriter, r *http.Request, ledger core.LedgerService, oracle core.PriceOracle, user string) {
	view, err := userView(r.Context(), ledger, oracle, user)
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, view)
}

func userView(ctx context.Context, ledger core.LedgerService, oracle core.PriceOracle, user string) (*views.User, error) {
	status := ledger.UserStatus(ctx, user)
	view := &views.User{User: user, Positions: []views.Position{}}

	for _, asset := range ledger.Assets(ctx) {
		supplied, err := ledger.SupplyBalance(ctx, asset.ID, user)
		if err != nil {
			return nil, err
		}

		debt, err := ledger.DebtBalance(ctx, asset.ID, user)
		if err != nil {
			return nil, err
		}

		if supplied.IsZero() && debt.IsZero() {
			continue
		}

		flags := status.Get(asset.Index)
		view.Positions = append(view.Positions, views.Position{
			Asset:      asset.ID,
			Supplied:   supplied,
			Debt:       debt,
			Collateral: flags.Collateral,
		})

		if oracle == nil {
			continue
		}

		price, err := oracle.Price(ctx, asset.ID)
		if err != nil {
			return nil, err
		}

		if flags.Collateral {
			v := number.FromUint256(supplied, asset.Decimals).Mul(price)
			view.CollateralValue = view.CollateralValue.Add(v)
			view.BorrowLimit = view.BorrowLimit.Add(v.Mul(asset.Config.MaxLTV))
		}

		view.DebtValue = view.DebtValue.Add(number.FromUint256(debt, asset.Decimals).Mul(price))
	}

	view.CollateralValue = view.CollateralValue.Truncate(8)
	view.BorrowLimit = view.BorrowLimit.Truncate(8)
	view.DebtValue = view.DebtValue.Truncate(8)
	return view, nil
}

type pageParams struct {
	From  uint64 `json:"from"`
	Limit int    `json:"limit"`
	User  string `json:"user"`
}

func (p *pageParams) limit() int {
	if p.Limit <= 0 || p.Limit > 500 {
		return 100
	}

	return p.Limit
}

func eventsHandler(events core.EventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params pageParams
		if err := param.Binding(r, &params); err != nil {
			render.Error(w, err)
			return
		}

		var (
			items []*core.Event
			err   error
		)

		if params.User != "" {
			items, err = events.ListByUser(r.Context(), params.User, params.From, params.limit())
		} else {
			items, err = events.List(r.Context(), params.From, params.limit())
		}

		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, render.H{"events": items, "next": next(items, func(e *core.Event) uint64 { return e.ID })})
	}
}

func transfersHandler(transfers core.TransferStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params pageParams
		if err := param.Binding(r, &params); err != nil {
			render.Error(w, err)
			return
		}

		if params.User == "" {
			render.Error(w, twirp.RequiredArgumentError("user"))
			return
		}

		items, err := transfers.List(r.Context(), params.User, params.From, params.limit())
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, render.H{"transfers": items, "next": next(items, func(t *core.Transfer) uint64 { return t.ID })})
	}
}

// next cursor of the following page, zero when the page is empty
func next[T any](items []T, id func(T) uint64) uint64 {
	if len(items) == 0 {
		return 0
	}

	return id(items[len(items)-1])
}

func depositsHandler(deposits core.DepositStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params pageParams
		if err := param.Binding(r, &params); err != nil {
			render.Error(w, err)
			return
		}

		user, _ := request.NewContext(r.Context()).GetUser()
		items, err := deposits.ListByUser(r.Context(), user, params.From, params.limit())
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, render.H{"deposits": items, "next": next(items, func(d *core.Deposit) uint64 { return d.ID })})
	}
}
