package remote

import (
	"context"
	"net/http"

	"aggregator/core"
	"aggregator/handler/param"
	"aggregator/handler/render"

	"github.com/go-chi/chi"
	"github.com/holiman/uint256"
	"github.com/twitchtv/twirp"
)

// Handler serve backend b over http, the counterpart of Backend
func Handler(b core.Backend) http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Error(w, twirp.NotFoundError("not found"))
	})

	r.Route("/markets/{asset}", func(r chi.Router) {
		r.Get("/usage", func(w http.ResponseWriter, r *http.Request) {
			usage, err := b.Usage(r.Context(), chi.URLParam(r, "asset"))
			if err != nil {
				renderFailure(w, err)
				return
			}

			render.JSON(w, usage)
		})

		r.Get("/rates", func(w http.ResponseWriter, r *http.Request) {
			ctx, asset := r.Context(), chi.URLParam(r, "asset")

			supplyRate, err := b.CurrentSupplyRate(ctx, asset)
			if err != nil {
				renderFailure(w, err)
				return
			}

			borrowRate, err := b.CurrentBorrowRate(ctx, asset)
			if err != nil {
				renderFailure(w, err)
				return
			}

			render.JSON(w, Rates{SupplyRate: supplyRate, BorrowRate: borrowRate})
		})

		r.Get("/accounts/{account}", func(w http.ResponseWriter, r *http.Request) {
			ctx, asset, account := r.Context(), chi.URLParam(r, "asset"), chi.URLParam(r, "account")

			supplied, err := b.SupplyOf(ctx, asset, account)
			if err != nil {
				renderFailure(w, err)
				return
			}

			debt, err := b.DebtOf(ctx, asset, account)
			if err != nil {
				renderFailure(w, err)
				return
			}

			render.JSON(w, Account{Supplied: supplied, Debt: debt})
		})

		r.Post("/supply", handleAmount(func(ctx context.Context, asset string, req AmountRequest) error {
			return b.Supply(ctx, asset, req.Amount)
		}))
		r.Post("/redeem", handleAmount(func(ctx context.Context, asset string, req AmountRequest) error {
			return b.Redeem(ctx, asset, req.Amount, req.To)
		}))
		r.Post("/borrow", handleAmount(func(ctx context.Context, asset string, req AmountRequest) error {
			return b.Borrow(ctx, asset, req.Amount, req.To)
		}))
		r.Post("/repay", handleAmount(func(ctx context.Context, asset string, req AmountRequest) error {
			return b.Repay(ctx, asset, req.Amount)
		}))

		r.Post("/targets/supply", handleTarget(b.AmountForTargetSupplyRate))
		r.Post("/targets/borrow", handleTarget(b.AmountForTargetBorrowRate))
	})

	return r
}

func handleAmount(fn func(ctx context.Context, asset string, req AmountRequest) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AmountRequest
		if err := param.Binding(r, &req); err != nil {
			render.Error(w, err)
			return
		}

		if req.Amount == nil || req.Amount.IsZero() {
			render.Error(w, twirp.InvalidArgumentError("amount", "must be positive"))
			return
		}

		if err := fn(r.Context(), chi.URLParam(r, "asset"), req); err != nil {
			renderFailure(w, err)
			return
		}

		render.JSON(w, render.H{})
	}
}

func handleTarget(fn func(ctx context.Context, asset string, target *uint256.Int, usage core.Usage) (*uint256.Int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TargetRequest
		if err := param.Binding(r, &req); err != nil {
			render.Error(w, err)
			return
		}

		if req.Target == nil {
			render.Error(w, twirp.RequiredArgumentError("target"))
			return
		}

		amount, err := fn(r.Context(), chi.URLParam(r, "asset"), req.Target, req.Usage)
		if err != nil {
			renderFailure(w, err)
			return
		}

		render.JSON(w, AmountResponse{Amount: amount})
	}
}

// backend errors keep their message for the caller
func renderFailure(w http.ResponseWriter, err error) {
	if core.CodeOf(err) == core.ErrUnknown {
		err = core.WrapError(core.ErrBackendCallFailure, err, "backend")
	}

	render.Error(w, err)
}
