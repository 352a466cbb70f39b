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

	"github.com/fox-one/pkg/logger"
	"github.com/twitchtv/twirp"
)

type operationParams struct {
	Asset  string `json:"asset" valid:"required"`
	Amount string `json:"amount" valid:"required,int"`
	// To beneficiary of supply and repay, recipient of redeem and borrow
	To                 string `json:"to"`
	UseAsCollateral    bool   `json:"use_as_collateral"`
	ExecuteImmediately bool   `json:"execute_immediately"`
}

type fundedParams struct {
	// TraceID custody deposit paying for the operation, it fixes the asset and amount
	TraceID            string `json:"trace_id" valid:"required"`
	To                 string `json:"to"`
	UseAsCollateral    bool   `json:"use_as_collateral"`
	ExecuteImmediately bool   `json:"execute_immediately"`
}

// fund request spending the caller's deposit traceID
func fund(ctx context.Context, deposits core.DepositFinder, user, traceID string) (*core.Request, error) {
	deposit, err := deposits.Find(ctx, traceID)
	if err != nil {
		return nil, err
	}

	if deposit.UserID != user {
		return nil, twirp.NewError(twirp.PermissionDenied, "deposit of another user")
	}

	amount, err := deposit.Units()
	if err != nil {
		return nil, err
	}

	return &core.Request{
		Sender:  user,
		Asset:   deposit.AssetID,
		Amount:  amount,
		TraceID: deposit.TraceID,
	}, nil
}

func bindFunded(w http.ResponseWriter, r *http.Request, deposits core.DepositFinder) (*core.Request, *fundedParams, bool) {
	var params fundedParams
	if err := param.Binding(r, &params); err != nil {
		render.Error(w, err)
		return nil, nil, false
	}

	user, _ := request.NewContext(r.Context()).GetUser()
	req, err := fund(r.Context(), deposits, user, params.TraceID)
	if err != nil {
		render.Error(w, err)
		return nil, nil, false
	}

	req.To = params.To
	return req, &params, true
}

// consume mark the deposit used once the ledger credited it
func consume(ctx context.Context, deposits core.DepositStore, traceID string) {
	if err := deposits.UpdateStatus(ctx, traceID, core.DepositStatusConsumed); err != nil {
		logger.FromContext(ctx).WithError(err).Errorln("deposits.UpdateStatus", traceID)
	}
}

func bindOperation(w http.ResponseWriter, r *http.Request) (*core.Request, *operationParams, bool) {
	var params operationParams
	if err := param.Binding(r, &params); err != nil {
		render.Error(w, err)
		return nil, nil, false
	}

	amount, err := number.ParseUint256(params.Amount)
	if err != nil {
		render.Error(w, twirp.InvalidArgumentError("amount", err.Error()))
		return nil, nil, false
	}

	user, _ := request.NewContext(r.Context()).GetUser()
	req := &core.Request{
		Sender: user,
		Asset:  params.Asset,
		Amount: amount,
		To:     params.To,
	}

	return req, &params, true
}

func redeemHandler(ledger core.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, params, ok := bindOperation(w, r)
		if !ok {
			return
		}

		if err := ledger.Redeem(r.Context(), req, core.RedeemParams{
			UseAsCollateral:    params.UseAsCollateral,
			ExecuteImmediately: params.ExecuteImmediately,
		}); err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, views.DefaultSuccess)
	}
}

func borrowHandler(ledger core.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, params, ok := bindOperation(w, r)
		if !ok {
			return
		}

		if err := ledger.Borrow(r.Context(), req, core.BorrowParams{
			ExecuteImmediately: params.ExecuteImmediately,
		}); err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, views.DefaultSuccess)
	}
}

func supplyHandler(ledger core.LedgerService, deposits core.DepositStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, params, ok := bindFunded(w, r, deposits)
		if !ok {
			return
		}

		if err := ledger.Supply(r.Context(), req, core.SupplyParams{
			UseAsCollateral:    params.UseAsCollateral,
			ExecuteImmediately: params.ExecuteImmediately,
		}); err != nil {
			render.Error(w, err)
			return
		}

		consume(r.Context(), deposits, req.TraceID)
		render.JSON(w, views.DefaultSuccess)
	}
}

func repayHandler(ledger core.LedgerService, deposits core.DepositStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, params, ok := bindFunded(w, r, deposits)
		if !ok {
			return
		}

		if err := ledger.Repay(r.Context(), req, core.RepayParams{
			ExecuteImmediately: params.ExecuteImmediately,
		}); err != nil {
			render.Error(w, err)
			return
		}

		consume(r.Context(), deposits, req.TraceID)
		render.JSON(w, views.DefaultSuccess)
	}
}

func liquidateHandler(ledger core.LedgerService, deposits core.DepositStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			// TraceID deposit in the debt asset repaying the target's debt
			TraceID         string `json:"trace_id" valid:"required"`
			Target          string `json:"target" valid:"required"`
			CollateralAsset string `json:"collateral_asset" valid:"required"`
			SeizeAmount     string `json:"seize_amount" valid:"required,int"`
			// To receiver of the seized collateral, the caller by default
			To string `json:"to"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.Error(w, err)
			return
		}

		seizeAmount, err := number.ParseUint256(params.SeizeAmount)
		if err != nil {
			render.Error(w, twirp.InvalidArgumentError("seize_amount", err.Error()))
			return
		}

		user, _ := request.NewContext(r.Context()).GetUser()
		repay, err := fund(r.Context(), deposits, user, params.TraceID)
		if err != nil {
			render.Error(w, err)
			return
		}

		repay.To = params.Target
		redeem := &core.Request{Sender: user, Asset: params.CollateralAsset, Amount: seizeAmount, To: params.To}

		if err := ledger.Liquidate(r.Context(), repay, redeem); err != nil {
			render.Error(w, err)
			return
		}

		consume(r.Context(), deposits, repay.TraceID)
		render.JSON(w, views.DefaultSuccess)
	}
}

func flushHandler(ledger core.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			Asset string `json:"asset" valid:"required"`
			Limit int    `json:"limit"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.Error(w, err)
			return
		}

		// zero flushes the whole queue
		if params.Limit <= 0 {
			params.Limit = -1
		}

		n, err := ledger.Flush(r.Context(), params.Asset, params.Limit)
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, render.H{"executed": n})
	}
}
