package rest

import (
	"net/http"
	"strconv"
	"time"

	"aggregator/core"
	"aggregator/handler/param"
	"aggregator/handler/render"
	"aggregator/handler/request"
	"aggregator/handler/views"
	"aggregator/service/backend/remote"

	"github.com/go-chi/chi"
	"github.com/twitchtv/twirp"
)

func adminOf(r *http.Request) string {
	user, _ := request.NewContext(r.Context()).GetUser()
	return user
}

func addAssetHandler(ledger core.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opt core.AssetOption
		if err := param.Binding(r, &opt); err != nil {
			render.Error(w, err)
			return
		}

		asset, err := opt.Asset()
		if err != nil {
			render.Error(w, err)
			return
		}

		if err := ledger.AddAsset(r.Context(), adminOf(r), asset); err != nil {
			render.Error(w, err)
			return
		}

		listed, err := ledger.AssetConfig(r.Context(), asset.ID)
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, listed)
	}
}

func updateAssetHandler(ledger core.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opt core.AssetOption
		if err := param.Binding(r, &opt); err != nil {
			render.Error(w, err)
			return
		}

		if id := chi.URLParam(r, "asset"); opt.ID != id {
			render.Error(w, twirp.InvalidArgumentError("id", "must match the path"))
			return
		}

		asset, err := opt.Asset()
		if err != nil {
			render.Error(w, err)
			return
		}

		if err := ledger.UpdateAsset(r.Context(), adminOf(r), asset); err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, views.DefaultSuccess)
	}
}

func addBackendHandler(ledger core.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			Name     string `json:"name" valid:"required"`
			EndPoint string `json:"end_point" valid:"required,url"`
			Timeout  int64  `json:"timeout_ms"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.Error(w, err)
			return
		}

		backend := remote.New(params.Name, params.EndPoint, time.Duration(params.Timeout)*time.Millisecond)
		index, err := ledger.AddBackend(r.Context(), adminOf(r), backend)
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, render.H{"index": index})
	}
}

func backendIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		render.Error(w, twirp.InvalidArgumentError("index", err.Error()))
		return 0, false
	}

	return index, true
}

func removeBackendHandler(ledger core.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := backendIndex(w, r)
		if !ok {
			return
		}

		if err := ledger.RemoveBackend(r.Context(), adminOf(r), index); err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, views.DefaultSuccess)
	}
}

func enableBackendHandler(ledger core.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := backendIndex(w, r)
		if !ok {
			return
		}

		var params struct {
			Enabled bool `json:"enabled"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.Error(w, err)
			return
		}

		if err := ledger.SetBackendEnabled(r.Context(), adminOf(r), index, params.Enabled); err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, views.DefaultSuccess)
	}
}

func pauseHandler(ledger core.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			Asset string `json:"asset" valid:"required"`
			Mask  uint8  `json:"mask"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.Error(w, err)
			return
		}

		if err := ledger.SetPaused(r.Context(), adminOf(r), params.Asset, core.PauseMask(params.Mask)); err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, views.DefaultSuccess)
	}
}

func reserveHandler(ledger core.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			MaxPendingRatioBps uint64 `json:"max_pending_ratio_bps"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.Error(w, err)
			return
		}

		if err := ledger.SetReserveParams(r.Context(), adminOf(r), params.MaxPendingRatioBps); err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, views.DefaultSuccess)
	}
}

func feeCollectorHandler(ledger core.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			Collector string `json:"collector" valid:"required"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.Error(w, err)
			return
		}

		if err := ledger.SetFeeCollector(r.Context(), adminOf(r), params.Collector); err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, views.DefaultSuccess)
	}
}
