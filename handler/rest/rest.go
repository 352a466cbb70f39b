package rest

import (
	"errors"
	"net/http"

	"aggregator/core"
	"aggregator/handler/auth"
	"aggregator/handler/render"

	"github.com/go-chi/chi"
)

// Handle handle rest api request
func Handle(
	ledger core.LedgerService,
	oracle core.PriceOracle,
	events core.EventStore,
	transfers core.TransferStore,
	deposits core.DepositStore,
) http.Handler {
	router := chi.NewRouter()

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.NotFoundRequest(w, errors.New("not found"))
	})

	router.Get("/assets", assetsHandler(ledger))
	router.Get("/assets/{asset}", assetHandler(ledger))
	router.Get("/backends", backendsHandler(ledger))
	router.Get("/users/{user}", userHandler(ledger, oracle))
	router.Get("/events", eventsHandler(events))
	router.Get("/transfers", transfersHandler(transfers))

	router.Group(func(r chi.Router) {
		r.Use(auth.LoginRequired)

		r.Post("/supply", supplyHandler(ledger, deposits))
		r.Post("/redeem", redeemHandler(ledger))
		r.Post("/borrow", borrowHandler(ledger))
		r.Post("/repay", repayHandler(ledger, deposits))
		r.Post("/liquidate", liquidateHandler(ledger, deposits))
		r.Post("/flush", flushHandler(ledger))
		r.Get("/me", meHandler(ledger, oracle))
		r.Get("/me/deposits", depositsHandler(deposits))

		r.Route("/admin", func(r chi.Router) {
			r.Post("/assets", addAssetHandler(ledger))
			r.Put("/assets/{asset}", updateAssetHandler(ledger))
			r.Post("/backends", addBackendHandler(ledger))
			r.Delete("/backends/{index}", removeBackendHandler(ledger))
			r.Post("/backends/{index}/enabled", enableBackendHandler(ledger))
			r.Post("/pause", pauseHandler(ledger))
			r.Post("/reserve", reserveHandler(ledger))
			r.Post("/fee-collector", feeCollectorHandler(ledger))
		})
	})

	return router
}
