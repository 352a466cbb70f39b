package handler

import (
	"net/http"

	"aggregator/core"
	"aggregator/handler/auth"
	"aggregator/handler/render"
	"aggregator/handler/rest"
	"aggregator/service/backend/remote"

	"github.com/go-chi/chi"
	"github.com/twitchtv/twirp"
)

// Server server
type Server struct {
	session   core.Session
	ledger    core.LedgerService
	oracle    core.PriceOracle
	events    core.EventStore
	transfers core.TransferStore
	deposits  core.DepositStore
}

// New new server function
func New(
	session core.Session,
	ledger core.LedgerService,
	oracle core.PriceOracle,
	events core.EventStore,
	transfers core.TransferStore,
	deposits core.DepositStore,
) Server {
	return Server{
		session:   session,
		ledger:    ledger,
		oracle:    oracle,
		events:    events,
		transfers: transfers,
		deposits:  deposits,
	}
}

// HandleRestAPI handle restful apis
func (s Server) HandleRestAPI() http.Handler {
	r := chi.NewRouter()
	r.Use(auth.HandleAuthentication(s.session))
	r.Use(render.WrapResponse(true))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Error(w, twirp.NotFoundError("not found"))
	})

	r.Mount("/", rest.Handle(s.ledger, s.oracle, s.events, s.transfers, s.deposits))
	return r
}

// HandleBackends serve in process backends to remote adapters, keyed by name
func HandleBackends(backends []core.Backend) http.Handler {
	r := chi.NewRouter()
	for _, b := range backends {
		r.Mount("/"+b.Name(), remote.Handler(b))
	}

	return r
}
