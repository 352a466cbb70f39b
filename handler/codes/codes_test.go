package codes

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"aggregator/core"

	"github.com/stretchr/testify/assert"
	"github.com/twitchtv/twirp"
)

func TestTwirp(t *testing.T) {
	err := fmt.Errorf("borrow: %w", core.NewError(core.ErrInsufficientCollateral, "ltv"))
	twerr := Twirp(err)
	assert.Equal(t, twirp.FailedPrecondition, twerr.Code())
	assert.Equal(t, int(core.ErrInsufficientCollateral), Get(twerr))
	assert.Equal(t, http.StatusPreconditionFailed, twirp.ServerHTTPStatusFromErrorCode(twerr.Code()))

	twerr = Twirp(core.ErrAssetNotFound)
	assert.Equal(t, twirp.NotFound, twerr.Code())
	assert.Equal(t, int(core.ErrAssetNotFound), Get(twerr))

	twerr = Twirp(core.NewError(core.ErrDepositConsumed, "used"))
	assert.Equal(t, http.StatusConflict, twirp.ServerHTTPStatusFromErrorCode(twerr.Code()))
	assert.Equal(t, int(core.ErrDepositConsumed), Get(twerr))

	twerr = Twirp(errors.New("boom"))
	assert.Equal(t, twirp.Internal, twerr.Code())
	assert.Equal(t, http.StatusInternalServerError, Get(twerr))

	twerr = Twirp(twirp.InvalidArgumentError("amount", "required"))
	assert.Equal(t, InvalidArguments, Get(twerr))
}

func TestLedger(t *testing.T) {
	err := Ledger(int(core.ErrReserveExceeded), "full")
	assert.True(t, errors.Is(err, core.ErrReserveExceeded))

	err = Ledger(int(core.ErrDepositNotFound), "unfunded")
	assert.True(t, errors.Is(err, core.ErrDepositNotFound))

	assert.Nil(t, Ledger(404, "not found"))
}
