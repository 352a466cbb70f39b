package codes

import (
	"errors"
	"strconv"

	"aggregator/core"

	"github.com/twitchtv/twirp"
)

const (
	// CustomCodeKey code key
	CustomCodeKey = "custom_code"

	// InvalidArguments invalid arguments
	InvalidArguments = 100001
)

// Twirp convert err into a twirp error, ledger error codes are kept as custom code
func Twirp(err error) twirp.Error {
	var twerr twirp.Error
	if errors.As(err, &twerr) {
		return twerr
	}

	var coded *core.Error
	if !errors.As(err, &coded) {
		var code core.ErrorCode
		if !errors.As(err, &code) {
			return twirp.InternalErrorWith(err)
		}

		coded = core.NewError(code, "%s", err.Error())
	}

	twerr = twirp.NewError(twirpCode(coded.Code), err.Error())
	return twerr.WithMeta(CustomCodeKey, coded.Code.String())
}

func twirpCode(code core.ErrorCode) twirp.ErrorCode {
	switch code {
	case core.ErrOperationForbidden:
		return twirp.PermissionDenied
	case core.ErrReentrant:
		return twirp.Aborted
	case core.ErrAssetNotFound, core.ErrBackendNotFound, core.ErrDepositNotFound:
		return twirp.NotFound
	case core.ErrDepositConsumed:
		return twirp.AlreadyExists
	case core.ErrInvalidAmount, core.ErrConfiguration:
		return twirp.InvalidArgument
	case core.ErrActionPaused,
		core.ErrInsufficientCollateral,
		core.ErrLiquidationNotAllowed,
		core.ErrReserveExceeded,
		core.ErrInsufficientLiquidity,
		core.ErrInsufficientBalance:
		return twirp.FailedPrecondition
	case core.ErrBackendCallFailure, core.ErrInvalidPrice:
		return twirp.Unavailable
	}

	return twirp.Internal
}

// Get get error code
func Get(twerr twirp.Error) int {
	if v := twerr.Meta(CustomCodeKey); v != "" {
		if code, err := strconv.Atoi(v); err == nil {
			return code
		}
	}

	switch twerr.Code() {
	case twirp.InvalidArgument, twirp.Malformed:
		return InvalidArguments
	default:
		return twirp.ServerHTTPStatusFromErrorCode(twerr.Code())
	}
}

// Ledger recover a ledger error from a response code, nil if code is not a ledger code
func Ledger(code int, msg string) error {
	c := core.ErrorCode(code)
	if c < core.ErrUnknown || c > core.ErrDepositConsumed {
		return nil
	}

	return core.NewError(c, "%s", msg)
}
