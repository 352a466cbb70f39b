package render

import (
	"encoding/json"
	"net/http"

	"aggregator/handler/codes"

	"github.com/sirupsen/logrus"
	"github.com/twitchtv/twirp"
)

type H map[string]interface{}

// JSON render with json
func JSON(w http.ResponseWriter, v interface{}) {
	JSONWithStatus(w, http.StatusOK, v)
}

// JSONWithStatus render v with status code
func JSONWithStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Errorln("render.JSON")
	}
}

// Text render with text
func Text(w http.ResponseWriter, t string) {
	w.Header().Set("Content-Type", "application/text")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(t)); err != nil {
		logrus.WithError(err).Errorln("render.Text")
	}
}

// Error write error, the status follows the twirp code of err
func Error(w http.ResponseWriter, err error) {
	twerr := codes.Twirp(err)
	resp := errorResponse{
		Code: codes.Get(twerr),
		Msg:  twerr.Msg(),
	}

	if twerr.Code() == twirp.Internal {
		if ResponseErrorMessageAsHint {
			resp.Hint = resp.Msg
		}

		resp.Msg = "internal error"
	}

	JSONWithStatus(w, twirp.ServerHTTPStatusFromErrorCode(twerr.Code()), resp)
}

// BadRequest bad request error
func BadRequest(w http.ResponseWriter, err error) {
	Error(w, twirp.NewError(twirp.Malformed, err.Error()))
}

// NotFoundRequest not found request error
func NotFoundRequest(w http.ResponseWriter, err error) {
	Error(w, twirp.NotFoundError(err.Error()))
}
