package param

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/gorilla/schema"
	"github.com/twitchtv/twirp"
)

var decoder = schema.NewDecoder()

func init() {
	decoder.SetAliasTag("json")
	decoder.IgnoreUnknownKeys(true)
}

// Binding decode query params of GET requests and json bodies of the others into v, then validate v
func Binding(r *http.Request, v interface{}) error {
	if r.Method == http.MethodGet {
		if err := decoder.Decode(v, r.URL.Query()); err != nil {
			return twirp.NewError(twirp.Malformed, err.Error())
		}
	} else if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		return twirp.NewError(twirp.Malformed, err.Error())
	}

	if _, err := govalidator.ValidateStruct(v); err != nil {
		return twirp.InvalidArgumentError("params", err.Error())
	}

	return nil
}
