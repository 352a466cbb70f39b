package param

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twitchtv/twirp"
)

type params struct {
	Asset  string `json:"asset" valid:"required"`
	Amount string `json:"amount" valid:"numeric"`
	Limit  int    `json:"limit"`
}

func TestBindingQuery(t *testing.T) {
	var p params
	r := httptest.NewRequest("GET", "/?asset=usdc&amount=10&limit=5", nil)
	require.Nil(t, Binding(r, &p))
	assert.Equal(t, "usdc", p.Asset)
	assert.Equal(t, "10", p.Amount)
	assert.Equal(t, 5, p.Limit)
}

func TestBindingBody(t *testing.T) {
	var p params
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"asset":"eth","amount":"7"}`))
	require.Nil(t, Binding(r, &p))
	assert.Equal(t, "eth", p.Asset)

	p = params{}
	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"amount":"7"}`))
	err := Binding(r, &p)
	require.NotNil(t, err)
	assert.Equal(t, twirp.InvalidArgument, err.(twirp.Error).Code())

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"asset":`))
	err = Binding(r, &p)
	require.NotNil(t, err)
	assert.Equal(t, twirp.Malformed, err.(twirp.Error).Code())
}
