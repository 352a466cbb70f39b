package resthttp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fox-one/pkg/logger"
	"github.com/go-resty/resty/v2"
)

const (
	// HeaderKeyRequestID request id header key
	headerKeyRequestID = "X-Request-Id"
)

var runOnce sync.Once
var restyClient *resty.Client

// Client shared resty client
func Client() *resty.Client {
	runOnce.Do(func() {
		restyClient = New(10 * time.Second)
	})

	return restyClient
}

// New json client with timeout
func New(timeout time.Duration) *resty.Client {
	return resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("Charset", "utf-8").
		SetTimeout(timeout)
}

// Request new resty request
func Request(ctx context.Context) *resty.Request {
	return Client().R().SetContext(ctx)
}

// WithRequestID resty request with request id
func WithRequestID(ctx context.Context, requestID string) *resty.Request {
	return Request(ctx).SetHeader(headerKeyRequestID, requestID)
}

// Error non 2xx response
type Error struct {
	Status int    `json:"-"`
	Code   int    `json:"code,omitempty"`
	Msg    string `json:"msg,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("http %d: [%d] %s", e.Status, e.Code, e.Msg)
}

// Execute do network request and decode the response into resp
func Execute(request *resty.Request, method, url string, body interface{}, resp interface{}) error {
	log := logger.FromContext(request.Context())
	log.Debugln("request", method, url)

	if body != nil {
		request = request.SetBody(body)
	}

	r, err := request.Execute(strings.ToUpper(method), url)
	if err != nil {
		return err
	}

	log.Debugln("response", r.Status())
	return ParseResponse(r, resp)
}

// ParseResponse decode a successful response into obj, failures become *Error
func ParseResponse(r *resty.Response, obj interface{}) error {
	if !r.IsSuccess() {
		e := &Error{Status: r.StatusCode()}
		if err := json.Unmarshal(r.Body(), e); err != nil || e.Msg == "" {
			e.Msg = strings.TrimSpace(string(r.Body()))
		}

		return e
	}

	if obj == nil {
		return nil
	}

	return json.Unmarshal(r.Body(), obj)
}
