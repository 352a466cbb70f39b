package views

// Default body of operations that return no data
type Default struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// DefaultSuccess committed operation
var DefaultSuccess = Default{
	Message: "ok",
}
