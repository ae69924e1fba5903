package api_error

type JSONAPIError struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
