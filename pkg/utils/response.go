package utils

type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded aborts the request when err is set. The recovery middleware turns
// the panic into a JSON error, using the error's status if it carries one.
func PanicIfNeeded(err any) {
	if err != nil {
		panic(err)
	}
}
