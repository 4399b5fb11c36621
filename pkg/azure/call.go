package azure

import (
	"errors"

	"digital.vasic.harness/pkg/httpclient"
	"digital.vasic.harness/pkg/logging"
)

// CallResult records the outcome of one remote call.
type CallResult struct {
	Op         string
	StatusCode int
	Status     string
	Body       string
	Err        error
}

// OK reports whether the call succeeded.
func (r CallResult) OK() bool { return r.Err == nil }

// Call runs fn, captures its status and error detail and logs the
// result in one consistent shape. It never panics or returns an
// error; callers branch on CallResult.OK.
func Call(logger logging.Logger, op string, fn func() (int, error)) CallResult {
	status, err := fn()
	res := CallResult{Op: op, StatusCode: status, Err: err}
	if err == nil {
		logger.Debug(op+" succeeded",
			logging.StringField("op", op),
			logging.IntField("status_code", status))
		return res
	}

	var se *httpclient.StatusError
	if errors.As(err, &se) {
		res.StatusCode = se.StatusCode
		res.Status = se.Status
		res.Body = se.Body
	}
	logger.Error(op+" failed",
		logging.StringField("op", op),
		logging.IntField("status_code", res.StatusCode),
		logging.StringField("status_text", res.Status),
		logging.StringField("body", res.Body),
		logging.ErrorField(err))
	return res
}
