package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/vegasarees/storefront/pkg/errors"
)

// remoteError accepts both the {"error":{code,message}} envelope used by our
// own API and the flat {code,message,details,hint} body PostgREST returns.
type remoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError drains and closes a non-2xx response and maps it onto
// the AppError taxonomy.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", service, resp.StatusCode, err)
	}

	var re remoteError
	if json.Unmarshal(body, &re) == nil {
		if re.Error != nil {
			return mapRemoteError(resp.StatusCode, re.Error.Code, re.Error.Message, service)
		}
		if re.Message != "" {
			return mapRemoteError(resp.StatusCode, re.Code, re.Message, service)
		}
	}

	return mapRemoteError(resp.StatusCode, "", string(body), service)
}

func mapRemoteError(status int, code, message, service string) error {
	qualified := fmt.Sprintf("%s: %s", service, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(service, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualified)
	case status >= http.StatusInternalServerError:
		return apperrors.Unavailable(qualified, fmt.Errorf("%w: %s status %d code %q", apperrors.ErrServiceUnavail, service, status, code))
	default:
		return &apperrors.AppError{Code: "REMOTE_ERROR", Message: qualified, Status: status}
	}
}
