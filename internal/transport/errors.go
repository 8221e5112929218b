package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/go-github/v74/github"

	"github.com/agentstation/orgsync/pkg/errors"
)

// remoteError converts go-github errors into RemoteError so the worker pool
// can classify them.
func remoteError(op, verb, locator string, err error) error {
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		re := errors.NewRemoteError(op, verb, locator, statusOf(rle.Response), rle.Message)
		re.RateLimited = true
		re.RetryAfter = time.Until(rle.Rate.Reset.Time)
		re.Err = err
		return re
	}

	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		re := errors.NewRemoteError(op, verb, locator, statusOf(abuse.Response), abuse.Message)
		re.RateLimited = true
		if abuse.RetryAfter != nil {
			re.RetryAfter = *abuse.RetryAfter
		}
		re.Err = err
		return re
	}

	var accepted *github.AcceptedError
	if errors.As(err, &accepted) {
		re := errors.NewRemoteError(op, verb, locator, http.StatusAccepted, "accepted, result not ready")
		re.Temporary = true
		re.Err = err
		return re
	}

	var er *github.ErrorResponse
	if errors.As(err, &er) {
		status := statusOf(er.Response)
		re := errors.NewRemoteError(op, verb, locator, status, er.Message)
		re.RateLimited = status == http.StatusTooManyRequests
		if er.Response != nil {
			if secs, convErr := strconv.Atoi(er.Response.Header.Get("Retry-After")); convErr == nil {
				re.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		re.Err = err
		return re
	}

	return errors.WrapRemote(op, verb, locator, err)
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
