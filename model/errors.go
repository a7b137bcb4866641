package model

import "errors"

var (
	ErrRateLimitReached = errors.New("RATE_LIMIT_REACHED")
	ErrRateLimiter      = errors.New("RATE_LIMITER_ERROR")
	ErrInvalidData      = errors.New("INVALID_DATA_FOUND")
	ErrFetch            = errors.New("FETCH_ERROR")
	ErrNotFound         = errors.New("NOT_FOUND")
)

const (
	RateLimitMessage = "github rate limit reached. the portfolio will refresh automatically, please come back in an hour"
	FetchMessage     = "unable to load data right now. please try again later"
	NotFoundMessage  = "the requested item does not exist"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewAPIError(errReason error) APIError {
	switch {
	case errors.Is(errReason, ErrRateLimitReached):
		return APIError{
			Code:    ErrRateLimitReached.Error(),
			Message: RateLimitMessage,
		}

	case errors.Is(errReason, ErrNotFound):
		return APIError{
			Code:    ErrNotFound.Error(),
			Message: NotFoundMessage,
		}

	case errors.Is(errReason, ErrRateLimiter),
		errors.Is(errReason, ErrInvalidData),
		errors.Is(errReason, ErrFetch):
		return APIError{
			Code:    errorCode(errReason),
			Message: FetchMessage,
		}
	}

	return APIError{
		Code:    "GENERIC_ERROR",
		Message: FetchMessage,
	}
}

func errorCode(err error) string {
	for _, known := range []error{ErrRateLimiter, ErrInvalidData, ErrFetch} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "GENERIC_ERROR"
}
