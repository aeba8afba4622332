package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Profile draft errors
	ErrProfileInvalid     = errors.New("profile draft is invalid")
	ErrUnknownField       = errors.New("unknown profile field")
	ErrSubmitInFlight     = errors.New("profile submission already in progress")
	ErrPhotoEncoding      = errors.New("photo could not be encoded")
	ErrProfileSaveFailed  = errors.New("profile could not be saved")
	ErrProfileNotReady    = errors.New("profile must be complete and saved before requesting intros")
	ErrInterestLimit      = errors.New("interest selection limit reached")
	ErrInterestLabelEmpty = errors.New("interest label is required")

	// Interest service errors
	ErrInterestSearchFailed  = errors.New("interest search failed")
	ErrInterestResolveFailed = errors.New("interest resolution failed")

	// Match errors
	ErrMatchNotFound         = errors.New("match not found")
	ErrIntroRateLimited      = errors.New("intro request rate limited")
	ErrIntroRequestFailed    = errors.New("intro request failed")
	ErrRecommendationsFailed = errors.New("recommendations could not be loaded")

	// Feedback errors
	ErrFeedbackInvalid           = errors.New("feedback submission is invalid")
	ErrFeedbackNotEligible       = errors.New("no feedback milestone is open")
	ErrFeedbackEligibilityFailed = errors.New("feedback eligibility could not be checked")
	ErrFeedbackSubmitFailed      = errors.New("feedback could not be saved")

	// Report errors
	ErrReportFailed        = errors.New("report could not be sent")
	ErrReportedUserMissing = errors.New("reported user id is required")

	// Session errors
	ErrSessionUserMissing = errors.New("session user id is required")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
	Details any
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails attaches structured details, e.g. per-field validation errors
func (e *BusinessError) WithDetails(details any) *BusinessError {
	e.Details = details
	return e
}

// AsBusinessError extracts a BusinessError from err
func AsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

func IsProfileInvalid(err error) bool {
	return errors.Is(err, ErrProfileInvalid)
}

func IsSubmitInFlight(err error) bool {
	return errors.Is(err, ErrSubmitInFlight)
}

func IsPhotoEncoding(err error) bool {
	return errors.Is(err, ErrPhotoEncoding)
}

func IsProfileNotReady(err error) bool {
	return errors.Is(err, ErrProfileNotReady)
}

func IsInterestLimit(err error) bool {
	return errors.Is(err, ErrInterestLimit)
}

func IsMatchNotFound(err error) bool {
	return errors.Is(err, ErrMatchNotFound)
}

func IsIntroRateLimited(err error) bool {
	return errors.Is(err, ErrIntroRateLimited)
}

func IsFeedbackNotEligible(err error) bool {
	return errors.Is(err, ErrFeedbackNotEligible)
}
