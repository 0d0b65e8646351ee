package domain

import "errors"

var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrNetworkFailure      = errors.New("network failure")
	ErrProviderFailure     = errors.New("payment provider failure")
	ErrVerificationFailure = errors.New("payment verification failed")
	ErrCheckoutInFlight    = errors.New("checkout already in progress")
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient, user-visible message. It never changes whether the
// page stays usable.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

func InfoNotice(msg string) *Notice {
	return &Notice{Level: NoticeInfo, Message: msg}
}

func SuccessNotice(msg string) *Notice {
	return &Notice{Level: NoticeSuccess, Message: msg}
}

func ErrorNotice(msg string) *Notice {
	return &Notice{Level: NoticeError, Message: msg}
}
