package checkout

import (
	"net/http"
	"strings"
)

const (
	FingerprintHeader = "X-Device-Fingerprint"
	FingerprintField  = "device_fingerprint_id"
)

// FingerprintCollector yields the device fingerprint token gathered by the
// page's device data collector. ok is false when none is available.
type FingerprintCollector interface {
	Collect() (token string, ok bool)
}

type FingerprintFunc func() (string, bool)

func (f FingerprintFunc) Collect() (string, bool) { return f() }

// StaticFingerprint is a token that was already read from the request.
type StaticFingerprint string

func (s StaticFingerprint) Collect() (string, bool) {
	token := strings.TrimSpace(string(s))
	return token, token != ""
}

// HeaderFingerprint reads the token from the X-Device-Fingerprint header,
// falling back to the device_fingerprint_id form field.
func HeaderFingerprint(r *http.Request) FingerprintCollector {
	return FingerprintFunc(func() (string, bool) {
		if token := strings.TrimSpace(r.Header.Get(FingerprintHeader)); token != "" {
			return token, true
		}
		return StaticFingerprint(r.FormValue(FingerprintField)).Collect()
	})
}
