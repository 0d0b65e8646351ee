package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Provider string

const (
	ProviderStripe  Provider = "stripe"
	ProviderSafepay Provider = "safepay"
)

// ParseProvider maps an empty name to stripe and rejects unknown providers.
func ParseProvider(name string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(name))) {
	case "", ProviderStripe:
		return ProviderStripe, nil
	case ProviderSafepay:
		return ProviderSafepay, nil
	default:
		return "", fmt.Errorf("unknown payment provider %q", name)
	}
}

func (p Provider) String() string {
	return string(p)
}

type LineItem struct {
	Name     string          `json:"name"`
	Image    string          `json:"image,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// CheckoutMetadata travels through the provider so the backend can reconcile
// the order after payment. Products is the serialized cart snapshot.
type CheckoutMetadata struct {
	UserID   string `json:"userId"`
	Products string `json:"products"`
}

// CheckoutRequest is built fresh for every checkout attempt and never stored.
type CheckoutRequest struct {
	UserID              string
	Items               []LineItem
	SuccessURL          string
	CancelURL           string
	Metadata            CheckoutMetadata
	DeviceFingerprintID string
}

// CheckoutSession is what the provider endpoint answered: a redirect url or
// a step-up challenge url. Both empty means the provider failed.
type CheckoutSession struct {
	URL       string `json:"url,omitempty"`
	StepUpURL string `json:"step_up_url,omitempty"`
}

type CheckoutAction string

const (
	CheckoutActionRedirect CheckoutAction = "redirect"
	CheckoutActionStepUp   CheckoutAction = "step_up"
)
