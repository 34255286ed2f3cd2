package stringdb

import (
	"errors"
	"fmt"
	"net/url"
)

var ErrProfileInvalid = errors.New("profile is invalid")

// DefaultApiRoot is the production enrichment service endpoint.
const DefaultApiRoot = "https://version-12-0.string-db.org/api"

// DefaultCallerIdentity is sent with every submission unless overridden.
const DefaultCallerIdentity = "www.fgcz.ch"

// Profile identifies one enrichment service and the credential used
// against it.
type Profile struct {
	// endpoint of the enrichment api
	ApiRoot string `yaml:"apiRoot"`

	// api key issued by the service. Empty until `init` fetched one.
	ApiKey string `yaml:"apiKey,omitempty"`

	// identity reported to the service on submissions
	CallerIdentity string `yaml:"callerIdentity,omitempty"`
}

func verifyUrl(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}

// Verify Profile
//
// # Return
//
// nil if it is valid. Otherwise, ErrProfileInvalid error.
//
// An empty ApiKey is valid. Fetching a key is itself an api call and
// needs a client.
func (p *Profile) Verify() error {
	if !verifyUrl(p.ApiRoot) {
		return fmt.Errorf("%w: apiRoot is not URL: %s", ErrProfileInvalid, p.ApiRoot)
	}
	return nil
}
