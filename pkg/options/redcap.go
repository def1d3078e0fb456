package options

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"

	"github.com/redcap-tools/connector-redcap/pkg/redcap"
)

// RedcapOptions holds options related to the REDCap API connection. Flag
// values take precedence; anything left empty is filled from the
// REDCAP_API_URL and REDCAP_API_TOKEN environment variables.
type RedcapOptions struct {
	APIURL   string `env:"REDCAP_API_URL"`
	APIToken string `env:"REDCAP_API_TOKEN"`

	Client *redcap.Client
}

// Complete builds the API client. With dryRun set, missing credentials are
// tolerated and no client is configured; the caller gets a nil client and is
// expected to dry-run.
func (o *RedcapOptions) Complete(dryRun bool) error {
	if o.Client != nil {
		log.Debug().Msg("redcap client already configured, skipping connection option validation")
		return nil
	}

	fromEnv := RedcapOptions{}
	if err := env.Parse(&fromEnv); err != nil {
		return err
	}
	if o.APIURL == "" {
		o.APIURL = fromEnv.APIURL
	}
	if o.APIToken == "" {
		o.APIToken = fromEnv.APIToken
	}

	if o.APIURL == "" || o.APIToken == "" {
		if dryRun {
			log.Warn().Msg("REDCAP_API_URL and REDCAP_API_TOKEN are not set, continuing because this is a dry run")
			return nil
		}
		return fmt.Errorf("REDCAP_API_URL and REDCAP_API_TOKEN must both be set")
	}

	o.Client = redcap.NewClient(o.APIURL, o.APIToken)
	return nil
}
