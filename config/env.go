package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/nilotpaul/meetsync/setting"
	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
)

// OAuthClientEnv is read with the provider prefix, e.g. SLACK_CLIENT_ID.
type OAuthClientEnv struct {
	ClientID     string `envconfig:"CLIENT_ID"`
	ClientSecret string `envconfig:"CLIENT_SECRET"`
	RedirectURI  string `envconfig:"REDIRECT_URI"`
}

type EnvConfig struct {
	Environment     string `envconfig:"ENVIRONMENT"`
	Port            string `envconfig:"PORT" default:"3000"`
	AppURL          string `envconfig:"APP_URL"`
	Domain          string `envconfig:"DOMAIN"`
	IntegrationsURL string `envconfig:"INTEGRATIONS_URL" default:"/integrations"`
	DBURL           string `envconfig:"DB_URL"`
	StateSecret     string `envconfig:"STATE_SECRET"`
	AssemblyAIKey   string `envconfig:"ASSEMBLYAI_API_KEY"`

	Slack      OAuthClientEnv `envconfig:"SLACK"`
	Notion     OAuthClientEnv `envconfig:"NOTION"`
	HubSpot    OAuthClientEnv `envconfig:"HUBSPOT"`
	Linear     OAuthClientEnv `envconfig:"LINEAR"`
	Monday     OAuthClientEnv `envconfig:"MONDAY"`
	Salesforce OAuthClientEnv `envconfig:"SALESFORCE"`
	Attio      OAuthClientEnv `envconfig:"ATTIO"`
	Google     OAuthClientEnv `envconfig:"GOOGLE"`
}

// OAuthClient returns the client config for a provider. A missing redirect
// URI is derived from APP_URL and the provider's callback path.
func (e EnvConfig) OAuthClient(provider string) types.OAuthClientConfig {
	var c OAuthClientEnv
	switch provider {
	case setting.SlackProvider:
		c = e.Slack
	case setting.NotionProvider:
		c = e.Notion
	case setting.HubSpotProvider:
		c = e.HubSpot
	case setting.LinearProvider:
		c = e.Linear
	case setting.MondayProvider:
		c = e.Monday
	case setting.SalesforceProvider:
		c = e.Salesforce
	case setting.AttioProvider:
		c = e.Attio
	case setting.GoogleProvider:
		c = e.Google
	}

	redirect := c.RedirectURI
	if len(redirect) == 0 && len(e.AppURL) != 0 {
		redirect = strings.TrimRight(e.AppURL, "/") + util.MakeURL("/"+provider+"/callback")
	}

	return types.OAuthClientConfig{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURI:  redirect,
	}
}

func loadEnv() (*EnvConfig, error) {
	var cfg EnvConfig

	// A missing .env is fine, the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoadEnv() *EnvConfig {
	cfg, err := loadEnv()
	if err != nil {
		panic(err)
	}

	return cfg
}
