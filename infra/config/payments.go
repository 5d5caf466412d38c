package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTokenTTL = 24 * time.Hour
)

// PayTech holds the PayTech (paytech.sn) credentials
type PayTech struct {
	APIKey    string
	SecretKey string
	Env       string `validate:"oneof=test prod"`
	APIURL    string `validate:"omitempty,url"`
}

// Configured reports whether both PayTech secrets are present
func (c PayTech) Configured() bool {
	return c.APIKey != "" && c.SecretKey != ""
}

// Airwallex holds the Airwallex client credentials and webhook secret
type Airwallex struct {
	ClientID      string
	APIKey        string
	WebhookSecret string
	Env           string `validate:"oneof=demo prod"`
	APIURL        string `validate:"omitempty,url"`
	CheckoutURL   string `validate:"omitempty,url"`
}

func (c Airwallex) Configured() bool {
	return c.ClientID != "" && c.APIKey != "" && c.WebhookSecret != ""
}

// Chaabi holds the Chaabi Payment credentials. GatewayURL overrides the
// environment default form target.
type Chaabi struct {
	APIKey     string
	SecretKey  string
	Env        string `validate:"oneof=test prod"`
	GatewayURL string `validate:"omitempty,url"`
}

func (c Chaabi) Configured() bool {
	return c.APIKey != "" && c.SecretKey != ""
}

// PayDunya holds the PayDunya account keys
type PayDunya struct {
	MasterKey  string
	PrivateKey string
	PublicKey  string
	Token      string
	Mode       string `validate:"oneof=test live"`
	StoreName  string
	APIURL     string `validate:"omitempty,url"`
}

func (c PayDunya) Configured() bool {
	return c.MasterKey != "" && c.PrivateKey != "" && c.Token != ""
}

// TokenStore selects and tunes the validation token backend
type TokenStore struct {
	RedisURL    string
	DBDriver    string `validate:"oneof=sqlite3 postgres"`
	DatabaseURL string
	TTL         time.Duration `validate:"gt=0"`
	FailOpen    bool
}

// Payments is the complete, validated payment configuration handed to every
// gateway constructor.
type Payments struct {
	BaseURL   string `validate:"required,url"`
	StoreName string
	PayTech   PayTech
	Airwallex Airwallex
	Chaabi    Chaabi
	PayDunya  PayDunya
	Tokens    TokenStore
}

// LoadPayments reads the payment configuration from the environment and
// validates it once.
func LoadPayments() (*Payments, error) {
	storeName := GetEnv("STORE_NAME", "Store")

	redisURL := GetEnv("REDIS_URL", "")
	if redisURL == "" {
		restURL := GetEnv("UPSTASH_REDIS_REST_URL", "")
		restToken := GetEnv("UPSTASH_REDIS_REST_TOKEN", "")
		if restURL != "" && restToken != "" {
			u, err := RedisURLFromUpstash(restURL, restToken)
			if err != nil {
				return nil, err
			}
			redisURL = u
		}
	}

	cfg := &Payments{
		BaseURL:   strings.TrimRight(GetEnv("APP_URL", "http://localhost:9999"), "/"),
		StoreName: storeName,
		PayTech: PayTech{
			APIKey:    GetEnv("PAYTECH_API_KEY", ""),
			SecretKey: GetEnv("PAYTECH_SECRET_KEY", ""),
			Env:       GetEnv("PAYTECH_ENV", "test"),
			APIURL:    GetEnv("PAYTECH_API_URL", ""),
		},
		Airwallex: Airwallex{
			ClientID:      GetEnv("AIRWALLEX_CLIENT_ID", ""),
			APIKey:        GetEnv("AIRWALLEX_API_KEY", ""),
			WebhookSecret: GetEnv("AIRWALLEX_WEBHOOK_SECRET", ""),
			Env:           GetEnv("AIRWALLEX_ENV", "demo"),
			APIURL:        GetEnv("AIRWALLEX_API_URL", ""),
			CheckoutURL:   GetEnv("AIRWALLEX_CHECKOUT_URL", ""),
		},
		Chaabi: Chaabi{
			APIKey:     GetEnv("CHAABI_API_KEY", ""),
			SecretKey:  GetEnv("CHAABI_SECRET_KEY", ""),
			Env:        GetEnv("CHAABI_ENV", "test"),
			GatewayURL: GetEnv("CHAABI_GATEWAY_URL", ""),
		},
		PayDunya: PayDunya{
			MasterKey:  GetEnv("PAYDUNYA_MASTER_KEY", ""),
			PrivateKey: GetEnv("PAYDUNYA_PRIVATE_KEY", ""),
			PublicKey:  GetEnv("PAYDUNYA_PUBLIC_KEY", ""),
			Token:      GetEnv("PAYDUNYA_TOKEN", ""),
			Mode:       GetEnv("PAYDUNYA_MODE", "test"),
			StoreName:  GetEnv("PAYDUNYA_STORE_NAME", storeName),
			APIURL:     GetEnv("PAYDUNYA_API_URL", ""),
		},
		Tokens: TokenStore{
			RedisURL:    redisURL,
			DBDriver:    GetEnv("DATABASE_DRIVER", "sqlite3"),
			DatabaseURL: GetEnv("DATABASE_URL", "data/paygate.db"),
			TTL:         GetDurationEnv("VALIDATION_TOKEN_TTL", DefaultTokenTTL),
			FailOpen:    GetBoolEnv("VALIDATION_FAIL_OPEN", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags of the whole configuration tree
func (c *Payments) Validate() error {
	if err := App().Validator.Struct(c); err != nil {
		return fmt.Errorf("invalid payment configuration: %w", err)
	}
	return nil
}

// RedisURLFromUpstash maps an Upstash REST endpoint and token to the TLS
// Redis endpoint served on the same host.
func RedisURLFromUpstash(restURL, token string) (string, error) {
	u, err := url.Parse(restURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid UPSTASH_REDIS_REST_URL %q", restURL)
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" || port == "443" {
		port = "6379"
	}
	return fmt.Sprintf("rediss://default:%s@%s:%s", url.QueryEscape(token), host, port), nil
}
