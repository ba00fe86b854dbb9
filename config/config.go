package config

import "time"

type Config struct {
	Web      Web
	DB       DB
	Redis    Redis
	Kafka    Kafka
	Session  Session
	Cors     Cors
	Stripe   Stripe
	Paypal   Paypal
	Oauth    Oauth
	Delivery Delivery
	Checkout Checkout
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:4000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost"`
	Name       string `conf:"default:doorstep"`
	DisableTLS bool   `conf:"default:true"`
}

type Redis struct {
	Address  string `conf:"default:localhost:6379"`
	Password string `conf:"mask"`
	DB       int    `conf:"default:0"`
}

type Kafka struct {
	Brokers     []string `conf:"default:localhost:9092"`
	OrdersTopic string   `conf:"default:doorstep.orders"`
	Disabled    bool     `conf:"default:false"`
}

type Session struct {
	Lifetime time.Duration `conf:"default:24h"`
}

type Cors struct {
	Origin string
}

type Stripe struct {
	APISecret     string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
	SuccessURL    string `conf:"default:http://localhost:3000/orders"`
	CancelURL     string `conf:"default:http://localhost:3000/checkout"`
}

type Paypal struct {
	ClientID string
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api.sandbox.paypal.com"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:30s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000/home"`
	Google           Provider
}

type Provider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:4000/auth/oauth-callback/google"`
}

// Delivery carries the flat delivery fee. It is the single source of truth
// for the fee: the checkout adapter is the only place that adds it to a
// charge, everything else reads it from here for display.
type Delivery struct {
	Fee      int    `conf:"default:10"`
	Currency string `conf:"default:INR"`
}

type Checkout struct {
	AttemptTTL time.Duration `conf:"default:30m"`
}
