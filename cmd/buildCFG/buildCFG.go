package buildCFG

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
)

type ServerConfig struct {
	Port    string
	BaseURL string
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

type MercadoPagoConfig struct {
	AccessToken string
	AppBaseURL  string
}

type SMTPConfig struct {
	Host     string
	Port     string
	From     string
	Password string
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "8080"
		log.Warn().Msg("server.port not set, defaulting to 8080")
	}
	baseURL := cfg.GetString("server.base_url")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
		log.Warn().Msgf("server.base_url not set, defaulting to %s", baseURL)
	}
	return ServerConfig{Port: port, BaseURL: baseURL}
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	masterDSN := cfg.GetString("db.master_dsn")
	if masterDSN == "" {
		return "", nil, nil, fmt.Errorf("db.master_dsn is not configured")
	}

	slaveDSNs := cfg.GetStringSlice("db.slave_dsns")

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("db.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("db.max_idle_conns"),
		ConnMaxLifetime: time.Duration(cfg.GetInt("db.conn_max_lifetime_minutes")) * time.Minute,
	}
	if opts.MaxOpenConns == 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 5
	}

	log.Info().Msgf("DB config built (slaves=%d)", len(slaveDSNs))
	return masterDSN, slaveDSNs, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (*RabbitConfig, error) {
	url := cfg.GetString("rabbit.url")
	if url == "" {
		return nil, fmt.Errorf("rabbit.url is not configured")
	}
	rc := &RabbitConfig{
		Url:      url,
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if rc.Exchange == "" {
		rc.Exchange = "orders.delayed"
	}
	if rc.Queue == "" {
		rc.Queue = "orders.expiry"
	}
	log.Info().Msgf("Rabbit config built (exchange=%s, queue=%s)", rc.Exchange, rc.Queue)
	return rc, nil
}

// BuildMercadoPagoConfig reads the access token from the environment, never
// from config.yaml.
func BuildMercadoPagoConfig(cfg *config.Config, log *zerolog.Logger) (*MercadoPagoConfig, error) {
	token := os.Getenv("MERCADOPAGO_ACCESS_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("MERCADOPAGO_ACCESS_TOKEN is not set")
	}

	appBaseURL := cfg.GetString("server.public_url")
	if appBaseURL == "" {
		appBaseURL = cfg.GetString("server.base_url")
	}
	if appBaseURL == "" {
		return nil, fmt.Errorf("server.public_url is not configured")
	}

	log.Info().Msgf("Mercado Pago config built (app_url=%s)", appBaseURL)
	return &MercadoPagoConfig{AccessToken: token, AppBaseURL: appBaseURL}, nil
}

func BuildSMTPConfig(cfg *config.Config, log *zerolog.Logger) (*SMTPConfig, error) {
	sc := &SMTPConfig{
		Host:     cfg.GetString("smtp.host"),
		Port:     cfg.GetString("smtp.port"),
		From:     cfg.GetString("smtp.from"),
		Password: os.Getenv("SMTP_PASSWORD"),
	}
	if sc.Host == "" || sc.From == "" {
		return nil, fmt.Errorf("smtp.host and smtp.from must be configured")
	}
	if sc.Port == "" {
		sc.Port = "587"
	}
	if sc.Password == "" {
		log.Warn().Msg("SMTP_PASSWORD not set; e-mail delivery will fail")
	}
	return sc, nil
}
