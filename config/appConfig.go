package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// WooCommerceConfig is the external catalog API credential set.
type WooCommerceConfig struct {
	URL            string `yaml:"url"`
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
}

// AffiliateConfig carries the campaign identifiers applied when outbound
// tracking links are regenerated.
type AffiliateConfig struct {
	ShopeeCampaignID string `yaml:"shopee_campaign_id"`
	ShopeeSourceID   string `yaml:"shopee_source_id"`
	LazadaPID        string `yaml:"lazada_pid"`
	UTMFallback      string `yaml:"utm_fallback"`
}

// TelegramConfig is optional; an empty token disables notifications.
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// PipelineConfig covers the worker-local files and the HTTP listen address.
type PipelineConfig struct {
	MirrorPath   string `yaml:"mirror_path"`
	AuditLogPath string `yaml:"audit_log_path"`
	ListenAddr   string `yaml:"listen_addr"`
}

type AppConfig struct {
	WooCommerce WooCommerceConfig `yaml:"woocommerce"`
	Affiliate   AffiliateConfig   `yaml:"affiliate"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Postgres    PostgresConfig    `yaml:"postgres"`
}

func LoadConfig(filename string) (*AppConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	config := &AppConfig{}
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return config, nil
}

// DefaultConfig is what runs when no config file is supplied: everything from
// the environment, file locations at their historical defaults.
func DefaultConfig() *AppConfig {
	config := &AppConfig{
		WooCommerce: WooCommerceConfig{
			URL:            getEnv("WC_URL", ""),
			ConsumerKey:    getEnv("WC_KEY", ""),
			ConsumerSecret: getEnv("WC_SECRET", ""),
		},
		Affiliate: AffiliateConfig{
			LazadaPID: getEnv("LAZADA_AFFILIATE_PID", ""),
		},
		Postgres: *GetPostgresConfig(),
	}
	config.applyDefaults()
	return config
}

func (c *AppConfig) applyDefaults() {
	if c.Pipeline.MirrorPath == "" {
		c.Pipeline.MirrorPath = "product_database.json"
	}
	if c.Pipeline.AuditLogPath == "" {
		c.Pipeline.AuditLogPath = "sync_audit.log"
	}
	if c.Pipeline.ListenAddr == "" {
		c.Pipeline.ListenAddr = ":8080"
	}
	if c.Affiliate.ShopeeCampaignID == "" {
		c.Affiliate.ShopeeCampaignID = "id_HURtY6Geqq"
	}
	if c.Affiliate.ShopeeSourceID == "" {
		c.Affiliate.ShopeeSourceID = "an_13327880016"
	}
	if c.Affiliate.UTMFallback == "" {
		c.Affiliate.UTMFallback = "gadgetph"
	}
	if c.Affiliate.LazadaPID == "" {
		c.Affiliate.LazadaPID = getEnv("LAZADA_AFFILIATE_PID", "")
	}
}
