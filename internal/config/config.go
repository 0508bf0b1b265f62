package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config models cutroom.yml.
type Config struct {
	Server    Server    `yaml:"server"`
	DemoMode  bool      `yaml:"demo_mode"`
	Unread    Unread    `yaml:"unread"`
	Polling   Polling   `yaml:"polling"`
	Digest    Digest    `yaml:"digest"`
	Webhooks  []Webhook `yaml:"webhooks" validate:"dive"`
	Bootstrap Bootstrap `yaml:"bootstrap"`
	Log       Log       `yaml:"log"`
}

type Server struct {
	Addr      string        `yaml:"addr" validate:"required,hostname_port"`
	BasePath  string        `yaml:"base_path" validate:"required,startswith=/"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl" validate:"gt=0"`
}

type Unread struct {
	Store     string `yaml:"store" validate:"oneof=local redis"`
	Path      string `yaml:"path" validate:"required_if=Store local"`
	KeyPrefix string `yaml:"key_prefix" validate:"required"`
	Redis     Redis  `yaml:"redis"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
}

type Polling struct {
	Chat   time.Duration `yaml:"chat" validate:"gt=0"`
	Unread time.Duration `yaml:"unread" validate:"gt=0"`
	Inbox  time.Duration `yaml:"inbox" validate:"gt=0"`
}

type Digest struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule" validate:"required_if=Enabled true"`
}

type Webhook struct {
	URL            string   `yaml:"url" validate:"required,url"`
	Secret         string   `yaml:"secret"`
	Actions        []string `yaml:"actions" validate:"dive,required"`
	TimeoutSeconds int      `yaml:"timeout_seconds" validate:"gte=0"`
	Enabled        bool     `yaml:"enabled"`
}

type Bootstrap struct {
	AdminEmail    string `yaml:"admin_email" validate:"omitempty,email"`
	AdminPassword string `yaml:"admin_password" validate:"omitempty,min=8"`
	AdminName     string `yaml:"admin_name"`
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

var validate = validator.New()

// Validate checks field constraints and the unread store wiring.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Bootstrap.AdminEmail != "" && c.Bootstrap.AdminPassword == "" {
		return fmt.Errorf("config.bootstrap.admin_password is required with admin_email")
	}
	if c.Unread.Store == "redis" && c.Unread.Redis.Addr == "" {
		return fmt.Errorf("config.unread.redis.addr is required when unread.store is redis")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "cutroom.yml")
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Load reads config from workspace. A missing file yields the defaults.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			cfg.resolvePaths(workspace)
			return cfg, nil
		}
		return nil, err
	}
	cfg, err := FromYAML(data)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(workspace)
	return cfg, nil
}

// FromYAML layers raw YAML over the defaults and validates the result.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// resolvePaths anchors a relative unread file under the workspace.
func (c *Config) resolvePaths(workspace string) {
	if c.Unread.Path == "" || filepath.IsAbs(c.Unread.Path) || workspace == "" {
		return
	}
	c.Unread.Path = filepath.Join(workspace, c.Unread.Path)
}

// WebhooksFor returns the enabled webhooks subscribed to action.
func (c *Config) WebhooksFor(action string) []Webhook {
	var out []Webhook
	for _, wh := range c.Webhooks {
		if wh.Enabled && wh.Wants(action) {
			out = append(out, wh)
		}
	}
	return out
}

// Wants reports whether the webhook subscribes to action. A webhook without
// actions receives everything.
func (w Webhook) Wants(action string) bool {
	if len(w.Actions) == 0 {
		return true
	}
	for _, a := range w.Actions {
		if strings.EqualFold(strings.TrimSpace(a), action) {
			return true
		}
	}
	return false
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /v1
  jwt_secret: ""
  token_ttl: 12h

demo_mode: false

unread:
  store: local
  path: .cutroom/last_seen.yml
  key_prefix: cutroom:lastSeen
  redis:
    addr: ""
    password: ""
    db: 0

polling:
  chat: 8s
  unread: 10s
  inbox: 10s

digest:
  enabled: false
  schedule: "0 8 * * 1-5"

webhooks: []

bootstrap:
  admin_email: ""
  admin_password: ""
  admin_name: Admin

log:
  level: info
  format: json
`
