package domain

// Backend names accepted in Config.Backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the connection parameters of a driver instance.
type Config struct {
	APIKey            string `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	AuthDomain        string `json:"auth_domain" yaml:"auth_domain" mapstructure:"auth_domain"`
	DatabaseURL       string `json:"database_url" yaml:"database_url" mapstructure:"database_url"`
	MessagingSenderID string `json:"messaging_sender_id" yaml:"messaging_sender_id" mapstructure:"messaging_sender_id"`
	ProjectID         string `json:"project_id" yaml:"project_id" mapstructure:"project_id"`
	StorageBucket     string `json:"storage_bucket" yaml:"storage_bucket" mapstructure:"storage_bucket"`

	// Backend selects the adapter used when none is injected: "memory" or "redis".
	Backend     string `json:"backend" yaml:"backend" mapstructure:"backend"`
	RedisURL    string `json:"redis_url,omitempty" yaml:"redis_url,omitempty" mapstructure:"redis_url"`
	RedisPrefix string `json:"redis_prefix,omitempty" yaml:"redis_prefix,omitempty" mapstructure:"redis_prefix"`
	HTTPAddr    string `json:"http_addr,omitempty" yaml:"http_addr,omitempty" mapstructure:"http_addr"`
	LogLevel    string `json:"log_level,omitempty" yaml:"log_level,omitempty" mapstructure:"log_level"`
}
