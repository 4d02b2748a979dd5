package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Generation GenerationConfig `mapstructure:"generation"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type GenerationConfig struct {
	MaxDescriptionLen int           `mapstructure:"max_description_len"`
	DefaultRowCount   int           `mapstructure:"default_row_count"`
	TransportRetries  int           `mapstructure:"transport_retries"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	FakeStreamChunk   int           `mapstructure:"fake_stream_chunk"`
	FakeStreamDelay   time.Duration `mapstructure:"fake_stream_delay"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvPrefix("TABLEGEN")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// 配置文件优先，配置文件没配 key 时回落到环境变量
	if cfg.OpenAI.APIKey == "" {
		if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
			cfg.OpenAI.APIKey = apiKey
		}
	}

	return cfg, nil
}

// setDefaults 只给没出现在配置里的键兜底，显式配 0 的值原样生效；
// 上游真实生成耗时常见 60-180 秒，超时默认放宽到 120 秒
func setDefaults(v *viper.Viper) {
	v.SetDefault("openai.timeout", 120*time.Second)
	v.SetDefault("generation.max_description_len", 2000)
	v.SetDefault("generation.default_row_count", 5)
	v.SetDefault("generation.transport_retries", 2)
	v.SetDefault("generation.retry_backoff", 500*time.Millisecond)
	v.SetDefault("generation.fake_stream_chunk", 64)
	v.SetDefault("generation.fake_stream_delay", 50*time.Millisecond)
}
