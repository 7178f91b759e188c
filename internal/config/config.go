package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"

	inferenceURLEnv = "INFERENCE_BASE_URL"
	inferenceKeyEnv = "INFERENCE_API_KEY"
	dbPasswordEnv   = "DATABASE_PASSWORD"
	jwtSecretEnv    = "JWT_SECRET"
	minioSecretEnv  = "MINIO_SECRET_KEY"
)

type Config struct {
	Server struct {
		Port          int      `yaml:"port"`
		PublicBaseURL string   `yaml:"publicBaseURL"`
		MaxUploadMB   int      `yaml:"maxUploadMB"`
		CORSOrigins   []string `yaml:"corsOrigins"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | memory
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`

	Storage struct {
		Driver        string `yaml:"driver"` // local | minio
		LocalDir      string `yaml:"localDir"`
		PublicBaseURL string `yaml:"publicBaseURL"`
		Minio         struct {
			Endpoint   string `yaml:"endpoint"`
			AccessKey  string `yaml:"accessKey"`
			SecretKey  string `yaml:"secretKey"`
			BucketName string `yaml:"bucketName"`
			Region     string `yaml:"region"`
			UseSSL     bool   `yaml:"useSSL"`
		} `yaml:"minio"`
	} `yaml:"storage"`

	Inference struct {
		Provider       string `yaml:"provider"` // http | openai | gemini
		BaseURL        string `yaml:"baseURL"`
		Path           string `yaml:"path"`
		APIKey         string `yaml:"apiKey"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
	} `yaml:"inference"`

	Specialists struct {
		BaseURL        string `yaml:"baseURL"`
		Limit          int    `yaml:"limit"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
	} `yaml:"specialists"`

	Auth struct {
		JWTSecret string `yaml:"jwtSecret"`
		Issuer    string `yaml:"issuer"`
	} `yaml:"auth"`

	Knowledge struct {
		Path string `yaml:"path"`
	} `yaml:"knowledge"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Path returns CONFIG_PATH or config.yaml.
func Path() string {
	if p := os.Getenv(configPathEnv); p != "" {
		return p
	}
	return defaultConfigPath
}

// Load baca file config; file yang tidak ada dianggap kosong (defaults + env).
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(inferenceURLEnv); v != "" {
		c.Inference.BaseURL = v
	}
	if v := os.Getenv(inferenceKeyEnv); v != "" {
		c.Inference.APIKey = v
	}
	if v := os.Getenv(dbPasswordEnv); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv(jwtSecretEnv); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv(minioSecretEnv); v != "" {
		c.Storage.Minio.SecretKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 10
	}
	c.Server.PublicBaseURL = strings.TrimRight(c.Server.PublicBaseURL, "/")

	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "local"
	}
	if c.Storage.LocalDir == "" {
		c.Storage.LocalDir = "uploads"
	}
	if c.Storage.PublicBaseURL == "" && c.Storage.Driver == "local" {
		c.Storage.PublicBaseURL = c.Server.PublicBaseURL + "/uploads"
	}

	if c.Inference.Provider == "" {
		c.Inference.Provider = "http"
	}
	if c.Inference.Path == "" {
		c.Inference.Path = "/predict"
	}
	if c.Inference.TimeoutSeconds <= 0 {
		c.Inference.TimeoutSeconds = 120
	}

	if c.Specialists.Limit <= 0 {
		c.Specialists.Limit = 3
	}
	if c.Specialists.TimeoutSeconds <= 0 {
		c.Specialists.TimeoutSeconds = 3
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Inference.Provider {
	case "http":
		if strings.TrimSpace(c.Inference.BaseURL) == "" {
			errs = append(errs, errors.New("inference.baseURL is required"))
		} else if u, err := url.Parse(c.Inference.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("inference.baseURL %q is not an absolute URL", c.Inference.BaseURL))
		}
	case "openai":
		if c.Inference.APIKey == "" && c.Inference.BaseURL == "" {
			errs = append(errs, errors.New("inference.apiKey or inference.baseURL is required for openai"))
		}
	case "gemini":
		if c.Inference.APIKey == "" {
			errs = append(errs, errors.New("inference.apiKey is required for gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("inference.provider %q is not one of http, openai, gemini", c.Inference.Provider))
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwtSecret is required"))
	}
	switch c.Database.Driver {
	case "memory":
	case "mysql", "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.host and database.name are required for %s", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of mysql, postgres, memory", c.Database.Driver))
	}
	switch c.Storage.Driver {
	case "local":
	case "minio":
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.BucketName == "" {
			errs = append(errs, errors.New("storage.minio.endpoint and storage.minio.bucketName are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of local, minio", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

// Warnings lists settings that are valid but lose data in production.
func (c *Config) Warnings() []string {
	var w []string
	if c.Database.Driver == "memory" {
		w = append(w, "database.driver is memory: analysis history is lost on restart")
	}
	return w
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq URL DSN.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: url.Values{"sslmode": {c.Database.SSLMode}}.Encode(),
	}
	return u.String()
}

func (c *Config) MaxUploadBytes() int64 { return int64(c.Server.MaxUploadMB) << 20 }

func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Inference.TimeoutSeconds) * time.Second
}

func (c *Config) SpecialistsTimeout() time.Duration {
	return time.Duration(c.Specialists.TimeoutSeconds) * time.Second
}
