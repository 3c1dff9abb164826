package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	AWSRegion   string `yaml:"aws_region" env:"AWS_REGION" validate:"required"`
	AccountID   string `yaml:"account_id" env:"AWS_ACCOUNT_ID"`
	// TagName is the cluster tag whose value names the schedule.
	TagName string `yaml:"tag_name" env:"SCHEDULE_TAG_NAME" validate:"required,max=128"`

	// ECSEndpoint overrides the ECS API endpoint, e.g. for localstack.
	ECSEndpoint     string `yaml:"ecs_endpoint" env:"ECS_ENDPOINT" validate:"omitempty,url"`
	AccessKeyID     string `yaml:"access_key_id" env:"ECS_ACCESS_KEY_ID" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `yaml:"secret_access_key" env:"ECS_SECRET_ACCESS_KEY" validate:"required_with=AccessKeyID"`

	MaxAttempts int           `yaml:"max_attempts" env:"AWS_MAX_ATTEMPTS" validate:"min=1,max=20"`
	MaxBackoff  time.Duration `yaml:"max_backoff" env:"AWS_MAX_BACKOFF" validate:"gt=0s"`

	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR" validate:"omitempty,hostname_port"`
}

var validate = validator.New()

func init() {
	// Report failures by env var name, which is what operators set.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})
}

// Load builds the config from defaults, then the optional YAML file named by
// SCHEDULER_CONFIG_FILE, then the environment.
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: "ecs-scheduler",
		TagName:     "Schedule",
		MaxAttempts: 5,
		MaxBackoff:  20 * time.Second,
		LogLevel:    "info",
	}

	if path := os.Getenv("SCHEDULER_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ServiceName = getEnv("SERVICE_NAME", cfg.ServiceName)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.AccountID = getEnv("AWS_ACCOUNT_ID", cfg.AccountID)
	cfg.TagName = getEnv("SCHEDULE_TAG_NAME", cfg.TagName)
	cfg.ECSEndpoint = getEnv("ECS_ENDPOINT", cfg.ECSEndpoint)
	cfg.AccessKeyID = getEnv("ECS_ACCESS_KEY_ID", cfg.AccessKeyID)
	cfg.SecretAccessKey = getEnv("ECS_SECRET_ACCESS_KEY", cfg.SecretAccessKey)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.MetricsAddr = getEnv("METRICS_ADDR", cfg.MetricsAddr)

	if v := os.Getenv("AWS_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse AWS_MAX_ATTEMPTS: %w", err)
		}
		cfg.MaxAttempts = n
	}
	if v := os.Getenv("AWS_MAX_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse AWS_MAX_BACKOFF: %w", err)
		}
		cfg.MaxBackoff = d
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks the loaded config and names every offending env var.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	var problems []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fe.Field()+" is required")
		case "required_with":
			problems = append(problems, fmt.Sprintf("%s is required when %s is set", fe.Field(), envName(fe.Param())))
		default:
			problems = append(problems, fmt.Sprintf("%s failed %s validation (value %v)", fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("missing or invalid config: %s", strings.Join(problems, "; "))
}

// envName maps a Config struct field name to its env var.
func envName(field string) string {
	f, ok := reflect.TypeOf(Config{}).FieldByName(field)
	if !ok {
		return field
	}
	return f.Tag.Get("env")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
