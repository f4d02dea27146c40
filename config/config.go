package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/VanitasCaesar1/problemdetails/problem"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// problemDetailsPrefix is the envconfig prefix of the problem details block.
const problemDetailsPrefix = "EXCEPTION_PROBLEM_DETAILS"

type Config struct {
	AppName            string
	AppVersion         string
	ServerPort         string
	Environment        string
	RedisURL           string
	PostgresURL        string
	ProblemDetailsFile string

	// ProblemDetails is resolved once here and handed to the middleware; it
	// is never re-read.
	ProblemDetails problem.Options
}

// problemDetailsFile is the layout of PROBLEM_DETAILS_FILE.
type problemDetailsFile struct {
	ExceptionProblemDetails problem.Options `yaml:"exceptionProblemDetails"`
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	env := strings.ToLower(getEnvWithDefault("ENVIRONMENT", "development"))
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[env] {
		return nil, fmt.Errorf("invalid environment value: %s", env)
	}

	config := &Config{
		Environment:        env,
		AppName:            getEnvWithDefault("APP_NAME", "problemdetails"),
		AppVersion:         getEnvWithDefault("APP_VERSION", "dev"),
		ServerPort:         getEnvWithDefault("SERVER_PORT", "8080"),
		RedisURL:           os.Getenv("REDIS_URL"),
		PostgresURL:        os.Getenv("POSTGRES_URL"),
		ProblemDetailsFile: os.Getenv("PROBLEM_DETAILS_FILE"),
	}

	opts, err := loadProblemDetails(env, config.ProblemDetailsFile)
	if err != nil {
		return nil, err
	}
	config.ProblemDetails = opts

	return config, nil
}

// loadProblemDetails layers environment defaults, the optional YAML file and
// EXCEPTION_PROBLEM_DETAILS_* variables, later layers winning.
func loadProblemDetails(env, path string) (problem.Options, error) {
	opts := problem.DefaultOptions(env)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return opts, fmt.Errorf("error reading problem details file: %w", err)
		}
		file := problemDetailsFile{ExceptionProblemDetails: opts}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return opts, fmt.Errorf("error parsing problem details file: %w", err)
		}
		opts = file.ExceptionProblemDetails
	}

	if err := envconfig.Process(problemDetailsPrefix, &opts); err != nil {
		return opts, fmt.Errorf("failed to process problem details config: %w", err)
	}
	return opts.Normalize(), nil
}

// Validate lists configuration problems that do not prevent start-up but
// should be visible to operators.
func (c *Config) Validate() []string {
	var problems []string
	if c.ServerPort == "" {
		problems = append(problems, "SERVER_PORT is empty")
	}
	if c.IsProduction() && c.ProblemDetails.IncludeExceptionDetails {
		problems = append(problems, "exception details are exposed in production")
	}
	if c.RedisURL != "" && !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://") {
		problems = append(problems, "REDIS_URL must use the redis:// or rediss:// scheme")
	}
	if c.PostgresURL != "" && !strings.HasPrefix(c.PostgresURL, "postgres://") && !strings.HasPrefix(c.PostgresURL, "postgresql://") {
		problems = append(problems, "POSTGRES_URL must use the postgres:// scheme")
	}
	return problems
}

// Settings returns the active settings as display lines. Connection strings
// are reported as set or unset only.
func (c *Config) Settings() []string {
	return []string{
		"AppName: " + c.AppName,
		"AppVersion: " + c.AppVersion,
		"Environment: " + c.Environment,
		"ServerPort: " + c.ServerPort,
		"RedisURL: " + setOrUnset(c.RedisURL),
		"PostgresURL: " + setOrUnset(c.PostgresURL),
		"ProblemDetailsFile: " + setOrUnset(c.ProblemDetailsFile),
		fmt.Sprintf("ExceptionProblemDetails.IncludeExceptionDetails: %t", c.ProblemDetails.IncludeExceptionDetails),
		fmt.Sprintf("ExceptionProblemDetails.MaxInnerExceptionDepth: %d", c.ProblemDetails.MaxInnerExceptionDepth),
	}
}

// settingPrefixes selects the environment variables this service reads.
var settingPrefixes = []string{
	"APP_",
	"ENVIRONMENT",
	"SERVER_",
	"REDIS_",
	"POSTGRES_",
	"PROBLEM_DETAILS_",
	problemDetailsPrefix + "_",
}

// AllSettings lists the service's environment variables as KEY=value lines
// sorted by key. URLs are reported as set or unset only.
func (c *Config) AllSettings() []string {
	var out []string
	for _, kv := range os.Environ() {
		key, value, _ := strings.Cut(kv, "=")
		if !hasSettingPrefix(key) {
			continue
		}
		if strings.HasSuffix(key, "_URL") {
			value = setOrUnset(value)
		}
		out = append(out, key+"="+value)
	}
	sort.Strings(out)
	return out
}

func hasSettingPrefix(key string) bool {
	for _, p := range settingPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func setOrUnset(v string) string {
	if v == "" {
		return "<unset>"
	}
	return "<set>"
}

// IsDevelopment returns whether the current environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns whether the current environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsStaging returns whether the current environment is staging
func (c *Config) IsStaging() bool {
	return c.Environment == "staging"
}
