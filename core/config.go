package core

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address         string
		DebugAddress    string
		ShutdownTimeout time.Duration
		JWTExpiration   time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | inmem
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	VariantConfig struct {
		// GenerationTimeout bounds every question module call.
		GenerationTimeout time.Duration
		WorkerCommand     string // external command used by Freeform questions
	}

	StorageConfig struct {
		Type           string // local | minio
		LocalPath      string
		MinioEndpoint  string
		MinioAccessKey string
		MinioSecretKey string
		MinioBucket    string
		MinioUseSSL    bool
	}

	TracingConfig struct {
		Enabled  bool
		Endpoint string
	}

	LogConfig struct {
		Level    string
		FilePath string
	}

	Config struct {
		AppName      string
		Env          string // DEV (default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string

		Server   ServerConfig
		Database DatabaseConfig
		Variant  VariantConfig
		Storage  StorageConfig
		Tracing  TracingConfig
		Log      LogConfig
	}
)

// Address returns the "host:port" pair of the database server.
func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "PrairieLearn")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "qv0r-3k$a!r9=lzn(c7p1m%y&u+e8t_w5h^b2j)x6d*o4f")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.jwtExpiration", 24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "prairielearn")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("variant.generationTimeout", 20*time.Second)
	v.SetDefault("variant.workerCommand", "python3 question_worker.py")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.localPath", "courses")
	v.SetDefault("storage.minioEndpoint", "localhost:9000")
	v.SetDefault("storage.minioAccessKey", "")
	v.SetDefault("storage.minioSecretKey", "")
	v.SetDefault("storage.minioBucket", "courses")
	v.SetDefault("storage.minioUseSSL", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.filePath", "logs/app.log")
}

// loadDotEnv loads config/.env.<env> if it exists (ignored otherwise).
func loadDotEnv(env string) error {
	wd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "getting working directory")
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	return nil
}

// NewConfig reads the configuration from defaults, the optional .env file and the environment.
// Environment variables are prefixed with the current ENV, e.g. DEV_DATABASE.HOST.
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	if err := loadDotEnv(env); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(env)
	v.AutomaticEnv()

	conf := &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			DebugAddress:    v.GetString("server.debugAddress"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			JWTExpiration:   v.GetDuration("server.jwtExpiration"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Variant: VariantConfig{
			GenerationTimeout: v.GetDuration("variant.generationTimeout"),
			WorkerCommand:     v.GetString("variant.workerCommand"),
		},
		Storage: StorageConfig{
			Type:           v.GetString("storage.type"),
			LocalPath:      v.GetString("storage.localPath"),
			MinioEndpoint:  v.GetString("storage.minioEndpoint"),
			MinioAccessKey: v.GetString("storage.minioAccessKey"),
			MinioSecretKey: v.GetString("storage.minioSecretKey"),
			MinioBucket:    v.GetString("storage.minioBucket"),
			MinioUseSSL:    v.GetBool("storage.minioUseSSL"),
		},
		Tracing: TracingConfig{
			Enabled:  v.GetBool("tracing.enabled"),
			Endpoint: v.GetString("tracing.endpoint"),
		},
		Log: LogConfig{
			Level:    v.GetString("log.level"),
			FilePath: v.GetString("log.filePath"),
		},
	}

	if !conf.Debug && len(conf.SecretKey) < 32 {
		return nil, fmt.Errorf("secret key is too short (%d chars), must be at least 32 characters", len(conf.SecretKey))
	}
	return conf, nil
}
