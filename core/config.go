package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *Config

type (
	ServerConfig struct {
		Host                      string
		Port                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	Config struct {
		Debug    bool
		TestMode bool
		Env      string
		AppName  string
		Build    string
		WorkDir  string

		SecretKey                 string
		FrontendBaseURL           string
		DefaultFromEmail          string
		PasswordResetTimeoutDelta time.Duration

		SendgridAPIKey string
		RollbarToken   string

		Server   ServerConfig
		Database DatabaseConfig
	}
)

func (c ServerConfig) Address() string   { return net.JoinHostPort(c.Host, c.Port) }
func (c DatabaseConfig) Address() string { return net.JoinHostPort(c.Host, c.Port) }

func init() {
	Conf = NewConfig()
}

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Atende")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "x2m9-tlc)wqz$+04=hk&beyj7(g!v)#*r8(#np3f^$dqwm5kfu")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("serverHost", "0.0.0.0")
	v.SetDefault("serverPort", "8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "atende")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseDisableTLS", true)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:                     v.GetBool("debug"),
		TestMode:                  env == "TEST",
		Env:                       env,
		AppName:                   v.GetString("appName"),
		Build:                     v.GetString("build"),
		WorkDir:                   wd,
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		DefaultFromEmail:          v.GetString("defaultFromEmail"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		SendgridAPIKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Port:                      v.GetString("serverPort"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Name:          v.GetString("databaseName"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
	}
}
