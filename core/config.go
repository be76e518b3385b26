package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (default) | TEST | QA | PROD
		AppName  string
		WorkDir  string
		Build    string

		SecretKey       string
		FrontendBaseURL string
		RollbarToken    string

		Server   serverConfig
		Database databaseConfig
		Broker   brokerConfig
		Monitor  monitorConfig
	}

	serverConfig struct {
		Host                      string
		APIHost                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	databaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	brokerConfig struct {
		Backend       string // inproc (default) | redis
		RedisAddr     string
		RedisPassword string
		RedisDB       int
	}

	monitorConfig struct {
		// LogFiles maps log aliases to the files they tail.
		LogFiles        map[string]string
		DefaultInterval time.Duration
	}
)

func (c databaseConfig) Address() string { return c.Host + ":" + c.Port }

// NewConfig loads the app configuration from the environment,
// falling back to config/.env.<env> and hardcoded DEV defaults.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Shule")
	conf.SetDefault("secretKey", "w#b1^)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("build", "dev")

	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverApiHost", "0.0.0.0:8000")
	conf.SetDefault("serverDebugHost", "0.0.0.0:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	conf.SetDefault("databaseEngine", "postgres")
	conf.SetDefault("databaseName", "shule")
	conf.SetDefault("databaseUser", "shule")
	conf.SetDefault("databasePassword", "shule")
	conf.SetDefault("databaseAdminUser", "")
	conf.SetDefault("databaseAdminPassword", "")
	conf.SetDefault("databaseHost", "localhost")
	conf.SetDefault("databasePort", "5432")
	conf.SetDefault("databaseDisableTLS", true)

	conf.SetDefault("brokerBackend", "inproc")
	conf.SetDefault("brokerRedisAddr", "localhost:6379")
	conf.SetDefault("brokerRedisPassword", "")
	conf.SetDefault("brokerRedisDB", 0)

	conf.SetDefault("monitorLogFiles", map[string]string{})
	conf.SetDefault("monitorDefaultInterval", 5*time.Second)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:           conf.GetBool("debug"),
		TestMode:        env == "TEST",
		Env:             env,
		AppName:         conf.GetString("appName"),
		WorkDir:         workDir,
		Build:           conf.GetString("build"),
		SecretKey:       conf.GetString("secretKey"),
		FrontendBaseURL: conf.GetString("frontendBaseURL"),
		RollbarToken:    conf.GetString("rollbarToken"),
		Server: serverConfig{
			Host:                      conf.GetString("serverHost"),
			APIHost:                   conf.GetString("serverApiHost"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: databaseConfig{
			Engine:        conf.GetString("databaseEngine"),
			Name:          conf.GetString("databaseName"),
			User:          conf.GetString("databaseUser"),
			Password:      conf.GetString("databasePassword"),
			AdminUser:     conf.GetString("databaseAdminUser"),
			AdminPassword: conf.GetString("databaseAdminPassword"),
			Host:          conf.GetString("databaseHost"),
			Port:          conf.GetString("databasePort"),
			DisableTLS:    conf.GetBool("databaseDisableTLS"),
		},
		Broker: brokerConfig{
			Backend:       conf.GetString("brokerBackend"),
			RedisAddr:     conf.GetString("brokerRedisAddr"),
			RedisPassword: conf.GetString("brokerRedisPassword"),
			RedisDB:       conf.GetInt("brokerRedisDB"),
		},
		Monitor: monitorConfig{
			LogFiles:        conf.GetStringMapString("monitorLogFiles"),
			DefaultInterval: conf.GetDuration("monitorDefaultInterval"),
		},
	}
}
