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

type (
	Config struct {
		Debug        bool
		TestMode     bool
		Env          string
		Build        string
		AppName      string
		SecretKey    string
		RollbarToken string
		Server       ServerConfig
		Database     DatabaseConfig
		Exam         ExamConfig
	}

	ServerConfig struct {
		Host               string
		DebugHost          string
		ReadTimeout        time.Duration
		WriteTimeout       time.Duration
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	ExamConfig struct {
		// KickOutThreshold is the violation count that ends an attempt.
		KickOutThreshold int
		// SubmitGracePeriod is added to an attempt's deadline before the
		// server stops accepting answers and expires it.
		SubmitGracePeriod time.Duration
		SweepInterval     time.Duration
		SweepBatchSize    int
	}
)

const EngineMemory = "memory"

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c DatabaseConfig) InMemory() bool {
	return c.Engine == EngineMemory
}

// NewConfig reads the configuration for the current ENV
// (DEV (local; default), TEST, QA, PROD) from the environment and an optional config/.env.<env> file.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("build", "develop")
	conf.SetDefault("appName", "ExamGuard")
	conf.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("server.host", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.readTimeout", 5*time.Second)
	conf.SetDefault("server.writeTimeout", 5*time.Second)
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 12*time.Hour)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "examguard")
	conf.SetDefault("database.user", "examguard")
	conf.SetDefault("database.password", "examguard")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("exam.kickOutThreshold", 5)
	conf.SetDefault("exam.submitGracePeriod", 30*time.Second)
	conf.SetDefault("exam.sweepInterval", 30*time.Second)
	conf.SetDefault("exam.sweepBatchSize", 100)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
		conf.SetDefault("database.engine", EngineMemory)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(configDir(), ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		Env:          env,
		Build:        conf.GetString("build"),
		AppName:      conf.GetString("appName"),
		SecretKey:    conf.GetString("secretKey"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               conf.GetString("server.host"),
			DebugHost:          conf.GetString("server.debugHost"),
			ReadTimeout:        conf.GetDuration("server.readTimeout"),
			WriteTimeout:       conf.GetDuration("server.writeTimeout"),
			ShutdownTimeout:    conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: conf.GetDuration("server.jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Exam: ExamConfig{
			KickOutThreshold:  conf.GetInt("exam.kickOutThreshold"),
			SubmitGracePeriod: conf.GetDuration("exam.submitGracePeriod"),
			SweepInterval:     conf.GetDuration("exam.sweepInterval"),
			SweepBatchSize:    conf.GetInt("exam.sweepBatchSize"),
		},
	}
}

func configDir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	return "config"
}
