package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is the app-wide configuration, loaded once at startup.
var Conf *Config

type (
	ServerConfig struct {
		Host               string
		Port               int
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
	}

	// AIConfig configures the chat-completions text generator. Fallback* fields
	// point at a secondary OpenAI-compatible provider tried when the primary
	// fails; the key pool rotates over Keys.
	AIConfig struct {
		Keys            []string
		BaseURL         string
		Model           string
		FallbackBaseURL string
		FallbackModel   string
		FallbackKeys    []string
		Timeout         time.Duration
		MaxRetries      int
	}

	YoutubeConfig struct {
		Keys    []string
		BaseURL string
		Timeout time.Duration
	}

	PexelsConfig struct {
		Keys    []string
		BaseURL string
		Timeout time.Duration
	}

	TwilioConfig struct {
		AccountSID       string
		AuthToken        string
		VerifyServiceSID string
		BaseURL          string
		Timeout          time.Duration
	}

	PDFConfig struct {
		BaseURL string // Gotenberg instance
		Timeout time.Duration
	}

	Config struct {
		Env      string
		Debug    bool
		TestMode bool
		AppName  string
		Build    string
		WorkDir  string

		SecretKey                 []byte
		FrontendBaseURL           string
		PasswordResetTimeoutDelta time.Duration
		EmailOTPTimeoutDelta      time.Duration

		DefaultFromEmail string
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		AI       AIConfig
		Youtube  YoutubeConfig
		Pexels   PexelsConfig
		Twilio   TwilioConfig
		PDF      PDFConfig
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func (c *Config) DefaultFrom() mail.Address {
	if addr, err := mail.ParseAddress(c.DefaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}

func init() {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "SeekMYCOURSE")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("jwtExpirationDelta", 5*time.Hour)
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("emailOTPTimeoutDelta", 1*time.Hour)
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbName", "seekmycourse")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("aiBaseURL", "https://api.openai.com")
	v.SetDefault("aiModel", "gpt-3.5-turbo-1106")
	v.SetDefault("aiTimeout", 3*time.Minute)
	v.SetDefault("aiMaxRetries", 2)
	v.SetDefault("youtubeBaseURL", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("youtubeTimeout", 30*time.Second)
	v.SetDefault("pexelsBaseURL", "https://api.pexels.com/v1")
	v.SetDefault("pexelsTimeout", 30*time.Second)
	v.SetDefault("twilioBaseURL", "https://verify.twilio.com/v2")
	v.SetDefault("twilioTimeout", 30*time.Second)
	v.SetDefault("pdfBaseURL", "http://localhost:3005")
	v.SetDefault("pdfTimeout", 2*time.Minute)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		Env:                       env,
		Debug:                     v.GetBool("debug"),
		TestMode:                  testMode,
		AppName:                   v.GetString("appName"),
		Build:                     v.GetString("build"),
		WorkDir:                   Getwd(),
		SecretKey:                 []byte(v.GetString("secretKey")),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		EmailOTPTimeoutDelta:      v.GetDuration("emailOTPTimeoutDelta"),
		DefaultFromEmail:          v.GetString("defaultFromEmail"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               v.GetString("serverHost"),
			Port:               v.GetInt("serverPort"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
			ShutdownTimeout:    v.GetDuration("serverShutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetInt("dbPort"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		AI: AIConfig{
			Keys:            splitKeys(v.GetString("aiApiKeys")),
			BaseURL:         v.GetString("aiBaseURL"),
			Model:           v.GetString("aiModel"),
			FallbackBaseURL: v.GetString("aiFallbackBaseURL"),
			FallbackModel:   v.GetString("aiFallbackModel"),
			FallbackKeys:    splitKeys(v.GetString("aiFallbackApiKeys")),
			Timeout:         v.GetDuration("aiTimeout"),
			MaxRetries:      v.GetInt("aiMaxRetries"),
		},
		Youtube: YoutubeConfig{
			Keys:    splitKeys(v.GetString("youtubeApiKeys")),
			BaseURL: v.GetString("youtubeBaseURL"),
			Timeout: v.GetDuration("youtubeTimeout"),
		},
		Pexels: PexelsConfig{
			Keys:    splitKeys(v.GetString("pexelsApiKeys")),
			BaseURL: v.GetString("pexelsBaseURL"),
			Timeout: v.GetDuration("pexelsTimeout"),
		},
		Twilio: TwilioConfig{
			AccountSID:       v.GetString("twilioAccountSID"),
			AuthToken:        v.GetString("twilioAuthToken"),
			VerifyServiceSID: v.GetString("twilioVerifyServiceSID"),
			BaseURL:          v.GetString("twilioBaseURL"),
			Timeout:          v.GetDuration("twilioTimeout"),
		},
		PDF: PDFConfig{
			BaseURL: v.GetString("pdfBaseURL"),
			Timeout: v.GetDuration("pdfTimeout"),
		},
	}
}

// splitKeys parses a comma-separated API key list.
func splitKeys(s string) []string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}
