package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	LLM     LLMConfig
	OCR     OCRConfig
	History HistoryConfig
	Logger  LoggerConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LLMConfig selects and configures the chat-completion provider used to
// structure OCR text. Provider is "groq" (OpenAI-compatible API) or "gigachat".
type LLMConfig struct {
	Provider  string
	Timeout   time.Duration
	MaxTokens int
	Groq      GroqConfig
	GigaChat  GigaChatConfig
}

type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	Model              string
	InsecureSkipVerify bool
}

type OCRConfig struct {
	Language       string
	TessdataPrefix string
}

type HistoryConfig struct {
	FilePath string
}

type LoggerConfig struct {
	Level string
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root.
	// If none is found, plain environment variables are used (Docker/K8s).
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "120"))
	llmTimeout, _ := strconv.Atoi(getEnv("LLM_TIMEOUT", "30"))
	maxTokens, _ := strconv.Atoi(getEnv("LLM_MAX_TOKENS", "1024"))
	insecureSkipVerify := getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "false") == "true"

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		LLM: LLMConfig{
			Provider:  getEnv("LLM_PROVIDER", "groq"),
			Timeout:   time.Duration(llmTimeout) * time.Second,
			MaxTokens: maxTokens,
			Groq: GroqConfig{
				APIKey:  getEnv("GROQ_API_KEY", ""),
				BaseURL: getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
				Model:   getEnv("GROQ_MODEL", "openai/gpt-oss-20b"),
			},
			GigaChat: GigaChatConfig{
				APIKey:             getEnv("GIGACHAT_API_KEY", ""),
				Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
				Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
				InsecureSkipVerify: insecureSkipVerify,
			},
		},
		OCR: OCRConfig{
			Language:       getEnv("OCR_LANGUAGE", "eng"),
			TessdataPrefix: getEnv("TESSDATA_PREFIX", ""),
		},
		History: HistoryConfig{
			FilePath: getEnv("HISTORY_FILE", "transactions.json"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
