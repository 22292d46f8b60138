package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// UploadProfile - ограничения для одного вида загрузки (epk, track, avatar...)
type UploadProfile struct {
	MaxSize      int64    `yaml:"max_size"`
	AllowedTypes []string `yaml:"allowed_types"` // как у accept: image/*, audio/mpeg, .pdf
}

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
		// MaxMultipartMemory - сколько multipart-формы держать в памяти, остальное во временных файлах
		MaxMultipartMemory int64    `yaml:"max_multipart_memory"`
		AllowedOrigins     []string `yaml:"allowed_origins"` // CORS и WebSocket; пусто - любой Origin
	} `yaml:"server"`

	Database struct {
		DSN         string `yaml:"url"`
		AutoMigrate bool   `yaml:"auto_migrate"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // минуты
	} `yaml:"jwt"`

	Storage struct {
		Type       string `yaml:"type"`        // local, s3, cloudflare_r2
		BasePath   string `yaml:"base_path"`   // For local storage
		BaseURL    string `yaml:"base_url"`    // Public URL base
		Bucket     string `yaml:"bucket"`      // For S3/R2
		Region     string `yaml:"region"`      // For S3
		AccessKey  string `yaml:"access_key"`  // For S3/R2
		SecretKey  string `yaml:"secret_key"`  // For S3/R2
		Endpoint   string `yaml:"endpoint"`    // For R2 or custom S3
		UseSSL     bool   `yaml:"use_ssl"`     // For S3/R2
		PublicRead bool   `yaml:"public_read"` // Make files public
	} `yaml:"storage"`

	Upload struct {
		MaxSize        int64                    `yaml:"max_size"`         // Max file size in bytes
		MaxUserStorage int64                    `yaml:"max_user_storage"` // Max storage per user
		AllowedTypes   []string                 `yaml:"allowed_types"`
		ImageQuality   int                      `yaml:"image_quality"` // JPEG quality (1-100)
		Concurrency    int                      `yaml:"concurrency"`   // параллельных загрузок в пакете
		MaxFiles       int                      `yaml:"max_files"`     // файлов в одном пакете
		RateLimit      int                      `yaml:"rate_limit"`    // пакетов на пользователя в минуту, 0 - без лимита
		Profiles       map[string]UploadProfile `yaml:"profiles"`
	} `yaml:"upload"`

	Redis struct {
		Addr        string `yaml:"addr"`
		Password    string `yaml:"password"`
		DB          int    `yaml:"db"`
		ProgressTTL int    `yaml:"progress_ttl"` // секунды
	} `yaml:"redis"`

	Screening struct {
		SeniorMinYears       float64 `yaml:"senior_min_years"`
		MinPreviousEmployers int     `yaml:"min_previous_employers"`
	} `yaml:"screening"`

	Workers struct {
		MediaCleanupInterval int `yaml:"media_cleanup_interval"` // минуты, 0 - выключен
		MediaRetentionHours  int `yaml:"media_retention_hours"`
	} `yaml:"workers"`
}

var AppConfig *Config

const (
	defaultConfigPath = "config/config.yaml"
	mb                = 1024 * 1024
)

// EPKAccept - то, что принимает форма EPK в браузере
var EPKAccept = []string{"image/*", "video/*", "audio/*", ".pdf", ".doc", ".docx", ".txt"}

// Default - конфигурация для разработки и тестов
func Default() *Config {
	var cfg Config

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Server.Env = "development"
	cfg.Server.MaxMultipartMemory = 32 * mb

	cfg.JWT.TTL = 60

	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = "./uploads"
	cfg.Storage.BaseURL = "/uploads"

	cfg.Upload.MaxSize = 10 * mb
	cfg.Upload.MaxUserStorage = 1024 * mb
	cfg.Upload.AllowedTypes = EPKAccept
	cfg.Upload.ImageQuality = 85
	cfg.Upload.Concurrency = 3
	cfg.Upload.MaxFiles = 20
	cfg.Upload.RateLimit = 30
	cfg.Upload.Profiles = map[string]UploadProfile{
		"epk":                {MaxSize: 50 * mb, AllowedTypes: EPKAccept},
		"track":              {MaxSize: 100 * mb, AllowedTypes: []string{"audio/*"}},
		"avatar":             {MaxSize: 5 * mb, AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"}},
		"message_attachment": {MaxSize: 25 * mb, AllowedTypes: EPKAccept},
		"job_application":    {MaxSize: 10 * mb, AllowedTypes: []string{".pdf", ".doc", ".docx", "image/*", "audio/*"}},
	}

	cfg.Redis.ProgressTTL = 3600

	cfg.Screening.SeniorMinYears = 5
	cfg.Screening.MinPreviousEmployers = 2

	cfg.Workers.MediaCleanupInterval = 60
	cfg.Workers.MediaRetentionHours = 72

	return &cfg
}

// Load собирает конфигурацию: значения по умолчанию, затем yaml-файл
// (CONFIG_PATH или config/config.yaml), затем переменные окружения.
// .env подхватывается, если есть.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	path := os.Getenv("CONFIG_PATH")
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	if err := cfg.readFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig загружает конфигурацию в AppConfig
func LoadConfig() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

func GetConfig() *Config {
	if AppConfig == nil {
		if err := LoadConfig(); err != nil {
			panic(fmt.Sprintf("config: %v", err))
		}
	}
	return AppConfig
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("SERVER_ENV"); v != "" {
		c.Server.Env = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("STORAGE_ACCESS_KEY"); v != "" {
		c.Storage.AccessKey = v
	}
	if v := os.Getenv("STORAGE_SECRET_KEY"); v != "" {
		c.Storage.SecretKey = v
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "local", "s3", "cloudflare_r2":
	default:
		return fmt.Errorf("unsupported storage type %q", c.Storage.Type)
	}
	if c.Upload.ImageQuality < 1 || c.Upload.ImageQuality > 100 {
		return fmt.Errorf("upload.image_quality must be in 1..100, got %d", c.Upload.ImageQuality)
	}
	if c.Upload.MaxSize <= 0 {
		return errors.New("upload.max_size must be positive")
	}
	return nil
}

// UploadProfile возвращает ограничения для usage; пустые поля профиля
// берутся из общих настроек upload.
func (c *Config) UploadProfile(usage string) (UploadProfile, bool) {
	p, ok := c.Upload.Profiles[usage]
	if !ok {
		return UploadProfile{}, false
	}
	if p.MaxSize <= 0 {
		p.MaxSize = c.Upload.MaxSize
	}
	if len(p.AllowedTypes) == 0 {
		p.AllowedTypes = c.Upload.AllowedTypes
	}
	return p, true
}

// multipartOverhead - запас на заголовки частей и текстовые поля формы
const multipartOverhead = 1 * mb

// MaxUploadRequestSize - верхняя граница тела запроса загрузки: max_files
// файлов самого большого профиля плюс служебные байты multipart.
func (c *Config) MaxUploadRequestSize() int64 {
	largest := c.Upload.MaxSize
	for usage := range c.Upload.Profiles {
		if p, ok := c.UploadProfile(usage); ok && p.MaxSize > largest {
			largest = p.MaxSize
		}
	}
	files := int64(c.Upload.MaxFiles)
	if files <= 0 {
		files = 1
	}
	return files*largest + multipartOverhead
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}
