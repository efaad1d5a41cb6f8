package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App         App         `mapstructure:",squash"`
	Server      Server      `mapstructure:",squash"`
	Database    Database    `mapstructure:",squash"`
	Storage     Storage     `mapstructure:",squash"`
	Auth        Auth        `mapstructure:",squash"`
	Sync        Sync        `mapstructure:",squash"`
	Maintenance Maintenance `mapstructure:",squash"`
	SecretKey   string      `mapstructure:"secret_key"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
}

type Server struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type Database struct {
	DSN      string `mapstructure:"-"`
	Driver   string `mapstructure:"database_driver"`
	Password string `mapstructure:"database_password"`
	URL      string `mapstructure:"database_url"`
	User     string `mapstructure:"database_user"`
}

// Storage controla a camada de persistência local.
type Storage struct {
	Backend          string  `mapstructure:"storage_backend"` // memory, file ou postgres
	DataDir          string  `mapstructure:"storage_data_dir"`
	Namespace        string  `mapstructure:"storage_namespace"`
	MaxStorageSize   int64   `mapstructure:"storage_max_size_bytes"`
	CleanupPercent   float64 `mapstructure:"storage_cleanup_percent"`
	ArchivePercent   float64 `mapstructure:"storage_archive_percent"`
	MaxBackups       int     `mapstructure:"storage_max_backups"`
	ArchiveAfterDays int     `mapstructure:"storage_archive_after_days"`
	Version          string  `mapstructure:"storage_version"`
}

// Auth guarda as senhas dos usuários fixos e os parâmetros de sessão.
type Auth struct {
	TokenTTLHours int    `mapstructure:"auth_token_ttl_hours"`
	ConvPassword  string `mapstructure:"auth_conv_password"`
	PetiPassword  string `mapstructure:"auth_peti_password"`
	DiskPassword  string `mapstructure:"auth_disk_password"`
	OwnerPassword string `mapstructure:"auth_owner_password"`
}

// Sync configura o espelhamento remoto opcional.
type Sync struct {
	Enabled           bool   `mapstructure:"sync_enabled"`
	MongoURI          string `mapstructure:"sync_mongo_uri"`
	MongoDatabase     string `mapstructure:"sync_mongo_database"`
	RetryMaxAttempts  int    `mapstructure:"sync_retry_max_attempts"`
	RetryDelaySeconds int    `mapstructure:"sync_retry_delay_seconds"`
}

// Maintenance configura os agendamentos de backup e manutenção.
type Maintenance struct {
	Enabled            bool   `mapstructure:"maintenance_enabled"`
	BackupCron         string `mapstructure:"maintenance_backup_cron"`
	MaintenanceCron    string `mapstructure:"maintenance_weekly_cron"`
	BackupIntervalDays int    `mapstructure:"maintenance_backup_interval_days"`
}

func SetDefaults() {
	viper.SetDefault("HOST", "localhost")
	viper.SetDefault("PORT", 8000)

	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "localhost:5432/billing")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")

	viper.SetDefault("SECRET_KEY", "your_secret_key")

	// Defaults da camada de armazenamento
	viper.SetDefault("STORAGE_BACKEND", "file")
	viper.SetDefault("STORAGE_DATA_DIR", "./data")
	viper.SetDefault("STORAGE_NAMESPACE", "ice_beer_")
	viper.SetDefault("STORAGE_MAX_SIZE_BYTES", 8*1024*1024) // 8MB
	viper.SetDefault("STORAGE_CLEANUP_PERCENT", 80.0)       // Limpeza acima de 80%
	viper.SetDefault("STORAGE_ARCHIVE_PERCENT", 95.0)       // Arquivamento acima de 95%
	viper.SetDefault("STORAGE_MAX_BACKUPS", 5)
	viper.SetDefault("STORAGE_ARCHIVE_AFTER_DAYS", 365)
	viper.SetDefault("STORAGE_VERSION", "2.0.0")

	// Defaults de autenticação (usuários fixos)
	viper.SetDefault("AUTH_TOKEN_TTL_HOURS", 24)
	viper.SetDefault("AUTH_CONV_PASSWORD", "123") // ONLY LOCAL
	viper.SetDefault("AUTH_PETI_PASSWORD", "123") // ONLY LOCAL
	viper.SetDefault("AUTH_DISK_PASSWORD", "123") // ONLY LOCAL
	viper.SetDefault("AUTH_OWNER_PASSWORD", "123") // ONLY LOCAL

	// Defaults do espelhamento remoto
	viper.SetDefault("SYNC_ENABLED", false)
	viper.SetDefault("SYNC_MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("SYNC_MONGO_DATABASE", "billing")
	viper.SetDefault("SYNC_RETRY_MAX_ATTEMPTS", 3)
	viper.SetDefault("SYNC_RETRY_DELAY_SECONDS", 1)

	// Defaults de manutenção
	viper.SetDefault("MAINTENANCE_ENABLED", true)
	viper.SetDefault("MAINTENANCE_BACKUP_CRON", "0 2 * * *")      // Todos os dias às 2h da manhã
	viper.SetDefault("MAINTENANCE_WEEKLY_CRON", "0 3 * * 0")      // Domingos às 3h da manhã
	viper.SetDefault("MAINTENANCE_BACKUP_INTERVAL_DAYS", 7)       // Backup automático a cada 7 dias

	viper.SetDefault("LOG_LEVEL", "debug")
}

func NewConfig() (*Config, error) {
	// Primeiro carregar o arquivo .env usando godotenv
	loadEnvFile() // ONLY LOCAL

	config := &Config{}

	// Configurar valores padrão
	SetDefaults()

	// Configurar o Viper
	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv() // Isso permite que o Viper leia variáveis de ambiente

	// Tentar ler o arquivo .env com o Viper (opcional, já que usamos godotenv)
	if err := viper.ReadInConfig(); err != nil {
		logrus.Info("Usando variáveis carregadas pelo godotenv (viper não conseguiu ler .env):", err)
	} else {
		logrus.Info("Arquivo .env lido pelo Viper com sucesso")
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	config.Database.DSN = fmt.Sprintf(
		"%s://%s:%s@%s",
		config.Database.Driver,
		config.Database.User,
		config.Database.Password,
		config.Database.URL,
	)

	return config, nil
}

// Função auxiliar para carregar o arquivo .env usando godotenv
func loadEnvFile() {
	// Obter diretório atual
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("Não foi possível obter o diretório atual:", err)
		return
	}

	// Tentar várias localizações possíveis para o arquivo .env
	locations := []string{
		filepath.Join(cwd, ".env"),               // Diretório atual
		filepath.Join(filepath.Dir(cwd), ".env"), // Diretório pai
		filepath.Join(cwd, "../.env"),            // Diretório acima
		filepath.Join(cwd, "../../.env"),         // Dois diretórios acima
	}

	for _, location := range locations {
		logrus.Info("Tentando carregar .env de:", location)
		err := godotenv.Load(location)
		if err == nil {
			logrus.Info("Arquivo .env carregado com sucesso de:", location)
			return
		}
	}

	logrus.Warn("Não foi possível carregar o arquivo .env de nenhuma localização conhecida")
}
