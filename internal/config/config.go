// 包 config：进程配置，启动时构造一次后显式传给解析、加载与服务组件
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Columns 单张参照表的列名
type Columns struct {
	Name   string
	Code   string
	Parent string
}

type Config struct {
	// Document
	DocPath           string
	DocEncoding       string
	MidOrdinalMax     int
	MidOrdinalsExtra  []string
	ConvertOrdinalMax int
	BottomMax         int

	// Reference tables
	RefSource     string // file | postgres
	MapsDir       string
	CountryPath   string
	ProvincePath  string
	CityPath      string
	DistrictPath  string
	DBFEncoding   string
	CountryCols   Columns
	ProvinceCols  Columns
	CityCols      Columns
	DistrictCols  Columns
	NormSuffixes  []string
	LinkWorkers   int
	S2CellLevel   int
	CoordSys      string
	LocateCache   int
	LocateTTL     time.Duration
	SearchTTL     time.Duration
	SearchLimit   int
	ExportFormat  string
	ShowProgress  bool
	ReloadTimeout time.Duration

	// HTTP
	Addr             string
	APIBase          string
	AdminToken       string
	RateLimitEnabled bool
	RateLimitQPS     int
	TLSEnable        bool
	TLSCertPath      string
	TLSKeyPath       string
	TLSCommonName    string

	// Postgres
	PGEnable     bool
	PGHost       string
	PGPort       int
	PGUser       string
	PGPassword   string
	PGDB         string
	PGSSLMode    string
	PGMaxOpen    int
	PGMaxIdle    int
	PGConnMaxAge time.Duration

	// Redis
	RedisEnable bool
	RedisHost   string
	RedisPort   int
	RedisPass   string
	RedisDB     int

	// Logging
	LogLevel  string
	LogFormat string
}

// 文档注释：加载配置
// 背景：先读取 .env 与 data/env/.env（存在即加载，不覆盖已有环境变量），再按环境变量与默认值构造
// 约束：数值与布尔解析失败时静默回退到默认值；参照表路径默认位于 MAPS_DIR 下的分层目录
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	return FromEnv(), nil
}

// FromEnv 只读环境变量，不加载 .env 文件。
func FromEnv() *Config {
	maps := getEnv("MAPS_DIR", "maps")
	cfg := &Config{
		DocPath:           getEnv("DOC_PATH", "output.md"),
		DocEncoding:       getEnv("DOC_ENCODING", "utf-8"),
		MidOrdinalMax:     getEnvAsInt("MID_ORDINAL_MAX", 37),
		MidOrdinalsExtra:  getEnvAsList("MID_ORDINALS_EXTRA", nil),
		ConvertOrdinalMax: getEnvAsInt("CONVERT_ORDINAL_MAX", 38),
		BottomMax:         getEnvAsInt("BOTTOM_MAX", 25),

		RefSource:    strings.ToLower(getEnv("REF_SOURCE", "file")),
		MapsDir:      maps,
		CountryPath:  getEnv("COUNTRY_PATH", filepath.Join(maps, "1.Country", "country.shp")),
		ProvincePath: getEnv("PROVINCE_PATH", filepath.Join(maps, "2.Province", "province.shp")),
		CityPath:     getEnv("CITY_PATH", filepath.Join(maps, "3.City", "city.shp")),
		DistrictPath: getEnv("DISTRICT_PATH", filepath.Join(maps, "4.District", "district.shp")),
		DBFEncoding:  getEnv("DBF_ENCODING", ""),
		CountryCols: Columns{
			Name: getEnv("COUNTRY_NAME_COL", "name"),
			Code: getEnv("COUNTRY_CODE_COL", "code"),
		},
		ProvinceCols: Columns{
			Name: getEnv("PROVINCE_NAME_COL", "pr_name"),
			Code: getEnv("PROVINCE_CODE_COL", "pr_adcode"),
		},
		CityCols: Columns{
			Name:   getEnv("CITY_NAME_COL", "ct_name"),
			Code:   getEnv("CITY_CODE_COL", "ct_adcode"),
			Parent: getEnv("CITY_PARENT_COL", "pr_adcode"),
		},
		DistrictCols: Columns{
			Name:   getEnv("DISTRICT_NAME_COL", "dt_name"),
			Code:   getEnv("DISTRICT_CODE_COL", "dt_adcode"),
			Parent: getEnv("DISTRICT_PARENT_COL", "ct_adcode"),
		},
		NormSuffixes:  getEnvAsList("NORMALIZE_SUFFIXES", nil),
		LinkWorkers:   getEnvAsInt("LINK_WORKERS", 1),
		S2CellLevel:   getEnvAsInt("S2_CELL_LEVEL", 9),
		CoordSys:      getEnv("COORD_SYS", "WGS84"),
		LocateCache:   getEnvAsInt("LOCATE_CACHE_SIZE", 4096),
		LocateTTL:     getEnvAsDuration("LOCATE_CACHE_TTL", 10*time.Minute),
		SearchTTL:     getEnvAsDuration("SEARCH_CACHE_TTL", 5*time.Minute),
		SearchLimit:   getEnvAsInt("SEARCH_LIMIT", 200),
		ExportFormat:  getEnv("EXPORT_FORMAT", "csv"),
		ShowProgress:  getEnvAsBool("SHOW_PROGRESS", true),
		ReloadTimeout: getEnvAsDuration("RELOAD_TIMEOUT", 2*time.Minute),

		Addr:             getEnv("ADDR", ":8080"),
		APIBase:          getEnv("API_BASE", "/api"),
		AdminToken:       getEnv("ADMIN_TOKEN", ""),
		RateLimitEnabled: getEnvAsBool("RATE_LIMIT_ENABLED", false),
		RateLimitQPS:     getEnvAsInt("RATE_LIMIT_QPS", 200),
		TLSEnable:        getEnvAsBool("TLS_ENABLE", false),
		TLSCertPath:      getEnv("TLS_CERT_PATH", filepath.Join("data", "tls", "cert.pem")),
		TLSKeyPath:       getEnv("TLS_KEY_PATH", filepath.Join("data", "tls", "key.pem")),
		TLSCommonName:    getEnv("TLS_CN", "localhost"),

		PGEnable:     getEnvAsBool("PG_ENABLE", false),
		PGHost:       getEnv("PG_HOST", "localhost"),
		PGPort:       getEnvAsInt("PG_PORT", 5432),
		PGUser:       getEnv("PG_USER", "postgres"),
		PGPassword:   getEnv("PG_PASSWORD", ""),
		PGDB:         getEnv("PG_DB", "jiuyu"),
		PGSSLMode:    getEnv("PG_SSLMODE", "disable"),
		PGMaxOpen:    getEnvAsInt("PG_MAX_OPEN_CONNS", 10),
		PGMaxIdle:    getEnvAsInt("PG_MAX_IDLE_CONNS", 5),
		PGConnMaxAge: getEnvAsDuration("PG_CONN_MAX_LIFETIME", 30*time.Minute),

		RedisEnable: getEnvAsBool("REDIS_ENABLE", false),
		RedisHost:   getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:   getEnvAsInt("REDIS_PORT", 6379),
		RedisPass:   getEnv("REDIS_PASS", ""),
		RedisDB:     getEnvAsInt("REDIS_DB", 0),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
	if cfg.LinkWorkers < 1 {
		cfg.LinkWorkers = 1
	}
	if cfg.RateLimitQPS < 1 {
		cfg.RateLimitQPS = 200
	}
	if cfg.RedisDB < 0 {
		cfg.RedisDB = 0
	}
	return cfg
}

// PostgresDSN 组装 lib/pq 可识别的连接串。
func (c *Config) PostgresDSN() string {
	dsn := "postgres://" + c.PGUser
	if c.PGPassword != "" {
		dsn += ":" + c.PGPassword
	}
	dsn += "@" + c.PGHost + ":" + strconv.Itoa(c.PGPort) + "/" + c.PGDB + "?sslmode=" + c.PGSSLMode
	return dsn
}

// RedisAddr host:port
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + strconv.Itoa(c.RedisPort)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsList 逗号分隔，忽略空项。
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, s := range strings.Split(value, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
