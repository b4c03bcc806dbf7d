package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Database DatabaseConfig `toml:"database"`
	Output   OutputConfig   `toml:"output"`
	Viewer   ViewerConfig   `toml:"viewer"`
}

// DatabaseConfig 数据源配置
type DatabaseConfig struct {
	Driver   string `toml:"driver"` // pgx | sqlite3
	Host     string `toml:"host"`
	Name     string `toml:"name"` // sqlite3 时为数据库文件路径
	User     string `toml:"user"`
	Password string `toml:"password"`
	Port     int    `toml:"port"`
	SSLMode  string `toml:"sslmode"`
	SeedDir  string `toml:"seed_dir"` // sqlite3 快照不存在时从该目录的数据集 CSV 建立（可选）
}

// OutputConfig 输出配置
type OutputConfig struct {
	ChartDir     string `toml:"chart_dir"`
	ExportDir    string `toml:"export_dir"`
	WorkbookName string `toml:"workbook_name"`
}

// ViewerConfig 交互视图展示配置
type ViewerConfig struct {
	Mode string `toml:"mode"` // serve | file | none
	Port int    `toml:"port"`
}

// 交互视图展示方式
const (
	ViewerServe = "serve"
	ViewerFile  = "file"
	ViewerNone  = "none"
)

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path       string
	FromFile   bool
	EnvApplied []string
}

// DefaultConfig 默认配置（本地开发可直接使用）
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{
			Driver:   "pgx",
			Host:     "localhost",
			Name:     "postgres",
			User:     "postgres",
			Password: "",
			Port:     5432,
			SSLMode:  "disable",
		},
		Output: OutputConfig{
			ChartDir:     "charts",
			ExportDir:    "exports",
			WorkbookName: "ecommerce_report.xlsx",
		},
		Viewer: ViewerConfig{
			Mode: ViewerFile,
			Port: 20262,
		},
	}
}

// DSN 按驱动拼接连接串
func (c DatabaseConfig) DSN() string {
	switch c.Driver {
	case "sqlite3":
		return c.Name
	default:
		// URL 形式：空密码或含空格/引号的值不会串到其它字段
		u := &url.URL{
			Scheme: "postgres",
			Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
			Path:   "/" + c.Name,
		}
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else if c.User != "" {
			u.User = url.User(c.User)
		}
		if c.SSLMode != "" {
			u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
		}
		return u.String()
	}
}

// Redacted 日志输出用（不含密码）
func (c DatabaseConfig) Redacted() string {
	if c.Driver == "sqlite3" {
		return "sqlite3:" + c.Name
	}
	return fmt.Sprintf("%s://%s@%s:%d/%s", c.Driver, c.User, c.Host, c.Port, c.Name)
}

// Validate 校验配置
func (c *AppConfig) Validate() error {
	switch c.Database.Driver {
	case "pgx", "sqlite3":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.Name) == "" {
		return fmt.Errorf("database name is empty")
	}
	if c.Database.Driver == "pgx" && (c.Database.Port <= 0 || c.Database.Port > 65535) {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if strings.TrimSpace(c.Output.ChartDir) == "" || strings.TrimSpace(c.Output.ExportDir) == "" {
		return fmt.Errorf("output directories must not be empty")
	}
	if !strings.EqualFold(filepath.Ext(c.Output.WorkbookName), ".xlsx") {
		return fmt.Errorf("workbook name must end with .xlsx: %q", c.Output.WorkbookName)
	}
	switch c.Viewer.Mode {
	case ViewerServe, ViewerFile, ViewerNone:
	default:
		return fmt.Errorf("unsupported viewer mode: %q", c.Viewer.Mode)
	}
	return nil
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从可执行文件同目录的 config.toml 加载配置，再应用环境变量覆盖
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return LoadFrom(filepath.Join(exeDir, "config.toml"), os.LookupEnv)
}

// LoadFrom 从指定路径加载配置；lookup 用于读取环境变量（测试中可替换）
func LoadFrom(configPath string, lookup func(string) (string, bool)) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: configPath}
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", configPath, err)
		}
		info.FromFile = true
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	applied, err := applyEnv(config, lookup)
	if err != nil {
		return nil, info, err
	}
	info.EnvApplied = applied

	if err := config.Validate(); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// applyEnv 环境变量覆盖
func applyEnv(config *AppConfig, lookup func(string) (string, bool)) ([]string, error) {
	if lookup == nil {
		return nil, nil
	}
	var applied []string
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
			applied = append(applied, key)
		}
	}

	str("DB_DRIVER", &config.Database.Driver)
	str("DB_HOST", &config.Database.Host)
	str("DB_NAME", &config.Database.Name)
	str("DB_USER", &config.Database.User)
	str("DB_SSLMODE", &config.Database.SSLMode)
	str("DB_SEED_DIR", &config.Database.SeedDir)
	if v, ok := lookup("DB_PASSWORD"); ok {
		config.Database.Password = v
		applied = append(applied, "DB_PASSWORD")
	}
	if v, ok := lookup("DB_PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT %q: %w", v, err)
		}
		config.Database.Port = port
		applied = append(applied, "DB_PORT")
	}
	str("REPORT_CHART_DIR", &config.Output.ChartDir)
	str("REPORT_EXPORT_DIR", &config.Output.ExportDir)
	str("REPORT_VIEWER_MODE", &config.Viewer.Mode)

	return applied, nil
}

// SaveConfig 保存配置到指定路径
func SaveConfig(config *AppConfig, path string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// OutputDirs 图表目录与导出目录（绝对路径）
type OutputDirs struct {
	Charts  string
	Exports string
}

// EnsureOutputDirs 确保输出目录存在；相对路径以 baseDir 为根
func EnsureOutputDirs(config *AppConfig, baseDir string) (OutputDirs, error) {
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	dirs := OutputDirs{
		Charts:  resolve(config.Output.ChartDir),
		Exports: resolve(config.Output.ExportDir),
	}
	for _, d := range []string{dirs.Charts, dirs.Exports} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return OutputDirs{}, fmt.Errorf("create output directory %s: %w", d, err)
		}
	}
	return dirs, nil
}

// WorkbookPath 工作簿完整路径
func (d OutputDirs) WorkbookPath(config *AppConfig) string {
	return filepath.Join(d.Exports, config.Output.WorkbookName)
}
