package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Auth struct {
	Key string `yaml:"key"` // generated on first start when empty
}

type Storage struct {
	DataDir     string `yaml:"dataDir"`
	Persistence bool   `yaml:"persistence"` // persist room documents to disk
	AllowDelete bool   `yaml:"allowDelete"` // allow room/file deletion over HTTP
	MaxUploadMB int64  `yaml:"maxUploadMB"`
}

type Rooms struct {
	Default string `yaml:"default"` // fallback room for unusable names
}

type Files struct {
	SearchPrefix string `yaml:"searchPrefix"` // default prefix for GET /files
}

type CORS struct {
	Enabled bool `yaml:"enabled"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // roomd
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"`
	Debug     bool   `yaml:"debug"`
}

type Config struct {
	HTTP        HTTP    `yaml:"http"`
	Auth        Auth    `yaml:"auth"`
	Storage     Storage `yaml:"storage"`
	Rooms       Rooms   `yaml:"rooms"`
	Files       Files   `yaml:"files"`
	CORS        CORS    `yaml:"cors"`
	Logging     Logging `yaml:"logging"`
	Maintenance bool    `yaml:"maintenance"`
}

// Path resolves the config file location, honoring CONFIG_PATH (and a
// local .env providing it).
func Path() string {
	_ = godotenv.Load()
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/config.yaml"
}

// Load reads the config file at Path. A missing file is not an error: a
// default config with a freshly generated auth key is written there and
// returned.
func Load() (*Config, error) {
	path := Path()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return writeDefault(path)
	}
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Default() *Config {
	cfg := &Config{
		HTTP: HTTP{Addr: ":8080"},
		Storage: Storage{
			DataDir:     "./server_data",
			Persistence: true,
			AllowDelete: true,
			MaxUploadMB: 50,
		},
		Rooms: Rooms{Default: "default"},
		CORS:  CORS{Enabled: true},
	}
	_ = cfg.validate()
	return cfg
}

func writeDefault(path string) (*Config, error) {
	cfg := Default()
	key, err := GenerateKey(16)
	if err != nil {
		return nil, err
	}
	cfg.Auth.Key = key

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "./server_data"
	}
	if c.Storage.MaxUploadMB <= 0 {
		c.Storage.MaxUploadMB = 50
	}
	if c.Rooms.Default == "" {
		c.Rooms.Default = "default"
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "roomd"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}

// MaxUploadBytes is the upload size cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Storage.MaxUploadMB << 20
}

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateKey returns a random alphanumeric auth key of length n.
func GenerateKey(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range raw {
		out[i] = keyAlphabet[int(b)%len(keyAlphabet)]
	}
	return string(out), nil
}
