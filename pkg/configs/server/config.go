// Package server is the configuration of the API server, fairtraced.
//
// To get a ServerConfig, use Load or Unmarshal.
package server

import (
	"github.com/fairtrace/fairtrace/pkg/configs/internal/seal"
)

type ServerConfig struct {
	port     int32
	database string
	auth     *AuthConfig
	reports  *ReportsConfig
	public   *PublicConfig
}

func (c *ServerConfig) Port() int32 {
	return c.port
}

// Connection string for database.
func (c *ServerConfig) Database() string {
	return c.database
}

func (c *ServerConfig) Auth() *AuthConfig {
	return c.auth
}

func (c *ServerConfig) Reports() *ReportsConfig {
	return c.reports
}

func (c *ServerConfig) Public() *PublicConfig {
	return c.public
}

type AuthConfig struct {
	secret string
	issuer string
}

// Secret to sign and verify tokens (HS256).
func (a *AuthConfig) Secret() []byte {
	return []byte(a.secret)
}

// Issuer of tokens. default = "fairtrace"
func (a *AuthConfig) Issuer() string {
	return a.issuer
}

type ReportsConfig struct {
	directory string
}

// Directory where report files are generated.
func (r *ReportsConfig) Directory() string {
	return r.directory
}

type PublicConfig struct {
	baseURL string
}

// URL of the consumer interface, to be printed in QR codes.
func (p *PublicConfig) BaseURL() string {
	return p.baseURL
}

// ServerConfigMarshall is the YAML form of ServerConfig.
type ServerConfigMarshall struct {
	Port     int32                  `yaml:"port"`
	Database string                 `yaml:"database"`
	Auth     *AuthConfigMarshall    `yaml:"auth"`
	Reports  *ReportsConfigMarshall `yaml:"reports"`
	Public   *PublicConfigMarshall  `yaml:"public,omitempty"`
}

var _ seal.Marshalled[*ServerConfig] = &ServerConfigMarshall{}

func (m *ServerConfigMarshall) TrySeal(path string) *ServerConfig {
	public := m.Public
	if public == nil {
		public = &PublicConfigMarshall{}
	}
	return &ServerConfig{
		port:     seal.OrDefault(m.Port, 8080),
		database: seal.Required(m.Database, path+".database"),
		auth:     seal.NonNil(m.Auth, path+".auth").TrySeal(path + ".auth"),
		reports:  seal.NonNil(m.Reports, path+".reports").TrySeal(path + ".reports"),
		public:   public.TrySeal(path + ".public"),
	}
}

type AuthConfigMarshall struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer,omitempty"`
}

func (m *AuthConfigMarshall) TrySeal(path string) *AuthConfig {
	return &AuthConfig{
		secret: seal.Required(m.Secret, path+".secret"),
		issuer: seal.OrDefault(m.Issuer, "fairtrace"),
	}
}

type ReportsConfigMarshall struct {
	Directory string `yaml:"directory"`
}

func (m *ReportsConfigMarshall) TrySeal(path string) *ReportsConfig {
	return &ReportsConfig{
		directory: seal.Required(m.Directory, path+".directory"),
	}
}

type PublicConfigMarshall struct {
	BaseURL string `yaml:"baseURL"`
}

func (m *PublicConfigMarshall) TrySeal(path string) *PublicConfig {
	return &PublicConfig{baseURL: m.BaseURL}
}

// Load reads the server config from a YAML file.
func Load(filepath string) (*ServerConfig, error) {
	return seal.Load[ServerConfigMarshall, *ServerConfig](filepath)
}

func Unmarshal(content []byte) (*ServerConfig, error) {
	return seal.Unmarshal[ServerConfigMarshall, *ServerConfig](content)
}
