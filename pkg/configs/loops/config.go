// Package loops is the configuration of background loops.
//
// Sections other than database are optional. Each loop requires sections it uses.
package loops

import (
	"time"

	"github.com/fairtrace/fairtrace/pkg/configs/internal/seal"
	"github.com/fairtrace/fairtrace/pkg/utils/retry"
)

type LoopsConfig struct {
	database string
	redis    *RedisConfig
	rabbitmq *RabbitMQConfig
	guardian *GatewayConfig
	notary   *NotaryConfig
	sms      *GatewayConfig
	reports  *ReportsConfig
	retry    retry.Policy
}

// Connection string for database.
func (c *LoopsConfig) Database() string {
	return c.database
}

// nil when not configured.
func (c *LoopsConfig) Redis() *RedisConfig {
	return c.redis
}

// nil when not configured.
func (c *LoopsConfig) RabbitMQ() *RabbitMQConfig {
	return c.rabbitmq
}

// nil when not configured.
func (c *LoopsConfig) Guardian() *GatewayConfig {
	return c.guardian
}

// nil when not configured.
func (c *LoopsConfig) Notary() *NotaryConfig {
	return c.notary
}

// nil when not configured.
func (c *LoopsConfig) SMS() *GatewayConfig {
	return c.sms
}

// nil when not configured.
func (c *LoopsConfig) Reports() *ReportsConfig {
	return c.reports
}

// Retry policy of deliveries to external services.
func (c *LoopsConfig) Retry() retry.Policy {
	return c.retry
}

type RedisConfig struct {
	address string
}

func (r *RedisConfig) Address() string {
	return r.address
}

type RabbitMQConfig struct {
	url      string
	exchange string
	queue    string
}

func (r *RabbitMQConfig) URL() string {
	return r.url
}

// default = "fairtrace.notify"
func (r *RabbitMQConfig) Exchange() string {
	return r.exchange
}

// default = "fairtrace.notify"
func (r *RabbitMQConfig) Queue() string {
	return r.queue
}

type GatewayConfig struct {
	endpoint string
	token    string
}

func (g *GatewayConfig) Endpoint() string {
	return g.endpoint
}

func (g *GatewayConfig) Token() string {
	return g.token
}

type NotaryConfig struct {
	GatewayConfig
	topic string
}

// Topic of the consensus service where transactions are recorded.
func (n *NotaryConfig) Topic() string {
	return n.topic
}

type ReportsConfig struct {
	directory string
}

func (r *ReportsConfig) Directory() string {
	return r.directory
}

type LoopsConfigMarshall struct {
	Database string                  `yaml:"database"`
	Redis    *RedisConfigMarshall    `yaml:"redis,omitempty"`
	RabbitMQ *RabbitMQConfigMarshall `yaml:"rabbitmq,omitempty"`
	Guardian *GatewayConfigMarshall  `yaml:"guardian,omitempty"`
	Notary   *NotaryConfigMarshall   `yaml:"notary,omitempty"`
	SMS      *GatewayConfigMarshall  `yaml:"sms,omitempty"`
	Reports  *ReportsConfigMarshall  `yaml:"reports,omitempty"`
	Retry    *RetryConfigMarshall    `yaml:"retry,omitempty"`
}

var _ seal.Marshalled[*LoopsConfig] = &LoopsConfigMarshall{}

func (m *LoopsConfigMarshall) TrySeal(path string) *LoopsConfig {
	c := &LoopsConfig{
		database: seal.Required(m.Database, path+".database"),
	}
	if m.Redis != nil {
		c.redis = m.Redis.TrySeal(path + ".redis")
	}
	if m.RabbitMQ != nil {
		c.rabbitmq = m.RabbitMQ.TrySeal(path + ".rabbitmq")
	}
	if m.Guardian != nil {
		c.guardian = m.Guardian.TrySeal(path + ".guardian")
	}
	if m.Notary != nil {
		c.notary = m.Notary.TrySeal(path + ".notary")
	}
	if m.SMS != nil {
		c.sms = m.SMS.TrySeal(path + ".sms")
	}
	if m.Reports != nil {
		c.reports = m.Reports.TrySeal(path + ".reports")
	}

	r := m.Retry
	if r == nil {
		r = &RetryConfigMarshall{}
	}
	c.retry = r.trySeal(path + ".retry")
	return c
}

type RedisConfigMarshall struct {
	Address string `yaml:"address"`
}

func (m *RedisConfigMarshall) TrySeal(path string) *RedisConfig {
	return &RedisConfig{address: seal.Required(m.Address, path+".address")}
}

type RabbitMQConfigMarshall struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange,omitempty"`
	Queue    string `yaml:"queue,omitempty"`
}

func (m *RabbitMQConfigMarshall) TrySeal(path string) *RabbitMQConfig {
	return &RabbitMQConfig{
		url:      seal.Required(m.URL, path+".url"),
		exchange: seal.OrDefault(m.Exchange, "fairtrace.notify"),
		queue:    seal.OrDefault(m.Queue, "fairtrace.notify"),
	}
}

type GatewayConfigMarshall struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
}

func (m *GatewayConfigMarshall) TrySeal(path string) *GatewayConfig {
	return &GatewayConfig{
		endpoint: seal.Required(m.Endpoint, path+".endpoint"),
		token:    m.Token,
	}
}

type NotaryConfigMarshall struct {
	GatewayConfigMarshall `yaml:",inline"`
	Topic                 string `yaml:"topic"`
}

func (m *NotaryConfigMarshall) TrySeal(path string) *NotaryConfig {
	return &NotaryConfig{
		GatewayConfig: *m.GatewayConfigMarshall.TrySeal(path),
		topic:         seal.Required(m.Topic, path+".topic"),
	}
}

type ReportsConfigMarshall struct {
	Directory string `yaml:"directory"`
}

func (m *ReportsConfigMarshall) TrySeal(path string) *ReportsConfig {
	return &ReportsConfig{directory: seal.Required(m.Directory, path+".directory")}
}

type RetryConfigMarshall struct {
	Base     string `yaml:"base,omitempty"`
	Max      string `yaml:"max,omitempty"`
	Attempts int    `yaml:"attempts,omitempty"`
}

func (m *RetryConfigMarshall) trySeal(path string) retry.Policy {
	return retry.Policy{
		Base:     seal.Duration(m.Base, 5*time.Second, path+".base"),
		Max:      seal.Duration(m.Max, 30*time.Minute, path+".max"),
		Attempts: seal.OrDefault(m.Attempts, 10),
	}
}

// Load reads the loops config from a YAML file.
func Load(filepath string) (*LoopsConfig, error) {
	return seal.Load[LoopsConfigMarshall, *LoopsConfig](filepath)
}

func Unmarshal(content []byte) (*LoopsConfig, error) {
	return seal.Unmarshal[LoopsConfigMarshall, *LoopsConfig](content)
}
