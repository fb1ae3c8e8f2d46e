package constants

import "time"

var ScrapeConfig = struct {
	DelayMin         time.Duration
	DelayMax         time.Duration
	Timeout          time.Duration
	MaxBody          int64
	BreakerThreshold int
	BreakerReset     time.Duration
}{
	DelayMin:         5 * time.Second,  // courtesy delay lower bound
	DelayMax:         15 * time.Second, // courtesy delay upper bound
	Timeout:          20 * time.Second, // per request
	MaxBody:          8 << 20,          // 8 MiB
	BreakerThreshold: 5,
	BreakerReset:     time.Minute,
}

// UserAgents is the pool a fetcher picks its client identity from.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
}

var CacheTTL = struct {
	Page time.Duration
}{
	Page: 12 * time.Hour, // scraped wiki pages
}

var CacheKeys = struct {
	PagePrefix string
}{
	PagePrefix: "etl:page:",
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
}{
	ReadyTimeout: 5 * time.Second,
}

var DatabaseConfig = struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}{
	MaxOpenConns:    10,
	MaxIdleConns:    5,
	ConnMaxLifetime: 30 * time.Minute,
	PingTimeout:     5 * time.Second,
}

// RetryConfig mirrors the scheduler policy: two retries five minutes apart.
var RetryConfig = struct {
	MaxRetries int
	Delay      time.Duration
}{
	MaxRetries: 2,
	Delay:      5 * time.Minute,
}

var ConsoleConfig = struct {
	QueryTimeout   time.Duration
	MaxRows        int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}{
	QueryTimeout:   30 * time.Second,
	MaxRows:        1000,
	ReadTimeout:    10 * time.Second,
	WriteTimeout:   10 * time.Second,
	MaxMessageSize: 64 << 10,
}
