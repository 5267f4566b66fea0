package config

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port" default:"8080"`
		Host         string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
		IdleTimeout  time.Duration `yaml:"idle_timeout" default:"60s"`
	} `yaml:"server"`

	Jobs struct {
		MaxConcurrentJobs    int           `yaml:"max_concurrent_jobs" default:"10"`
		QueueSize            int           `yaml:"queue_size" default:"100"`
		JobTimeout           time.Duration `yaml:"job_timeout" default:"30m"`
		CleanupInterval      time.Duration `yaml:"cleanup_interval" default:"1h"`
		MaxJobAge            time.Duration `yaml:"max_job_age" default:"24h"`
		SiteConcurrencyLimit int           `yaml:"site_concurrency_limit" default:"8"`
		AcquisitionTimeout   time.Duration `yaml:"acquisition_timeout" default:"30s"`
	} `yaml:"jobs"`

	Search struct {
		Provider        string        `yaml:"provider" default:"duckduckgo"`
		ResultsPerQuery int           `yaml:"results_per_query" default:"20"`
		RequestTimeout  time.Duration `yaml:"request_timeout" default:"20s"`
		MaxRetries      int           `yaml:"max_retries" default:"3"`
		InitialBackoff  time.Duration `yaml:"initial_backoff" default:"2s"`
		MaxBackoff      time.Duration `yaml:"max_backoff" default:"60s"`
		BlockThreshold  int           `yaml:"block_threshold" default:"3"`
	} `yaml:"search"`

	Scraper struct {
		UserAgent      string        `yaml:"user_agent"`
		MaxRetries     int           `yaml:"max_retries" default:"2"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"20s"`
		HeadlessMode   bool          `yaml:"headless_mode" default:"true"`
		StealthMode    bool          `yaml:"stealth_mode" default:"true"`
		FetchEngine    string        `yaml:"fetch_engine" default:"direct"`
		Captcha        struct {
			Provider        string        `yaml:"provider" default:"2captcha"`
			APIKey          string        `yaml:"api_key"`
			Timeout         time.Duration `yaml:"timeout" default:"120s"`
			EnableAutoSolve bool          `yaml:"enable_auto_solve" default:"false"`
		} `yaml:"captcha"`
	} `yaml:"scraper"`

	BrowserPool struct {
		MaxInstances       int           `yaml:"max_instances" default:"5"`
		MaxIdleTime        time.Duration `yaml:"max_idle_time" default:"5m"`
		AcquisitionTimeout time.Duration `yaml:"acquisition_timeout" default:"30s"`
		CleanupInterval    time.Duration `yaml:"cleanup_interval" default:"5m"`
	} `yaml:"browser_pool"`

	Firecrawl struct {
		APIKey     string        `yaml:"api_key"`
		APIURL     string        `yaml:"api_url" default:"https://api.firecrawl.dev"`
		Version    string        `yaml:"version" default:"v1"`
		Timeout    time.Duration `yaml:"timeout" default:"60s"`
		MaxRetries int           `yaml:"max_retries" default:"3"`
		Formats    []string      `yaml:"formats" default:"markdown"`
	} `yaml:"firecrawl"`

	BrightData struct {
		APIKey     string        `yaml:"api_key"`
		BaseURL    string        `yaml:"base_url" default:"https://api.brightdata.com"`
		Zone       string        `yaml:"zone"`
		Timeout    time.Duration `yaml:"timeout" default:"60s"`
		MaxRetries int           `yaml:"max_retries" default:"3"`
	} `yaml:"brightdata"`

	Email struct {
		DisposableDomainsPath string        `yaml:"disposable_domains_path"`
		MXLookupTimeout       time.Duration `yaml:"mx_lookup_timeout" default:"5s"`
		SMTPProbe             bool          `yaml:"smtp_probe" default:"false"`
		SMTPProbeTimeout      time.Duration `yaml:"smtp_probe_timeout" default:"8s"`
	} `yaml:"email"`

	Sectors struct {
		ConfigPath string `yaml:"config_path" default:"./config/sectors.json"`
		HotReload  bool   `yaml:"hot_reload" default:"true"`
	} `yaml:"sectors"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`

		Adapters []struct {
			Name    string                 `yaml:"name"`
			Type    string                 `yaml:"type"`
			Enabled bool                   `yaml:"enabled"`
			Options map[string]interface{} `yaml:"options"`
		} `yaml:"adapters"`
	} `yaml:"logging"`

	Redis struct {
		URL      string        `yaml:"url" default:"redis://localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" default:"0"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"redis"`

	SessionStore struct {
		Backend string        `yaml:"backend" default:"memory"` // memory or redis
		TTL     time.Duration `yaml:"ttl" default:"24h"`
	} `yaml:"session_store"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{}

	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second

	config.Jobs.MaxConcurrentJobs = 10
	config.Jobs.QueueSize = 100
	config.Jobs.JobTimeout = 30 * time.Minute
	config.Jobs.CleanupInterval = time.Hour
	config.Jobs.MaxJobAge = 24 * time.Hour
	config.Jobs.SiteConcurrencyLimit = 8
	config.Jobs.AcquisitionTimeout = 30 * time.Second

	config.Search.Provider = "duckduckgo"
	config.Search.ResultsPerQuery = 20
	config.Search.RequestTimeout = 20 * time.Second
	config.Search.MaxRetries = 3
	config.Search.InitialBackoff = 2 * time.Second
	config.Search.MaxBackoff = 60 * time.Second
	config.Search.BlockThreshold = 3

	config.Scraper.MaxRetries = 2
	config.Scraper.RequestTimeout = 20 * time.Second
	config.Scraper.HeadlessMode = true
	config.Scraper.StealthMode = true
	config.Scraper.FetchEngine = "direct"
	config.Scraper.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	config.Scraper.Captcha.Provider = "2captcha"
	config.Scraper.Captcha.Timeout = 120 * time.Second
	config.Scraper.Captcha.EnableAutoSolve = false

	config.BrowserPool.MaxInstances = 5
	config.BrowserPool.MaxIdleTime = 5 * time.Minute
	config.BrowserPool.AcquisitionTimeout = 30 * time.Second
	config.BrowserPool.CleanupInterval = 5 * time.Minute

	config.Firecrawl.APIURL = "https://api.firecrawl.dev"
	config.Firecrawl.Version = "v1"
	config.Firecrawl.MaxRetries = 3
	config.Firecrawl.Timeout = 60 * time.Second
	config.Firecrawl.Formats = []string{"markdown"}

	config.BrightData.BaseURL = "https://api.brightdata.com"
	config.BrightData.MaxRetries = 3
	config.BrightData.Timeout = 60 * time.Second

	config.Email.MXLookupTimeout = 5 * time.Second
	config.Email.SMTPProbe = false
	config.Email.SMTPProbeTimeout = 8 * time.Second

	config.Sectors.ConfigPath = "./config/sectors.json"
	config.Sectors.HotReload = true

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Output = "stdout"

	config.Redis.URL = "redis://localhost:6379"
	config.Redis.DB = 0
	config.Redis.Timeout = 5 * time.Second

	config.SessionStore.Backend = "memory"
	config.SessionStore.TTL = 24 * time.Hour

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	config.loadFromEnv()

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if captchaAPIKey := os.Getenv("CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Scraper.Captcha.APIKey = captchaAPIKey
	}

	if captchaAPIKey := os.Getenv("2CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Scraper.Captcha.APIKey = captchaAPIKey
	}

	if fetchEngine := os.Getenv("FETCH_ENGINE"); fetchEngine != "" {
		c.Scraper.FetchEngine = fetchEngine
	}

	if firecrawlAPIKey := os.Getenv("FIRECRAWL_API_KEY"); firecrawlAPIKey != "" {
		c.Firecrawl.APIKey = firecrawlAPIKey
	}

	if firecrawlAPIURL := os.Getenv("FIRECRAWL_API_URL"); firecrawlAPIURL != "" {
		c.Firecrawl.APIURL = firecrawlAPIURL
	}

	if brightdataAPIKey := os.Getenv("BRIGHTDATA_API_KEY"); brightdataAPIKey != "" {
		c.BrightData.APIKey = brightdataAPIKey
	}

	if brightdataZone := os.Getenv("BRIGHTDATA_ZONE"); brightdataZone != "" {
		c.BrightData.Zone = brightdataZone
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if sessionBackend := os.Getenv("SESSION_STORE_BACKEND"); sessionBackend != "" {
		c.SessionStore.Backend = sessionBackend
	}

	if sectorsPath := os.Getenv("SECTORS_CONFIG_PATH"); sectorsPath != "" {
		c.Sectors.ConfigPath = sectorsPath
	}

	if maxConcurrent := os.Getenv("JOBS_MAX_CONCURRENT"); maxConcurrent != "" {
		if n, err := strconv.Atoi(maxConcurrent); err == nil {
			c.Jobs.MaxConcurrentJobs = n
		}
	}

	if siteLimit := os.Getenv("JOBS_SITE_CONCURRENCY_LIMIT"); siteLimit != "" {
		if n, err := strconv.Atoi(siteLimit); err == nil {
			c.Jobs.SiteConcurrencyLimit = n
		}
	}

	if maxInstances := os.Getenv("BROWSER_POOL_MAX_INSTANCES"); maxInstances != "" {
		if instances, err := strconv.Atoi(maxInstances); err == nil {
			c.BrowserPool.MaxInstances = instances
		}
	}

	if smtpProbe := os.Getenv("EMAIL_SMTP_PROBE"); smtpProbe != "" {
		c.Email.SMTPProbe = smtpProbe == "true" || smtpProbe == "1"
	}
}
