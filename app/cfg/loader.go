package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath       string `long:"db-path" env:"DB_PATH" default:"./data/complaints.db" description:"Path of the sqlite database file"`
	TaxonomyFile string `long:"taxonomy-file" env:"TAXONOMY_FILE" description:"YAML file overriding the built-in category and reason lists"`
	ChartDir     string `long:"chart-dir" env:"CHART_DIR" default:"./data/charts" description:"Directory for rendered chart images"`
	RedisAddr    string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for task results (in-memory store when empty)"`
	TaskTTL      int    `long:"task-ttl" env:"TASK_TTL" default:"3600" description:"Lifetime of task results in seconds"`

	// Server configuration
	Port            string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey    string `long:"api-key" env:"API_KEY" description:"API access key for the /api endpoints (optional)"`
	WorkerCount     int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	RefreshInterval int    `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"0" description:"Background refresh interval in seconds (0 disables)"`

	// Crawler configuration
	SourceURL        string `long:"source-url" env:"SOURCE_URL" default:"https://www.sikayetvar.com/vestel" description:"Complaint listing URL"`
	UserAgent        string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36" description:"User agent string for HTTP requests"`
	RequestDelayMs   int    `long:"request-delay-ms" env:"REQUEST_DELAY_MS" default:"500" description:"Minimum delay between requests in milliseconds"`
	CrawlConcurrency int    `long:"crawl-concurrency" env:"CRAWL_CONCURRENCY" default:"4" description:"Concurrent detail page fetches"`
	CrawlTimeout     int    `long:"crawl-timeout" env:"CRAWL_TIMEOUT" default:"300" description:"Refresh time limit in seconds"`
	CrawlMode        string `long:"crawl-mode" env:"CRAWL_MODE" default:"inprocess" choice:"inprocess" choice:"subprocess" description:"Run refresh crawls in this process or in a child process"`
	MaxPages         int    `long:"max-pages" env:"MAX_PAGES" default:"0" description:"Stop a crawl after this many listing pages (0 = no limit)"`

	// LLM configuration
	LLMProvider     string `long:"llm-provider" env:"LLM_PROVIDER" default:"anthropic" choice:"anthropic" choice:"openai" description:"LLM provider"`
	LLMModel        string `long:"llm-model" env:"LLM_MODEL" description:"Model name (provider default when empty)"`
	LLMBaseURL      string `long:"llm-base-url" env:"LLM_BASE_URL" description:"Override the provider API base URL"`
	AnthropicAPIKey string `long:"anthropic-api-key" env:"ANTHROPIC_API_KEY" description:"Anthropic API key"`
	OpenAIAPIKey    string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"Europe/Istanbul" description:"Timezone for timestamps (e.g., UTC, Europe/Istanbul)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Serve serveCmd `command:"serve" description:"Run the web server (default)"`
	Crawl crawlCmd `command:"crawl" description:"Run one crawl and print progress markers"`
}

type serveCmd struct{}

type crawlCmd struct {
	Incremental bool   `long:"incremental" description:"Stop at the first already known complaint"`
	RefsFile    string `long:"refs-file" description:"File with known reference URLs, one per line (database when empty)"`
	StartPage   int    `long:"start-page" default:"1" description:"First listing page"`
	Count       int    `long:"count" description:"Stop after collecting this many new complaints"`
	DateRange   string `long:"date-range" description:"Only collect complaints in YYYY-MM-DD,YYYY-MM-DD"`
}

var globalCfg *Cfg

// Load parses the process arguments and environment.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses args and the environment. It returns nil, nil when help was
// requested.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	parser.SubcommandsOptional = true

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:           raw.DBPath,
		TaxonomyFile:     raw.TaxonomyFile,
		ChartDir:         raw.ChartDir,
		RedisAddr:        raw.RedisAddr,
		TaskTTL:          time.Duration(raw.TaskTTL) * time.Second,
		Port:             raw.Port,
		APIAccessKey:     raw.APIAccessKey,
		WorkerCount:      raw.WorkerCount,
		RefreshInterval:  time.Duration(raw.RefreshInterval) * time.Second,
		SourceURL:        raw.SourceURL,
		UserAgent:        raw.UserAgent,
		RequestDelay:     time.Duration(raw.RequestDelayMs) * time.Millisecond,
		CrawlConcurrency: raw.CrawlConcurrency,
		CrawlTimeout:     time.Duration(raw.CrawlTimeout) * time.Second,
		CrawlMode:        raw.CrawlMode,
		MaxPages:         raw.MaxPages,
		LLMProvider:      raw.LLMProvider,
		LLMModel:         raw.LLMModel,
		LLMBaseURL:       raw.LLMBaseURL,
		AnthropicAPIKey:  raw.AnthropicAPIKey,
		OpenAIAPIKey:     raw.OpenAIAPIKey,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
		Command:          CommandServe,
	}

	if parser.Active != nil {
		cfg.Command = parser.Active.Name
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	if cfg.Command == CommandCrawl {
		crawl, err := crawlOptions(raw.Crawl)
		if err != nil {
			return nil, err
		}
		cfg.Crawl = crawl
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", cfg.WorkerCount)
	}
	if cfg.CrawlConcurrency < 1 {
		return fmt.Errorf("crawl concurrency must be at least 1, got %d", cfg.CrawlConcurrency)
	}
	if cfg.CrawlTimeout <= 0 {
		return fmt.Errorf("crawl timeout must be positive")
	}
	if cfg.RequestDelay < 0 || cfg.MaxPages < 0 || cfg.RefreshInterval < 0 {
		return fmt.Errorf("request delay, max pages and refresh interval must not be negative")
	}
	return nil
}

func crawlOptions(raw crawlCmd) (CrawlOptions, error) {
	opts := CrawlOptions{
		Incremental: raw.Incremental,
		RefsFile:    raw.RefsFile,
		StartPage:   raw.StartPage,
		Count:       raw.Count,
	}

	if opts.StartPage < 1 {
		return opts, fmt.Errorf("start page must be at least 1, got %d", opts.StartPage)
	}
	if opts.Count < 0 {
		return opts, fmt.Errorf("count must not be negative, got %d", opts.Count)
	}

	if raw.DateRange != "" {
		start, end, err := parseDateRange(raw.DateRange)
		if err != nil {
			return opts, err
		}
		opts.Start, opts.End = &start, &end
	}

	return opts, nil
}

// parseDateRange reads "YYYY-MM-DD,YYYY-MM-DD" in local time.
func parseDateRange(value string) (time.Time, time.Time, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date range %q: expected START,END", value)
	}

	start, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(parts[0]), time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date range start: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(parts[1]), time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date range end: %w", err)
	}

	if end.Before(start) {
		start, end = end, start
	}

	return start, end, nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
