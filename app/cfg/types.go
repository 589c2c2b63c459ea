package cfg

import "time"

const (
	CommandServe = "serve"
	CommandCrawl = "crawl"

	CrawlModeInProcess  = "inprocess"
	CrawlModeSubprocess = "subprocess"
)

type Cfg struct {
	// Storage
	DBPath       string
	TaxonomyFile string
	ChartDir     string
	RedisAddr    string
	TaskTTL      time.Duration

	// Server
	Port            string
	APIAccessKey    string
	WorkerCount     int
	RefreshInterval time.Duration

	// Crawler
	SourceURL        string
	UserAgent        string
	RequestDelay     time.Duration
	CrawlConcurrency int
	CrawlTimeout     time.Duration
	CrawlMode        string
	MaxPages         int

	// LLM
	LLMProvider     string
	LLMModel        string
	LLMBaseURL      string
	AnthropicAPIKey string
	OpenAIAPIKey    string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string

	// Command is the selected sub-command; Crawl is set for CommandCrawl.
	Command string
	Crawl   CrawlOptions
}

type CrawlOptions struct {
	Incremental bool
	RefsFile    string
	StartPage   int
	Count       int
	Start       *time.Time
	End         *time.Time
}
