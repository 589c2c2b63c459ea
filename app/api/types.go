package api

import (
	"time"

	"github.com/lysyi3m/complaint-comb/app/cache"
	"github.com/lysyi3m/complaint-comb/app/database"
	"github.com/lysyi3m/complaint-comb/app/tasks"
)

type Handler struct {
	complaints database.ComplaintStore
	results    cache.Store
	scheduler  tasks.TaskSchedulerInterface
	processor  tasks.Processor
	taskTTL    time.Duration
	version    string
}

type analyzeRequest struct {
	Prompt string `json:"prompt"`
}
