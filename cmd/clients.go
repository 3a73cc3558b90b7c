package main

import (
	"time"

	"github.com/sells-group/rankgrid/internal/job"
	"github.com/sells-group/rankgrid/pkg/dataforseo"
	"github.com/sells-group/rankgrid/pkg/places"
)

func initProvider() (dataforseo.Client, error) {
	if err := cfg.Validate("run"); err != nil {
		return nil, err
	}
	opts := []dataforseo.Option{
		dataforseo.WithRateLimit(cfg.DataForSEO.RatePerSec, int(cfg.DataForSEO.RatePerSec)),
	}
	if cfg.DataForSEO.BaseURL != "" {
		opts = append(opts, dataforseo.WithBaseURL(cfg.DataForSEO.BaseURL))
	}
	return dataforseo.NewClient(cfg.DataForSEO.Login, cfg.DataForSEO.Password, opts...)
}

func initPlaces() (places.Client, error) {
	if err := cfg.Validate("resolve"); err != nil {
		return nil, err
	}
	return places.NewClient(cfg.Places.Key)
}

func submitDefaults() job.SubmitOptions {
	return job.SubmitOptions{
		LanguageCode: cfg.DataForSEO.LanguageCode,
		Device:       cfg.DataForSEO.Device,
		Depth:        cfg.DataForSEO.Depth,
		Zoom:         cfg.Grid.Zoom,
	}
}

func coordinatorDefaults() job.CoordinatorConfig {
	return job.CoordinatorConfig{
		Interval:        time.Duration(cfg.Poll.IntervalMS) * time.Millisecond,
		ErrorInterval:   time.Duration(cfg.Poll.ErrorIntervalMS) * time.Millisecond,
		MaxPollAttempts: cfg.Poll.MaxAttempts,
	}
}
