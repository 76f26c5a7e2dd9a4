package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nilotpaul/meetsync/setting"
	"github.com/nilotpaul/meetsync/util"
)

const assemblyAIBaseURL = "https://api.assemblyai.com"

const (
	TranscriptQueued     = "queued"
	TranscriptProcessing = "processing"
	TranscriptCompleted  = "completed"
	TranscriptError      = "error"
)

type Transcript struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
	Error  string `json:"error,omitempty"`
}

type TranscriptConfig struct {
	APIKey      string
	BaseURL     string
	Client      *http.Client
	Interval    time.Duration
	MaxAttempts int
}

// TranscriptWaiter waits on AssemblyAI transcription jobs.
type TranscriptWaiter struct {
	cfg TranscriptConfig
}

func NewTranscriptWaiter(cfg TranscriptConfig) *TranscriptWaiter {
	if len(cfg.BaseURL) == 0 {
		cfg.BaseURL = assemblyAIBaseURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: setting.ProviderRequestTimeout}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = setting.TranscriptPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = setting.TranscriptPollMaxAttempts
	}

	return &TranscriptWaiter{cfg: cfg}
}

func (w *TranscriptWaiter) Configured() bool {
	return len(w.cfg.APIKey) != 0
}

func (w *TranscriptWaiter) Get(ctx context.Context, id string) (*Transcript, error) {
	var t Transcript
	err := callJSON(ctx, w.cfg.Client, apiRequest{
		URL:    util.TrimBaseURL(w.cfg.BaseURL) + "/v2/transcript/" + url.PathEscape(id),
		Header: map[string]string{"Authorization": w.cfg.APIKey},
	}, &t)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// Wait polls the job until it completes or fails. It gives up with
// util.ErrTimedOut after the configured number of attempts.
func (w *TranscriptWaiter) Wait(ctx context.Context, id string) (*Transcript, error) {
	return util.PollUntil(
		ctx,
		func(ctx context.Context) (*Transcript, error) {
			return w.Get(ctx, id)
		},
		func(t *Transcript) bool {
			return t.Status == TranscriptCompleted
		},
		func(t *Transcript) error {
			if t.Status == TranscriptError {
				return fmt.Errorf("transcription failed: %s", t.Error)
			}
			return nil
		},
		w.cfg.Interval,
		w.cfg.MaxAttempts,
	)
}
