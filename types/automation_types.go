package types

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

type ActionItem struct {
	Text      string `json:"text"`
	Assignee  string `json:"assignee,omitempty"`
	Completed bool   `json:"completed,omitempty"`
}

// MeetingArtifact is owned by the meetings side and read only here.
type MeetingArtifact struct {
	ID          string                `json:"id" validate:"required"`
	Title       string                `json:"title"`
	Notes       string                `json:"notes"`
	ActionItems map[string]ActionItem `json:"actionItems"`
	Tags        []string              `json:"tags"`
	Timestamp   time.Time             `json:"timestamp"`
}

type AutomationStep struct {
	Type   string         `json:"type" validate:"required"`
	Config map[string]any `json:"config"`
}

type Automation struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Name      string           `json:"name" validate:"required"`
	Enabled   bool             `json:"enabled"`
	Tags      []string         `json:"tags"`
	Steps     []AutomationStep `json:"steps" validate:"dive"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Clone returns a copy sharing no slices or maps with a. Step configs decoded
// from JSON are copied through their nested maps and slices.
func (a *Automation) Clone() *Automation {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Tags != nil {
		cp.Tags = append([]string(nil), a.Tags...)
	}
	if a.Steps != nil {
		cp.Steps = make([]AutomationStep, len(a.Steps))
		for i, s := range a.Steps {
			cp.Steps[i] = AutomationStep{Type: s.Type}
			if s.Config != nil {
				cp.Steps[i].Config = cloneValue(s.Config).(map[string]any)
			}
		}
	}
	return &cp
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

type AutomationStore interface {
	Create(ctx context.Context, a *Automation) error
	List(ctx context.Context, userID string) ([]*Automation, error)
}

type ActionInput struct {
	Meeting *MeetingArtifact
	Config  map[string]any
}

func (in ActionInput) ConfigString(key string) string {
	v, ok := in.Config[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

type ActionResult struct {
	Success    bool   `json:"success"`
	Reason     string `json:"reason,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
	URL        string `json:"url,omitempty"`
}

func ActionFailed(format string, args ...any) ActionResult {
	return ActionResult{Success: false, Reason: fmt.Sprintf(format, args...)}
}

type StepStatus string

const (
	StepSkip    StepStatus = "skip"
	StepSuccess StepStatus = "success"
	StepError   StepStatus = "error"
)

type StepResult struct {
	AutomationID string     `json:"automationId"`
	Index        int        `json:"index"`
	Type         string     `json:"type"`
	Status       StepStatus `json:"status"`
	Reason       string     `json:"reason,omitempty"`
	ExternalID   string     `json:"externalId,omitempty"`
	URL          string     `json:"url,omitempty"`
}

type AutomationResult struct {
	AutomationID string       `json:"automationId"`
	Name         string       `json:"name"`
	Status       StepStatus   `json:"status"`
	Reason       string       `json:"reason,omitempty"`
	Steps        []StepResult `json:"steps,omitempty"`
}

type DispatchReport struct {
	Status  int                `json:"status"`
	Results []AutomationResult `json:"results"`
}

type DispatchHRBody struct {
	Meeting       MeetingArtifact `json:"meeting"`
	AutomationIDs []string        `json:"automationIds"`
}
