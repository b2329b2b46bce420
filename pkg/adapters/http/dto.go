package http

import (
	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/hierarchy"
)

// StepView describes one step of the wizard.
type StepView struct {
	ID    string             `json:"id"`
	Title string             `json:"title,omitempty"`
	Kind  domain.PayloadKind `json:"kind"`
}

// SessionView is the JSON form of a session.
type SessionView struct {
	SessionKey   string               `json:"session_key"`
	Status       domain.SessionStatus `json:"status"`
	CurrentIndex int                  `json:"current_index"`
	CurrentStep  string               `json:"current_step"`
	Steps        []StepView           `json:"steps"`
	Payloads     domain.Payloads      `json:"payloads"`
	Error        *domain.StepError    `json:"error,omitempty"`
	Loading      bool                 `json:"loading"`
}

// GroupView is one parent group of options.
type GroupView struct {
	ParentID string          `json:"parent_id"`
	Items    []domain.Item   `json:"items"`
	Stats    hierarchy.Stats `json:"stats"`
}

// OptionsView is the JSON form of a step's options.
type OptionsView struct {
	StepID  string      `json:"step_id"`
	Level   string      `json:"level,omitempty"`
	Parents []string    `json:"parents"`
	Groups  []GroupView `json:"groups"`
}

// ErrorView is returned for failed requests.
type ErrorView struct {
	Error    string          `json:"error"`
	Severity domain.Severity `json:"severity,omitempty"`
	Session  *SessionView    `json:"session,omitempty"`
}

func toSessionView(s *domain.Session) SessionView {
	v := SessionView{
		SessionKey:   s.Key,
		Status:       s.Status,
		CurrentIndex: s.CurrentIndex,
		CurrentStep:  s.Current().ID,
		Steps:        make([]StepView, len(s.Steps)),
		Payloads:     s.Payloads,
		Error:        s.TransientError,
		Loading:      s.Loading,
	}
	for i, step := range s.Steps {
		v.Steps[i] = StepView{ID: step.ID, Title: step.Title, Kind: step.Kind}
	}
	return v
}

func toOptionsView(data stepwise.StepData, selected domain.Selection) OptionsView {
	v := OptionsView{
		StepID:  data.StepID,
		Parents: data.Parents.IDs(),
		Groups:  []GroupView{},
	}
	if !data.HasOptions() {
		return v
	}
	v.Level = data.Level.String()
	stats := data.Groups.Stats(selected)
	for _, key := range data.Groups.Keys() {
		v.Groups = append(v.Groups, GroupView{
			ParentID: key,
			Items:    data.Groups[key],
			Stats:    stats[key],
		})
	}
	return v
}
