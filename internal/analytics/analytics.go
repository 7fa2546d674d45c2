package analytics

import (
	"context"
	"time"

	"github.com/Mitake-ktm/Tsukihane/internal/modules/audit"
	"github.com/Mitake-ktm/Tsukihane/internal/storage"
)

type Source interface {
	ListModActions(ctx context.Context, guildID string, since time.Time) ([]storage.ModAction, error)
}

type Service struct {
	store Source
}

func New(store Source) *Service {
	return &Service{store: store}
}

type Report struct {
	Total      int            `json:"total"`
	Automatic  int            `json:"automatic"`
	ByAction   map[string]int `json:"by_action"`
	ByRule     map[string]int `json:"by_rule"`
	TopTargets map[string]int `json:"top_targets"`
}

// Report aggregates moderation actions since the given time. ByRule only
// counts automatic deletions, keyed by the rule that fired.
func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	actions, err := s.store.ListModActions(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		ByAction:   make(map[string]int),
		ByRule:     make(map[string]int),
		TopTargets: make(map[string]int),
	}
	for _, action := range actions {
		report.Total++
		report.ByAction[action.Action]++
		report.TopTargets[action.UserID]++
		if action.ModeratorID == audit.ActorSystem {
			report.Automatic++
			if action.Details != "" {
				report.ByRule[action.Details]++
			}
		}
	}
	return report, nil
}
