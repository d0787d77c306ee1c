package deletion

import (
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/models"
	"github.com/shopspring/decimal"
)

// MaxDisplayItems caps how many dependent rows a group carries for display.
// Counts and financial impact always reflect every row, displayed or not.
const MaxDisplayItems = 25

// Severity thresholds. Tuned for garage-scale businesses; blockers always
// escalate to high.
var (
	severityHighImpact   = decimal.NewFromInt(100000)
	severityMediumImpact = decimal.NewFromInt(10000)
)

const (
	severityHighCount   = 50
	severityMediumCount = 10
)

// MainRecordInfo is a display snapshot of the record under analysis.
// It is not authoritative data; executors always reload live state.
type MainRecordInfo struct {
	Label     string          `json:"label"`
	Reference string          `json:"reference"`
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Note      string          `json:"note,omitempty"`
}

// DependencyAction is a cascading sub-operation offered on a dependent row.
type DependencyAction struct {
	Label    string            `json:"label"`
	Entity   models.EntityType `json:"entity"`
	RecordId int               `json:"record_id"`
	Operation models.Operation `json:"operation"`
	// Enabled is false when the target entity/id is missing - an action is
	// never advertised as available when it cannot execute.
	Enabled bool `json:"enabled"`
	// RequireBeforeParent blocks the parent operation until this action has
	// been resolved.
	RequireBeforeParent bool   `json:"require_before_parent"`
	Resolved            bool   `json:"resolved"`
	Hint                string `json:"hint,omitempty"`
}

// Item is one dependent record's display row.
type Item struct {
	Reference string             `json:"reference"`
	Date      time.Time          `json:"date"`
	Amount    decimal.Decimal    `json:"amount"`
	Status    string             `json:"status"`
	Note      string             `json:"note,omitempty"`
	Related   string             `json:"related,omitempty"`
	Actions   []DependencyAction `json:"actions,omitempty"`
}

// Group is one class of dependent records (payments, stock movements, ...).
type Group struct {
	Key             string          `json:"key"`
	Label           string          `json:"label"`
	Count           int             `json:"count"`
	Items           []Item          `json:"items"`
	RemainingCount  int             `json:"remaining_count"`
	FinancialImpact decimal.Decimal `json:"financial_impact"`
	Warning         string          `json:"warning,omitempty"`

	ManualActionCount      int `json:"manual_action_count"`
	PendingResolutionCount int `json:"pending_resolution_count"`
}

// AddItem appends a row, keeping Count/FinancialImpact accurate past the
// display cap.
func (g *Group) AddItem(item Item) {
	g.Count++
	g.FinancialImpact = g.FinancialImpact.Add(item.Amount)
	if len(g.Items) < MaxDisplayItems {
		g.Items = append(g.Items, item)
	} else {
		g.RemainingCount++
	}
}

// DeletionSummary is the analysis result for one candidate deletion or
// reversal. Built fresh per analyze call, never persisted as a row.
type DeletionSummary struct {
	Entity     models.EntityType `json:"entity"`
	RecordId   int               `json:"record_id"`
	Operation  models.Operation  `json:"operation"`
	MainRecord MainRecordInfo    `json:"main_record"`

	Groups   []Group  `json:"groups"`
	Blockers []string `json:"blockers"`
	Warnings []string `json:"warnings"`

	TotalDependencies    int                  `json:"total_dependencies"`
	TotalFinancialImpact decimal.Decimal      `json:"total_financial_impact"`
	Severity             models.Severity      `json:"severity"`
	CanProceed           bool                 `json:"can_proceed"`
	RecommendedAction    string               `json:"recommended_action"`
	ExecutionMode        models.ExecutionMode `json:"execution_mode"`

	PendingDependencyResolutions int `json:"pending_dependency_resolutions"`
}

// Normalize derives the aggregate fields from the groups and blockers.
// Analyzers populate groups/blockers/warnings and execution mode, then call
// this exactly once before returning.
func (s *DeletionSummary) Normalize() {
	s.Blockers = dedupe(s.Blockers)
	s.Warnings = dedupe(s.Warnings)

	s.TotalDependencies = 0
	s.TotalFinancialImpact = decimal.Zero
	s.PendingDependencyResolutions = 0

	for i := range s.Groups {
		g := &s.Groups[i]
		g.ManualActionCount = 0
		g.PendingResolutionCount = 0
		for j := range g.Items {
			for _, a := range g.Items[j].Actions {
				if !a.Enabled {
					continue
				}
				g.ManualActionCount++
				if a.RequireBeforeParent && !a.Resolved {
					g.PendingResolutionCount++
				}
			}
		}
		s.TotalDependencies += g.Count
		s.TotalFinancialImpact = s.TotalFinancialImpact.Add(g.FinancialImpact)
		s.PendingDependencyResolutions += g.PendingResolutionCount
	}

	s.CanProceed = len(s.Blockers) == 0
	s.Severity = deriveSeverity(len(s.Blockers), s.TotalDependencies, s.TotalFinancialImpact)

	if s.RecommendedAction == "" {
		if s.CanProceed {
			s.RecommendedAction = "Safe to proceed"
		} else {
			s.RecommendedAction = "Resolve blockers before retrying"
		}
	}
}

func deriveSeverity(blockers, dependencies int, impact decimal.Decimal) models.Severity {
	abs := impact.Abs()
	switch {
	case blockers > 0, abs.GreaterThanOrEqual(severityHighImpact), dependencies >= severityHighCount:
		return models.SeverityHigh
	case abs.GreaterThanOrEqual(severityMediumImpact), dependencies >= severityMediumCount:
		return models.SeverityMedium
	default:
		return models.SeverityNormal
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// CompactSummary is the token-safe projection of a summary: enough to
// re-check gating on confirm without carrying display rows around.
type CompactSummary struct {
	Entity     models.EntityType `json:"entity"`
	RecordId   int               `json:"record_id"`
	Operation  models.Operation  `json:"operation"`
	MainRecord MainRecordInfo    `json:"main_record"`

	GroupCounts map[string]int `json:"group_counts"`
	Blockers    []string       `json:"blockers"`

	TotalDependencies    int                  `json:"total_dependencies"`
	TotalFinancialImpact decimal.Decimal      `json:"total_financial_impact"`
	Severity             models.Severity      `json:"severity"`
	CanProceed           bool                 `json:"can_proceed"`
	ExecutionMode        models.ExecutionMode `json:"execution_mode"`

	PendingDependencyResolutions int `json:"pending_dependency_resolutions"`
}

// Compact projects the summary for token storage. Lossy and display-only:
// live state is always re-derived by the action executors.
func (s *DeletionSummary) Compact() CompactSummary {
	groupCounts := make(map[string]int, len(s.Groups))
	for _, g := range s.Groups {
		groupCounts[g.Key] = g.Count
	}
	blockers := make([]string, len(s.Blockers))
	copy(blockers, s.Blockers)

	return CompactSummary{
		Entity:                       s.Entity,
		RecordId:                     s.RecordId,
		Operation:                    s.Operation,
		MainRecord:                   s.MainRecord,
		GroupCounts:                  groupCounts,
		Blockers:                     blockers,
		TotalDependencies:            s.TotalDependencies,
		TotalFinancialImpact:         s.TotalFinancialImpact,
		Severity:                     s.Severity,
		CanProceed:                   s.CanProceed,
		ExecutionMode:                s.ExecutionMode,
		PendingDependencyResolutions: s.PendingDependencyResolutions,
	}
}
