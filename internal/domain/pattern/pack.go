package pattern

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Rule priorities, in escalation order.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// DirectorPack is the runtime coaching spec for a pattern. Packs are
// immutable: the evidence-guided updater appends a new revision instead of
// touching an existing row, and PackHash is the canonical-JSON hash of the
// pack content so sessions can pin exactly what they coached against.
type DirectorPack struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PackID             string         `gorm:"column:pack_id;not null;uniqueIndex" json:"pack_id"`
	PatternID          string         `gorm:"column:pattern_id;not null;index:idx_pack_pattern_rev,unique,priority:1" json:"pattern_id"`
	Revision           int            `gorm:"column:revision;not null;default:1;index:idx_pack_pattern_rev,unique,priority:2" json:"revision"`
	PackHash           string         `gorm:"column:pack_hash;not null;index" json:"pack_hash"`
	DNAInvariants      datatypes.JSON `gorm:"column:dna_invariants;type:jsonb" json:"dna_invariants"`
	MutationSlots      datatypes.JSON `gorm:"column:mutation_slots;type:jsonb" json:"mutation_slots"`
	ForbiddenMutations datatypes.JSON `gorm:"column:forbidden_mutations;type:jsonb" json:"forbidden_mutations"`
	Checkpoints        datatypes.JSON `gorm:"column:checkpoints;type:jsonb" json:"checkpoints"`
	CoachLineTemplates datatypes.JSON `gorm:"column:coach_line_templates;type:jsonb" json:"coach_line_templates"`
	RuntimeContract    datatypes.JSON `gorm:"column:runtime_contract;type:jsonb" json:"runtime_contract"`
	CreatedAt          time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (DirectorPack) TableName() string { return "director_pack" }

// PackRule is one DNA invariant inside a pack. Metric names a feature key the
// session evaluator measures (visual.* per frame, audio.* per chunk,
// delivery.* from speech).
type PackRule struct {
	RuleID            string  `json:"rule_id"`
	Description       string  `json:"description,omitempty"`
	Metric            string  `json:"metric"`
	Operator          string  `json:"operator"`
	Target            float64 `json:"target"`
	TargetHigh        float64 `json:"target_high,omitempty"`
	Tolerance         float64 `json:"tolerance,omitempty"`
	Priority          string  `json:"priority"`
	Weight            float64 `json:"weight"`
	CoachLineTemplate string  `json:"coach_line_template,omitempty"`
}

// PackCheckpoint fires on elapsed session time regardless of frame flow.
type PackCheckpoint struct {
	CheckpointID string   `json:"checkpoint_id"`
	AtSec        float64  `json:"at_sec"`
	CoachLine    string   `json:"coach_line"`
	RuleIDs      []string `json:"rule_ids,omitempty"`
}

// PackMutationSlot is one sanctioned variation axis, ordered by the bandit.
type PackMutationSlot struct {
	SlotID       string  `json:"slot_id"`
	MutationType string  `json:"mutation_type"`
	Pattern      string  `json:"pattern"`
	Weight       float64 `json:"weight"`
	Rationale    string  `json:"rationale,omitempty"`
}

// PackRuntimeContract declares what the session loop must provide.
type PackRuntimeContract struct {
	TickRateHz         float64  `json:"tick_rate_hz"`
	Modalities         []string `json:"modalities"`
	MaxCoachLinePerMin int      `json:"max_coach_line_per_min,omitempty"`
}

// NextPriority returns the next rung: low -> medium -> high -> critical.
// critical stays critical.
func NextPriority(p string) string {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	case PriorityHigh, PriorityCritical:
		return PriorityCritical
	default:
		return PriorityMedium
	}
}
