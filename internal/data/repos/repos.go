// Package repos re-exports every per-area repo so call sites import one
// package, mirroring the single "types" alias over internal/domain.
package repos

import (
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos/coaching"
	"github.com/hooklab-media/hooklab-backend/internal/data/repos/evidence"
	"github.com/hooklab-media/hooklab-backend/internal/data/repos/ingest"
	"github.com/hooklab-media/hooklab-backend/internal/data/repos/pattern"
	"github.com/hooklab-media/hooklab-backend/internal/data/repos/pipeline"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type RunRepo = pipeline.RunRepo
type ArtifactRepo = pipeline.ArtifactRepo

type OutlierItemRepo = ingest.OutlierItemRepo
type CurationRuleRepo = ingest.CurationRuleRepo

type NodeRepo = pattern.NodeRepo
type ClusterRepo = pattern.ClusterRepo
type RecurrenceLinkRepo = pattern.RecurrenceLinkRepo
type LibraryRepo = pattern.LibraryRepo
type DirectorPackRepo = pattern.DirectorPackRepo
type NotebookRepo = pattern.NotebookRepo
type DepthStat = pattern.DepthStat

type EvidenceEventRepo = evidence.EventRepo
type EvidenceSnapshotRepo = evidence.SnapshotRepo
type DecisionRepo = evidence.DecisionRepo
type PriorRepo = evidence.PriorRepo
type PatternEvidenceRepo = evidence.PatternEvidenceRepo
type BanditArmRepo = evidence.BanditArmRepo

type SessionRepo = coaching.SessionRepo
type InterventionRepo = coaching.InterventionRepo
type OutcomeRepo = coaching.OutcomeRepo
type UploadOutcomeRepo = coaching.UploadOutcomeRepo

func NewRunRepo(db *gorm.DB, baseLog *logger.Logger) RunRepo {
	return pipeline.NewRunRepo(db, baseLog)
}

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	return pipeline.NewArtifactRepo(db, baseLog)
}

func NewOutlierItemRepo(db *gorm.DB, baseLog *logger.Logger) OutlierItemRepo {
	return ingest.NewOutlierItemRepo(db, baseLog)
}

func NewCurationRuleRepo(db *gorm.DB, baseLog *logger.Logger) CurationRuleRepo {
	return ingest.NewCurationRuleRepo(db, baseLog)
}

func NewNodeRepo(db *gorm.DB, baseLog *logger.Logger) NodeRepo {
	return pattern.NewNodeRepo(db, baseLog)
}

func NewClusterRepo(db *gorm.DB, baseLog *logger.Logger) ClusterRepo {
	return pattern.NewClusterRepo(db, baseLog)
}

func NewRecurrenceLinkRepo(db *gorm.DB, baseLog *logger.Logger) RecurrenceLinkRepo {
	return pattern.NewRecurrenceLinkRepo(db, baseLog)
}

func NewLibraryRepo(db *gorm.DB, baseLog *logger.Logger) LibraryRepo {
	return pattern.NewLibraryRepo(db, baseLog)
}

func NewDirectorPackRepo(db *gorm.DB, baseLog *logger.Logger) DirectorPackRepo {
	return pattern.NewDirectorPackRepo(db, baseLog)
}

func NewNotebookRepo(db *gorm.DB, baseLog *logger.Logger) NotebookRepo {
	return pattern.NewNotebookRepo(db, baseLog)
}

func NewEvidenceEventRepo(db *gorm.DB, baseLog *logger.Logger) EvidenceEventRepo {
	return evidence.NewEventRepo(db, baseLog)
}

func NewEvidenceSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) EvidenceSnapshotRepo {
	return evidence.NewSnapshotRepo(db, baseLog)
}

func NewDecisionRepo(db *gorm.DB, baseLog *logger.Logger) DecisionRepo {
	return evidence.NewDecisionRepo(db, baseLog)
}

func NewPriorRepo(db *gorm.DB, baseLog *logger.Logger) PriorRepo {
	return evidence.NewPriorRepo(db, baseLog)
}

func NewPatternEvidenceRepo(db *gorm.DB, baseLog *logger.Logger) PatternEvidenceRepo {
	return evidence.NewPatternEvidenceRepo(db, baseLog)
}

func NewBanditArmRepo(db *gorm.DB, baseLog *logger.Logger) BanditArmRepo {
	return evidence.NewBanditArmRepo(db, baseLog)
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return coaching.NewSessionRepo(db, baseLog)
}

func NewInterventionRepo(db *gorm.DB, baseLog *logger.Logger) InterventionRepo {
	return coaching.NewInterventionRepo(db, baseLog)
}

func NewOutcomeRepo(db *gorm.DB, baseLog *logger.Logger) OutcomeRepo {
	return coaching.NewOutcomeRepo(db, baseLog)
}

func NewUploadOutcomeRepo(db *gorm.DB, baseLog *logger.Logger) UploadOutcomeRepo {
	return coaching.NewUploadOutcomeRepo(db, baseLog)
}
