package app

import (
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

type Repos struct {
	Run              repos.RunRepo
	Artifact         repos.ArtifactRepo
	OutlierItem      repos.OutlierItemRepo
	CurationRule     repos.CurationRuleRepo
	Node             repos.NodeRepo
	Cluster          repos.ClusterRepo
	RecurrenceLink   repos.RecurrenceLinkRepo
	Library          repos.LibraryRepo
	DirectorPack     repos.DirectorPackRepo
	Notebook         repos.NotebookRepo
	EvidenceEvent    repos.EvidenceEventRepo
	EvidenceSnapshot repos.EvidenceSnapshotRepo
	Decision         repos.DecisionRepo
	Prior            repos.PriorRepo
	PatternEvidence  repos.PatternEvidenceRepo
	BanditArm        repos.BanditArmRepo
	Session          repos.SessionRepo
	Intervention     repos.InterventionRepo
	Outcome          repos.OutcomeRepo
	UploadOutcome    repos.UploadOutcomeRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Run:              repos.NewRunRepo(db, log),
		Artifact:         repos.NewArtifactRepo(db, log),
		OutlierItem:      repos.NewOutlierItemRepo(db, log),
		CurationRule:     repos.NewCurationRuleRepo(db, log),
		Node:             repos.NewNodeRepo(db, log),
		Cluster:          repos.NewClusterRepo(db, log),
		RecurrenceLink:   repos.NewRecurrenceLinkRepo(db, log),
		Library:          repos.NewLibraryRepo(db, log),
		DirectorPack:     repos.NewDirectorPackRepo(db, log),
		Notebook:         repos.NewNotebookRepo(db, log),
		EvidenceEvent:    repos.NewEvidenceEventRepo(db, log),
		EvidenceSnapshot: repos.NewEvidenceSnapshotRepo(db, log),
		Decision:         repos.NewDecisionRepo(db, log),
		Prior:            repos.NewPriorRepo(db, log),
		PatternEvidence:  repos.NewPatternEvidenceRepo(db, log),
		BanditArm:        repos.NewBanditArmRepo(db, log),
		Session:          repos.NewSessionRepo(db, log),
		Intervention:     repos.NewInterventionRepo(db, log),
		Outcome:          repos.NewOutcomeRepo(db, log),
		UploadOutcome:    repos.NewUploadOutcomeRepo(db, log),
	}
}
