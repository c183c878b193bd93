// Package domain re-exports every persisted model so call sites can import a
// single package as "types".
package domain

import (
	"github.com/hooklab-media/hooklab-backend/internal/domain/coaching"
	"github.com/hooklab-media/hooklab-backend/internal/domain/evidence"
	"github.com/hooklab-media/hooklab-backend/internal/domain/ingest"
	"github.com/hooklab-media/hooklab-backend/internal/domain/pattern"
	"github.com/hooklab-media/hooklab-backend/internal/domain/pipeline"
)

type Run = pipeline.Run
type Artifact = pipeline.Artifact

type OutlierItem = ingest.OutlierItem
type CrawlItem = ingest.CrawlItem
type CrawlComment = ingest.CrawlComment
type CurationRule = ingest.CurationRule

type PatternNode = pattern.Node
type PatternCluster = pattern.Cluster
type PatternRecurrenceLink = pattern.RecurrenceLink
type PatternLibraryEntry = pattern.LibraryEntry
type NotebookEntry = pattern.NotebookEntry
type DirectorPack = pattern.DirectorPack
type PackRule = pattern.PackRule
type PackCheckpoint = pattern.PackCheckpoint
type PackMutationSlot = pattern.PackMutationSlot
type PackRuntimeContract = pattern.PackRuntimeContract

type EvidenceEvent = evidence.Event
type EvidenceSnapshot = evidence.Snapshot
type DecisionObject = evidence.Decision
type PatternPrior = evidence.Prior
type PatternEvidence = evidence.PatternEvidence
type BanditArm = evidence.BanditArm
type MutationStat = evidence.MutationStat

type CoachingSession = coaching.Session
type CoachingIntervention = coaching.Intervention
type CoachingOutcome = coaching.Outcome
type CoachingUploadOutcome = coaching.UploadOutcome

// Run lifecycle.
const (
	RunTypeCrawler          = pipeline.RunTypeCrawler
	RunTypeAnalysis         = pipeline.RunTypeAnalysis
	RunTypeClustering       = pipeline.RunTypeClustering
	RunTypeEvidence         = pipeline.RunTypeEvidence
	RunTypeSourcePack       = pipeline.RunTypeSourcePack
	RunTypePatternSynthesis = pipeline.RunTypePatternSynthesis
	RunTypeDecision         = pipeline.RunTypeDecision
	RunTypeBandit           = pipeline.RunTypeBandit
	RunTypeCardRender       = pipeline.RunTypeCardRender

	RunStatusQueued    = pipeline.RunStatusQueued
	RunStatusRunning   = pipeline.RunStatusRunning
	RunStatusCompleted = pipeline.RunStatusCompleted
	RunStatusFailed    = pipeline.RunStatusFailed
	RunStatusCancelled = pipeline.RunStatusCancelled

	ArtifactStorageDB          = pipeline.ArtifactStorageDB
	ArtifactStorageObjectStore = pipeline.ArtifactStorageObjectStore
	ArtifactStorageExternalURL = pipeline.ArtifactStorageExternalURL
)

// Outlier lifecycle.
const (
	OutlierStatusPending  = ingest.StatusPending
	OutlierStatusSelected = ingest.StatusSelected
	OutlierStatusRejected = ingest.StatusRejected
	OutlierStatusPromoted = ingest.StatusPromoted

	AnalysisPending               = ingest.AnalysisPending
	AnalysisApproved              = ingest.AnalysisApproved
	AnalysisAnalyzing             = ingest.AnalysisAnalyzing
	AnalysisCompleted             = ingest.AnalysisCompleted
	AnalysisCommentsPendingReview = ingest.AnalysisCommentsPendingReview
	AnalysisCommentsFailed        = ingest.AnalysisCommentsFailed
	AnalysisCommentsReady         = ingest.AnalysisCommentsReady
	AnalysisSkipped               = ingest.AnalysisSkipped

	TierS = ingest.TierS
	TierA = ingest.TierA
	TierB = ingest.TierB
	TierC = ingest.TierC

	CurationActionPromote  = ingest.ActionPromote
	CurationActionReject   = ingest.ActionReject
	CurationActionCampaign = ingest.ActionCampaign
)

// Pattern tree.
const (
	LayerMaster     = pattern.LayerMaster
	LayerFork       = pattern.LayerFork
	LayerForkOfFork = pattern.LayerForkOfFork

	RecurrenceCandidate = pattern.RecurrenceCandidate
	RecurrenceConfirmed = pattern.RecurrenceConfirmed
	RecurrenceRejected  = pattern.RecurrenceRejected

	PriorityLow      = pattern.PriorityLow
	PriorityMedium   = pattern.PriorityMedium
	PriorityHigh     = pattern.PriorityHigh
	PriorityCritical = pattern.PriorityCritical

	PhaseT0 = pattern.PhaseT0
	PhaseT1 = pattern.PhaseT1
	PhaseT2 = pattern.PhaseT2
	PhaseT3 = pattern.PhaseT3
	PhaseT4 = pattern.PhaseT4
)

// Evidence loop.
const (
	EvidenceQueued        = evidence.StatusQueued
	EvidenceRunning       = evidence.StatusRunning
	EvidenceEvidenceReady = evidence.StatusEvidenceReady
	EvidenceDecided       = evidence.StatusDecided
	EvidenceExecuted      = evidence.StatusExecuted
	EvidenceMeasured      = evidence.StatusMeasured
	EvidenceFailed        = evidence.StatusFailed

	DecisionGo    = evidence.DecisionGo
	DecisionStop  = evidence.DecisionStop
	DecisionPivot = evidence.DecisionPivot

	DecisionMethodAuto   = evidence.DecisionMethodAuto
	DecisionMethodManual = evidence.DecisionMethodManual
	DecisionMethodHybrid = evidence.DecisionMethodHybrid

	OutcomeSuccess = evidence.OutcomeSuccess
	OutcomeFailure = evidence.OutcomeFailure
	OutcomeUnknown = evidence.OutcomeUnknown
)

// Coaching.
const (
	AssignmentCoached = coaching.AssignmentCoached
	AssignmentControl = coaching.AssignmentControl

	SessionActive    = coaching.SessionActive
	SessionEnded     = coaching.SessionEnded
	SessionCancelled = coaching.SessionCancelled

	ComplianceComplied = coaching.ComplianceComplied
	ComplianceViolated = coaching.ComplianceViolated
	ComplianceUnknown  = coaching.ComplianceUnknown
)

// Helper re-exports, so call sites using the alias import don't need the
// subpackages for one function.
var (
	ValidRunType         = pipeline.ValidRunType
	IsTerminalRunStatus  = pipeline.IsTerminalRunStatus
	IsTerminalEvidence   = evidence.IsTerminalStatus
	CanTransitionEvent   = evidence.CanTransition
	NextPriority         = pattern.NextPriority
	LayerForDepth        = pattern.LayerForDepth
	TierForScore         = ingest.TierForScore
)
