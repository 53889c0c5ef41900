// Package domain defines the CRM models for the lead nurturing service.
package domain

import "slices"

// ProjectName is a property project a lead can enquire about.
type ProjectName string

const (
	ProjectAltura             ProjectName = "Altura"
	ProjectBeachgateByAddress ProjectName = "Beachgate by Address"
	ProjectDamacBayByCavalli  ProjectName = "Damac Bay by Cavalli"
	ProjectDLFWestPark        ProjectName = "DLF West Park"
	ProjectGodrejVistas       ProjectName = "Godrej Vistas"
	ProjectLuminaGrand        ProjectName = "Lumina Grand"
	ProjectSobhaCrest         ProjectName = "Sobha Crest"
	ProjectSobhaWaves         ProjectName = "Sobha Waves"
)

// Projects lists every known project label.
var Projects = []ProjectName{
	ProjectAltura,
	ProjectBeachgateByAddress,
	ProjectDamacBayByCavalli,
	ProjectDLFWestPark,
	ProjectGodrejVistas,
	ProjectLuminaGrand,
	ProjectSobhaCrest,
	ProjectSobhaWaves,
}

func (p ProjectName) Valid() bool { return slices.Contains(Projects, p) }

// UnitType is the configuration of a unit.
type UnitType string

const (
	UnitStudio          UnitType = "studio"
	UnitOneBed          UnitType = "1 bed"
	UnitTwoBed          UnitType = "2 bed"
	UnitTwoBedWithStudy UnitType = "2 bed w study"
	UnitThreeBed        UnitType = "3 bed"
	UnitFourBed         UnitType = "4 bed"
	UnitDuplex          UnitType = "duplex"
	UnitPenthouse       UnitType = "penthouse"
)

var UnitTypes = []UnitType{
	UnitStudio, UnitOneBed, UnitTwoBed, UnitTwoBedWithStudy,
	UnitThreeBed, UnitFourBed, UnitDuplex, UnitPenthouse,
}

func (u UnitType) Valid() bool { return slices.Contains(UnitTypes, u) }

// LeadStatus tracks where a lead is in the sales funnel.
type LeadStatus string

const (
	LeadStatusNotConnected          LeadStatus = "not_connected"
	LeadStatusConnected             LeadStatus = "connected"
	LeadStatusVisitScheduled        LeadStatus = "visit_scheduled"
	LeadStatusVisitDoneNotPurchased LeadStatus = "visit_done_not_purchased"
	LeadStatusPurchased             LeadStatus = "purchased"
	LeadStatusNotInterested         LeadStatus = "not_interested"
)

var LeadStatuses = []LeadStatus{
	LeadStatusNotConnected,
	LeadStatusConnected,
	LeadStatusVisitScheduled,
	LeadStatusVisitDoneNotPurchased,
	LeadStatusPurchased,
	LeadStatusNotInterested,
}

func (s LeadStatus) Valid() bool { return slices.Contains(LeadStatuses, s) }

// MessageChannel is how campaign outreach is delivered.
type MessageChannel string

const (
	ChannelEmail    MessageChannel = "email"
	ChannelWhatsApp MessageChannel = "whatsapp"
)

func (c MessageChannel) Valid() bool { return c == ChannelEmail || c == ChannelWhatsApp }

// MessageStatus is the per-lead state of a campaign.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusResponded MessageStatus = "responded"
	MessageStatusGoalMet   MessageStatus = "goal_met"
)

// GoalOutcome is the conversion a follow-up achieved.
type GoalOutcome string

const (
	GoalNone  GoalOutcome = "none"
	GoalCall  GoalOutcome = "call"
	GoalVisit GoalOutcome = "visit"
)

func (g GoalOutcome) Valid() bool { return g == GoalNone || g == GoalCall || g == GoalVisit }

// SenderType identifies who wrote a conversation message.
type SenderType string

const (
	SenderAgent    SenderType = "agent"
	SenderCustomer SenderType = "customer"
	SenderSales    SenderType = "sales"
)

// Route is the backend the query router picked.
type Route string

const (
	RouteT2SQL Route = "t2sql"
	RouteRAG   Route = "rag"
)

// IngestionStatus is the outcome recorded for a brochure indexing run.
type IngestionStatus string

const (
	IngestionCompleted IngestionStatus = "completed"
	IngestionFailed    IngestionStatus = "failed"
)
