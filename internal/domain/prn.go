package domain

import (
	"strconv"
	"strings"
	"time"
)

// EvidenceStatus is the NPWD status code attached to an issued PRN.
type EvidenceStatus string

const (
	StatusCancelled       EvidenceStatus = "EV-CANCEL"
	StatusAwaitingAccept  EvidenceStatus = "EV-AWACCEP"
	StatusAwaitingAcceptE EvidenceStatus = "EV-AWACCEP-EPR"
)

// ActionableStatuses is the fixed set of status codes the fetch filter
// selects. PRNs in any other status are not synchronized.
var ActionableStatuses = []EvidenceStatus{
	StatusCancelled,
	StatusAwaitingAccept,
	StatusAwaitingAcceptE,
}

// Prn is the canonical representation of one issued evidence certificate
// (Packaging Recovery Note) as fetched from NPWD. Immutable once fetched;
// a later modification produces a new record in a later fetch window.
type Prn struct {
	EvidenceNo            string         `json:"evidenceNo"`
	AccreditationNo       string         `json:"accreditationNo"`
	AccreditationYear     int            `json:"accreditationYear"`
	EvidenceStatusCode    EvidenceStatus `json:"evidenceStatusCode"`
	EvidenceMaterial      string         `json:"evidenceMaterial"`
	EvidenceTonnes        int            `json:"evidenceTonnes"`
	IssuedByNPWDCode      string         `json:"issuedByNPWDCode"`
	IssuedByOrgName       string         `json:"issuedByOrgName"`
	IssuedToNPWDCode      string         `json:"issuedToNPWDCode"`
	IssuedToOrgName       string         `json:"issuedToOrgName"`
	IssuedToEPRID         string         `json:"issuedToEPRId"`
	IssuerRef             string         `json:"issuerRef"`
	IssuerNotes           string         `json:"issuerNotes"`
	MaterialOperationCode string         `json:"materialOperationCode"`
	ObligationYear        int            `json:"obligationYear"`
	ProducerAgency        string         `json:"producerAgency"`
	ReprocessorAgency     string         `json:"reprocessorAgency"`
	RecoveryProcessCode   string         `json:"recoveryProcessCode"`
	PrnSignatory          string         `json:"prnSignatory"`
	PrnSignatoryPosition  string         `json:"prnSignatoryPosition"`
	DecemberWaste         bool           `json:"decemberWaste"`
	IssueDate             *time.Time     `json:"issueDate"`
	StatusDate            *time.Time     `json:"statusDate"`
	CancelledDate         *time.Time     `json:"cancelledDate"`
	ModifiedOn            *time.Time     `json:"modifiedOn"`
}

// IsExport reports whether the evidence number denotes an export PRN
// (a PERN). Export numbers are prefixed "EX" (EA) or "SX" (SEPA).
func IsExport(evidenceNo string) bool {
	return strings.HasPrefix(evidenceNo, "EX") || strings.HasPrefix(evidenceNo, "SX")
}

// FetchWindow is the half-open interval [From, To) a delta fetch covers.
// A nil From means an open lower bound (first run, no cursor yet).
type FetchWindow struct {
	From *time.Time
	To   time.Time
}

// SavePrnRequest is the payload handed to the backend's save endpoint.
// The save is upsert-like: re-sending the same evidence number is safe.
type SavePrnRequest struct {
	EvidenceNo            string     `json:"evidenceNo"`
	AccreditationNo       string     `json:"accreditationNo"`
	AccreditationYear     string     `json:"accreditationYear"`
	EvidenceStatusCode    string     `json:"evidenceStatusCode"`
	EvidenceMaterial      string     `json:"evidenceMaterial"`
	EvidenceTonnes        int        `json:"evidenceTonnes"`
	IssuedByNPWDCode      string     `json:"issuedByNPWDCode"`
	IssuedByOrgName       string     `json:"issuedByOrgName"`
	IssuedToNPWDCode      string     `json:"issuedToNPWDCode"`
	IssuedToOrgName       string     `json:"issuedToOrgName"`
	IssuedToEPRID         string     `json:"issuedToEPRId"`
	IssuerRef             string     `json:"issuerRef"`
	IssuerNotes           string     `json:"issuerNotes"`
	MaterialOperationCode string     `json:"materialOperationCode"`
	ObligationYear        string     `json:"obligationYear"`
	ProducerAgency        string     `json:"producerAgency"`
	ReprocessorAgency     string     `json:"reprocessorAgency"`
	RecoveryProcessCode   string     `json:"recoveryProcessCode"`
	PrnSignatory          string     `json:"prnSignatory"`
	PrnSignatoryPosition  string     `json:"prnSignatoryPosition"`
	DecemberWaste         bool       `json:"decemberWaste"`
	IssueDate             *time.Time `json:"issueDate"`
	StatusDate            *time.Time `json:"statusDate"`
	CancelledDate         *time.Time `json:"cancelledDate"`
	ModifiedOn            *time.Time `json:"modifiedOn"`
	CreatedByUser         string     `json:"createdByUser"`
}

// backendStatus maps NPWD evidence status codes to the backend's PRN
// status vocabulary.
var backendStatus = map[EvidenceStatus]string{
	StatusCancelled:       "CANCELLED",
	StatusAwaitingAccept:  "AWAITINGACCEPTANCE",
	StatusAwaitingAcceptE: "AWAITINGACCEPTANCE",
}

// MapBackendStatus translates an NPWD status code for the backend.
// Unknown codes pass through unchanged so the backend can reject them.
func MapBackendStatus(s EvidenceStatus) string {
	if mapped, ok := backendStatus[s]; ok {
		return mapped
	}
	return string(s)
}

// ToSaveRequest maps a fetched PRN into the backend save payload.
func (p *Prn) ToSaveRequest() SavePrnRequest {
	return SavePrnRequest{
		EvidenceNo:            p.EvidenceNo,
		AccreditationNo:       p.AccreditationNo,
		AccreditationYear:     strconv.Itoa(p.AccreditationYear),
		EvidenceStatusCode:    MapBackendStatus(p.EvidenceStatusCode),
		EvidenceMaterial:      p.EvidenceMaterial,
		EvidenceTonnes:        p.EvidenceTonnes,
		IssuedByNPWDCode:      p.IssuedByNPWDCode,
		IssuedByOrgName:       p.IssuedByOrgName,
		IssuedToNPWDCode:      p.IssuedToNPWDCode,
		IssuedToOrgName:       p.IssuedToOrgName,
		IssuedToEPRID:         p.IssuedToEPRID,
		IssuerRef:             p.IssuerRef,
		IssuerNotes:           p.IssuerNotes,
		MaterialOperationCode: p.MaterialOperationCode,
		ObligationYear:        strconv.Itoa(p.ObligationYear),
		ProducerAgency:        p.ProducerAgency,
		ReprocessorAgency:     p.ReprocessorAgency,
		RecoveryProcessCode:   p.RecoveryProcessCode,
		PrnSignatory:          p.PrnSignatory,
		PrnSignatoryPosition:  p.PrnSignatoryPosition,
		DecemberWaste:         p.DecemberWaste,
		IssueDate:             p.IssueDate,
		StatusDate:            p.StatusDate,
		CancelledDate:         p.CancelledDate,
		ModifiedOn:            p.ModifiedOn,
		CreatedByUser:         "IntegrationFA",
	}
}

// ProducerNotification is one fan-out unit: a PRN summary addressed to a
// single resolved contact of the owning organisation. Ephemeral and
// best-effort; a failed dispatch is logged, never requeued.
type ProducerNotification struct {
	Email             string
	FirstName         string
	LastName          string
	PrnNumber         string
	Material          string
	Tonnage           int
	ReprocessorAgency string
	RecoveryProcess   string
	IsExport          bool
}
