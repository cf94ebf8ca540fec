package domain

import (
	"strings"
	"time"
)

// UpdatedProducer is one changed organisation row as returned by the
// backend's changed-producers endpoint.
type UpdatedProducer struct {
	ProducerName         string `json:"producerName"`
	CompaniesHouseNumber string `json:"companiesHouseNumber"`
	ReferenceNumber      string `json:"referenceNumber"`
	ExternalID           string `json:"externalId"`
	IsComplianceScheme   bool   `json:"isComplianceScheme"`
	SubBuildingName      string `json:"subBuildingName"`
	BuildingNumber       string `json:"buildingNumber"`
	BuildingName         string `json:"buildingName"`
	Street               string `json:"street"`
	Locality             string `json:"locality"`
	DependentLocality    string `json:"dependentLocality"`
	Town                 string `json:"town"`
	County               string `json:"county"`
	Country              string `json:"country"`
	Postcode             string `json:"postcode"`
}

// Producer is the NPWD representation of an organisation in a push delta.
type Producer struct {
	AddressLine1   string `json:"addressLine1,omitempty"`
	AddressLine2   string `json:"addressLine2,omitempty"`
	AddressLine3   string `json:"addressLine3,omitempty"`
	AddressLine4   string `json:"addressLine4,omitempty"`
	CompanyRegNo   string `json:"companyRegNo,omitempty"`
	Country        string `json:"country,omitempty"`
	County         string `json:"county,omitempty"`
	Town           string `json:"town,omitempty"`
	EntityTypeCode string `json:"entityTypeCode"`
	EntityTypeName string `json:"entityTypeName"`
	EPRID          string `json:"eprId"`
	EPRCode        string `json:"eprCode"`
	Postcode       string `json:"postcode,omitempty"`
	ProducerName   string `json:"producerName"`
}

// ProducerDelta is the payload pushed to NPWD for one update cycle.
// It lives only for the duration of one push call.
type ProducerDelta struct {
	Context string     `json:"@odata.context"`
	Values  []Producer `json:"value"`
}

// MapProducerDelta builds the NPWD push payload from the backend's
// changed-producer rows. Compliance schemes map to entity type CS, direct
// registrants to DR. The first address line is composed from the
// sub-building, building number and building name; all blank means the
// line is omitted.
func MapProducerDelta(updated []UpdatedProducer, context string) ProducerDelta {
	if len(updated) == 0 {
		return ProducerDelta{Context: context, Values: []Producer{}}
	}

	values := make([]Producer, 0, len(updated))
	for _, u := range updated {
		p := Producer{
			AddressLine1: composeAddressLine(u.SubBuildingName, u.BuildingNumber, u.BuildingName),
			AddressLine2: u.Street,
			AddressLine3: u.Locality,
			AddressLine4: u.DependentLocality,
			CompanyRegNo: u.CompaniesHouseNumber,
			Country:      u.Country,
			County:       u.County,
			Town:         u.Town,
			EPRID:        u.ExternalID,
			EPRCode:      u.ReferenceNumber,
			Postcode:     u.Postcode,
			ProducerName: u.ProducerName,
		}
		if u.IsComplianceScheme {
			p.EntityTypeCode = "CS"
			p.EntityTypeName = "Compliance Scheme"
		} else {
			p.EntityTypeCode = "DR"
			p.EntityTypeName = "Direct Registrant"
		}
		values = append(values, p)
	}

	return ProducerDelta{Context: context, Values: values}
}

func composeAddressLine(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return strings.Join(kept, " ")
}

// PersonEmail is one organisation contact resolved by the backend.
type PersonEmail struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// AuditEvent is emitted once per producer pushed downstream.
type AuditEvent struct {
	OrganisationName string
	OrganisationID   string
	Address          string
	At               time.Time
}
