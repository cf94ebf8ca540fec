package domain_test

import (
	"testing"

	"github.com/eprhub/prn-integration/internal/domain"
)

const deltaContext = "https://npwd.example.gov.uk/odata/$metadata#Producers"

func TestMapProducerDelta_Empty(t *testing.T) {
	delta := domain.MapProducerDelta(nil, deltaContext)

	if delta.Context != deltaContext {
		t.Errorf("Context = %q, want %q", delta.Context, deltaContext)
	}
	if delta.Values == nil || len(delta.Values) != 0 {
		t.Errorf("Values = %v, want empty non-nil slice", delta.Values)
	}
}

func TestMapProducerDelta_EntityType(t *testing.T) {
	updated := []domain.UpdatedProducer{
		{ProducerName: "Scheme Ltd", IsComplianceScheme: true},
		{ProducerName: "Registrant Ltd", IsComplianceScheme: false},
	}

	delta := domain.MapProducerDelta(updated, deltaContext)
	if len(delta.Values) != 2 {
		t.Fatalf("expected 2 values, got %d", len(delta.Values))
	}

	cs := delta.Values[0]
	if cs.EntityTypeCode != "CS" || cs.EntityTypeName != "Compliance Scheme" {
		t.Errorf("compliance scheme mapped to %s/%s", cs.EntityTypeCode, cs.EntityTypeName)
	}

	dr := delta.Values[1]
	if dr.EntityTypeCode != "DR" || dr.EntityTypeName != "Direct Registrant" {
		t.Errorf("direct registrant mapped to %s/%s", dr.EntityTypeCode, dr.EntityTypeName)
	}
}

func TestMapProducerDelta_AddressComposition(t *testing.T) {
	tests := []struct {
		name     string
		producer domain.UpdatedProducer
		want     string
	}{
		{
			"all parts",
			domain.UpdatedProducer{SubBuildingName: "Unit 4", BuildingNumber: "12", BuildingName: "Riverside House"},
			"Unit 4 12 Riverside House",
		},
		{
			"number only",
			domain.UpdatedProducer{BuildingNumber: "12"},
			"12",
		},
		{
			"all blank",
			domain.UpdatedProducer{SubBuildingName: " ", BuildingNumber: "", BuildingName: ""},
			"",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			delta := domain.MapProducerDelta([]domain.UpdatedProducer{tc.producer}, deltaContext)
			if got := delta.Values[0].AddressLine1; got != tc.want {
				t.Errorf("AddressLine1 = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMapProducerDelta_FieldMapping(t *testing.T) {
	u := domain.UpdatedProducer{
		ProducerName:         "Acme Recycling",
		CompaniesHouseNumber: "01234567",
		ReferenceNumber:      "100042",
		ExternalID:           "6b29fc40-ca47-1067-b31d-00dd010662da",
		Street:               "High Street",
		Locality:             "Old Town",
		DependentLocality:    "Riverside",
		Town:                 "Leeds",
		County:               "West Yorkshire",
		Country:              "England",
		Postcode:             "LS1 1AA",
	}

	p := domain.MapProducerDelta([]domain.UpdatedProducer{u}, deltaContext).Values[0]

	if p.AddressLine2 != u.Street || p.AddressLine3 != u.Locality || p.AddressLine4 != u.DependentLocality {
		t.Errorf("address lines = %q/%q/%q", p.AddressLine2, p.AddressLine3, p.AddressLine4)
	}
	if p.CompanyRegNo != u.CompaniesHouseNumber {
		t.Errorf("CompanyRegNo = %q, want %q", p.CompanyRegNo, u.CompaniesHouseNumber)
	}
	if p.EPRID != u.ExternalID || p.EPRCode != u.ReferenceNumber {
		t.Errorf("EPRID/EPRCode = %q/%q", p.EPRID, p.EPRCode)
	}
	if p.ProducerName != u.ProducerName {
		t.Errorf("ProducerName = %q, want %q", p.ProducerName, u.ProducerName)
	}
}
