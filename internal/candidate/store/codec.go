package store

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"nvi/internal/candidate/models"
)

// candidateDoc is the persisted JSON shape of a candidate. Decimals marshal as
// strings (shopspring default), so point values survive storage bit-exact.
type candidateDoc struct {
	PublicationID                string                `json:"publicationId"`
	PublicationBucketURI         string                `json:"publicationBucketUri,omitempty"`
	Applicable                   bool                  `json:"applicable"`
	InstanceType                 string                `json:"instanceType,omitempty"`
	Channel                      channelDoc            `json:"channel"`
	PublicationDate              publicationDateDoc    `json:"publicationDate"`
	ReportingYear                string                `json:"reportingYear,omitempty"`
	Creators                     []creatorDoc          `json:"creators,omitempty"`
	IsInternationalCollaboration bool                  `json:"isInternationalCollaboration"`
	CollaborationFactor          decimal.Decimal       `json:"collaborationFactor"`
	BasePoints                   decimal.Decimal       `json:"basePoints"`
	CreatorShareCount            int                   `json:"creatorShareCount"`
	InstitutionPoints            []institutionPointDoc `json:"institutionPoints,omitempty"`
	TotalPoints                  decimal.Decimal       `json:"totalPoints"`
}

type channelDoc struct {
	ID              string `json:"id,omitempty"`
	Type            string `json:"type,omitempty"`
	ScientificValue string `json:"scientificValue,omitempty"`
}

type publicationDateDoc struct {
	Year  string `json:"year"`
	Month string `json:"month,omitempty"`
	Day   string `json:"day,omitempty"`
}

const (
	creatorKindVerified   = "Verified"
	creatorKindUnverified = "Unverified"
)

type creatorDoc struct {
	Kind         string   `json:"kind"`
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name,omitempty"`
	Role         string   `json:"role,omitempty"`
	Affiliations []string `json:"affiliations,omitempty"`
}

type institutionPointDoc struct {
	InstitutionID string            `json:"institutionId"`
	Points        decimal.Decimal   `json:"points"`
	CreatorPoints []creatorPointDoc `json:"creatorPoints,omitempty"`
}

type creatorPointDoc struct {
	CreatorID     string          `json:"creatorId"`
	AffiliationID string          `json:"affiliationId"`
	Points        decimal.Decimal `json:"points"`
}

// EncodeCandidate serializes a candidate for storage.
func EncodeCandidate(c models.Candidate) ([]byte, error) {
	doc := candidateDoc{
		PublicationID:        c.PublicationID,
		PublicationBucketURI: c.PublicationBucketURI,
		Applicable:           c.Applicable,
		InstanceType:         string(c.InstanceType),
		Channel: channelDoc{
			ID:              c.Channel.ID,
			Type:            string(c.Channel.Type),
			ScientificValue: string(c.Channel.ScientificValue),
		},
		PublicationDate: publicationDateDoc{
			Year:  c.PublicationDate.Year,
			Month: c.PublicationDate.Month,
			Day:   c.PublicationDate.Day,
		},
		ReportingYear:                c.ReportingYear,
		IsInternationalCollaboration: c.IsInternationalCollaboration,
		CollaborationFactor:          c.CollaborationFactor,
		BasePoints:                   c.BasePoints,
		CreatorShareCount:            c.CreatorShareCount,
		TotalPoints:                  c.TotalPoints,
	}
	for _, cr := range c.Creators {
		switch v := cr.(type) {
		case models.VerifiedCreator:
			doc.Creators = append(doc.Creators, creatorDoc{
				Kind: creatorKindVerified, ID: v.ID, Role: v.CreatorRole, Affiliations: v.Affiliations,
			})
		case models.UnverifiedCreator:
			doc.Creators = append(doc.Creators, creatorDoc{
				Kind: creatorKindUnverified, Name: v.Name, Role: v.CreatorRole, Affiliations: v.Affiliations,
			})
		default:
			return nil, fmt.Errorf("unknown creator variant %T", cr)
		}
	}
	for _, ip := range c.InstitutionPoints {
		ipDoc := institutionPointDoc{InstitutionID: ip.InstitutionID, Points: ip.Points}
		for _, cp := range ip.CreatorPoints {
			ipDoc.CreatorPoints = append(ipDoc.CreatorPoints, creatorPointDoc{
				CreatorID: cp.CreatorID, AffiliationID: cp.AffiliationID, Points: cp.Points,
			})
		}
		doc.InstitutionPoints = append(doc.InstitutionPoints, ipDoc)
	}
	return json.Marshal(doc)
}

// DecodeCandidate deserializes a stored candidate.
func DecodeCandidate(payload []byte) (models.Candidate, error) {
	var doc candidateDoc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return models.Candidate{}, fmt.Errorf("decode candidate payload: %w", err)
	}
	c := models.Candidate{
		PublicationID:        doc.PublicationID,
		PublicationBucketURI: doc.PublicationBucketURI,
		Applicable:           doc.Applicable,
		InstanceType:         models.InstanceType(doc.InstanceType),
		Channel: models.Channel{
			ID:              doc.Channel.ID,
			Type:            models.ChannelType(doc.Channel.Type),
			ScientificValue: models.ScientificValue(doc.Channel.ScientificValue),
		},
		PublicationDate: models.PublicationDate{
			Year:  doc.PublicationDate.Year,
			Month: doc.PublicationDate.Month,
			Day:   doc.PublicationDate.Day,
		},
		ReportingYear:                doc.ReportingYear,
		IsInternationalCollaboration: doc.IsInternationalCollaboration,
		CollaborationFactor:          doc.CollaborationFactor,
		BasePoints:                   doc.BasePoints,
		CreatorShareCount:            doc.CreatorShareCount,
		TotalPoints:                  doc.TotalPoints,
	}
	for _, cr := range doc.Creators {
		switch cr.Kind {
		case creatorKindVerified:
			c.Creators = append(c.Creators, models.VerifiedCreator{
				ID: cr.ID, CreatorRole: cr.Role, Affiliations: cr.Affiliations,
			})
		case creatorKindUnverified:
			c.Creators = append(c.Creators, models.UnverifiedCreator{
				Name: cr.Name, CreatorRole: cr.Role, Affiliations: cr.Affiliations,
			})
		default:
			return models.Candidate{}, fmt.Errorf("unknown creator kind %q", cr.Kind)
		}
	}
	for _, ip := range doc.InstitutionPoints {
		mip := models.InstitutionPoints{InstitutionID: ip.InstitutionID, Points: ip.Points}
		for _, cp := range ip.CreatorPoints {
			mip.CreatorPoints = append(mip.CreatorPoints, models.CreatorAffiliationPoints{
				CreatorID: cp.CreatorID, AffiliationID: cp.AffiliationID, Points: cp.Points,
			})
		}
		c.InstitutionPoints = append(c.InstitutionPoints, mip)
	}
	return c, nil
}
