package consumer

import (
	"encoding/json"

	"nvi/internal/candidate/models"
	pkgerrors "nvi/pkg/domain-errors"
)

// evaluationMessage is the wire shape of one publication evaluation request.
type evaluationMessage struct {
	PublicationID                string           `json:"publicationId"`
	PublicationBucketURI         string           `json:"publicationBucketUri"`
	InstanceType                 string           `json:"instanceType"`
	PublicationDate              dateMessage      `json:"publicationDate"`
	Channels                     []channelMessage `json:"channels"`
	IsInternationalCollaboration bool             `json:"isInternationalCollaboration"`
	Creators                     []creatorMessage `json:"creators"`
}

type dateMessage struct {
	Year  string `json:"year"`
	Month string `json:"month,omitempty"`
	Day   string `json:"day,omitempty"`
}

type channelMessage struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Level string `json:"level"`
}

type creatorMessage struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name,omitempty"`
	Role         string   `json:"role"`
	Affiliations []string `json:"affiliations,omitempty"`
}

// DecodeEvaluationMessage parses a raw message into publication metadata.
// Malformed payloads are validation failures bound for the dead-letter topic.
func DecodeEvaluationMessage(raw []byte) (models.PublicationMetadata, error) {
	var msg evaluationMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return models.PublicationMetadata{}, pkgerrors.Wrap(pkgerrors.CodeValidation, "malformed evaluation message", err)
	}

	meta := models.PublicationMetadata{
		PublicationID:                msg.PublicationID,
		PublicationBucketURI:         msg.PublicationBucketURI,
		InstanceType:                 msg.InstanceType,
		IsInternationalCollaboration: msg.IsInternationalCollaboration,
		PublicationDate: models.PublicationDate{
			Year:  msg.PublicationDate.Year,
			Month: msg.PublicationDate.Month,
			Day:   msg.PublicationDate.Day,
		},
	}
	for _, ch := range msg.Channels {
		meta.Channels = append(meta.Channels, models.Channel{
			ID:              ch.ID,
			Type:            models.ChannelType(ch.Type),
			ScientificValue: models.ParseScientificValue(ch.Level),
		})
	}
	for _, cr := range msg.Creators {
		if cr.ID != "" {
			meta.Creators = append(meta.Creators, models.VerifiedCreator{
				ID: cr.ID, CreatorRole: cr.Role, Affiliations: cr.Affiliations,
			})
			continue
		}
		meta.Creators = append(meta.Creators, models.UnverifiedCreator{
			Name: cr.Name, CreatorRole: cr.Role, Affiliations: cr.Affiliations,
		})
	}

	if err := meta.Validate(); err != nil {
		return models.PublicationMetadata{}, err
	}
	return meta, nil
}
