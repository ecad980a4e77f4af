package models

// InstanceType identifies the publication instance categories covered by the
// reporting scheme.
type InstanceType string

const (
	InstanceTypeAcademicArticle          InstanceType = "AcademicArticle"
	InstanceTypeAcademicLiteratureReview InstanceType = "AcademicLiteratureReview"
	InstanceTypeAcademicMonograph        InstanceType = "AcademicMonograph"
	InstanceTypeAcademicCommentary       InstanceType = "AcademicCommentary"
	InstanceTypeAcademicChapter          InstanceType = "AcademicChapter"
)

// ParseInstanceType maps a raw instance type string onto the covered set.
// Unknown types are outside the scheme and yield ok=false, which callers treat
// as "not a candidate", not as an error.
func ParseInstanceType(raw string) (InstanceType, bool) {
	switch InstanceType(raw) {
	case InstanceTypeAcademicArticle,
		InstanceTypeAcademicLiteratureReview,
		InstanceTypeAcademicMonograph,
		InstanceTypeAcademicCommentary,
		InstanceTypeAcademicChapter:
		return InstanceType(raw), true
	}
	return "", false
}

// ChannelType identifies the kind of publication venue.
type ChannelType string

const (
	ChannelTypeJournal   ChannelType = "Journal"
	ChannelTypeSeries    ChannelType = "Series"
	ChannelTypePublisher ChannelType = "Publisher"
)

// ScientificValue is the assessed level of a publication channel.
type ScientificValue string

const (
	ScientificValueUnassigned ScientificValue = "Unassigned"
	ScientificValueLevelOne   ScientificValue = "LevelOne"
	ScientificValueLevelTwo   ScientificValue = "LevelTwo"
)

// ParseScientificValue is lenient: missing or unknown values fall back to
// Unassigned rather than failing, per the channel-level fallback rules.
func ParseScientificValue(raw string) ScientificValue {
	switch raw {
	case "1", "LevelOne":
		return ScientificValueLevelOne
	case "2", "LevelTwo":
		return ScientificValueLevelTwo
	default:
		return ScientificValueUnassigned
	}
}

// IsAssigned reports whether the channel has an assessed level.
func (v ScientificValue) IsAssigned() bool {
	return v == ScientificValueLevelOne || v == ScientificValueLevelTwo
}

// Channel describes one publication venue with its assessed level.
type Channel struct {
	ID              string
	Type            ChannelType
	ScientificValue ScientificValue
}
