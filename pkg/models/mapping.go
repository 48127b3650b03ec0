package models

// TargetField is a CRM field a source column can be mapped onto.
// The set is closed; anything else is rejected at validation time.
type TargetField string

const (
	TargetSkip          TargetField = "skip"
	TargetName          TargetField = "name"
	TargetClientID      TargetField = "client_id"
	TargetHomeEmail     TargetField = "home_email"
	TargetWorkEmail     TargetField = "work_email"
	TargetPersonalEmail TargetField = "personal_email"
	TargetOtherEmail    TargetField = "other_email"
	TargetHomePhone     TargetField = "home_phone"
	TargetWorkPhone     TargetField = "work_phone"
	TargetCellularPhone TargetField = "cellular_phone"
	TargetOtherPhone    TargetField = "other_phone"
	TargetStatus        TargetField = "status"
	TargetTags          TargetField = "tags"
)

// Valid reports whether the target field is a member of the closed set
func (t TargetField) Valid() bool {
	switch t {
	case TargetSkip, TargetName, TargetClientID,
		TargetHomeEmail, TargetWorkEmail, TargetPersonalEmail, TargetOtherEmail,
		TargetHomePhone, TargetWorkPhone, TargetCellularPhone, TargetOtherPhone,
		TargetStatus, TargetTags:
		return true
	}
	return false
}

// IsEmail reports whether the target is one of the email variants
func (t TargetField) IsEmail() bool {
	switch t {
	case TargetHomeEmail, TargetWorkEmail, TargetPersonalEmail, TargetOtherEmail:
		return true
	}
	return false
}

// IsPhone reports whether the target is one of the phone variants
func (t TargetField) IsPhone() bool {
	switch t {
	case TargetHomePhone, TargetWorkPhone, TargetCellularPhone, TargetOtherPhone:
		return true
	}
	return false
}

// Transform is a per-column value transform applied during execution
type Transform string

const (
	TransformNone        Transform = "none"
	TransformUppercase   Transform = "uppercase"
	TransformLowercase   Transform = "lowercase"
	TransformPhoneFormat Transform = "phone_format"
)

// Valid reports whether the transform is a member of the closed set
func (t Transform) Valid() bool {
	switch t {
	case TransformNone, TransformUppercase, TransformLowercase, TransformPhoneFormat:
		return true
	}
	return false
}

// ColumnMapping associates one source column with a target field and transform
type ColumnMapping struct {
	SourceColumn string      `json:"source_column" validate:"required"`
	TargetField  TargetField `json:"target_field" validate:"required"`
	Transform    Transform   `json:"transform" validate:"required"`
}

// DuplicateStrategy governs conflict resolution for every row of a job
type DuplicateStrategy string

const (
	StrategySkip      DuplicateStrategy = "skip"
	StrategyUpdate    DuplicateStrategy = "update"
	StrategyCreateNew DuplicateStrategy = "create_new"
)

// Valid reports whether the strategy is a member of the closed set
func (s DuplicateStrategy) Valid() bool {
	switch s {
	case StrategySkip, StrategyUpdate, StrategyCreateNew:
		return true
	}
	return false
}

// RowAction is the resolved action for a single row
type RowAction string

const (
	RowActionCreate RowAction = "create"
	RowActionUpdate RowAction = "update"
	RowActionSkip   RowAction = "skip"
)
