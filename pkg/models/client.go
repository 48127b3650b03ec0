package models

import "time"

// Client is the durable CRM record a row is imported into or merged with.
// Empty string means the field has no value; matching identity is derived
// from the normalized columns, never from a source-file identifier.
type Client struct {
	ID              string    `json:"id" db:"id"`
	TenantID        string    `json:"tenant_id" db:"tenant_id"`
	Name            string    `json:"name" db:"name"`
	ClientID        string    `json:"client_id" db:"client_id"`
	HomeEmail       string    `json:"home_email" db:"home_email"`
	WorkEmail       string    `json:"work_email" db:"work_email"`
	PersonalEmail   string    `json:"personal_email" db:"personal_email"`
	OtherEmail      string    `json:"other_email" db:"other_email"`
	HomePhone       string    `json:"home_phone" db:"home_phone"`
	WorkPhone       string    `json:"work_phone" db:"work_phone"`
	CellularPhone   string    `json:"cellular_phone" db:"cellular_phone"`
	OtherPhone      string    `json:"other_phone" db:"other_phone"`
	Status          string    `json:"status" db:"status"`
	Tags            string    `json:"tags" db:"tags"`
	NormalizedEmail string    `json:"-" db:"normalized_email"`
	NormalizedPhone string    `json:"-" db:"normalized_phone"`
	TimesImported   int       `json:"times_imported" db:"times_imported"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// ClientFields is a candidate record assembled from one mapped, transformed
// row. Empty fields are absent, not blank values.
type ClientFields struct {
	Name          string `json:"name"`
	ClientID      string `json:"client_id"`
	HomeEmail     string `json:"home_email"`
	WorkEmail     string `json:"work_email"`
	PersonalEmail string `json:"personal_email"`
	OtherEmail    string `json:"other_email"`
	HomePhone     string `json:"home_phone"`
	WorkPhone     string `json:"work_phone"`
	CellularPhone string `json:"cellular_phone"`
	OtherPhone    string `json:"other_phone"`
	Status        string `json:"status"`
	Tags          string `json:"tags"`
}

// Set assigns a value to the field addressed by the target. Skip and
// unknown targets are ignored.
func (f *ClientFields) Set(target TargetField, value string) {
	switch target {
	case TargetName:
		f.Name = value
	case TargetClientID:
		f.ClientID = value
	case TargetHomeEmail:
		f.HomeEmail = value
	case TargetWorkEmail:
		f.WorkEmail = value
	case TargetPersonalEmail:
		f.PersonalEmail = value
	case TargetOtherEmail:
		f.OtherEmail = value
	case TargetHomePhone:
		f.HomePhone = value
	case TargetWorkPhone:
		f.WorkPhone = value
	case TargetCellularPhone:
		f.CellularPhone = value
	case TargetOtherPhone:
		f.OtherPhone = value
	case TargetStatus:
		f.Status = value
	case TargetTags:
		f.Tags = value
	}
}

// BestEmail returns the first populated email variant, preferring the
// personal address
func (f ClientFields) BestEmail() string {
	for _, v := range []string{f.PersonalEmail, f.HomeEmail, f.WorkEmail, f.OtherEmail} {
		if v != "" {
			return v
		}
	}
	return ""
}

// BestPhone returns the first populated phone variant, preferring the
// cellular number
func (f ClientFields) BestPhone() string {
	for _, v := range []string{f.CellularPhone, f.HomePhone, f.WorkPhone, f.OtherPhone} {
		if v != "" {
			return v
		}
	}
	return ""
}

// MergeInto overwrites the client's fields with the populated fields of f.
// Absent fields never null out existing data.
func (f ClientFields) MergeInto(c *Client) {
	assign := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	assign(&c.Name, f.Name)
	assign(&c.ClientID, f.ClientID)
	assign(&c.HomeEmail, f.HomeEmail)
	assign(&c.WorkEmail, f.WorkEmail)
	assign(&c.PersonalEmail, f.PersonalEmail)
	assign(&c.OtherEmail, f.OtherEmail)
	assign(&c.HomePhone, f.HomePhone)
	assign(&c.WorkPhone, f.WorkPhone)
	assign(&c.CellularPhone, f.CellularPhone)
	assign(&c.OtherPhone, f.OtherPhone)
	assign(&c.Status, f.Status)
	assign(&c.Tags, f.Tags)
}

// BestEmail returns the first populated email variant on the client record
func (c Client) BestEmail() string {
	return ClientFields{
		PersonalEmail: c.PersonalEmail,
		HomeEmail:     c.HomeEmail,
		WorkEmail:     c.WorkEmail,
		OtherEmail:    c.OtherEmail,
	}.BestEmail()
}

// BestPhone returns the first populated phone variant on the client record
func (c Client) BestPhone() string {
	return ClientFields{
		CellularPhone: c.CellularPhone,
		HomePhone:     c.HomePhone,
		WorkPhone:     c.WorkPhone,
		OtherPhone:    c.OtherPhone,
	}.BestPhone()
}
