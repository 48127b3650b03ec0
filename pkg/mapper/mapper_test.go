package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestPropose_CommonHeaders(t *testing.T) {
	headers := []string{"Full Name", "E-Mail", "Cell Phone", "Status"}
	mappings := Propose(headers)
	require.Len(t, mappings, 4)

	assert.Equal(t, models.TargetName, mappings[0].TargetField)
	assert.Equal(t, models.TransformNone, mappings[0].Transform)

	assert.Equal(t, models.TargetPersonalEmail, mappings[1].TargetField)
	assert.Equal(t, models.TransformLowercase, mappings[1].Transform)

	assert.Equal(t, models.TargetCellularPhone, mappings[2].TargetField)
	assert.Equal(t, models.TransformPhoneFormat, mappings[2].Transform)

	assert.Equal(t, models.TargetStatus, mappings[3].TargetField)
}

func TestPropose_EmailVariants(t *testing.T) {
	for _, header := range []string{"Email", "email_address", "Primary E-Mail", "WORK EMAIL"} {
		mappings := Propose([]string{header})
		assert.Equal(t, models.TargetPersonalEmail, mappings[0].TargetField, header)
		assert.Equal(t, models.TransformLowercase, mappings[0].Transform, header)
	}
}

func TestPropose_WorkPhoneBeatsCellular(t *testing.T) {
	mappings := Propose([]string{"Work Phone", "Office Cell", "Mobile"})
	assert.Equal(t, models.TargetWorkPhone, mappings[0].TargetField)
	assert.Equal(t, models.TargetWorkPhone, mappings[1].TargetField)
	assert.Equal(t, models.TargetCellularPhone, mappings[2].TargetField)
}

func TestPropose_NameNotFileName(t *testing.T) {
	mappings := Propose([]string{"File Name", "Name"})
	assert.Equal(t, models.TargetSkip, mappings[0].TargetField)
	assert.Equal(t, models.TargetName, mappings[1].TargetField)
}

func TestPropose_ClientID(t *testing.T) {
	for _, header := range []string{"Client ID", "client no", "Client #"} {
		mappings := Propose([]string{header})
		assert.Equal(t, models.TargetClientID, mappings[0].TargetField, header)
		assert.Equal(t, models.TransformUppercase, mappings[0].Transform, header)
	}
}

func TestPropose_UnrecognizedSkips(t *testing.T) {
	mappings := Propose([]string{"Favorite Color", "Notes"})
	for _, m := range mappings {
		assert.Equal(t, models.TargetSkip, m.TargetField)
		assert.Equal(t, models.TransformNone, m.Transform)
	}
}

func TestPropose_PreservesSourceColumnCasing(t *testing.T) {
	mappings := Propose([]string{"  Full Name  "})
	assert.Equal(t, "  Full Name  ", mappings[0].SourceColumn)
	assert.Equal(t, models.TargetName, mappings[0].TargetField)
}

func TestPropose_Deterministic(t *testing.T) {
	headers := []string{"Name", "Email", "Phone", "Misc"}
	first := Propose(headers)
	second := Propose(headers)
	assert.Equal(t, first, second)
}
