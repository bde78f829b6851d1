package rollparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoCards = `मतदार यादी भाग क्र. 12
ABC1234567
नाव : रमेश कुमार शिंदे
वडीलांचे नाव : कुमार शिंदे
घर क्रमांक : 12/A
वय : 45   लिंग : पुरुष
XYZ7654321
Name: Sunita Patil      Photo
Husband's Name: Anil Patil
House No.: 7
Age: ३२ Gender: Female
`

func TestParseCards(t *testing.T) {
	res, err := Parse(twoCards, "26")
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 2, res.EPICsSeen)

	first := res.Records[0]
	assert.Equal(t, "ABC1234567", first.EPIC)
	assert.Equal(t, "रमेश कुमार शिंदे", first.Name)
	assert.Equal(t, "कुमार शिंदे", first.FatherOrHusband)
	assert.Equal(t, "12/A", first.HouseNo)
	require.NotNil(t, first.Age)
	assert.Equal(t, 45, *first.Age)
	assert.Equal(t, GenderMale, first.Gender)
	assert.Equal(t, "26", first.Ward)

	second := res.Records[1]
	assert.Equal(t, "XYZ7654321", second.EPIC)
	assert.Equal(t, "Sunita Patil", second.Name)
	assert.Equal(t, "Anil Patil", second.FatherOrHusband)
	assert.Equal(t, "7", second.HouseNo)
	require.NotNil(t, second.Age)
	assert.Equal(t, 32, *second.Age)
	assert.Equal(t, GenderFemale, second.Gender)
}

func TestParseBoilerplateNameIsRejected(t *testing.T) {
	text := "नाव: सुनील पाटील\nEPIC ABC1234567\nनाव: निर्वाचक नोंदणी अधिकारी\n"
	_, err := Parse(text, "26")
	assert.ErrorIs(t, err, ErrNoVotersFound)
}

func TestParseCleanChunkAfterBoilerplate(t *testing.T) {
	head := "नाव: सुनील पाटील\nEPIC ABC1234567\nनाव: निर्वाचक नोंदणी अधिकारी\nवय: 99\n"

	t.Run("same EPIC", func(t *testing.T) {
		res, err := Parse(head+"नाव: रमेश शिंदे\n", "26")
		require.NoError(t, err)
		require.Len(t, res.Records, 1)
		assert.Equal(t, "ABC1234567", res.Records[0].EPIC)
		assert.Equal(t, "रमेश शिंदे", res.Records[0].Name)
		// The age belonged to the rejected chunk.
		assert.Nil(t, res.Records[0].Age)
	})

	t.Run("different EPIC", func(t *testing.T) {
		res, err := Parse(head+"EPIC PQR1112223\nनाव: रमेश शिंदे\n", "26")
		require.NoError(t, err)
		require.Len(t, res.Records, 1)
		assert.Equal(t, "PQR1112223", res.Records[0].EPIC)
		assert.Equal(t, 2, res.EPICsSeen)
	})
}

func TestParseOfficerTitleEndsName(t *testing.T) {
	res, err := Parse("ABC1234567\nनाव : रमेश शिंदे निर्वाचक नोंदणी अधिकारी\n", "26")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "रमेश शिंदे", res.Records[0].Name)
}

func TestParseGuardianLabelDoesNotReplaceName(t *testing.T) {
	for _, label := range []string{"Guardian's Name", "Other's Name", "Others Name"} {
		res, err := Parse("ABC1234567\nName: Ramesh Shinde\n"+label+": Kumar Shinde\n", "26")
		require.NoError(t, err, label)
		require.Len(t, res.Records, 1, label)
		assert.Equal(t, "Ramesh Shinde", res.Records[0].Name, label)
		assert.Equal(t, "Kumar Shinde", res.Records[0].FatherOrHusband, label)
	}
}

func TestParseFatherLabelDoesNotReplaceName(t *testing.T) {
	text := "ABC1234567\nName: Ramesh Shinde\nFather's Name: Kumar Shinde\nवडिलांचे नाव: कुमार\n"
	res, err := Parse(text, "26")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Ramesh Shinde", res.Records[0].Name)
	assert.Equal(t, "कुमार", res.Records[0].FatherOrHusband)
}

func TestParseLastWriteWins(t *testing.T) {
	text := "ABC1234567\nName: Old Name\nXYZ7654321\nName: Other Voter\nABC1234567\nName: New Name\n"
	res, err := Parse(text, "26")
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "ABC1234567", res.Records[0].EPIC)
	assert.Equal(t, "New Name", res.Records[0].Name)
	assert.Equal(t, "Other Voter", res.Records[1].Name)
	assert.Equal(t, 3, res.EPICsSeen)
}

func TestParseEPICPersistsAcrossChunks(t *testing.T) {
	text := "ABC1234567\nName: First Card\nAge: 30\nName: Second Card\nAge: 40\n"
	res, err := Parse(text, "26")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Second Card", res.Records[0].Name)
	require.NotNil(t, res.Records[0].Age)
	assert.Equal(t, 40, *res.Records[0].Age)
}

func TestParseSlashEPIC(t *testing.T) {
	res, err := Parse("MTA/12/345/1234567\nनांव： प्रकाश जाधव\n", "26")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "MTA123451234567", res.Records[0].EPIC)
	assert.Equal(t, "प्रकाश जाधव", res.Records[0].Name)
}

func TestParseSkipsShortNamesAndOrphans(t *testing.T) {
	// Names before any EPIC have nothing to attach to; two-rune names are noise.
	text := "Name: Orphan Voter\nABC1234567\nName: AB\nXYZ7654321\nName: Real Voter\n"
	res, err := Parse(text, "26")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "XYZ7654321", res.Records[0].EPIC)
}

func TestParseNameOnNextLine(t *testing.T) {
	res, err := Parse("ABC1234567\nनाव:\n  सुनील पाटील\n", "26")
	require.NoError(t, err)
	assert.Equal(t, "सुनील पाटील", res.Records[0].Name)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse("", "26")
	assert.ErrorIs(t, err, ErrNoVotersFound)

	_, err = Parse("ABC1234567 XYZ7654321", "26")
	assert.ErrorIs(t, err, ErrNoVotersFound)
}

func TestLabelValue(t *testing.T) {
	text := "  Ramesh Shinde   Photo Available\nnext"
	assert.Equal(t, "Ramesh Shinde", labelValue(text, 0, len(text)))
}

func TestParseAge(t *testing.T) {
	age, ok := parseAge("४५")
	assert.True(t, ok)
	assert.Equal(t, 45, age)

	_, ok = parseAge("99999999999999999999999")
	assert.False(t, ok)
}
