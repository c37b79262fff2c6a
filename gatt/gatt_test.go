package gatt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagNames(t *testing.T) {
	p := PropRead | PropNotify | PropWriteNoResponse | 0x00
	assert.Equal(t, []string{"Read", "Write No Response", "Notify"}, p.Names())
	assert.Equal(t, "Read, Write No Response, Notify", p.String())
	assert.Empty(t, Property(0).Names())

	perm := PermWriteSignedMITM | PermRead | Permission(0x0200)
	assert.Equal(t, []string{"Read", "Write Signed MITM"}, perm.Names())
	assert.Equal(t, PermWriteSignedMITM|PermRead, perm.Known())

	assert.True(t, PermWriteSignedMITM&PermMITM != 0)
	assert.False(t, PermWriteSignedMITM&PermEncrypted != 0)
	assert.Equal(t, "No Response", WriteNoResponse.String())
	assert.Equal(t, "Unknown", WriteType(9).String())
}

func TestBuildResolvesNames(t *testing.T) {
	raw := []RawService{
		{
			UUID:    "0000180F-0000-1000-8000-00805F9B34FB",
			Primary: true,
			Characteristics: []RawCharacteristic{
				{UUID: "2a19", Properties: PropRead | PropNotify, WriteType: WriteDefault, Descriptors: 1},
			},
		},
		{
			UUID: "a1b2c3d4-e5f6-1111-2222-333344445555",
			Characteristics: []RawCharacteristic{
				{UUID: "a1b2c3d4-e5f6-1111-2222-333344445566", Properties: PropWrite},
			},
		},
	}
	tree := Build(raw, nil)
	require.Len(t, tree, 2)

	assert.Equal(t, "Battery Service", tree[0].Name)
	assert.Equal(t, "Primary", tree[0].Kind())
	assert.Equal(t, "0000180f-0000-1000-8000-00805f9b34fb", tree[0].UUID)
	require.Len(t, tree[0].Characteristics, 1)
	c := tree[0].Characteristics[0]
	assert.Equal(t, "Battery Level", c.Name)
	assert.True(t, c.Readable())
	assert.True(t, c.Notifies())
	assert.False(t, c.Writable())
	assert.False(t, c.Indicates())
	assert.Equal(t, 1, c.Descriptors)
	assert.Equal(t, LevelUnknown, tree[0].Level)

	assert.Equal(t, UnknownService, tree[1].Name)
	assert.Equal(t, "Secondary", tree[1].Kind())
	assert.Equal(t, UnknownCharacteristic, tree[1].Characteristics[0].Name)
	assert.Equal(t, LevelLow, tree[1].Level)
}

func collect(raw []RawService) []int {
	var got []int
	Build(raw, func(p int) { got = append(got, p) })
	return got
}

func TestBuildProgress(t *testing.T) {
	raw := []RawService{
		{UUID: "1800", Characteristics: []RawCharacteristic{{UUID: "2a00"}, {UUID: "2a01"}}},
		{UUID: "180a", Characteristics: []RawCharacteristic{{UUID: "2a29"}}},
		{UUID: "1801"},
	}
	got := collect(raw)
	require.Len(t, got, ItemCount(raw))
	assert.Equal(t, []int{16, 33, 50, 66, 83, 100}, got)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i], got[i-1])
	}
	assert.Less(t, got[0], 100)
}

func TestBuildProgressEdges(t *testing.T) {
	assert.Equal(t, []int{100}, collect(nil))
	assert.Equal(t, []int{100}, collect([]RawService{{UUID: "1800"}}))

	many := make([]RawCharacteristic, 250)
	got := collect([]RawService{{UUID: "1800", Characteristics: many}})
	assert.Equal(t, 100, got[len(got)-1])
	assert.Equal(t, 0, got[0])
}

func char(props Property, perms Permission) Characteristic {
	return Characteristic{Name: "c", Properties: props, Permissions: perms}
}

func TestServiceLevel(t *testing.T) {
	tests := []struct {
		name  string
		chars []Characteristic
		want  Level
	}{
		{"mitm wins", []Characteristic{char(PropWrite, 0), char(PropRead, PermReadEncryptedMITM)}, LevelHigh},
		{"signed mitm counts", []Characteristic{char(PropWrite, PermWriteSignedMITM)}, LevelHigh},
		{"encrypted", []Characteristic{char(PropWrite, 0), char(PropWrite, PermWriteEncrypted)}, LevelMedium},
		{"open write", []Characteristic{char(PropWriteNoResponse, 0)}, LevelLow},
		{"read only", []Characteristic{char(PropRead, 0)}, LevelUnknown},
		{"writable with plain permission", []Characteristic{char(PropWrite, PermWrite)}, LevelUnknown},
		{"empty", nil, LevelUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ServiceLevel(tt.chars))
		})
	}
}

func TestAssessOpenWrite(t *testing.T) {
	tree := Build([]RawService{{
		UUID:            "1812",
		Characteristics: []RawCharacteristic{{UUID: "2a4d", Properties: PropWrite | PropNotify}},
	}}, nil)
	require.Len(t, tree, 1)
	assert.Equal(t, LevelLow, tree[0].Level)

	rep := Assess(tree)
	require.Len(t, rep.Findings, 2)
	assert.Equal(t, SeverityHigh, rep.Findings[0].Severity)
	assert.Equal(t, IssueUnencryptedWrite, rep.Findings[0].Issue)
	assert.Equal(t, SeverityMedium, rep.Findings[1].Severity)
	assert.Equal(t, IssueNotifyNoMITM, rep.Findings[1].Issue)
	assert.Equal(t, LevelLow, rep.Overall)
	assert.Equal(t, 1, rep.Services)
	assert.Equal(t, 1, rep.Characteristics)
}

func TestAssessMITMOnly(t *testing.T) {
	tree := []Service{{
		Name: "Secure",
		Characteristics: []Characteristic{
			char(PropWrite, PermWriteEncryptedMITM),
			char(PropNotify|PropRead, PermReadEncryptedMITM),
		},
	}}
	assert.Equal(t, LevelHigh, ServiceLevel(tree[0].Characteristics))
	rep := Assess(tree)
	assert.Empty(t, rep.Findings)
	assert.Equal(t, LevelHigh, rep.Overall)
}

func TestAssessNotifyOnly(t *testing.T) {
	rep := Assess([]Service{{Characteristics: []Characteristic{char(PropNotify, PermReadEncrypted)}}})
	require.Len(t, rep.Findings, 1)
	assert.Equal(t, LevelMedium, rep.Overall)
}

func TestAssessEmptyIsOptimistic(t *testing.T) {
	rep := Assess(nil)
	assert.Equal(t, LevelHigh, rep.Overall)
	assert.Equal(t, "Good security", rep.Overall.Description())
	assert.Equal(t, LevelUnknown, overall([]Finding{{Severity: Severity(0)}}))
}
