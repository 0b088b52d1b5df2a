package machine_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/machine-storage/generic"
	"github.com/warp/machine-storage/machine"
)

func TestResourceType_WillAccept(t *testing.T) {
	tests := []struct {
		face  machine.ResourceType
		other machine.ResourceType
		want  bool
	}{
		{machine.ResourceNone, machine.ResourceNone, false},
		{machine.ResourceItem, machine.ResourceItem, true},
		{machine.ResourceItem, machine.ResourceFluid, false},
		{machine.ResourceAny, machine.ResourceEnergy, true},
		{machine.ResourceAny, machine.ResourceFluid, true},
		{machine.ResourceEnergy, machine.ResourceAny, false},
	}
	for _, tc := range tests {
		t.Run(tc.face.String()+"/"+tc.other.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.face.WillAccept(tc.other))
		})
	}

	assert.False(t, machine.ResourceEnergy.MatchesGroups())
	assert.True(t, machine.ResourceAny.MatchesGroups())
	assert.False(t, machine.ResourceAny.MatchesSlots())
}

func TestFace(t *testing.T) {
	f, err := machine.ParseFace("Top")
	require.NoError(t, err)
	assert.Equal(t, machine.FaceTop, f)
	assert.Equal(t, machine.FaceBottom, f.Opposite())
	assert.Equal(t, machine.FaceRight, machine.FaceLeft.Opposite())

	_, err = machine.ParseFace("north")
	assert.ErrorIs(t, err, generic.ErrInvalidArgument)
}

func TestRedstoneActivation_IsActive(t *testing.T) {
	tests := []struct {
		mode    machine.RedstoneActivation
		powered bool
		want    bool
	}{
		{machine.RedstoneIgnore, false, true},
		{machine.RedstoneIgnore, true, true},
		{machine.RedstoneLow, false, true},
		{machine.RedstoneLow, true, false},
		{machine.RedstoneHigh, false, false},
		{machine.RedstoneHigh, true, true},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.mode.IsActive(tc.powered), "%s powered=%v", tc.mode, tc.powered)
	}
}

func TestSecurity(t *testing.T) {
	owner, stranger := uuid.New(), uuid.New()
	var s machine.Security

	assert.True(t, s.HasAccess(stranger), "public by default")
	require.True(t, s.SetOwner(owner, "alex"))
	assert.False(t, s.SetOwner(stranger, "sam"), "owner is set once")
	assert.True(t, s.IsOwner(owner))

	tests := []struct {
		level machine.AccessLevel
		owner bool
		other bool
	}{
		{machine.AccessPublic, true, true},
		{machine.AccessTeam, true, false},
		{machine.AccessPrivate, true, false},
	}
	for _, tc := range tests {
		s.SetAccessLevel(tc.level)
		assert.Equal(t, tc.owner, s.HasAccess(owner), tc.level.String())
		assert.Equal(t, tc.other, s.HasAccess(stranger), tc.level.String())
	}

	assert.ErrorIs(t, s.SetTeam("", "Reds"), generic.ErrInvalidArgument)
	require.NoError(t, s.SetTeam("red", "Reds"))

	var loaded machine.Security
	loaded.Load(s.Save())
	assert.Equal(t, s, loaded)
}

func TestSecurity_LoadMalformed(t *testing.T) {
	var s machine.Security
	s.Load(generic.Compound{"Owner": "not-a-uuid", "AccessLevel": "secret"})
	assert.False(t, s.HasOwner())
	assert.Equal(t, machine.AccessPublic, s.AccessLevel())
}

func TestStatusDomain(t *testing.T) {
	d := domain(t, []*machine.Status{machine.StatusActive, machine.StatusIdle})

	assert.Equal(t, 0, d.IndexOf(machine.StatusActive))
	assert.Equal(t, 1, d.IndexOf(machine.StatusIdle))
	assert.Equal(t, -1, d.IndexOf(nil))
	assert.Equal(t, -1, d.IndexOf(machine.StatusOutputBlocked), "foreign status")
	assert.Same(t, machine.StatusIdle, d.At(1))
	assert.Nil(t, d.At(-1))
	assert.Nil(t, d.At(7))
	assert.True(t, machine.StatusActive.Type.IsActive())
	assert.False(t, machine.StatusIdle.Type.IsActive())
}

func TestIOFace_SaveLoad(t *testing.T) {
	tests := []struct {
		name string
		face machine.IOFace
		want machine.IOFace
	}{
		{"disabled", machine.IOFace{}, machine.IOFace{}},
		{
			"items with group",
			machine.NewIOFace(machine.ResourceItem, generic.FlowOutput).WithSelection(generic.SelectGroup(1)),
			machine.NewIOFace(machine.ResourceItem, generic.FlowOutput).WithSelection(generic.SelectGroup(1)),
		},
		{
			"energy drops selection",
			machine.NewIOFace(machine.ResourceEnergy, generic.FlowInput).WithSelection(generic.SelectSlot(0)),
			machine.NewIOFace(machine.ResourceEnergy, generic.FlowInput),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, machine.LoadIOFace(tc.face.Save()))
		})
	}

	assert.Equal(t, machine.IOFace{}, machine.LoadIOFace(generic.Compound{"Resource": int64(9)}))
}

func TestConfigSyncer(t *testing.T) {
	// GIVEN: A client that has received the full configuration once
	// WHEN: Only the redstone mode changes on the server
	// THEN: The next delta carries the redstone bit alone

	d := domain(t, []*machine.Status{machine.StatusActive, machine.StatusIdle})
	server := machine.Configuration{Status: machine.StatusIdle}
	server.IO.Set(machine.FaceTop, machine.NewIOFace(machine.ResourceFluid, generic.FlowBoth).WithSelection(generic.SelectSlot(2)))
	server.Security.SetOwner(uuid.New(), "alex")
	syncer := machine.NewConfigSyncer(&server, d)

	var client machine.Configuration
	require.True(t, syncer.NeedsSyncing())
	buf := &generic.Buffer{}
	syncer.WriteDelta(buf)
	require.NoError(t, machine.ReadConfigDelta(&client, d, generic.NewBuffer(buf.Bytes())))
	assert.Equal(t, server, client)
	assert.False(t, syncer.NeedsSyncing())

	server.Redstone = machine.RedstoneHigh
	buf = &generic.Buffer{}
	syncer.WriteDelta(buf)
	assert.Equal(t, []byte{0b1000, byte(machine.RedstoneHigh)}, buf.Bytes())

	require.NoError(t, machine.ReadConfigDelta(&client, d, generic.NewBuffer(buf.Bytes())))
	assert.Equal(t, server, client)
}

func TestReadConfigDelta_MalformedLeavesConfig(t *testing.T) {
	d := domain(t, nil)
	config := machine.Configuration{Redstone: machine.RedstoneLow}

	err := machine.ReadConfigDelta(&config, d, generic.NewBuffer([]byte{0b1000, 9}))
	assert.Error(t, err)
	assert.Equal(t, machine.RedstoneLow, config.Redstone)
}
