package machine

import (
	"fmt"

	"github.com/warp/machine-storage/generic"
)

// Config delta sections, in wire order.
const (
	syncIO       = 0b0001
	syncSecurity = 0b0010
	syncStatus   = 0b0100
	syncRedstone = 0b1000
)

// ConfigSyncer tracks what one client has seen of a machine's
// configuration. Each delta is a bitmask byte followed by only the sections
// it names.
type ConfigSyncer struct {
	config *Configuration
	domain *StatusDomain

	primed   bool
	io       IOConfig
	security Security
	status   *Status
	redstone RedstoneActivation
}

func NewConfigSyncer(config *Configuration, domain *StatusDomain) *ConfigSyncer {
	return &ConfigSyncer{config: config, domain: domain}
}

func (y *ConfigSyncer) changed() uint8 {
	if !y.primed {
		return syncIO | syncSecurity | syncStatus | syncRedstone
	}
	var bits uint8
	if y.io != y.config.IO {
		bits |= syncIO
	}
	if y.security != y.config.Security {
		bits |= syncSecurity
	}
	if y.status != y.config.Status {
		bits |= syncStatus
	}
	if y.redstone != y.config.Redstone {
		bits |= syncRedstone
	}
	return bits
}

func (y *ConfigSyncer) NeedsSyncing() bool { return y.changed() != 0 }

// WriteDelta writes the changed sections and marks them as sent.
func (y *ConfigSyncer) WriteDelta(buf *generic.Buffer) {
	bits := y.changed()
	buf.WriteUint8(bits)
	if bits&syncIO != 0 {
		writeIOConfig(buf, &y.config.IO)
		y.io = y.config.IO
	}
	if bits&syncSecurity != 0 {
		y.config.Security.writePacket(buf)
		y.security = y.config.Security
	}
	if bits&syncStatus != 0 {
		buf.WriteVarInt(y.domain.IndexOf(y.config.Status))
		y.status = y.config.Status
	}
	if bits&syncRedstone != 0 {
		buf.WriteUint8(uint8(y.config.Redstone))
		y.redstone = y.config.Redstone
	}
	y.primed = true
}

// ReadConfigDelta applies a delta to a client-side configuration. Nothing
// is applied when the packet is malformed.
func ReadConfigDelta(config *Configuration, domain *StatusDomain, buf *generic.Buffer) error {
	next := *config
	bits := buf.ReadUint8()
	if bits&syncIO != 0 {
		if err := readIOConfig(buf, &next.IO); err != nil {
			return err
		}
	}
	if bits&syncSecurity != 0 {
		if err := next.Security.readPacket(buf); err != nil {
			return err
		}
	}
	if bits&syncStatus != 0 {
		next.Status = domain.At(buf.ReadVarInt())
	}
	if bits&syncRedstone != 0 {
		r := RedstoneActivation(buf.ReadUint8())
		if int(r) >= len(redstoneNames) {
			return fmt.Errorf("failed to read redstone activation: unknown ordinal %d", r)
		}
		next.Redstone = r
	}
	if err := buf.Err(); err != nil {
		return err
	}
	*config = next
	return nil
}

const (
	selectionNone  = 0
	selectionGroup = 1
	selectionSlot  = 2
)

func writeIOConfig(buf *generic.Buffer, io *IOConfig) {
	for _, face := range Faces {
		f := io[face]
		buf.WriteUint8(uint8(f.Type))
		buf.WriteUint8(uint8(f.Flow))
		switch {
		case f.Selection.IsSlot():
			buf.WriteUint8(selectionSlot)
			buf.WriteVarInt(f.Selection.Index())
		case f.Selection.IsGroup():
			buf.WriteUint8(selectionGroup)
			buf.WriteVarInt(f.Selection.Index())
		default:
			buf.WriteUint8(selectionNone)
		}
	}
}

func readIOConfig(buf *generic.Buffer, io *IOConfig) error {
	for _, face := range Faces {
		t, ok := ResourceTypeFromOrdinal(int(buf.ReadUint8()))
		if !ok {
			return fmt.Errorf("failed to read %s face: unknown resource type", face)
		}
		flow, ok := generic.FlowFromOrdinal(int(buf.ReadUint8()))
		if !ok {
			return fmt.Errorf("failed to read %s face: unknown flow", face)
		}
		var sel generic.Selection
		switch buf.ReadUint8() {
		case selectionSlot:
			sel = generic.SelectSlot(buf.ReadVarInt())
		case selectionGroup:
			sel = generic.SelectGroup(buf.ReadVarInt())
		}
		io[face] = NewIOFace(t, flow).WithSelection(sel)
	}
	return buf.Err()
}
