/*
sync.go - Delta synchronization of storages

PURPOSE:
  A machine screen mirrors the server's storages. Instead of resending
  everything each tick, a syncer remembers the modification count of every
  slot as of the last packet and only sends slots that changed since.

WIRE FORMAT:
  storage delta:  varint count, then count x (varint slot index, slot packet)
  slot packet:    varlong amount; when amount > 0, string resource id and
                  length-prefixed tag compound
  energy delta:   varlong amount
*/
package generic

// StorageSyncer tracks what one client has seen of a storage.
type StorageSyncer[R comparable] struct {
	storage *Storage[R]
	sent    []uint64
	primed  bool
}

// NewStorageSyncer creates a syncer whose first delta carries every slot.
func NewStorageSyncer[R comparable](storage *Storage[R]) *StorageSyncer[R] {
	return &StorageSyncer[R]{storage: storage, sent: make([]uint64, storage.Size())}
}

// NeedsSyncing reports whether any slot changed since the last WriteDelta.
func (y *StorageSyncer[R]) NeedsSyncing() bool {
	if !y.primed {
		return y.storage.Size() > 0
	}
	for i, slot := range y.storage.slots {
		if slot.Modifications() != y.sent[i] {
			return true
		}
	}
	return false
}

// WriteDelta writes the changed slots and marks them as sent.
func (y *StorageSyncer[R]) WriteDelta(buf *Buffer) {
	var changed []int
	for i, slot := range y.storage.slots {
		if !y.primed || slot.Modifications() != y.sent[i] {
			changed = append(changed, i)
		}
	}

	buf.WriteVarInt(len(changed))
	for _, i := range changed {
		slot := y.storage.slots[i]
		buf.WriteVarInt(i)
		writeSlot(buf, slot)
		y.sent[i] = slot.modifications
	}
	y.primed = true
}

func writeSlot[R comparable](buf *Buffer, slot *Slot[R]) {
	buf.WriteVarLong(int64(slot.amount))
	if slot.amount > 0 {
		buf.WriteString(slot.kind.ID(slot.variant.resource))
		buf.WriteCompound(slot.variant.tag)
	}
}

// ReadStorageDelta applies a delta written by WriteDelta to a client-side
// copy of the storage. Indices outside the storage are skipped.
func ReadStorageDelta[R comparable](storage *Storage[R], buf *Buffer) error {
	n := buf.ReadVarInt()
	for range n {
		index := buf.ReadVarInt()
		amount := Amount(buf.ReadVarLong())
		var v Variant[R]
		if amount > 0 {
			id := buf.ReadString()
			tag := buf.ReadCompound()
			if resource, ok := storage.kind.Lookup(id); ok {
				v = NewVariant(resource, tag)
			}
		}
		if err := buf.Err(); err != nil {
			return err
		}
		if index < 0 || index >= storage.Size() {
			continue
		}
		storage.slots[index].applySync(v, amount)
	}
	return buf.Err()
}

// applySync overwrites the slot with server state and counts it as a
// modification so client-side caches refresh.
func (s *Slot[R]) applySync(v Variant[R], amount Amount) {
	if err := s.Set(v, amount); err != nil {
		return
	}
	s.finalize()
}

// EnergySyncer tracks what one client has seen of an energy pool.
type EnergySyncer struct {
	storage *EnergyStorage
	sent    uint64
	primed  bool
}

func NewEnergySyncer(storage *EnergyStorage) *EnergySyncer {
	return &EnergySyncer{storage: storage}
}

func (y *EnergySyncer) NeedsSyncing() bool {
	return !y.primed || y.storage.Modifications() != y.sent
}

func (y *EnergySyncer) WriteDelta(buf *Buffer) {
	buf.WriteVarLong(int64(y.storage.amount))
	y.sent = y.storage.Modifications()
	y.primed = true
}

// ReadEnergyDelta applies an energy delta to a client-side pool.
func ReadEnergyDelta(storage *EnergyStorage, buf *Buffer) error {
	amount := Amount(buf.ReadVarLong())
	if err := buf.Err(); err != nil {
		return err
	}
	if err := storage.SetAmount(max(0, amount)); err != nil {
		return err
	}
	storage.modifications++
	return nil
}
