package generic

// Inserter is anything resources of kind R can be pushed into.
type Inserter[R comparable] interface {
	Insert(v Variant[R], amount Amount, tx *Transaction) (Amount, error)
}

// Extractor is anything resources of kind R can be pulled from.
type Extractor[R comparable] interface {
	Extract(v Variant[R], amount Amount, tx *Transaction) (Amount, error)
}

// EnergyInserter accepts energy.
type EnergyInserter interface {
	Insert(amount Amount, tx *Transaction) (Amount, error)
}

// EnergyExtractor provides energy.
type EnergyExtractor interface {
	Extract(amount Amount, tx *Transaction) (Amount, error)
}

var (
	_ Inserter[int]   = (*Storage[int])(nil)
	_ Extractor[int]  = (*ExposedStorage[int])(nil)
	_ Inserter[int]   = (*ExposedSlot[int])(nil)
	_ EnergyInserter  = (*EnergyStorage)(nil)
	_ EnergyExtractor = (*ExposedEnergy)(nil)
)

// Move transfers up to max of v from one side to the other and returns the
// amount moved. It probes what from can give in an aborted nested
// transaction, offers that to to, then takes exactly what to accepted. The
// move is kept only when both sides agree.
func Move[R comparable](v Variant[R], from Extractor[R], to Inserter[R], max Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, max); err != nil {
		return 0, err
	}
	requireTransaction(tx, "move")

	probe := tx.Open()
	available, err := from.Extract(v, max, probe)
	probe.Abort()
	if err != nil || available == 0 {
		return 0, err
	}

	move := tx.Open()
	defer move.Close()

	accepted, err := to.Insert(v, available, move)
	if err != nil || accepted == 0 {
		return 0, err
	}
	extracted, err := from.Extract(v, accepted, move)
	if err != nil {
		return 0, err
	}
	if extracted != accepted {
		return 0, nil
	}
	move.Commit()
	return accepted, nil
}

// MoveAll moves up to max in total from from into to, variant by variant
// in slot order, and reports whether anything moved.
func MoveAll[R comparable](from *ExposedStorage[R], to Inserter[R], max Amount, tx *Transaction) (bool, error) {
	if max < 0 {
		return false, negativeAmount(max)
	}
	requireTransaction(tx, "move all")
	if max == 0 || !from.SupportsExtraction() {
		return false, nil
	}

	remaining := max
	var tried []Variant[R]
	for _, es := range from.slots {
		if remaining == 0 {
			break
		}
		if !es.extract || es.IsEmpty() {
			continue
		}
		v := es.Variant()
		if containsVariant(tried, v) {
			continue
		}
		tried = append(tried, v)

		n, err := Move(v, from, to, remaining, tx)
		if err != nil {
			return remaining < max, err
		}
		remaining -= n
	}
	return remaining < max, nil
}

func containsVariant[R comparable](vs []Variant[R], v Variant[R]) bool {
	for _, seen := range vs {
		if seen.Equal(v) {
			return true
		}
	}
	return false
}

// MoveEnergy transfers up to max energy between two pools.
func MoveEnergy(from EnergyExtractor, to EnergyInserter, max Amount, tx *Transaction) (Amount, error) {
	if max < 0 {
		return 0, negativeAmount(max)
	}
	requireTransaction(tx, "move energy")

	probe := tx.Open()
	available, err := from.Extract(max, probe)
	probe.Abort()
	if err != nil || available == 0 {
		return 0, err
	}

	move := tx.Open()
	defer move.Close()

	accepted, err := to.Insert(available, move)
	if err != nil || accepted == 0 {
		return 0, err
	}
	extracted, err := from.Extract(accepted, move)
	if err != nil {
		return 0, err
	}
	if extracted != accepted {
		return 0, nil
	}
	move.Commit()
	return accepted, nil
}
