package ledger

import (
	"context"
	"errors"
	"fmt"
)

// entry is the in-memory copy of one record touched by an invocation.
type entry struct {
	rec     Record
	stored  bool   // record existed in the store when loaded
	version uint64 // stored version at load time
	live    bool   // record exists from the invocation's point of view
	dirty   bool
}

// Invocation stages record reads and writes for one engine operation.
// Every record is loaded at most once and written back at most once, all
// together in Commit. An invocation that is never committed has no effect.
type Invocation struct {
	store     Store
	rent      Rent
	entries   map[string]*entry
	order     []string
	committed bool
}

// Begin starts a new invocation over store.
func Begin(store Store, rent Rent) *Invocation {
	return &Invocation{
		store:   store,
		rent:    rent,
		entries: make(map[string]*entry),
	}
}

// Rent returns the rent schedule used by the invocation.
func (iv *Invocation) Rent() Rent {
	return iv.rent
}

func (iv *Invocation) load(ctx context.Context, id string) (*entry, error) {
	if iv.committed {
		return nil, ErrCommitted
	}
	if e, ok := iv.entries[id]; ok {
		return e, nil
	}

	rec, err := iv.store.Get(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		e := &entry{rec: Record{ID: id}}
		iv.entries[id] = e
		iv.order = append(iv.order, id)
		return e, nil
	case err != nil:
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}

	data := make([]byte, len(rec.Data))
	copy(data, rec.Data)
	e := &entry{
		rec:     Record{ID: id, Data: data, Lamports: rec.Lamports, Version: rec.Version},
		stored:  true,
		version: rec.Version,
		live:    true,
	}
	iv.entries[id] = e
	iv.order = append(iv.order, id)
	return e, nil
}

// Exists reports whether the record currently exists.
func (iv *Invocation) Exists(ctx context.Context, id string) (bool, error) {
	e, err := iv.load(ctx, id)
	if err != nil {
		return false, err
	}
	return e.live, nil
}

// Read returns a copy of the record data. Returns ErrNotFound if it does not exist.
func (iv *Invocation) Read(ctx context.Context, id string) ([]byte, error) {
	e, err := iv.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.live {
		return nil, fmt.Errorf("read %s: %w", id, ErrNotFound)
	}
	out := make([]byte, len(e.rec.Data))
	copy(out, e.rec.Data)
	return out, nil
}

// Lamports returns the lamport balance of a record. Returns ErrNotFound if it does not exist.
func (iv *Invocation) Lamports(ctx context.Context, id string) (uint64, error) {
	e, err := iv.load(ctx, id)
	if err != nil {
		return 0, err
	}
	if !e.live {
		return 0, fmt.Errorf("lamports %s: %w", id, ErrNotFound)
	}
	return e.rec.Lamports, nil
}

// Create allocates a zeroed record of size bytes, funding its rent from payer.
func (iv *Invocation) Create(ctx context.Context, id string, size int, payer string) error {
	e, err := iv.load(ctx, id)
	if err != nil {
		return err
	}
	if e.live {
		return fmt.Errorf("create %s: %w", id, ErrAlreadyExists)
	}

	need := iv.rent.MinimumBalance(size)
	if err := iv.debit(ctx, payer, need); err != nil {
		return fmt.Errorf("fund %s: %w", id, err)
	}

	e.rec.Data = make([]byte, size)
	e.rec.Lamports = need
	e.live = true
	e.dirty = true
	return nil
}

// Write replaces the data of an existing record. The length must equal the allocated size.
func (iv *Invocation) Write(ctx context.Context, id string, data []byte) error {
	e, err := iv.load(ctx, id)
	if err != nil {
		return err
	}
	if !e.live {
		return fmt.Errorf("write %s: %w", id, ErrNotFound)
	}
	if len(data) != len(e.rec.Data) {
		return fmt.Errorf("write %s (%d != %d): %w", id, len(data), len(e.rec.Data), ErrSizeMismatch)
	}
	copy(e.rec.Data, data)
	e.dirty = true
	return nil
}

// Grow extends a record to newSize bytes, topping up rent from payer first.
func (iv *Invocation) Grow(ctx context.Context, id string, newSize int, payer string) error {
	e, err := iv.load(ctx, id)
	if err != nil {
		return err
	}
	if !e.live {
		return fmt.Errorf("grow %s: %w", id, ErrNotFound)
	}
	if newSize < len(e.rec.Data) {
		return fmt.Errorf("grow %s to %d bytes: %w", id, newSize, ErrSizeMismatch)
	}

	need := iv.rent.MinimumBalance(newSize)
	if need > e.rec.Lamports {
		topUp := need - e.rec.Lamports
		if err := iv.debit(ctx, payer, topUp); err != nil {
			return fmt.Errorf("fund growth of %s: %w", id, err)
		}
		e.rec.Lamports += topUp
	}

	grown := make([]byte, newSize)
	copy(grown, e.rec.Data)
	e.rec.Data = grown
	e.dirty = true
	return nil
}

// Close deletes a record and moves its lamports to beneficiary.
func (iv *Invocation) Close(ctx context.Context, id string, beneficiary string) error {
	if id == beneficiary {
		return fmt.Errorf("close %s into itself: %w", id, ErrInvalidIdentity)
	}
	e, err := iv.load(ctx, id)
	if err != nil {
		return err
	}
	if !e.live {
		return fmt.Errorf("close %s: %w", id, ErrNotFound)
	}

	if err := iv.credit(ctx, beneficiary, e.rec.Lamports, false); err != nil {
		return fmt.Errorf("refund %s: %w", id, err)
	}

	e.rec.Data = nil
	e.rec.Lamports = 0
	e.live = false
	e.dirty = true
	return nil
}

// Deposit adds lamports to a wallet, creating an empty wallet record if needed.
func (iv *Invocation) Deposit(ctx context.Context, id string, lamports uint64) error {
	return iv.credit(ctx, id, lamports, true)
}

func (iv *Invocation) debit(ctx context.Context, id string, lamports uint64) error {
	e, err := iv.load(ctx, id)
	if err != nil {
		return err
	}
	if !e.live {
		return fmt.Errorf("payer %s: %w", id, ErrNotFound)
	}
	if e.rec.Lamports < lamports {
		return fmt.Errorf("payer %s has %d, needs %d: %w", id, e.rec.Lamports, lamports, ErrInsufficientLamports)
	}
	e.rec.Lamports -= lamports
	e.dirty = true
	return nil
}

func (iv *Invocation) credit(ctx context.Context, id string, lamports uint64, create bool) error {
	e, err := iv.load(ctx, id)
	if err != nil {
		return err
	}
	if !e.live {
		if !create {
			return fmt.Errorf("beneficiary %s: %w", id, ErrNotFound)
		}
		e.rec.Data = []byte{}
		e.live = true
	}
	e.rec.Lamports += lamports
	e.dirty = true
	return nil
}

// Commit writes every modified record back to the store in one atomic Apply.
func (iv *Invocation) Commit(ctx context.Context) error {
	if iv.committed {
		return ErrCommitted
	}

	var changes []Change
	for _, id := range iv.order {
		e := iv.entries[id]
		if !e.dirty {
			continue
		}
		switch {
		case e.live:
			changes = append(changes, Change{
				Kind:            ChangeUpsert,
				Record:          e.rec,
				ExpectedVersion: e.version,
			})
		case e.stored:
			changes = append(changes, Change{
				Kind:            ChangeDelete,
				Record:          Record{ID: id},
				ExpectedVersion: e.version,
			})
		}
	}

	iv.committed = true
	if len(changes) == 0 {
		return nil
	}
	if err := iv.store.Apply(ctx, changes); err != nil {
		return fmt.Errorf("apply %d changes: %w", len(changes), err)
	}
	return nil
}

// GetOrCreate returns the data of record id, creating it with init() first if
// it does not exist. The created flag reports whether the record was created.
func GetOrCreate(ctx context.Context, iv *Invocation, id string, payer string, init func() []byte) ([]byte, bool, error) {
	exists, err := iv.Exists(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if exists {
		data, err := iv.Read(ctx, id)
		return data, false, err
	}

	data := init()
	if err := iv.Create(ctx, id, len(data), payer); err != nil {
		return nil, false, err
	}
	if err := iv.Write(ctx, id, data); err != nil {
		return nil, false, err
	}
	return data, true, nil
}
