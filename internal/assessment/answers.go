package assessment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Address names one answer slot: item index plus slot index. Slot 0 is the
// only slot of single-slot items.
type Address struct {
	Item int
	Slot int
}

// At addresses slot 0 of an item.
func At(item int) Address { return Address{Item: item} }

// String renders "3" for slot 0 and "3.2" otherwise.
func (a Address) String() string {
	if a.Slot == 0 {
		return strconv.Itoa(a.Item)
	}
	return strconv.Itoa(a.Item) + "." + strconv.Itoa(a.Slot)
}

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(b []byte) error {
	p, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = p
	return nil
}

// ParseAddress reads "item" or "item.slot". Out-of-range numbers, negative
// ones included, parse fine and are dropped later by Within.
func ParseAddress(s string) (Address, error) {
	itemPart, slotPart, hasSlot := strings.Cut(strings.TrimSpace(s), ".")
	item, err := strconv.Atoi(itemPart)
	if err != nil {
		return Address{}, fmt.Errorf("invalid answer address %q", s)
	}
	a := Address{Item: item}
	if hasSlot {
		slot, err := strconv.Atoi(slotPart)
		if err != nil {
			return Address{}, fmt.Errorf("invalid answer address %q", s)
		}
		a.Slot = slot
	}
	return a, nil
}

// Answers maps addresses to the participant's chosen value.
type Answers map[Address]string

func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Get returns slot 0 of item i.
func (a Answers) Get(i int) (string, bool) {
	v, ok := a[At(i)]
	return v, ok
}

// Slot returns the value at item i, slot s.
func (a Answers) Slot(i, s int) (string, bool) {
	v, ok := a[Address{Item: i, Slot: s}]
	return v, ok
}

// Within drops addresses that do not reference an existing item slot.
func (a Answers) Within(items []Item) Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		if k.Item < 0 || k.Item >= len(items) {
			continue
		}
		if k.Slot < 0 || k.Slot >= items[k.Item].Slots() {
			continue
		}
		out[k] = v
	}
	return out
}

// Addresses returns the keys in item, slot order.
func (a Answers) Addresses() []Address {
	out := make([]Address, 0, len(a))
	for k := range a {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Item != out[j].Item {
			return out[i].Item < out[j].Item
		}
		return out[i].Slot < out[j].Slot
	})
	return out
}
