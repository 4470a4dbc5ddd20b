package model

import "sort"

// Selection is the set of selected objects. Each id maps to the kind it was
// selected as, so an object belongs to at most one of the per-kind views.
type Selection map[string]Kind

// Clone returns an independent copy of s.
func (s Selection) Clone() Selection {
	c := make(Selection, len(s))
	for id, k := range s {
		c[id] = k
	}
	return c
}

// Has reports whether id is selected.
func (s Selection) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Union returns a new selection holding every id in s or o.
func (s Selection) Union(o Selection) Selection {
	c := s.Clone()
	for id, k := range o {
		c[id] = k
	}
	return c
}

// Equal reports whether s and o hold the same ids.
func (s Selection) Equal(o Selection) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// IDs returns all selected ids in sorted order.
func (s Selection) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Cards returns the selected card ids.
func (s Selection) Cards() []string { return s.ofKind(KindCard) }

// Stickers returns the selected sticker ids.
func (s Selection) Stickers() []string { return s.ofKind(KindSticker) }

// Images returns the selected image ids.
func (s Selection) Images() []string { return s.ofKind(KindImage) }

func (s Selection) ofKind(k Kind) []string {
	var ids []string
	for id, kind := range s {
		if kind == k {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
