package domain

import "strings"

// WhaleTarget es un whale configurado para seguimiento. Inmutable.
type WhaleTarget struct {
	Address    string // clave, case-insensitive
	Label      string
	Categories []string // categorías permitidas para este whale
}

// TargetSet indexa los targets por dirección normalizada.
type TargetSet struct {
	byAddress map[string]WhaleTarget
}

// NewTargetSet construye el índice. La última entrada gana si hay
// direcciones duplicadas (la configuración debería impedirlo).
func NewTargetSet(targets []WhaleTarget) TargetSet {
	m := make(map[string]WhaleTarget, len(targets))
	for _, t := range targets {
		m[normalizeAddress(t.Address)] = t
	}
	return TargetSet{byAddress: m}
}

// Lookup devuelve el target para una dirección, si está trackeada.
func (s TargetSet) Lookup(address string) (WhaleTarget, bool) {
	t, ok := s.byAddress[normalizeAddress(address)]
	return t, ok
}

// Addresses devuelve todas las direcciones normalizadas del set.
func (s TargetSet) Addresses() []string {
	out := make([]string, 0, len(s.byAddress))
	for addr := range s.byAddress {
		out = append(out, addr)
	}
	return out
}

// Len devuelve el número de targets.
func (s TargetSet) Len() int { return len(s.byAddress) }

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
