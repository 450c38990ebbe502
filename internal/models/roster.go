package models

// Roster maps a canonical constructor key to its two drivers. Keys must
// already be in normalized form; driver names are display names and are
// normalized at comparison time.
type Roster map[string][2]string

// DefaultRoster is the 2026 grid. Reference data, immutable.
func DefaultRoster() Roster {
	return Roster{
		"mclaren":      {"Lando Norris", "Oscar Piastri"},
		"red bull":     {"Max Verstappen", "Isack Hadjar"},
		"ferrari":      {"Charles Leclerc", "Lewis Hamilton"},
		"mercedes":     {"George Russell", "Kimi Antonelli"},
		"aston martin": {"Fernando Alonso", "Lance Stroll"},
		"alpine":       {"Pierre Gasly", "Franco Colapinto"},
		"haas":         {"Esteban Ocon", "Oliver Bearman"},
		"racing bulls": {"Liam Lawson", "Arvid Lindblad"},
		"williams":     {"Alex Albon", "Carlos Sainz"},
		"audi":         {"Nico Hulkenberg", "Gabriel Bortoleto"},
		"cadillac":     {"Sergio Perez", "Valtteri Bottas"},
	}
}
