package models

// ResultEntry is one classified car in a race or sprint session, as
// reported by the result feed.
type ResultEntry struct {
	GivenName   string
	FamilyName  string
	Constructor string
	// Grid is the starting position, 0 when not applicable (pit-lane
	// start or missing data).
	Grid int
	// Position is the reported classification position.
	Position int
	// PositionText carries the feed's non-numeric markers ("R", "D").
	PositionText string
	// Status is the free-text finishing status ("Finished", "Retired",
	// "Collision damage", ...).
	Status string
}

// DriverName returns the driver's full display name.
func (e *ResultEntry) DriverName() string {
	if e.GivenName == "" {
		return e.FamilyName
	}
	return e.GivenName + " " + e.FamilyName
}
