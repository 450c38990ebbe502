package models

import "time"

// Prediction is one user's picks for the pending event. Exactly one row
// per user: a resubmission overwrites. The whole table is cleared when
// the event settles.
type Prediction struct {
	ID       int    `db:"id"`
	UserName string `db:"user_name"`

	// Finishing-position guesses for the named grid slots.
	P1  string `db:"p1"`
	P2  string `db:"p2"`
	P3  string `db:"p3"`
	P10 string `db:"p10"`
	P11 string `db:"p11"`
	P19 string `db:"p19"`
	P20 string `db:"p20"`

	// Constructor-rank guesses.
	C1  string `db:"c1"`
	C2  string `db:"c2"`
	C5  string `db:"c5"`
	C6  string `db:"c6"`
	C10 string `db:"c10"`

	// Wildcards, flat bonus on a hit.
	RaceLoser    string `db:"w_race_loser"`
	SprintGainer string `db:"w_sprint_gainer"`
	SprintLoser  string `db:"w_sprint_loser"`

	UpdatedAt time.Time `db:"updated_at"`
}

// PositionGuess pairs a guessed driver with the finishing position the
// slot targets.
type PositionGuess struct {
	Driver string
	Rank   int
}

// ConstructorGuess pairs a guessed constructor with the rank the slot
// targets.
type ConstructorGuess struct {
	Constructor string
	Rank        int
}

// PositionGuesses returns the driver slots in slot order.
func (p *Prediction) PositionGuesses() []PositionGuess {
	return []PositionGuess{
		{p.P1, 1}, {p.P2, 2}, {p.P3, 3},
		{p.P10, 10}, {p.P11, 11},
		{p.P19, 19}, {p.P20, 20},
	}
}

// ConstructorGuesses returns the constructor slots in slot order.
func (p *Prediction) ConstructorGuesses() []ConstructorGuess {
	return []ConstructorGuess{
		{p.C1, 1}, {p.C2, 2}, {p.C5, 5}, {p.C6, 6}, {p.C10, 10},
	}
}

// PredictionInput is the submission payload. Blank slots are allowed
// and score zero.
type PredictionInput struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`

	P1  string `json:"p1"`
	P2  string `json:"p2"`
	P3  string `json:"p3"`
	P10 string `json:"p10"`
	P11 string `json:"p11"`
	P19 string `json:"p19"`
	P20 string `json:"p20"`

	C1  string `json:"c1"`
	C2  string `json:"c2"`
	C5  string `json:"c5"`
	C6  string `json:"c6"`
	C10 string `json:"c10"`

	RaceLoser    string `json:"w_race_loser"`
	SprintGainer string `json:"w_sprint_gainer"`
	SprintLoser  string `json:"w_sprint_loser"`
}

// ToPrediction converts a submission payload to a Prediction row.
func (in *PredictionInput) ToPrediction() *Prediction {
	return &Prediction{
		UserName:     in.UserName,
		P1:           in.P1,
		P2:           in.P2,
		P3:           in.P3,
		P10:          in.P10,
		P11:          in.P11,
		P19:          in.P19,
		P20:          in.P20,
		C1:           in.C1,
		C2:           in.C2,
		C5:           in.C5,
		C6:           in.C6,
		C10:          in.C10,
		RaceLoser:    in.RaceLoser,
		SprintGainer: in.SprintGainer,
		SprintLoser:  in.SprintLoser,
	}
}
