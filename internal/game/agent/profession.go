package agent

// Profession is a character's primary or secondary classification.
type Profession uint8

const (
	ProfessionNone Profession = iota
	ProfessionWarrior
	ProfessionRanger
	ProfessionMonk
	ProfessionNecromancer
	ProfessionMesmer
	ProfessionElementalist
	ProfessionAssassin
	ProfessionRitualist
	ProfessionParagon
	ProfessionDervish
)

var professionAcronyms = [...]string{
	ProfessionNone:         "x",
	ProfessionWarrior:      "W",
	ProfessionRanger:       "R",
	ProfessionMonk:         "Mo",
	ProfessionNecromancer:  "N",
	ProfessionMesmer:       "Me",
	ProfessionElementalist: "E",
	ProfessionAssassin:     "A",
	ProfessionRitualist:    "Rt",
	ProfessionParagon:      "P",
	ProfessionDervish:      "D",
}

// Acronym returns the short chat label of the profession.
//
// Postcondition: Returns "x" for None and for out-of-range values.
func (p Profession) Acronym() string {
	if int(p) >= len(professionAcronyms) {
		return professionAcronyms[ProfessionNone]
	}
	return professionAcronyms[p]
}
