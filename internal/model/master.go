package model

// College is a selectable institution on the registration form.
type College struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Branch is a selectable field of study.
type Branch struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// YearOfPassing is a selectable graduation year.
type YearOfPassing struct {
	ID   int64 `json:"id"`
	Year int   `json:"year"`
}

// MasterData bundles the reference lists shown on the registration form.
type MasterData struct {
	Colleges []College       `json:"colleges"`
	Branches []Branch        `json:"branches"`
	Years    []YearOfPassing `json:"years"`
}
