package survey

// Answers maps a row id to the selected column value.
type Answers map[string]string

// Clone returns an independent copy.
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

// Result is the scored outcome of a matrix.
type Result struct {
	Total       int    `json:"total"`
	MaxScore    int    `json:"max_score"`
	Grade       Grade  `json:"grade"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Score sums the points of every catalog row. Rows that are missing or carry
// an unknown value contribute zero; answers for rows outside the catalog are ignored.
func Score(c *Catalog, answers Answers) Result {
	total := 0
	for _, row := range c.Rows {
		if points, ok := c.Points(answers[row.ID]); ok {
			total += points
		}
	}

	band := c.BandFor(total)
	return Result{
		Total:       total,
		MaxScore:    c.MaxScore(),
		Grade:       band.Grade,
		Title:       band.Title,
		Description: band.Description,
	}
}

// BandFor returns the first band whose threshold the total reaches.
// Totals below every threshold fall into the lowest band.
func (c *Catalog) BandFor(total int) Band {
	for _, band := range c.Bands {
		if total >= band.Min {
			return band
		}
	}
	return c.Bands[len(c.Bands)-1]
}

// BandOf looks up the copy for a stored grade.
func (c *Catalog) BandOf(grade Grade) (Band, bool) {
	for _, band := range c.Bands {
		if band.Grade == grade {
			return band, true
		}
	}
	return Band{}, false
}
