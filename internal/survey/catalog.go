package survey

import (
	"fmt"
	"sort"
)

// Grade buckets a total score.
type Grade string

const (
	GradeHigh Grade = "high"
	GradeMid  Grade = "mid"
	GradeLow  Grade = "low"
)

// Row is one Likert statement of the attitude matrix.
type Row struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Column is one ordinal answer choice shared by every row.
type Column struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	Display string `json:"display"`
	Points  int    `json:"points"`
}

// Band maps totals at or above Min to a grade with fixed copy.
type Band struct {
	Grade       Grade  `json:"grade"`
	Min         int    `json:"min"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Course is an entry of the optional course selection on the profile form.
type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Catalog is the immutable question set together with its scoring bands.
type Catalog struct {
	Version string   `json:"version"`
	Title   string   `json:"title"`
	Rows    []Row    `json:"rows"`
	Columns []Column `json:"columns"`
	Bands   []Band   `json:"bands"`
	Courses []Course `json:"courses"`

	rowIndex    map[string]int
	columnIndex map[string]int
}

// NewCatalog validates the definition and builds the lookup indexes.
// Bands are sorted by descending Min so the first match wins.
func NewCatalog(version, title string, rows []Row, columns []Column, bands []Band, courses []Course) (*Catalog, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("catalog %s has no rows", version)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("catalog %s has no columns", version)
	}
	if len(bands) == 0 {
		return nil, fmt.Errorf("catalog %s has no grade bands", version)
	}

	c := &Catalog{
		Version:     version,
		Title:       title,
		Rows:        append([]Row(nil), rows...),
		Columns:     append([]Column(nil), columns...),
		Bands:       append([]Band(nil), bands...),
		Courses:     append([]Course(nil), courses...),
		rowIndex:    make(map[string]int, len(rows)),
		columnIndex: make(map[string]int, len(columns)),
	}

	for i, row := range c.Rows {
		if row.ID == "" {
			return nil, fmt.Errorf("catalog %s row %d has empty id", version, i)
		}
		if _, exists := c.rowIndex[row.ID]; exists {
			return nil, fmt.Errorf("catalog %s has duplicate row %q", version, row.ID)
		}
		c.rowIndex[row.ID] = i
	}

	for i, column := range c.Columns {
		if _, exists := c.columnIndex[column.Value]; exists {
			return nil, fmt.Errorf("catalog %s has duplicate column %q", version, column.Value)
		}
		c.columnIndex[column.Value] = i
	}

	sort.SliceStable(c.Bands, func(i, j int) bool {
		return c.Bands[i].Min > c.Bands[j].Min
	})

	return c, nil
}

// MustCatalog is NewCatalog for package-level definitions.
func MustCatalog(version, title string, rows []Row, columns []Column, bands []Band, courses []Course) *Catalog {
	c, err := NewCatalog(version, title, rows, columns, bands, courses)
	if err != nil {
		panic(err)
	}
	return c
}

// HasRow reports whether id is one of the catalog rows.
func (c *Catalog) HasRow(id string) bool {
	_, ok := c.rowIndex[id]
	return ok
}

// Points returns the numeric value of a column, or false for unknown values.
func (c *Catalog) Points(value string) (int, bool) {
	idx, ok := c.columnIndex[value]
	if !ok {
		return 0, false
	}
	return c.Columns[idx].Points, true
}

// MaxPoints is the highest value a single row can score.
func (c *Catalog) MaxPoints() int {
	max := 0
	for _, column := range c.Columns {
		if column.Points > max {
			max = column.Points
		}
	}
	return max
}

// MaxScore is the score of a fully answered matrix at the top column.
func (c *Catalog) MaxScore() int {
	return len(c.Rows) * c.MaxPoints()
}

// HasCourse reports whether id names an offered course. Empty is always allowed.
func (c *Catalog) HasCourse(id string) bool {
	if id == "" {
		return true
	}
	for _, course := range c.Courses {
		if course.ID == id {
			return true
		}
	}
	return false
}

// ColumnValues lists the accepted answer values in catalog order.
func (c *Catalog) ColumnValues() []string {
	values := make([]string, 0, len(c.Columns))
	for _, column := range c.Columns {
		values = append(values, column.Value)
	}
	return values
}

// RowIDs lists the row identifiers in catalog order.
func (c *Catalog) RowIDs() []string {
	ids := make([]string, 0, len(c.Rows))
	for _, row := range c.Rows {
		ids = append(ids, row.ID)
	}
	return ids
}
