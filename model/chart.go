package model

// ChartSeries plots one entity attribute against the run's timesteps.
type ChartSeries struct {
	Target Ref
	Attr   Attr
	Label  string
}

// Chart is a named collection of series displayed together.
type Chart struct {
	ID     ID
	Code   string
	Name   string
	Series []ChartSeries
}

func NewChart(id ID, code, name string) *Chart {
	return &Chart{ID: id, Code: code, Name: name}
}
