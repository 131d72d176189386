// Package xmlio serializes and parses a Model to/from its XML file
// format, using stdlib encoding/xml with struct tags.
package xmlio

import "encoding/xml"

// XMLDeclaration is the standard header every serialized file starts
// with.
const XMLDeclaration = `<?xml version="1.0" encoding="utf-8" ?>`

// File is the root <model> element of a Linny-R document: the boolean
// document flags live as attributes, everything else as an ordered
// child element, matching the on-disk element order a hand-edited or
// diffed file is expected to keep.
type File struct {
	XMLName xml.Name `xml:"model"`

	NextProcessNumber int  `xml:"next-process-number,attr"`
	NextProductNumber int  `xml:"next-product-number,attr"`
	Encrypt           bool `xml:"encrypt,attr,omitempty"`
	DecimalComma      bool `xml:"decimal-comma,attr,omitempty"`
	AlignToGrid       bool `xml:"align-to-grid,attr,omitempty"`
	CostPrices        bool `xml:"cost-prices,attr,omitempty"`
	ReportResults     bool `xml:"report-results,attr,omitempty"`
	BlockArrows       bool `xml:"block-arrows,attr,omitempty"`

	Name             string  `xml:"name"`
	Author           string  `xml:"author"`
	Notes            string  `xml:"notes"`
	Version          string  `xml:"version"`
	LastSaved        string  `xml:"last-saved"`
	TimeScale        float64 `xml:"time-scale"`
	TimeUnit         string  `xml:"time-unit"`
	DefaultScaleUnit string  `xml:"default-scale-unit"`
	CurrencyUnit     string  `xml:"currency-unit"`
	GridPixels       int     `xml:"grid-pixels"`
	TimeoutPeriod    int     `xml:"timeout-period"`
	BlockLength      int     `xml:"block-length"`
	StartPeriod      int     `xml:"start-period"`
	EndPeriod        int     `xml:"end-period"`
	LookAheadPeriod  int     `xml:"look-ahead-period"`
	RoundSequence    string  `xml:"round-sequence"`

	Units       []Unit       `xml:"scaleunits>scaleunit"`
	Actors      []Actor      `xml:"actors>actor"`
	Processes   []Process    `xml:"processes>process"`
	Products    []Product    `xml:"products>product"`
	Links       []Link       `xml:"links>link"`
	Constraints []Constraint `xml:"constraints>constraint"`
	Clusters    []Cluster    `xml:"clusters>cluster"`
	Datasets    []Dataset    `xml:"datasets>dataset"`
	Charts      []Chart      `xml:"charts>chart"`

	BaseCaseSelectors     []string `xml:"base-case-selectors>selector,omitempty"`
	SensitivityParameters []string `xml:"sensitivity-parameters>parameter,omitempty"`
	SensitivityOutcomes   []string `xml:"sensitivity-outcomes>outcome,omitempty"`
	SensitivityDelta      float64  `xml:"sensitivity-delta,omitempty"`
	SensitivityRuns       int      `xml:"sensitivity-runs,omitempty"`

	Experiments []Experiment `xml:"experiments>experiment"`
	Notes       []Note       `xml:"notes>note"`

	Imports []string `xml:"imports>import,omitempty"`
	Exports []string `xml:"exports>export,omitempty"`
}

// Unit is a named scale unit definition.
type Unit struct {
	Name   string  `xml:"name,attr"`
	Scalar float64 `xml:"scalar,attr"`
	Base   string  `xml:"base,attr"`
}

// Actor mirrors model.Actor.
type Actor struct {
	Code    string `xml:"code,attr"`
	Name    string `xml:"name,attr"`
	RoundUp bool   `xml:"round-up,attr,omitempty"`
	Weight  string `xml:"weight,omitempty"`
}

// Process mirrors model.Process.
type Process struct {
	Code         string `xml:"code,attr"`
	Name         string `xml:"name,attr"`
	Actor        string `xml:"actor,attr,omitempty"`
	Integer      bool   `xml:"integer,attr,omitempty"`
	LowerBound   string `xml:"lower-bound,omitempty"`
	UpperBound   string `xml:"upper-bound,omitempty"`
	FixedCost    string `xml:"fixed-cost,omitempty"`
	VariableCost string `xml:"variable-cost,omitempty"`
}

// Product mirrors model.Product.
type Product struct {
	Code         string  `xml:"code,attr"`
	Name         string  `xml:"name,attr"`
	Unit         string  `xml:"unit,attr,omitempty"`
	SourceSink   bool    `xml:"source-sink,attr,omitempty"`
	InitialLevel float64 `xml:"initial-level,attr,omitempty"`
	LowerBound   string  `xml:"lower-bound,omitempty"`
	UpperBound   string  `xml:"upper-bound,omitempty"`
	Price        string  `xml:"price,omitempty"`
}

// Cluster mirrors model.Cluster.
type Cluster struct {
	Code    string   `xml:"code,attr"`
	Name    string   `xml:"name,attr"`
	Members []string `xml:"member"`
}

// Link mirrors model.Link.
type Link struct {
	Code        string  `xml:"code,attr"`
	From        string  `xml:"from,attr"`
	To          string  `xml:"to,attr"`
	Multiplier  string  `xml:"multiplier,attr,omitempty"`
	ShareOfCost float64 `xml:"share-of-cost,attr,omitempty"`
	IsFeedback  bool    `xml:"is-feedback,attr,omitempty"`
	Rate        string  `xml:"rate,omitempty"`
	Delay       string  `xml:"delay,omitempty"`
}

// Constraint mirrors model.Constraint.
type Constraint struct {
	Code        string  `xml:"code,attr"`
	From        string  `xml:"from,attr"`
	To          string  `xml:"to,attr"`
	BoundType   string  `xml:"bound-type,attr,omitempty"`
	ShareOfCost float64 `xml:"share-of-cost,attr,omitempty"`
	SocDirection string `xml:"soc-direction,attr,omitempty"`
	Points      []Point `xml:"point"`
	SoftLB      bool    `xml:"soft-lb,attr,omitempty"`
	SoftUB      bool    `xml:"soft-ub,attr,omitempty"`
}

// Point mirrors model.Point.
type Point struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
}

// Dataset mirrors model.DatasetEntity / dataset.Dataset.
type Dataset struct {
	Code         string     `xml:"code,attr"`
	Name         string     `xml:"name,attr"`
	Unit         string     `xml:"unit,attr,omitempty"`
	TimeScale    float64    `xml:"time-scale,attr,omitempty"`
	TimeUnit     string     `xml:"time-unit,attr,omitempty"`
	Interp       string     `xml:"interpolation,attr,omitempty"`
	Periodic     bool       `xml:"periodic,attr,omitempty"`
	Array        bool       `xml:"array,attr,omitempty"`
	DefaultValue *float64   `xml:"default,attr,omitempty"`
	Points       []DataRow  `xml:"data>row"`
	Modifiers    []Modifier `xml:"modifiers>modifier"`
}

// DataRow is one explicit (timestep, value) data point.
type DataRow struct {
	T     int     `xml:"t,attr"`
	Value float64 `xml:"value,attr"`
}

// Modifier mirrors dataset.Modifier.
type Modifier struct {
	Selector   string `xml:"selector,attr"`
	Expression string `xml:",chardata"`
}

// Chart mirrors model.Chart.
type Chart struct {
	Code   string        `xml:"code,attr"`
	Name   string        `xml:"name,attr"`
	Series []ChartSeries `xml:"series"`
}

// ChartSeries mirrors model.ChartSeries.
type ChartSeries struct {
	Target string `xml:"target,attr"`
	Attr   string `xml:"attr,attr"`
	Label  string `xml:"label,attr,omitempty"`
}

// Experiment mirrors model.Experiment.
type Experiment struct {
	Code                 string                `xml:"code,attr"`
	Name                 string                `xml:"name,attr"`
	Dimensions           []Dimension           `xml:"dimension"`
	ExcludedSelectors    []string              `xml:"exclude>selector,omitempty"`
	CombinationSelectors []CombinationSelector `xml:"combination-selector,omitempty"`
	ClustersToIgnore     []ClusterIgnoreRule   `xml:"ignore-cluster,omitempty"`
	Charts               []string              `xml:"chart,omitempty"`
}

// Dimension mirrors model.Dimension.
type Dimension struct {
	Name     string   `xml:"name,attr"`
	Settings []string `xml:"setting"`
}

// CombinationSelector mirrors one entry of model.Experiment's
// CombinationSelectors map: a selector name and the tuple of plain
// selectors it expands to.
type CombinationSelector struct {
	Name      string   `xml:"name,attr"`
	Selectors []string `xml:"selector"`
}

// ClusterIgnoreRule mirrors model.ClusterIgnoreRule.
type ClusterIgnoreRule struct {
	ClusterCode string   `xml:"cluster,attr"`
	Selectors   []string `xml:"selector"`
}

// Note mirrors model.Note.
type Note struct {
	Code   string `xml:"code,attr"`
	Anchor string `xml:"anchor,attr,omitempty"`
	Text   string `xml:",chardata"`
}
