package xmlio

import (
	"encoding/xml"
	"io"

	"github.com/linnyr-go/linnyr/expr"
	"github.com/linnyr-go/linnyr/model"
)

// Write serializes m to w as a Linny-R XML document.
func Write(w io.Writer, m *model.Model) error {
	if _, err := io.WriteString(w, XMLDeclaration+"\n"); err != nil {
		return err
	}
	f := Build(m)
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(f)
}

// Build converts m into the intermediate File representation, without
// writing it out — useful for tests that want to inspect the
// structure directly.
func Build(m *model.Model) *File {
	s := m.Settings
	f := &File{
		NextProcessNumber: s.NextProcessNumber,
		NextProductNumber: s.NextProductNumber,
		Encrypt:           s.Encrypt,
		DecimalComma:      s.DecimalComma,
		AlignToGrid:       s.AlignToGrid,
		CostPrices:        s.CostPrices,
		ReportResults:     s.ReportResults,
		BlockArrows:       s.BlockArrows,

		Name:             s.Name,
		Author:           s.Author,
		Notes:            s.Notes,
		Version:          s.Version,
		LastSaved:        s.LastSaved,
		TimeScale:        s.TimeScale,
		TimeUnit:         s.TimeUnit,
		DefaultScaleUnit: s.DefaultScaleUnit,
		CurrencyUnit:     s.CurrencyUnit,
		GridPixels:       s.GridPixels,
		TimeoutPeriod:    s.TimeoutPeriod,
		BlockLength:      s.BlockLength,
		StartPeriod:      s.StartPeriod,
		EndPeriod:        s.EndPeriod,
		LookAheadPeriod:  s.LookAheadPeriod,
		RoundSequence:    s.RoundSequence,

		BaseCaseSelectors:     s.BaseCaseSelectors,
		SensitivityParameters: s.SensitivityParameters,
		SensitivityOutcomes:   s.SensitivityOutcomes,
		SensitivityDelta:      s.SensitivityDelta,
		SensitivityRuns:       s.SensitivityRuns,

		Imports: s.Imports,
		Exports: s.Exports,
	}

	for _, name := range m.Units.Names() {
		if name == "1" {
			continue // the atomic base is implicit, never serialized
		}
		f.Units = append(f.Units, Unit{Name: name})
	}

	m.AllActors(func(id model.ID, a *model.Actor) bool {
		f.Actors = append(f.Actors, Actor{Code: a.Code, Name: a.Name, RoundUp: a.RoundUp, Weight: sourceOf(a.Weight)})
		return true
	})

	m.AllProcesses(func(id model.ID, p *model.Process) bool {
		xp := Process{Code: p.Code, Name: p.Name, Integer: p.Integer}
		if a := m.Actor(p.Actor); a != nil {
			xp.Actor = a.Code
		}
		xp.LowerBound = sourceOf(p.LowerBound)
		xp.UpperBound = sourceOf(p.UpperBound)
		xp.FixedCost = sourceOf(p.FixedCost)
		xp.VariableCost = sourceOf(p.VariableCost)
		f.Processes = append(f.Processes, xp)
		return true
	})

	m.AllProducts(func(id model.ID, p *model.Product) bool {
		xp := Product{
			Code: p.Code, Name: p.Name, Unit: p.Unit,
			SourceSink: p.SourceSink, InitialLevel: p.InitialLevel,
		}
		xp.LowerBound = sourceOf(p.LowerBound)
		xp.UpperBound = sourceOf(p.UpperBound)
		xp.Price = sourceOf(p.Price)
		f.Products = append(f.Products, xp)
		return true
	})

	m.AllLinks(func(id model.ID, l *model.Link) bool {
		xl := Link{
			Code: l.Code,
			From: m.CodeOf(l.From),
			To:   m.CodeOf(l.To),
			Rate: sourceOf(l.Rate), Delay: sourceOf(l.Delay),
			Multiplier: l.Multiplier.String(), ShareOfCost: l.ShareOfCost, IsFeedback: l.IsFeedback,
		}
		if l.Multiplier == model.MulLevel {
			xl.Multiplier = ""
		}
		f.Links = append(f.Links, xl)
		return true
	})

	m.AllConstraints(func(id model.ID, c *model.Constraint) bool {
		xc := Constraint{
			Code: c.Code, From: m.CodeOf(c.From), To: m.CodeOf(c.To),
			SoftLB: c.SoftLB, SoftUB: c.SoftUB,
			BoundType: c.BoundType.String(), ShareOfCost: c.ShareOfCost,
		}
		if c.ShareOfCost != 0 {
			xc.SocDirection = c.SocDirection.String()
		}
		for _, pt := range c.Points {
			xc.Points = append(xc.Points, Point{X: pt.X, Y: pt.Y})
		}
		f.Constraints = append(f.Constraints, xc)
		return true
	})

	m.AllDatasets(func(id model.ID, d *model.DatasetEntity) bool {
		xd := Dataset{
			Code: d.Code, Name: d.Data.Name, Unit: d.Data.Unit,
			TimeScale: d.Data.Dt, Interp: interpolationName(d.Data.Interp),
			Periodic: d.Data.Periodic, Array: d.Data.Array,
		}
		if d.Data.HasDefault {
			v := d.Data.DefaultValue
			xd.DefaultValue = &v
		}
		for t, v := range d.Data.Data {
			xd.Points = append(xd.Points, DataRow{T: t, Value: v})
		}
		for _, mod := range d.Data.Modifiers {
			xd.Modifiers = append(xd.Modifiers, Modifier{Selector: mod.Selector, Expression: sourceOf(mod.Expr)})
		}
		f.Datasets = append(f.Datasets, xd)
		return true
	})

	m.AllCharts(func(id model.ID, c *model.Chart) bool {
		xc := Chart{Code: c.Code, Name: c.Name}
		for _, s := range c.Series {
			xc.Series = append(xc.Series, ChartSeries{Target: m.CodeOf(s.Target), Attr: string(rune(s.Attr)), Label: s.Label})
		}
		f.Charts = append(f.Charts, xc)
		return true
	})

	m.AllExperiments(func(id model.ID, e *model.Experiment) bool {
		xe := Experiment{Code: e.Code, Name: e.Name, ExcludedSelectors: e.ExcludedSelectors}
		for _, d := range e.Dimensions {
			xe.Dimensions = append(xe.Dimensions, Dimension{Name: d.Name, Settings: d.Settings})
		}
		for name, selectors := range e.CombinationSelectors {
			xe.CombinationSelectors = append(xe.CombinationSelectors, CombinationSelector{Name: name, Selectors: selectors})
		}
		for _, rule := range e.ClustersToIgnore {
			xe.ClustersToIgnore = append(xe.ClustersToIgnore, ClusterIgnoreRule{ClusterCode: rule.ClusterCode, Selectors: rule.Selectors})
		}
		for _, chartID := range e.Charts {
			if chart := m.Chart(chartID); chart != nil {
				xe.Charts = append(xe.Charts, chart.Code)
			}
		}
		f.Experiments = append(f.Experiments, xe)
		return true
	})

	m.AllNotes(func(id model.ID, n *model.Note) bool {
		xn := Note{Code: n.Code, Text: n.Text}
		if !n.Anchor.IsZero() {
			xn.Anchor = m.CodeOf(n.Anchor)
		}
		f.Notes = append(f.Notes, xn)
		return true
	})

	m.AllClusters(func(id model.ID, c *model.Cluster) bool {
		xc := Cluster{Code: c.Code, Name: c.Name}
		for _, member := range c.Members {
			xc.Members = append(xc.Members, m.CodeOf(member))
		}
		f.Clusters = append(f.Clusters, xc)
		return true
	})

	return f
}

func sourceOf(p *expr.Program) string {
	if p == nil {
		return ""
	}
	return p.Source
}
