package xmlio

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/linnyr-go/linnyr/dataset"
	"github.com/linnyr-go/linnyr/expr"
	"github.com/linnyr-go/linnyr/model"
)

// Parse reads a Linny-R XML document from r into a fresh Model.
// Entities are created in dependency order — actors before processes,
// processes and products before links — since compiling an expression
// requires every entity it references to already be registered with
// the model. Actor weights and link rates/delays are compiled as their
// entity is created, so they can only reference entities created
// before them; bounds, costs, prices and dataset modifiers are compiled
// in a second pass once every entity exists.
func Parse(r io.Reader) (*model.Model, error) {
	var f File
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing model xml: %w", err)
	}

	m := model.New()
	m.Settings = model.Settings{
		NextProcessNumber: f.NextProcessNumber,
		NextProductNumber: f.NextProductNumber,
		Encrypt:           f.Encrypt,
		DecimalComma:      f.DecimalComma,
		AlignToGrid:       f.AlignToGrid,
		CostPrices:        f.CostPrices,
		ReportResults:     f.ReportResults,
		BlockArrows:       f.BlockArrows,

		Name:             f.Name,
		Author:           f.Author,
		Notes:            f.Notes,
		Version:          f.Version,
		LastSaved:        f.LastSaved,
		TimeScale:        f.TimeScale,
		TimeUnit:         f.TimeUnit,
		DefaultScaleUnit: f.DefaultScaleUnit,
		CurrencyUnit:     f.CurrencyUnit,
		GridPixels:       f.GridPixels,
		TimeoutPeriod:    f.TimeoutPeriod,
		BlockLength:      f.BlockLength,
		StartPeriod:      f.StartPeriod,
		EndPeriod:        f.EndPeriod,
		LookAheadPeriod:  f.LookAheadPeriod,
		RoundSequence:    f.RoundSequence,

		BaseCaseSelectors:     f.BaseCaseSelectors,
		SensitivityParameters: f.SensitivityParameters,
		SensitivityOutcomes:   f.SensitivityOutcomes,
		SensitivityDelta:      f.SensitivityDelta,
		SensitivityRuns:       f.SensitivityRuns,

		Imports: f.Imports,
		Exports: f.Exports,
	}
	if m.Settings.TimeScale <= 0 {
		m.Settings.TimeScale = 1
	}

	for _, u := range f.Units {
		if err := m.Units.Add(u.Name, u.Scalar, u.Base); err != nil {
			return nil, fmt.Errorf("unit %q: %w", u.Name, err)
		}
	}

	for _, a := range f.Actors {
		actor, err := m.AddActor(a.Name)
		if err != nil {
			return nil, err
		}
		actor.RoundUp = a.RoundUp
		if actor.Weight, err = compileOptional(a.Weight, m); err != nil {
			return nil, fmt.Errorf("actor %q weight: %w", a.Name, err)
		}
	}

	for _, xp := range f.Processes {
		var actorID model.ID
		if xp.Actor != "" {
			ref, ok := m.Lookup(xp.Actor)
			if !ok {
				return nil, fmt.Errorf("process %q: unknown actor %q", xp.Name, xp.Actor)
			}
			actorID = ref.ID
		}
		proc, err := m.AddProcess(xp.Name, actorID)
		if err != nil {
			return nil, err
		}
		proc.Integer = xp.Integer
	}

	for _, xp := range f.Products {
		prod, err := m.AddProduct(xp.Name)
		if err != nil {
			return nil, err
		}
		prod.Unit = xp.Unit
		prod.SourceSink = xp.SourceSink
		prod.InitialLevel = xp.InitialLevel
	}

	for _, xc := range f.Clusters {
		cl, err := m.AddCluster(xc.Name)
		if err != nil {
			return nil, err
		}
		for _, memberCode := range xc.Members {
			if ref, ok := m.Lookup(memberCode); ok {
				cl.AddMember(ref)
			}
		}
	}

	for _, xd := range f.Datasets {
		de, err := m.AddDataset(xd.Name)
		if err != nil {
			return nil, err
		}
		de.Data.Unit = xd.Unit
		if xd.DefaultValue != nil {
			de.Data.HasDefault = true
			de.Data.DefaultValue = *xd.DefaultValue
		}
		de.Data.Interp = parseInterpolation(xd.Interp)
		de.Data.Periodic = xd.Periodic
		de.Data.Array = xd.Array
		de.Data.Dt = xd.TimeScale
		if de.Data.Dt <= 0 {
			de.Data.Dt = 1
		}
		maxT := -1
		for _, row := range xd.Points {
			if row.T > maxT {
				maxT = row.T
			}
		}
		if maxT >= 0 {
			de.Data.Data = make([]float64, maxT+1)
			for _, row := range xd.Points {
				de.Data.Data[row.T] = row.Value
			}
		}
	}

	// Links and constraints resolve their endpoints by code, so both
	// processes/products and the datasets they might read from must
	// already exist.
	for _, xl := range f.Links {
		from, ok := m.Lookup(xl.From)
		if !ok {
			return nil, fmt.Errorf("link %q: unknown endpoint %q", xl.Code, xl.From)
		}
		to, ok := m.Lookup(xl.To)
		if !ok {
			return nil, fmt.Errorf("link %q: unknown endpoint %q", xl.Code, xl.To)
		}
		link, err := m.AddLink(from, to)
		if err != nil {
			return nil, err
		}
		if link.Rate, err = compileOptional(xl.Rate, m); err != nil {
			return nil, fmt.Errorf("link %q rate: %w", xl.Code, err)
		}
		if link.Delay, err = compileOptional(xl.Delay, m); err != nil {
			return nil, fmt.Errorf("link %q delay: %w", xl.Code, err)
		}
		link.Multiplier = model.ParseMultiplier(xl.Multiplier)
		link.ShareOfCost = xl.ShareOfCost
		link.IsFeedback = xl.IsFeedback
	}

	for _, xc := range f.Constraints {
		from, ok := m.Lookup(xc.From)
		if !ok {
			return nil, fmt.Errorf("constraint %q: unknown endpoint %q", xc.Code, xc.From)
		}
		to, ok := m.Lookup(xc.To)
		if !ok {
			return nil, fmt.Errorf("constraint %q: unknown endpoint %q", xc.Code, xc.To)
		}
		c, err := m.AddConstraint(from, to)
		if err != nil {
			return nil, err
		}
		c.SoftLB, c.SoftUB = xc.SoftLB, xc.SoftUB
		c.BoundType = parseBoundType(xc.BoundType)
		c.ShareOfCost = xc.ShareOfCost
		if xc.SocDirection == "reverse" {
			c.SocDirection = model.SocReverse
		}
		for _, pt := range xc.Points {
			c.Points = append(c.Points, model.Point{X: pt.X, Y: pt.Y})
		}
	}

	// A second pass compiles every remaining expression-bearing field,
	// now that every entity (including links and constraints) can be
	// resolved.
	for _, xp := range f.Processes {
		ref, _ := m.Lookup(xp.Name)
		proc := m.Process(ref.ID)
		var err error
		if proc.LowerBound, err = compileOptional(xp.LowerBound, m); err != nil {
			return nil, fmt.Errorf("process %q lower bound: %w", xp.Name, err)
		}
		if proc.UpperBound, err = compileOptional(xp.UpperBound, m); err != nil {
			return nil, fmt.Errorf("process %q upper bound: %w", xp.Name, err)
		}
		if proc.FixedCost, err = compileOptional(xp.FixedCost, m); err != nil {
			return nil, fmt.Errorf("process %q fixed cost: %w", xp.Name, err)
		}
		if proc.VariableCost, err = compileOptional(xp.VariableCost, m); err != nil {
			return nil, fmt.Errorf("process %q variable cost: %w", xp.Name, err)
		}
	}
	for _, xp := range f.Products {
		ref, _ := m.Lookup(xp.Name)
		prod := m.Product(ref.ID)
		var err error
		if prod.LowerBound, err = compileOptional(xp.LowerBound, m); err != nil {
			return nil, fmt.Errorf("product %q lower bound: %w", xp.Name, err)
		}
		if prod.UpperBound, err = compileOptional(xp.UpperBound, m); err != nil {
			return nil, fmt.Errorf("product %q upper bound: %w", xp.Name, err)
		}
		if prod.Price, err = compileOptional(xp.Price, m); err != nil {
			return nil, fmt.Errorf("product %q price: %w", xp.Name, err)
		}
	}
	for _, xd := range f.Datasets {
		ref, _ := m.Lookup(xd.Name)
		de := m.Dataset(ref.ID)
		for _, xm := range xd.Modifiers {
			prog, err := compileOptional(xm.Expression, m)
			if err != nil {
				return nil, fmt.Errorf("dataset %q modifier %q: %w", xd.Name, xm.Selector, err)
			}
			de.Data.AddModifier(xm.Selector, prog)
		}
	}

	chartsByCode := map[string]*model.Chart{}
	for _, xc := range f.Charts {
		chart := m.AddChart(xc.Name)
		for _, s := range xc.Series {
			target, ok := m.Lookup(s.Target)
			if !ok {
				return nil, fmt.Errorf("chart %q: unknown series target %q", xc.Name, s.Target)
			}
			attr, _ := model.ParseAttr(s.Attr)
			chart.Series = append(chart.Series, model.ChartSeries{Target: target, Attr: attr, Label: s.Label})
		}
		chartsByCode[chart.Code] = chart
	}

	for _, xe := range f.Experiments {
		e := m.AddExperiment(xe.Name)
		for _, d := range xe.Dimensions {
			e.Dimensions = append(e.Dimensions, model.Dimension{Name: d.Name, Settings: d.Settings})
		}
		e.ExcludedSelectors = append(e.ExcludedSelectors, xe.ExcludedSelectors...)
		for _, cs := range xe.CombinationSelectors {
			e.CombinationSelectors[cs.Name] = cs.Selectors
		}
		for _, ci := range xe.ClustersToIgnore {
			e.ClustersToIgnore = append(e.ClustersToIgnore, model.ClusterIgnoreRule{
				ClusterCode: ci.ClusterCode, Selectors: ci.Selectors,
			})
		}
		for _, code := range xe.Charts {
			if chart, ok := chartsByCode[code]; ok {
				e.Charts = append(e.Charts, chart.ID)
			}
		}
	}

	for _, xn := range f.Notes {
		var anchor model.Ref
		if xn.Anchor != "" {
			anchor, _ = m.Lookup(xn.Anchor)
		}
		m.AddNote(xn.Text, anchor)
	}

	Attach(m)
	m.Undo().Clear()
	return m, nil
}

func compileOptional(source string, m *model.Model) (*expr.Program, error) {
	if source == "" {
		return nil, nil
	}
	prog, err := expr.Compile(source, m)
	if err != nil {
		return nil, err
	}
	return prog, nil
}

func parseInterpolation(s string) dataset.Interpolation {
	switch s {
	case "w-mean":
		return dataset.WMean
	case "w-sum":
		return dataset.WSum
	case "max":
		return dataset.Max
	default:
		return dataset.Nearest
	}
}

func interpolationName(i dataset.Interpolation) string {
	switch i {
	case dataset.WMean:
		return "w-mean"
	case dataset.WSum:
		return "w-sum"
	case dataset.Max:
		return "max"
	default:
		return "nearest"
	}
}

func parseBoundType(s string) model.BoundType {
	switch s {
	case "<=":
		return model.BoundLE
	case ">=":
		return model.BoundGE
	default:
		return model.BoundEQ
	}
}
