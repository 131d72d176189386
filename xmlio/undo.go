package xmlio

import (
	"encoding/xml"

	"github.com/linnyr-go/linnyr/model"
)

// EntitySerializer implements model.Serializer by rendering a single
// live entity to the same element shape Build produces for the whole
// model, so an undo fragment captured mid-session can be re-parsed
// with the same decoder logic used for a full file.
type EntitySerializer struct {
	m *model.Model
}

// Attach installs an EntitySerializer on m so that Delete, AddX and
// Rename capture real XML undo fragments instead of ref-only ones.
// xmlio already imports model to walk its arenas, so the wiring runs
// this direction — model never imports xmlio back.
func Attach(m *model.Model) {
	m.SetSerializer(&EntitySerializer{m: m})
}

// SerializeEntity implements model.Serializer.
func (s *EntitySerializer) SerializeEntity(ref model.Ref) (string, error) {
	m := s.m
	var node interface{}

	switch ref.Kind {
	case model.KindActor:
		a := m.Actor(ref.ID)
		if a == nil {
			return "", nil
		}
		node = Actor{Code: a.Code, Name: a.Name, RoundUp: a.RoundUp, Weight: sourceOf(a.Weight)}
	case model.KindProcess:
		p := m.Process(ref.ID)
		if p == nil {
			return "", nil
		}
		xp := Process{Code: p.Code, Name: p.Name, Integer: p.Integer}
		if a := m.Actor(p.Actor); a != nil {
			xp.Actor = a.Code
		}
		xp.LowerBound = sourceOf(p.LowerBound)
		xp.UpperBound = sourceOf(p.UpperBound)
		xp.FixedCost = sourceOf(p.FixedCost)
		xp.VariableCost = sourceOf(p.VariableCost)
		node = xp
	case model.KindProduct:
		p := m.Product(ref.ID)
		if p == nil {
			return "", nil
		}
		xp := Product{Code: p.Code, Name: p.Name, Unit: p.Unit, SourceSink: p.SourceSink, InitialLevel: p.InitialLevel}
		xp.LowerBound = sourceOf(p.LowerBound)
		xp.UpperBound = sourceOf(p.UpperBound)
		xp.Price = sourceOf(p.Price)
		node = xp
	case model.KindCluster:
		c := m.Cluster(ref.ID)
		if c == nil {
			return "", nil
		}
		xc := Cluster{Code: c.Code, Name: c.Name}
		for _, member := range c.Members {
			xc.Members = append(xc.Members, m.CodeOf(member))
		}
		node = xc
	case model.KindLink:
		l := m.Link(ref.ID)
		if l == nil {
			return "", nil
		}
		xl := Link{
			Code: l.Code, From: m.CodeOf(l.From), To: m.CodeOf(l.To),
			Rate: sourceOf(l.Rate), Delay: sourceOf(l.Delay),
			Multiplier: l.Multiplier.String(), ShareOfCost: l.ShareOfCost, IsFeedback: l.IsFeedback,
		}
		if l.Multiplier == model.MulLevel {
			xl.Multiplier = ""
		}
		node = xl
	case model.KindConstraint:
		c := m.Constraint(ref.ID)
		if c == nil {
			return "", nil
		}
		xc := Constraint{
			Code: c.Code, From: m.CodeOf(c.From), To: m.CodeOf(c.To), SoftLB: c.SoftLB, SoftUB: c.SoftUB,
			BoundType: c.BoundType.String(), ShareOfCost: c.ShareOfCost,
		}
		if c.ShareOfCost != 0 {
			xc.SocDirection = c.SocDirection.String()
		}
		for _, pt := range c.Points {
			xc.Points = append(xc.Points, Point{X: pt.X, Y: pt.Y})
		}
		node = xc
	case model.KindDataset:
		d := m.Dataset(ref.ID)
		if d == nil {
			return "", nil
		}
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
		node = xd
	case model.KindChart:
		c := m.Chart(ref.ID)
		if c == nil {
			return "", nil
		}
		xc := Chart{Code: c.Code, Name: c.Name}
		for _, sr := range c.Series {
			xc.Series = append(xc.Series, ChartSeries{Target: m.CodeOf(sr.Target), Attr: string(rune(sr.Attr)), Label: sr.Label})
		}
		node = xc
	case model.KindExperiment:
		e := m.Experiment(ref.ID)
		if e == nil {
			return "", nil
		}
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
		node = xe
	case model.KindNote:
		n := m.Note(ref.ID)
		if n == nil {
			return "", nil
		}
		xn := Note{Code: n.Code, Text: n.Text}
		if !n.Anchor.IsZero() {
			xn.Anchor = m.CodeOf(n.Anchor)
		}
		node = xn
	default:
		return "", nil
	}

	out, err := xml.Marshal(node)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
