package model

import "github.com/linnyr-go/linnyr/dataset"

// register records a new canonical name -> Ref mapping. It never
// overwrites an existing mapping; callers must check EntityExists via
// lookup first so that adding the same name twice is idempotent.
func (m *Model) register(name string, ref Ref) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byCode[Identify(name)] = ref
}

func (m *Model) unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byCode, Identify(name))
}

// AddActor adds a new actor, or returns the existing one (wrapped in
// an EntityExists error) when name is already taken.
func (m *Model) AddActor(name string) (*Actor, error) {
	if ref, ok := m.lookup(name); ok {
		if ref.Kind != KindActor {
			return nil, newError(EntityExists, "name %q is already a %s", name, ref.Kind)
		}
		existing := m.actors.Get(ref.ID)
		return existing, &Error{Kind: EntityExists, Message: "actor already exists: " + name, Existing: existing}
	}
	a := &Actor{Code: Identify(name), Name: name}
	id := m.actors.Add(a)
	a.ID = id
	m.register(name, Ref{Kind: KindActor, ID: id})
	ref := Ref{Kind: KindActor, ID: id}
	m.captureCreate(ref)
	return a, nil
}

// AddProcess adds a new process owned by actor (0 = NoActorName),
// named uniquely within that actor's scope.
func (m *Model) AddProcess(name string, actor ID) (*Process, error) {
	actorName := NoActorName
	if a := m.actors.Get(actor); a != nil {
		actorName = a.Name
	}
	code := ActorIdentify(name, actorName)
	if ref, ok := m.lookup(code); ok {
		if ref.Kind != KindProcess {
			return nil, newError(EntityExists, "name %q is already a %s", name, ref.Kind)
		}
		existing := m.processes.Get(ref.ID)
		return existing, &Error{Kind: EntityExists, Message: "process already exists: " + name, Existing: existing}
	}
	p := NewProcess(0, code, name)
	p.Actor = actor
	id := m.processes.Add(p)
	p.ID = id
	m.register(code, Ref{Kind: KindProcess, ID: id})
	m.captureCreate(Ref{Kind: KindProcess, ID: id})
	return p, nil
}

// AddProduct adds a new product, named uniquely model-wide.
func (m *Model) AddProduct(name string) (*Product, error) {
	code := Identify(name)
	if ref, ok := m.lookup(code); ok {
		if ref.Kind != KindProduct {
			return nil, newError(EntityExists, "name %q is already a %s", name, ref.Kind)
		}
		existing := m.products.Get(ref.ID)
		return existing, &Error{Kind: EntityExists, Message: "product already exists: " + name, Existing: existing}
	}
	p := NewProduct(0, code, name)
	id := m.products.Add(p)
	p.ID = id
	m.register(code, Ref{Kind: KindProduct, ID: id})
	m.captureCreate(Ref{Kind: KindProduct, ID: id})
	return p, nil
}

// AddCluster adds a new cluster.
func (m *Model) AddCluster(name string) (*Cluster, error) {
	code := Identify(name)
	if ref, ok := m.lookup(code); ok {
		if ref.Kind != KindCluster {
			return nil, newError(EntityExists, "name %q is already a %s", name, ref.Kind)
		}
		existing := m.clusters.Get(ref.ID)
		return existing, &Error{Kind: EntityExists, Message: "cluster already exists: " + name, Existing: existing}
	}
	c := NewCluster(0, code, name)
	id := m.clusters.Add(c)
	c.ID = id
	m.register(code, Ref{Kind: KindCluster, ID: id})
	m.captureCreate(Ref{Kind: KindCluster, ID: id})
	return c, nil
}

// AddLink adds a link between from and to, whose identifier is
// derived from the endpoints' codes, so duplicate links between the
// same pair are rejected as EntityExists.
func (m *Model) AddLink(from, to Ref) (*Link, error) {
	code := LinkCode(m.nameOf(from), m.nameOf(to))
	if ref, ok := m.lookup(code); ok {
		existing := m.links.Get(ref.ID)
		return existing, &Error{Kind: EntityExists, Message: "link already exists: " + code, Existing: existing}
	}
	l := NewLink(0, code, from, to)
	id := m.links.Add(l)
	l.ID = id
	m.register(code, Ref{Kind: KindLink, ID: id})
	m.captureCreate(Ref{Kind: KindLink, ID: id})
	return l, nil
}

// AddConstraint adds a bound-line constraint between from and to.
func (m *Model) AddConstraint(from, to Ref) (*Constraint, error) {
	code := ConstraintCode(m.nameOf(from), m.nameOf(to))
	if ref, ok := m.lookup(code); ok {
		existing := m.constraints.Get(ref.ID)
		return existing, &Error{Kind: EntityExists, Message: "constraint already exists: " + code, Existing: existing}
	}
	c := NewConstraint(0, code, from, to)
	id := m.constraints.Add(c)
	c.ID = id
	m.register(code, Ref{Kind: KindConstraint, ID: id})
	m.captureCreate(Ref{Kind: KindConstraint, ID: id})
	return c, nil
}

// AddDataset adds a new named dataset, backed by dataset.Dataset.
func (m *Model) AddDataset(name string) (*DatasetEntity, error) {
	code := Identify(name)
	if ref, ok := m.lookup(code); ok {
		if ref.Kind != KindDataset {
			return nil, newError(EntityExists, "name %q is already a %s", name, ref.Kind)
		}
		existing := m.datasets.Get(ref.ID)
		return existing, &Error{Kind: EntityExists, Message: "dataset already exists: " + name, Existing: existing}
	}
	d := NewDatasetEntity(0, code, dataset.NewDataset(name))
	id := m.datasets.Add(d)
	d.ID = id
	m.register(code, Ref{Kind: KindDataset, ID: id})
	m.captureCreate(Ref{Kind: KindDataset, ID: id})
	return d, nil
}

// AddChart adds a new chart. Charts never participate in expression
// resolution, so they are not registered in byCode.
func (m *Model) AddChart(name string) *Chart {
	c := NewChart(0, Identify(name), name)
	id := m.charts.Add(c)
	c.ID = id
	m.captureCreate(Ref{Kind: KindChart, ID: id})
	return c
}

// AddExperiment adds a new experiment. Like charts, experiments are
// not resolvable from expressions.
func (m *Model) AddExperiment(name string) *Experiment {
	e := NewExperiment(0, Identify(name), name)
	id := m.experiments.Add(e)
	e.ID = id
	m.captureCreate(Ref{Kind: KindExperiment, ID: id})
	return e
}

// AddNote adds a note anchored to anchor (the zero Ref for a
// free-floating note).
func (m *Model) AddNote(text string, anchor Ref) *Note {
	n := NewNote(0, "", text)
	n.Anchor = anchor
	id := m.notes.Add(n)
	n.ID = id
	n.Code = ProcessCode(int(id))
	m.captureCreate(Ref{Kind: KindNote, ID: id})
	return n
}

// Rename changes the display name (and therefore the canonical code)
// of the entity at ref, failing with EntityExists if newName is
// already taken by a different entity.
func (m *Model) Rename(ref Ref, newName string) error {
	newCode := Identify(newName)
	if existing, ok := m.lookup(newCode); ok && existing != ref {
		return newError(EntityExists, "name %q is already taken", newName)
	}

	m.captureUndo(ref)

	var oldCode string
	switch ref.Kind {
	case KindActor:
		a := m.actors.Get(ref.ID)
		if a == nil {
			return newError(OutOfBounds, "no such actor")
		}
		oldCode, a.Name, a.Code = a.Code, newName, newCode
	case KindProcess:
		p := m.processes.Get(ref.ID)
		if p == nil {
			return newError(OutOfBounds, "no such process")
		}
		actorName := NoActorName
		if a := m.actors.Get(p.Actor); a != nil {
			actorName = a.Name
		}
		newCode = ActorIdentify(newName, actorName)
		oldCode, p.Name, p.Code = p.Code, newName, newCode
	case KindProduct:
		p := m.products.Get(ref.ID)
		if p == nil {
			return newError(OutOfBounds, "no such product")
		}
		oldCode, p.Name, p.Code = p.Code, newName, newCode
	case KindCluster:
		c := m.clusters.Get(ref.ID)
		if c == nil {
			return newError(OutOfBounds, "no such cluster")
		}
		oldCode, c.Name, c.Code = c.Code, newName, newCode
	case KindDataset:
		d := m.datasets.Get(ref.ID)
		if d == nil {
			return newError(OutOfBounds, "no such dataset")
		}
		oldCode, d.Data.Name, d.Code = d.Code, newName, newCode
	default:
		return newError(InvalidName, "entity kind %s cannot be renamed by name", ref.Kind)
	}

	m.unregister(oldCode)
	m.register(newCode, ref)
	return nil
}

// Delete removes the entity at ref and cascades to every link,
// constraint and note anchored to it, returning the full set of
// removed Refs as an undo fragment the caller can use to reconstruct
// what was lost.
func (m *Model) Delete(ref Ref) []Ref {
	m.captureUndo(ref)
	removed := []Ref{ref}

	m.links.All(func(id ID, l *Link) bool {
		if l.From == ref || l.To == ref {
			removed = append(removed, m.Delete(Ref{Kind: KindLink, ID: id})...)
		}
		return true
	})
	m.constraints.All(func(id ID, c *Constraint) bool {
		if c.From == ref || c.To == ref {
			removed = append(removed, m.Delete(Ref{Kind: KindConstraint, ID: id})...)
		}
		return true
	})
	m.notes.All(func(id ID, n *Note) bool {
		if n.Anchor == ref {
			removed = append(removed, m.Delete(Ref{Kind: KindNote, ID: id})...)
		}
		return true
	})
	m.clusters.All(func(_ ID, c *Cluster) bool {
		c.RemoveMember(ref)
		return true
	})

	switch ref.Kind {
	case KindActor:
		if a := m.actors.Get(ref.ID); a != nil {
			m.unregister(a.Code)
		}
		m.actors.Delete(ref.ID)
	case KindProcess:
		if p := m.processes.Get(ref.ID); p != nil {
			m.unregister(p.Code)
		}
		m.processes.Delete(ref.ID)
	case KindProduct:
		if p := m.products.Get(ref.ID); p != nil {
			m.unregister(p.Code)
		}
		m.products.Delete(ref.ID)
	case KindCluster:
		if c := m.clusters.Get(ref.ID); c != nil {
			m.unregister(c.Code)
		}
		m.clusters.Delete(ref.ID)
	case KindLink:
		if l := m.links.Get(ref.ID); l != nil {
			m.unregister(l.Code)
		}
		m.links.Delete(ref.ID)
	case KindConstraint:
		if c := m.constraints.Get(ref.ID); c != nil {
			m.unregister(c.Code)
		}
		m.constraints.Delete(ref.ID)
	case KindDataset:
		if d := m.datasets.Get(ref.ID); d != nil {
			m.unregister(d.Code)
		}
		m.datasets.Delete(ref.ID)
	case KindChart:
		m.charts.Delete(ref.ID)
	case KindExperiment:
		m.experiments.Delete(ref.ID)
	case KindNote:
		m.notes.Delete(ref.ID)
	}

	return removed
}

// Process, Product, Cluster, Link, Constraint, Dataset, Chart,
// Experiment and Note accessors let callers outside the package walk
// the arenas without exposing them directly.
func (m *Model) Process(id ID) *Process         { return m.processes.Get(id) }
func (m *Model) Product(id ID) *Product         { return m.products.Get(id) }
func (m *Model) Actor(id ID) *Actor             { return m.actors.Get(id) }
func (m *Model) Cluster(id ID) *Cluster         { return m.clusters.Get(id) }
func (m *Model) Link(id ID) *Link               { return m.links.Get(id) }
func (m *Model) Constraint(id ID) *Constraint   { return m.constraints.Get(id) }
func (m *Model) Dataset(id ID) *DatasetEntity   { return m.datasets.Get(id) }
func (m *Model) Chart(id ID) *Chart             { return m.charts.Get(id) }
func (m *Model) Experiment(id ID) *Experiment   { return m.experiments.Get(id) }
func (m *Model) Note(id ID) *Note               { return m.notes.Get(id) }

func (m *Model) AllActors(fn func(ID, *Actor) bool)           { m.actors.All(fn) }
func (m *Model) AllProcesses(fn func(ID, *Process) bool)      { m.processes.All(fn) }
func (m *Model) AllProducts(fn func(ID, *Product) bool)       { m.products.All(fn) }
func (m *Model) AllLinks(fn func(ID, *Link) bool)             { m.links.All(fn) }
func (m *Model) AllConstraints(fn func(ID, *Constraint) bool) { m.constraints.All(fn) }
func (m *Model) AllDatasets(fn func(ID, *DatasetEntity) bool) { m.datasets.All(fn) }
func (m *Model) AllClusters(fn func(ID, *Cluster) bool)       { m.clusters.All(fn) }
func (m *Model) AllCharts(fn func(ID, *Chart) bool)           { m.charts.All(fn) }
func (m *Model) AllExperiments(fn func(ID, *Experiment) bool) { m.experiments.All(fn) }
func (m *Model) AllNotes(fn func(ID, *Note) bool)             { m.notes.All(fn) }
