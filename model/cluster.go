package model

// Cluster groups entities for display and for collapsed aggregate
// reporting. Its only effect on the LP/MILP formulation is through an
// experiment's cluster-ignore rules, which pin its members to zero
// bounds for that run.
type Cluster struct {
	ID      ID
	Code    string
	Name    string
	Members []Ref
}

func NewCluster(id ID, code, name string) *Cluster {
	return &Cluster{ID: id, Code: code, Name: name}
}

// AddMember appends ref unless it is already a member.
func (c *Cluster) AddMember(ref Ref) {
	for _, m := range c.Members {
		if m == ref {
			return
		}
	}
	c.Members = append(c.Members, ref)
}

// RemoveMember deletes ref from the cluster, if present.
func (c *Cluster) RemoveMember(ref Ref) {
	for i, m := range c.Members {
		if m == ref {
			c.Members = append(c.Members[:i], c.Members[i+1:]...)
			return
		}
	}
}
