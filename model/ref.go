package model

// Ref is a typed handle to any entity in the model, used wherever the
// spec lets an endpoint, member or anchor be more than one kind — link
// and constraint endpoints (process or product), cluster members (any
// kind), chart series and note anchors.
type Ref struct {
	Kind Kind
	ID   ID
}

// IsZero reports whether r points at no entity.
func (r Ref) IsZero() bool {
	return r.ID == 0
}
