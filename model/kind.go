package model

// Kind identifies one of the entity arenas a Model keeps.
type Kind int

const (
	KindActor Kind = iota
	KindProcess
	KindProduct
	KindCluster
	KindLink
	KindConstraint
	KindDataset
	KindChart
	KindExperiment
	KindNote
)

func (k Kind) String() string {
	switch k {
	case KindActor:
		return "actor"
	case KindProcess:
		return "process"
	case KindProduct:
		return "product"
	case KindCluster:
		return "cluster"
	case KindLink:
		return "link"
	case KindConstraint:
		return "constraint"
	case KindDataset:
		return "dataset"
	case KindChart:
		return "chart"
	case KindExperiment:
		return "experiment"
	case KindNote:
		return "note"
	default:
		return "unknown"
	}
}
