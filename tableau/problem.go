// Package tableau builds the per-block LP/MILP problem representation:
// variables, bound rows and the piecewise-linear SOS2 encoding for
// constraint bound lines, handed off to an external solver process.
package tableau

import "fmt"

// VarKind distinguishes a continuous level variable from the binary
// commitment variable a process's on/off state needs.
type VarKind int

const (
	Continuous VarKind = iota
	Binary
)

// Variable is one column of the problem: a process level, a product
// stock, a link flow or a process's on/off commitment, at one
// timestep of the block.
type Variable struct {
	Index     int
	Name      string
	Kind      VarKind
	LB, UB    float64
	ObjCoeff  float64
}

// Row is one linear constraint: sum(coeff_i * var_i) <op> RHS.
type Row struct {
	Index int
	Name  string
	Terms map[int]float64 // variable index -> coefficient
	Op    RowOp
	RHS   float64
}

// RowOp is the relational operator of a Row.
type RowOp int

const (
	OpLE RowOp = iota
	OpGE
	OpEQ
)

// SOS2 records a special-ordered-set-of-type-2 group: at most two
// consecutive members of Vars may be nonzero, used to encode a
// constraint's piecewise-linear bound line.
type SOS2 struct {
	Name string
	Vars []int // variable indices, in breakpoint order
}

// Problem is the full LP/MILP representation for one scheduled block.
type Problem struct {
	Variables []Variable
	Rows      []Row
	SOS2Sets  []SOS2
	Minimize  bool
}

// NewProblem creates an empty minimization problem: the objective is
// total cost, minimized.
func NewProblem() *Problem {
	return &Problem{Minimize: true}
}

// AddVariable appends a new column and returns its index.
func (p *Problem) AddVariable(name string, kind VarKind, lb, ub float64) int {
	idx := len(p.Variables)
	p.Variables = append(p.Variables, Variable{Index: idx, Name: name, Kind: kind, LB: lb, UB: ub})
	return idx
}

// SetObjCoeff sets the objective-function coefficient of variable idx.
func (p *Problem) SetObjCoeff(idx int, coeff float64) {
	p.Variables[idx].ObjCoeff = coeff
}

// AddRow appends a new constraint row and returns its index.
func (p *Problem) AddRow(name string, op RowOp, rhs float64) int {
	idx := len(p.Rows)
	p.Rows = append(p.Rows, Row{Index: idx, Name: name, Terms: map[int]float64{}, Op: op, RHS: rhs})
	return idx
}

// SetCoeff sets the coefficient of variable varIdx in row rowIdx.
func (p *Problem) SetCoeff(rowIdx, varIdx int, coeff float64) {
	p.Rows[rowIdx].Terms[varIdx] = coeff
}

// AddSOS2 registers a new SOS2 set over the given variable indices.
func (p *Problem) AddSOS2(name string, vars []int) {
	p.SOS2Sets = append(p.SOS2Sets, SOS2{Name: name, Vars: vars})
}

// String renders a compact human-readable dump of the problem, useful
// for trace output and tests.
func (p *Problem) String() string {
	s := fmt.Sprintf("Problem{vars=%d rows=%d sos2=%d}", len(p.Variables), len(p.Rows), len(p.SOS2Sets))
	return s
}
