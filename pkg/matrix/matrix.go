// Package matrix implements the dense Modified Nodal Analysis system
// (A*x = z) used by the simulator core: typed stamping primitives, clear,
// and a dense LU factorisation with partial pivoting.
//
// The matrix is deliberately dense rather than sparse: the pack's own
// reference implementation (original_source/src/solver/mna.rs) is dense,
// and the spec this module implements lists sparse-matrix acceleration as
// an explicit non-goal.
package matrix

import (
	"math"

	"github.com/petereon/pedaler-core/pkg/perr"
)

// singularThreshold is the minimum acceptable magnitude for a pivot.
const singularThreshold = 1e-15

// Matrix is a dense row-major MNA system of size n = (nodeCount-1) + branchCount.
// Row/column index 0 corresponds to the first non-ground node; ground itself
// is never indexed. Devices stamp through the typed methods below rather
// than touching a or z directly, keeping sign conventions uniform.
type Matrix struct {
	Size int

	a []float64 // row-major Size*Size
	z []float64 // RHS, length Size
	x []float64 // last solved solution, length Size

	lu       []float64 // working copy used by Factor
	pivots   []int
	factored bool
}

// New allocates a zeroed Matrix of the given size.
func New(size int) *Matrix {
	return &Matrix{
		Size:   size,
		a:      make([]float64, size*size),
		z:      make([]float64, size),
		x:      make([]float64, size),
		lu:     make([]float64, size*size),
		pivots: make([]int, size),
	}
}

// Clear zeroes A and z in place so the matrix can be re-stamped for the
// next sample or the next Newton iteration. x is left untouched: it is the
// working solution vector nonlinear devices read to linearise about the
// evolving operating point across iterations, and the seed for the next
// sample's Newton loop.
func (m *Matrix) Clear() {
	for i := range m.a {
		m.a[i] = 0
	}
	for i := range m.z {
		m.z[i] = 0
	}
	m.factored = false
}

// ResetSolution zeroes the working solution vector x, returning it to the
// cold-start state New() begins with. Clear() deliberately leaves x alone
// (it is the Newton loop's working vector across iterations and samples);
// this is the separate, explicit operation a caller uses to discard it
// entirely, e.g. when restarting a simulation on an unrelated signal.
func (m *Matrix) ResetSolution() {
	for i := range m.x {
		m.x[i] = 0
	}
}

// idx returns the zero-based matrix index for a node, or -1 for ground.
// Node indices passed in by callers are 1-based with 0 reserved for ground,
// matching the convention used throughout pkg/circuit and pkg/device.
func idx(node int) int {
	if node <= 0 {
		return -1
	}
	return node - 1
}

func (m *Matrix) add(i, j int, value float64) {
	if i < 0 || j < 0 {
		return
	}
	m.a[i*m.Size+j] += value
}

func (m *Matrix) addRHS(i int, value float64) {
	if i < 0 {
		return
	}
	m.z[i] += value
}

// StampConductance adds a conductance g between nodes n1 and n2 (either may
// be ground, i.e. 0): +g on the diagonal entries, -g on the off-diagonal
// entries.
func (m *Matrix) StampConductance(n1, n2 int, g float64) {
	i, j := idx(n1), idx(n2)
	m.add(i, i, g)
	m.add(j, j, g)
	m.add(i, j, -g)
	m.add(j, i, -g)
}

// StampCurrentSource stamps an independent current source of value current
// flowing from n1 to n2: -current into n1's row, +current into n2's row.
func (m *Matrix) StampCurrentSource(n1, n2 int, current float64) {
	i, j := idx(n1), idx(n2)
	m.addRHS(i, -current)
	m.addRHS(j, current)
}

// StampVoltageSource stamps an ideal voltage source of value voltage on
// branch br between the positive node nPos and the negative node nNeg:
// A(br,nPos)+=1, A(nPos,br)+=1, A(br,nNeg)-=1, A(nNeg,br)-=1, z[br]=voltage.
// branchRow is the raw zero-based matrix row/column of the branch, i.e.
// (nodeCount-1) plus the zero-based branch id, already resolved by the
// caller (see pkg/circuit for the branch-to-index mapping).
func (m *Matrix) StampVoltageSource(nPos, nNeg, branchRow int, voltage float64) {
	p, n := idx(nPos), idx(nNeg)
	m.add(branchRow, p, 1)
	m.add(p, branchRow, 1)
	m.add(branchRow, n, -1)
	m.add(n, branchRow, -1)
	m.z[branchRow] = voltage
}

// StampBranchConductance adds a conductance term directly onto a branch's
// own diagonal entry, used by the inductor companion model to realise
// V[n1]-V[n2] - Req*I[br] = -Veq.
func (m *Matrix) StampBranchConductance(branchRow int, g float64) {
	m.add(branchRow, branchRow, g)
}

// StampVCCS stamps a voltage-controlled current source: current gm*(V(cn1)-V(cn2))
// flows from on1 to on2.
func (m *Matrix) StampVCCS(on1, on2, cn1, cn2 int, gm float64) {
	o1, o2 := idx(on1), idx(on2)
	c1, c2 := idx(cn1), idx(cn2)
	m.add(o1, c1, gm)
	m.add(o1, c2, -gm)
	m.add(o2, c1, -gm)
	m.add(o2, c2, gm)
}

// StampVCVS stamps a voltage-controlled voltage source on branch br:
// V(onPos)-V(onNeg) = gain*(V(cnPos)-V(cnNeg)). No device in this module
// stamps a VCVS directly - the op-amp macro-model deliberately avoids it,
// since a direct VCVS with the gains op-amps need causes catastrophic
// cancellation in the dense LU solve - but the assembler still exposes it
// as a typed primitive alongside conductance/voltage-source/current-source/
// VCCS, the same way the dense MNA matrix this module is grounded on keeps
// it available even though nothing there calls it either.
func (m *Matrix) StampVCVS(onPos, onNeg, cnPos, cnNeg, branchRow int, gain float64) {
	p, n := idx(onPos), idx(onNeg)
	m.add(branchRow, p, 1)
	m.add(p, branchRow, 1)
	m.add(branchRow, n, -1)
	m.add(n, branchRow, -1)

	cp, cn := idx(cnPos), idx(cnNeg)
	m.add(branchRow, cp, -gain)
	m.add(branchRow, cn, gain)
}

// SetRHS overwrites (rather than accumulates) the RHS entry at a raw branch
// row. No device in this module calls it; digital effects drive their
// output through StampVoltageSource.
func (m *Matrix) SetRHS(row int, value float64) {
	if row < 0 {
		return
	}
	m.z[row] = value
}

// NodeVoltage returns the solved voltage at a 1-based node id, 0 for ground.
func (m *Matrix) NodeVoltage(node int) float64 {
	i := idx(node)
	if i < 0 {
		return 0
	}
	return m.x[i]
}

// SetNodeVoltage overwrites the solved voltage at a 1-based node id
// (ground writes are silently dropped). This does not touch A or z: it is
// for post-solve adjustments that live outside the MNA system itself, such
// as the op-amp's optional rail/slew clamp.
func (m *Matrix) SetNodeVoltage(node int, value float64) {
	i := idx(node)
	if i < 0 {
		return
	}
	m.x[i] = value
}

// Value returns the raw solved value at a zero-based matrix row (used to
// read branch currents by row index directly).
func (m *Matrix) Value(row int) float64 {
	if row < 0 || row >= len(m.x) {
		return 0
	}
	return m.x[row]
}

// Solution returns the full solved vector (node voltages then branch
// currents, in the fixed layout described by the module's data model).
func (m *Matrix) Solution() []float64 {
	return m.x
}

// Factor performs dense LU factorisation with partial pivoting on a working
// copy of A, recording the pivot permutation. Returns SingularMatrixError if
// any pivot falls below the singular threshold.
func (m *Matrix) Factor() error {
	n := m.Size
	copy(m.lu, m.a)
	for i := 0; i < n; i++ {
		m.pivots[i] = i
	}

	for k := 0; k < n; k++ {
		maxVal := math.Abs(m.lu[k*n+k])
		maxRow := k
		for i := k + 1; i < n; i++ {
			v := math.Abs(m.lu[i*n+k])
			if v > maxVal {
				maxVal = v
				maxRow = i
			}
		}
		if maxVal < singularThreshold {
			return &perr.SingularMatrixError{}
		}
		if maxRow != k {
			m.swapRows(k, maxRow)
			m.pivots[k], m.pivots[maxRow] = m.pivots[maxRow], m.pivots[k]
		}

		pivot := m.lu[k*n+k]
		for i := k + 1; i < n; i++ {
			factor := m.lu[i*n+k] / pivot
			m.lu[i*n+k] = factor
			if factor == 0 {
				continue
			}
			for j := k + 1; j < n; j++ {
				m.lu[i*n+j] -= factor * m.lu[k*n+j]
			}
		}
	}

	m.factored = true
	return nil
}

func (m *Matrix) swapRows(r1, r2 int) {
	n := m.Size
	for j := 0; j < n; j++ {
		m.lu[r1*n+j], m.lu[r2*n+j] = m.lu[r2*n+j], m.lu[r1*n+j]
	}
}

// Solve applies the recorded permutation to z, then performs forward
// substitution (unit lower diagonal) followed by back substitution,
// leaving the result in x. If A has not been factored since the last
// Clear, Solve calls Factor first.
func (m *Matrix) Solve() error {
	if !m.factored {
		if err := m.Factor(); err != nil {
			return err
		}
	}

	n := m.Size
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		y[i] = m.z[m.pivots[i]]
	}

	// Forward substitution: L*y = Pz, unit diagonal.
	for i := 0; i < n; i++ {
		sum := y[i]
		for j := 0; j < i; j++ {
			sum -= m.lu[i*n+j] * y[j]
		}
		y[i] = sum
	}

	// Back substitution: U*x = y.
	for i := n - 1; i >= 0; i-- {
		diag := m.lu[i*n+i]
		if math.Abs(diag) < singularThreshold {
			return &perr.SingularMatrixError{}
		}
		sum := y[i]
		for j := i + 1; j < n; j++ {
			sum -= m.lu[i*n+j] * m.x[j]
		}
		m.x[i] = sum / diag
	}

	return nil
}

// Residual computes ||A*x - z||_inf against the last-stamped A and z, used
// by tests to verify the LU solve round-trips within tolerance.
func (m *Matrix) Residual() float64 {
	n := m.Size
	max := 0.0
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += m.a[i*n+j] * m.x[j]
		}
		diff := math.Abs(sum - m.z[i])
		if diff > max {
			max = diff
		}
	}
	return max
}
