package circuit

import (
	"testing"

	"github.com/petereon/pedaler-core/pkg/device"
	"github.com/petereon/pedaler-core/pkg/dsl"
	"github.com/petereon/pedaler-core/pkg/perr"
	"github.com/stretchr/testify/require"
)

func parseCircuit(t *testing.T, src string) (*Circuit, error) {
	t.Helper()
	ast, err := dsl.ParseString(src)
	require.NoError(t, err)
	return FromAst(ast, 48000)
}

func TestFromAstAssignsNodeIdsExcludingGround(t *testing.T) {
	c, err := parseCircuit(t, `
.input in
.output out
V1 in 0 DC 1
R1 in out 1k
R2 out 0 1k
`)
	require.NoError(t, err)
	require.Equal(t, 3, c.NumNodes) // ground + in + out
	_, ok := c.FindNode("0")
	require.True(t, ok)
	inID, ok := c.FindNode("in")
	require.True(t, ok)
	require.NotEqual(t, 0, inID)
}

func TestFromAstResolvesGndAlias(t *testing.T) {
	c, err := parseCircuit(t, `
.input in
.output out
V1 in GND DC 1
R1 in out 1k
R2 out GND 1k
`)
	require.NoError(t, err)
	id, ok := c.FindNode("GND")
	require.True(t, ok)
	require.Equal(t, 0, id)
}

func TestFromAstAllocatesBranchesForVoltageSourcesOnly(t *testing.T) {
	c, err := parseCircuit(t, `
.input in
.output out
V1 in 0 DC 1
R1 in out 1k
R2 out 0 1k
`)
	require.NoError(t, err)
	require.Equal(t, 1, c.NumBranches)
	require.Equal(t, (c.NumNodes-1)+c.NumBranches, c.MatrixSize())
}

func TestFromAstRejectsDuplicateComponentNames(t *testing.T) {
	_, err := parseCircuit(t, `
.input in
.output out
V1 in 0 DC 1
R1 in out 1k
R1 out 0 1k
`)
	require.Error(t, err)
	var dup *perr.DuplicateComponentError
	require.ErrorAs(t, err, &dup)
}

func TestFromAstRejectsMissingInputDirective(t *testing.T) {
	_, err := parseCircuit(t, `
.output out
V1 in 0 DC 1
R1 in out 1k
`)
	require.Error(t, err)
	var missing *perr.MissingInputError
	require.ErrorAs(t, err, &missing)
}

func TestFromAstRejectsMissingOutputDirective(t *testing.T) {
	_, err := parseCircuit(t, `
.input in
V1 in 0 DC 1
R1 in out 1k
`)
	require.Error(t, err)
	var missing *perr.MissingOutputError
	require.ErrorAs(t, err, &missing)
}

func TestFromAstRejectsUndefinedNode(t *testing.T) {
	_, err := parseCircuit(t, `
.input in
.output out
V1 in 0 DC 1
R1 in nowhere 1k
`)
	require.Error(t, err)
	var notFound *perr.NodeNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestValidateRejectsGroundAsInputOrOutput(t *testing.T) {
	c := &Circuit{InputNode: 0, OutputNode: 1}
	err := c.Validate()
	require.Error(t, err)
	var topo *perr.InvalidTopologyError
	require.ErrorAs(t, err, &topo)
}

func TestValidateRejectsEmptyCircuit(t *testing.T) {
	c, err := parseCircuit(t, `
.input in
.output out
.node out
V1 in 0 DC 1
`)
	require.NoError(t, err)
	// V1 alone satisfies "has components"; strip it to test the empty path
	// directly against the Circuit type instead of via the parser.
	empty := &Circuit{InputNode: 1, OutputNode: 2}
	err = empty.Validate()
	require.Error(t, err)
	var topo *perr.InvalidTopologyError
	require.ErrorAs(t, err, &topo)

	require.NoError(t, c.Validate())
}

func TestModelOverridesDiodeParams(t *testing.T) {
	c, err := parseCircuit(t, `
.input in
.output out
V1 in 0 DC 1
R1 in out 1k
D1 out 0 GERM
.model GERM D(is=1e-6 n=1.5 vf=0.3)
`)
	require.NoError(t, err)
	require.Len(t, c.NonlinearDevices, 1)
	d, ok := c.NonlinearDevices[0].(*device.Diode)
	require.True(t, ok)
	require.InDelta(t, 1e-6, d.Params.Is, 1e-18)
	require.InDelta(t, 1.5, d.Params.N, 1e-12)
	require.InDelta(t, 0.3, d.Params.Vf, 1e-12)
}
