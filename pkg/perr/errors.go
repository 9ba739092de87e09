// Package perr defines the structured error taxonomy surfaced by every
// layer of the simulator: DSL parsing, circuit construction, and the
// numerical core. Each error condition gets its own exported type so
// callers can recover structured fields (line numbers, residuals, node
// names) via errors.As instead of parsing message strings.
package perr

import "fmt"

// LexError reports a lexical-analysis failure with source position.
type LexError struct {
	Line, Column int
	Message      string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// ParseError reports a syntax failure at a given source line.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
}

// InvalidComponentError reports a malformed component definition.
type InvalidComponentError struct {
	Name    string
	Line    int
	Message string
}

func (e *InvalidComponentError) Error() string {
	return fmt.Sprintf("invalid component %q at line %d: %s", e.Name, e.Line, e.Message)
}

// UnknownComponentTypeError reports an unrecognised component prefix or keyword.
type UnknownComponentTypeError struct {
	ComponentType string
	Line          int
}

func (e *UnknownComponentTypeError) Error() string {
	return fmt.Sprintf("unknown component type %q at line %d", e.ComponentType, e.Line)
}

// InvalidParameterError reports a bad parameter value for a component.
type InvalidParameterError struct {
	Component, Param, Message string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q for component %q: %s", e.Param, e.Component, e.Message)
}

// UndefinedModelError reports a model reference with no matching .model definition.
type UndefinedModelError struct {
	Model, Component string
}

func (e *UndefinedModelError) Error() string {
	return fmt.Sprintf("undefined model %q referenced by component %q", e.Model, e.Component)
}

// NodeNotFoundError reports a reference to a node absent from the circuit.
type NodeNotFoundError struct {
	Node string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node %q not found in circuit", e.Node)
}

// MissingGroundError reports a circuit with no ground reference.
type MissingGroundError struct{}

func (e *MissingGroundError) Error() string {
	return "circuit has no ground node (use \"0\" or \"GND\")"
}

// MissingInputError reports a circuit with no declared input node.
type MissingInputError struct{}

func (e *MissingInputError) Error() string {
	return "no input node specified (use \".input <node>\")"
}

// MissingOutputError reports a circuit with no declared output node.
type MissingOutputError struct{}

func (e *MissingOutputError) Error() string {
	return "no output node specified (use \".output <node>\")"
}

// DuplicateComponentError reports two components sharing one name.
type DuplicateComponentError struct {
	Name string
}

func (e *DuplicateComponentError) Error() string {
	return fmt.Sprintf("duplicate component name %q", e.Name)
}

// DuplicateModelError reports two .model directives sharing one name.
type DuplicateModelError struct {
	Name string
}

func (e *DuplicateModelError) Error() string {
	return fmt.Sprintf("duplicate model name %q", e.Name)
}

// InvalidTopologyError reports a structurally unsound circuit (e.g. empty).
type InvalidTopologyError struct {
	Message string
}

func (e *InvalidTopologyError) Error() string {
	return fmt.Sprintf("invalid circuit topology: %s", e.Message)
}

// SingularMatrixError reports that LU factorisation hit a zero pivot.
type SingularMatrixError struct{}

func (e *SingularMatrixError) Error() string {
	return "singular matrix - circuit may have a short circuit or floating node"
}

// ConvergenceFailureError reports Newton-Raphson exhausting its iteration cap.
type ConvergenceFailureError struct {
	Iterations int
	Residual   float64
}

func (e *ConvergenceFailureError) Error() string {
	return fmt.Sprintf("newton-raphson did not converge after %d iterations (residual: %.2e)", e.Iterations, e.Residual)
}

// NumericalOverflowError reports a non-finite value appearing in the solution.
type NumericalOverflowError struct {
	Node  string
	Value float64
}

func (e *NumericalOverflowError) Error() string {
	return fmt.Sprintf("numerical overflow detected at node %q (value: %.2e)", e.Node, e.Value)
}

// InvalidSimulationParamError reports a bad simulator configuration value.
type InvalidSimulationParamError struct {
	Message string
}

func (e *InvalidSimulationParamError) Error() string {
	return fmt.Sprintf("invalid simulation parameter: %s", e.Message)
}
