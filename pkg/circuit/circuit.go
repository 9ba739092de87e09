// Package circuit resolves a parsed pkg/dsl Ast into a concrete,
// ready-to-simulate circuit graph: node and branch indices assigned,
// every component instantiated as its pkg/device type, and the
// input/output nodes and any audio-input voltage source identified.
package circuit

import (
	"strings"

	"github.com/petereon/pedaler-core/pkg/device"
	"github.com/petereon/pedaler-core/pkg/dsl"
	"github.com/petereon/pedaler-core/pkg/perr"
)

// Circuit is the fully resolved graph a Simulator runs against.
type Circuit struct {
	NodeMap   map[string]int // DSL node name -> 1-based node id; ground excluded
	NodeNames []string       // index 0 is "0" (ground), same order as ids

	NumNodes    int // including ground
	NumBranches int

	InputNode  int
	OutputNode int

	Devices          []device.Device
	ReactiveDevices  []device.Reactive
	NonlinearDevices []device.Nonlinear
	ModulatedDevices []device.Modulated
	DigitalEffects   []device.DigitalEffect
	OpAmps           []*device.OpAmp
	Lfos             map[string]*device.Lfo

	// InputSource is the voltage source touching InputNode, if any; the
	// simulator drives its value from the incoming audio sample each step.
	InputSource *device.VoltageSource
}

// FromAst builds a Circuit from a parsed Ast. sampleRate is needed up
// front because delay lines, reverbs, and LFOs all size buffers and phase
// increments from it at construction time.
func FromAst(ast *dsl.Ast, sampleRate float64) (*Circuit, error) {
	if ast.InputNode == "" {
		return nil, &perr.MissingInputError{}
	}
	if ast.OutputNode == "" {
		return nil, &perr.MissingOutputError{}
	}

	c := &Circuit{
		NodeMap:   make(map[string]int),
		NodeNames: []string{"0"},
		Lfos:      make(map[string]*device.Lfo),
	}

	nextID := 1
	for _, name := range ast.Nodes {
		normalized := normalizeNode(name)
		if normalized == "0" {
			continue
		}
		if _, exists := c.NodeMap[normalized]; exists {
			continue
		}
		c.NodeMap[normalized] = nextID
		c.NodeNames = append(c.NodeNames, normalized)
		nextID++
	}
	c.NumNodes = nextID

	inputNode, ok := c.resolveNode(ast.InputNode)
	if !ok {
		return nil, &perr.NodeNotFoundError{Node: ast.InputNode}
	}
	outputNode, ok := c.resolveNode(ast.OutputNode)
	if !ok {
		return nil, &perr.NodeNotFoundError{Node: ast.OutputNode}
	}
	c.InputNode = inputNode
	c.OutputNode = outputNode

	branchCounter := 0
	seenNames := make(map[string]bool)

	for _, def := range ast.Components {
		if seenNames[def.Name] {
			return nil, &perr.DuplicateComponentError{Name: def.Name}
		}
		seenNames[def.Name] = true

		nodes := make([]int, len(def.Nodes))
		for i, n := range def.Nodes {
			id, ok := c.resolveNode(n)
			if !ok {
				return nil, &perr.NodeNotFoundError{Node: n}
			}
			nodes[i] = id
		}

		if err := c.addComponent(def, nodes, ast, &branchCounter, sampleRate); err != nil {
			return nil, err
		}
	}

	c.NumBranches = branchCounter

	return c, nil
}

func normalizeNode(name string) string {
	if strings.EqualFold(name, "GND") {
		return "0"
	}
	return name
}

func (c *Circuit) resolveNode(name string) (int, bool) {
	normalized := normalizeNode(name)
	if normalized == "0" {
		return 0, true
	}
	id, ok := c.NodeMap[normalized]
	return id, ok
}

func (c *Circuit) addComponent(def dsl.ComponentDef, nodes []int, ast *dsl.Ast, branchCounter *int, sampleRate float64) error {
	switch def.Type {
	case dsl.Resistor:
		return c.addResistor(def, nodes)

	case dsl.Capacitor:
		if def.Value == nil {
			return &perr.InvalidComponentError{Name: def.Name, Line: def.Line, Message: "capacitor requires a value"}
		}
		cap := device.NewCapacitor(def.Name, nodes[0], nodes[1], *def.Value)
		c.Devices = append(c.Devices, cap)
		c.ReactiveDevices = append(c.ReactiveDevices, cap)
		return nil

	case dsl.Inductor:
		if def.Value == nil {
			return &perr.InvalidComponentError{Name: def.Name, Line: def.Line, Message: "inductor requires a value"}
		}
		branch := allocBranch(branchCounter, c.NumNodes)
		ind := device.NewInductor(def.Name, nodes[0], nodes[1], branch, *def.Value)
		c.Devices = append(c.Devices, ind)
		c.ReactiveDevices = append(c.ReactiveDevices, ind)
		return nil

	case dsl.Diode:
		params := device.DefaultDiodeParams()
		if def.ModelRef != "" {
			model, ok := ast.Models[def.ModelRef]
			if !ok {
				return &perr.UndefinedModelError{Model: def.ModelRef, Component: def.Name}
			}
			params = diodeParamsFromModel(model)
		}
		d := device.NewDiode(def.Name, nodes[0], nodes[1], params)
		c.Devices = append(c.Devices, d)
		c.NonlinearDevices = append(c.NonlinearDevices, d)
		return nil

	case dsl.Bjt:
		polarity := device.Npn
		params := device.DefaultBjtParams()
		if def.ModelRef != "" {
			model, ok := ast.Models[def.ModelRef]
			if !ok {
				return &perr.UndefinedModelError{Model: def.ModelRef, Component: def.Name}
			}
			if model.Type == dsl.ModelBjtPnp {
				polarity = device.Pnp
			}
			params = bjtParamsFromModel(model)
		}
		q := device.NewBjt(def.Name, nodes[0], nodes[1], nodes[2], polarity, params)
		c.Devices = append(c.Devices, q)
		c.NonlinearDevices = append(c.NonlinearDevices, q)
		return nil

	case dsl.VoltageSource:
		value := 0.0
		if def.Value != nil {
			value = *def.Value
		}
		branch := allocBranch(branchCounter, c.NumNodes)
		v := device.NewDCVoltageSource(def.Name, nodes[0], nodes[1], branch, value)
		c.Devices = append(c.Devices, v)
		if c.InputSource == nil && (nodes[0] == c.InputNode || nodes[1] == c.InputNode) {
			c.InputSource = v
		}
		return nil

	case dsl.CurrentSource:
		value := 0.0
		if def.Value != nil {
			value = *def.Value
		}
		i := device.NewDCCurrentSource(def.Name, nodes[0], nodes[1], value)
		c.Devices = append(c.Devices, i)
		return nil

	case dsl.OpAmp:
		params := device.IdealOpAmpParams()
		if def.ModelRef != "" {
			model, ok := ast.Models[def.ModelRef]
			if !ok {
				return &perr.UndefinedModelError{Model: def.ModelRef, Component: def.Name}
			}
			params = opAmpParamsFromModel(model)
		}
		op := device.NewOpAmp(def.Name, nodes[0], nodes[1], nodes[2], params)
		c.Devices = append(c.Devices, op)
		c.OpAmps = append(c.OpAmps, op)
		return nil

	case dsl.Potentiometer:
		if def.Value == nil {
			return &perr.InvalidComponentError{Name: def.Name, Line: def.Line, Message: "potentiometer requires a value"}
		}
		position, ok := def.Params["position"]
		if !ok {
			position = 0.5
		}
		pot := device.NewPotentiometer(def.Name, nodes[0], nodes[1], nodes[2], *def.Value, position)
		c.Devices = append(c.Devices, pot)
		return nil

	case dsl.Switch:
		closed := true
		if state, ok := def.Params["state"]; ok {
			closed = state > 0.5
		}
		sw := device.NewSwitch(def.Name, nodes[0], nodes[1], closed)
		c.Devices = append(c.Devices, sw)
		return nil

	case dsl.Delay:
		delaySeconds := 0.1
		if def.Value != nil {
			delaySeconds = *def.Value
		}
		mix, ok := def.Params["mix"]
		if !ok {
			mix = 0.5
		}
		feedback, ok := def.Params["feedback"]
		if !ok {
			feedback = 0.3
		}
		branch := allocBranch(branchCounter, c.NumNodes)
		dl := device.NewDelayLine(def.Name, nodes[0], nodes[1], branch, delaySeconds, sampleRate, mix, feedback)
		c.Devices = append(c.Devices, dl)
		c.DigitalEffects = append(c.DigitalEffects, dl)
		return nil

	case dsl.Reverb:
		params := reverbParamsFromDef(def)
		branch := allocBranch(branchCounter, c.NumNodes)
		rv := device.NewReverb(def.Name, nodes[0], nodes[1], branch, params, sampleRate)
		c.Devices = append(c.Devices, rv)
		c.DigitalEffects = append(c.DigitalEffects, rv)
		return nil

	case dsl.Lfo:
		rate := 0.5
		if def.Value != nil {
			rate = *def.Value
		}
		shapeName := def.ModelRef
		if shapeName == "" {
			shapeName = "sine"
		}
		shape, _ := device.ParseLfoShape(shapeName)
		c.Lfos[def.Name] = device.NewLfo(def.Name, rate, shape, sampleRate)
		return nil
	}

	return &perr.UnknownComponentTypeError{ComponentType: def.Name, Line: def.Line}
}

func (c *Circuit) addResistor(def dsl.ComponentDef, nodes []int) error {
	if def.Value == nil {
		return &perr.InvalidComponentError{Name: def.Name, Line: def.Line, Message: "resistor requires a value"}
	}

	lfoName := ""
	if def.Modulation != nil {
		lfoName = def.Modulation.LfoName
	} else if strings.HasPrefix(strings.ToUpper(def.ModelRef), "LFO") {
		lfoName = def.ModelRef
	}

	var r *device.Resistor
	if lfoName != "" {
		depth, ok := def.Params["depth"]
		if !ok {
			depth = 0.8
		}
		rangeScale, ok := def.Params["range"]
		if !ok {
			rangeScale = 4.0
		}
		r = device.NewModulatedResistor(def.Name, nodes[0], nodes[1], *def.Value, lfoName, depth, rangeScale)
		c.ModulatedDevices = append(c.ModulatedDevices, r)
	} else {
		r = device.NewResistor(def.Name, nodes[0], nodes[1], *def.Value)
	}

	c.Devices = append(c.Devices, r)
	return nil
}

func allocBranch(counter *int, numNodes int) int {
	row := (numNodes - 1) + *counter
	*counter++
	return row
}

// MatrixSize is the dense MNA system's dimension: one unknown per
// non-ground node plus one per branch current.
func (c *Circuit) MatrixSize() int {
	return (c.NumNodes - 1) + c.NumBranches
}

// FindNode looks up a node id by its DSL name, accepting "GND" as an
// alias for "0".
func (c *Circuit) FindNode(name string) (int, bool) {
	return c.resolveNode(name)
}

// Validate checks structural soundness that can't be caught while
// resolving individual component lines.
func (c *Circuit) Validate() error {
	if c.InputNode == 0 {
		return &perr.InvalidTopologyError{Message: "input node cannot be ground"}
	}
	if c.OutputNode == 0 {
		return &perr.InvalidTopologyError{Message: "output node cannot be ground"}
	}
	if len(c.Devices) == 0 && len(c.DigitalEffects) == 0 {
		return &perr.InvalidTopologyError{Message: "circuit has no components"}
	}
	return nil
}

func diodeParamsFromModel(model dsl.ModelDef) device.DiodeParams {
	p := device.DefaultDiodeParams()
	if v, ok := model.Params["is"]; ok {
		p.Is = v
	}
	if v, ok := model.Params["n"]; ok {
		p.N = v
	}
	if v, ok := model.Params["vf"]; ok {
		p.Vf = v
	}
	if v, ok := model.Params["vcrit"]; ok {
		p.VCrit = v
	}
	return p
}

func bjtParamsFromModel(model dsl.ModelDef) device.BjtParams {
	p := device.DefaultBjtParams()
	if v, ok := model.Params["betaf"]; ok {
		p.BetaF = v
	}
	if v, ok := model.Params["betar"]; ok {
		p.BetaR = v
	}
	if v, ok := model.Params["isbe"]; ok {
		p.IsBe = v
	}
	if v, ok := model.Params["isbc"]; ok {
		p.IsBc = v
	}
	if v, ok := model.Params["n"]; ok {
		p.N = v
	}
	if v, ok := model.Params["va"]; ok {
		p.Va = v
	}
	return p
}

func opAmpParamsFromModel(model dsl.ModelDef) device.OpAmpParams {
	p := device.IdealOpAmpParams()
	if v, ok := model.Params["gain"]; ok {
		p.Gain = v
	}
	if v, ok := model.Params["rout"]; ok {
		p.ROut = v
	}
	if v, ok := model.Params["rin"]; ok {
		p.RIn = v
	}
	if v, ok := model.Params["vrailpos"]; ok {
		p.VRailPos = v
	}
	if v, ok := model.Params["vrailneg"]; ok {
		p.VRailNeg = v
	}
	if v, ok := model.Params["slewrate"]; ok {
		p.SlewRate = v
	}
	if v, ok := model.Params["raillimit"]; ok {
		p.RailLimit = v > 0.5
	}
	return p
}

func reverbParamsFromDef(def dsl.ComponentDef) device.ReverbParams {
	p := device.DefaultReverbParams()
	if v, ok := def.Params["decay"]; ok {
		p.Decay = v
	}
	if v, ok := def.Params["size"]; ok {
		p.Size = v
	}
	if v, ok := def.Params["damping"]; ok {
		p.Damping = v
	}
	if v, ok := def.Params["mix"]; ok {
		p.Mix = v
	}
	if v, ok := def.Params["predelay"]; ok {
		p.Predelay = v
	}
	return p
}
