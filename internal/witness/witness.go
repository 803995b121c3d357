// Package witness reads GraphML violation witnesses and replays them
// against a running program.
//
// A witness is an automaton produced by a verifier. Its edges describe
// program locations (file, line range, entered or returned function,
// branch taken) and may carry assumptions about variable values. The
// interpreter reports its state before every statement; matching edges
// advance the automaton and their assumptions pin non-deterministic
// variables to the values the verifier chose.
package witness

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/funvibe/ctaint/internal/evaluator"
)

var (
	ErrNotGraphML = errors.New("no graphml root element")
	ErrNoNodes    = errors.New("witness has no nodes")
	ErrNoEdges    = errors.New("witness has no edges")
)

// Key is a GraphML key declaration with its default value.
type Key struct {
	ID      string
	Name    string
	Type    string
	For     string
	Default string
}

// Node is a state of the witness automaton.
type Node struct {
	ID             string
	Type           string
	Invariant      string
	InvariantScope string
	Entry          bool
	Violation      bool
	Sink           bool
	Frontier       bool
	LoopHead       bool
	Thread         int
}

// Edge is a transition of the witness automaton.
type Edge struct {
	Source string
	Target string

	OriginFile  string
	StartLine   int
	EndLine     int
	StartOffset int
	EndOffset   int

	Assumption               string
	AssumptionScope          string
	AssumptionResultFunction string

	EnterFunction string
	ReturnFrom    string
	Control       evaluator.Branch
	EnterLoopHead bool
	SourceCode    string
}

// Data holds the graph-level metadata.
type Data struct {
	SourceCodeLang string
	ProgramFile    string
	ProgramHash    string
	Specification  string
	Architecture   string
	Producer       string
	WitnessType    string
}

// Witness is a parsed GraphML witness.
type Witness struct {
	Keys  map[string]Key
	Nodes map[string]*Node
	Edges []*Edge
	Data  Data
}

type xmlGraphML struct {
	XMLName xml.Name  `xml:"graphml"`
	Keys    []xmlKey  `xml:"key"`
	Graph   *xmlGraph `xml:"graph"`
}

type xmlKey struct {
	ID      string `xml:"id,attr"`
	For     string `xml:"for,attr"`
	Name    string `xml:"attr.name,attr"`
	Type    string `xml:"attr.type,attr"`
	Default string `xml:"default"`
}

type xmlGraph struct {
	Data  []xmlData    `xml:"data"`
	Nodes []xmlElement `xml:"node"`
	Edges []xmlElement `xml:"edge"`
}

type xmlElement struct {
	Attrs []xml.Attr `xml:",any,attr"`
	Data  []xmlData  `xml:"data"`
}

type xmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// builtinKeys are used when a witness declares no keys at all.
var builtinKeys = []Key{
	{"violatedProperty", "violatedProperty", "string", "node", ""},
	{"sourcecodelang", "sourcecodeLanguage", "string", "graph", ""},
	{"programfile", "programFile", "string", "graph", ""},
	{"programhash", "programHash", "string", "graph", ""},
	{"specification", "specification", "string", "graph", ""},
	{"architecture", "architecture", "string", "graph", ""},
	{"producer", "producer", "string", "graph", ""},
	{"creationtime", "creationTime", "string", "graph", ""},
	{"startline", "startline", "int", "edge", ""},
	{"endline", "endline", "int", "edge", ""},
	{"startoffset", "startoffset", "int", "edge", ""},
	{"endoffset", "endoffset", "int", "edge", ""},
	{"control", "control", "string", "edge", ""},
	{"assumption", "assumption", "string", "edge", ""},
	{"assumption.scope", "assumption.scope", "string", "edge", ""},
	{"enterFunction", "enterFunction", "string", "edge", ""},
	{"returnFrom", "returnFromFunction", "string", "edge", ""},
	{"witness-type", "witness-type", "string", "graph", ""},
	{"inputwitnesshash", "inputWitnessHash", "string", "graph", ""},
	{"originfile", "originFileName", "string", "edge", ""},
	{"violation", "isViolationNode", "boolean", "node", "false"},
	{"entry", "isEntryNode", "boolean", "node", "false"},
	{"sink", "isSinkNode", "boolean", "node", "false"},
	{"loopHead", "isLoopHeadNode", "boolean", "node", "false"},
	{"enterLoopHead", "enterLoopHead", "boolean", "edge", "false"},
}

// Load reads the witness at path.
func Load(path string) (*Witness, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading witness %s: %w", path, err)
	}
	defer f.Close()
	w, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// Parse decodes a GraphML witness.
func Parse(r io.Reader) (*Witness, error) {
	var doc xmlGraphML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNotGraphML
		}
		var se xml.UnmarshalError
		if errors.As(err, &se) {
			return nil, ErrNotGraphML
		}
		return nil, fmt.Errorf("parsing graphml: %w", err)
	}
	if doc.Graph == nil || len(doc.Graph.Nodes) == 0 {
		return nil, ErrNoNodes
	}
	if len(doc.Graph.Edges) == 0 {
		return nil, ErrNoEdges
	}

	w := &Witness{Keys: make(map[string]Key), Nodes: make(map[string]*Node)}
	keys := builtinKeys
	if len(doc.Keys) > 0 {
		keys = keys[:0:0]
		for _, k := range doc.Keys {
			keys = append(keys, Key{ID: k.ID, Name: k.Name, Type: k.Type, For: k.For,
				Default: strings.TrimSpace(k.Default)})
		}
	}
	for _, k := range keys {
		w.Keys[k.ID] = k
	}

	for _, el := range doc.Graph.Nodes {
		n := w.defaultNode()
		for _, a := range el.Attrs {
			n.set(a.Name.Local, a.Value)
		}
		for _, d := range el.Data {
			n.set(d.Key, d.Value)
		}
		if n.ID == "" {
			continue
		}
		w.Nodes[n.ID] = n
	}
	if len(w.Nodes) == 0 {
		return nil, ErrNoNodes
	}

	for _, el := range doc.Graph.Edges {
		e := w.defaultEdge()
		for _, a := range el.Attrs {
			e.set(a.Name.Local, a.Value)
		}
		for _, d := range el.Data {
			e.set(d.Key, d.Value)
		}
		if e.Source == "" || e.Target == "" {
			continue
		}
		if t, ok := w.Nodes[e.Target]; ok && t.LoopHead {
			e.EnterLoopHead = true
		}
		if e.EndLine == 0 {
			e.EndLine = e.StartLine
		}
		w.Edges = append(w.Edges, e)
	}
	if len(w.Edges) == 0 {
		return nil, ErrNoEdges
	}

	for _, d := range doc.Graph.Data {
		w.Data.set(d.Key, strings.TrimSpace(d.Value))
	}
	return w, nil
}

func (w *Witness) def(id string) string {
	return w.Keys[id].Default
}

func (w *Witness) defaultNode() *Node {
	n := &Node{
		Invariant:      w.def("invariant"),
		InvariantScope: w.def("invariant.scope"),
		Type:           w.def("nodetype"),
		Frontier:       w.def("frontier") == "true",
		Violation:      w.def("violation") == "true",
		Entry:          w.def("entry") == "true",
		Sink:           w.def("sink") == "true",
		LoopHead:       w.def("loopHead") == "true",
	}
	n.Thread, _ = strconv.Atoi(w.def("thread"))
	return n
}

func (n *Node) set(name, value string) {
	value = strings.TrimSpace(value)
	switch name {
	case "id":
		n.ID = value
	case "entry":
		n.Entry = value == "true"
	case "sink":
		n.Sink = value == "true"
	case "frontier":
		n.Frontier = value == "true"
	case "loopHead":
		n.LoopHead = value == "true"
	case "violation":
		n.Violation = value == "true"
	case "violatedProperty":
		n.Violation = true
	case "invariant":
		n.Invariant = value
	case "invariant.scope":
		n.InvariantScope = value
	case "nodetype":
		n.Type = value
	case "thread":
		n.Thread, _ = strconv.Atoi(value)
	}
}

func (w *Witness) defaultEdge() *Edge {
	e := &Edge{
		Assumption:               w.def("assumption"),
		AssumptionScope:          w.def("assumption.scope"),
		AssumptionResultFunction: w.def("assumption.resultfunction"),
		OriginFile:               w.def("originfile"),
		EnterFunction:            w.def("enterFunction"),
		ReturnFrom:               w.def("returnFrom"),
		SourceCode:               w.def("sourcecode"),
		EnterLoopHead:            w.def("enterLoopHead") == "true",
		Control:                  parseControl(w.def("control")),
	}
	e.StartLine, _ = strconv.Atoi(w.def("startline"))
	e.EndLine, _ = strconv.Atoi(w.def("endline"))
	e.StartOffset, _ = strconv.Atoi(w.def("startoffset"))
	e.EndOffset, _ = strconv.Atoi(w.def("endoffset"))
	return e
}

func (e *Edge) set(name, value string) {
	trimmed := strings.TrimSpace(value)
	switch name {
	case "source":
		e.Source = trimmed
	case "target":
		e.Target = trimmed
	case "assumption":
		e.Assumption = trimmed
	case "assumption.scope":
		e.AssumptionScope = trimmed
	case "assumption.resultfunction":
		e.AssumptionResultFunction = trimmed
	case "originfile":
		e.OriginFile = trimmed
	case "control":
		e.Control = parseControl(trimmed)
	case "startline":
		e.StartLine, _ = strconv.Atoi(trimmed)
	case "endline":
		e.EndLine, _ = strconv.Atoi(trimmed)
	case "startoffset":
		e.StartOffset, _ = strconv.Atoi(trimmed)
	case "endoffset":
		e.EndOffset, _ = strconv.Atoi(trimmed)
	case "enterFunction":
		e.EnterFunction = trimmed
	case "returnFrom":
		e.ReturnFrom = trimmed
	case "sourcecode":
		e.SourceCode = value
	case "enterLoopHead":
		e.EnterLoopHead = trimmed == "true"
	}
}

func parseControl(s string) evaluator.Branch {
	switch s {
	case "condition-true":
		return evaluator.BranchTrue
	case "condition-false":
		return evaluator.BranchFalse
	}
	return evaluator.BranchNone
}

func (d *Data) set(key, value string) {
	switch key {
	case "sourcecodelang":
		d.SourceCodeLang = value
	case "programfile":
		d.ProgramFile = value
	case "programhash":
		d.ProgramHash = value
	case "specification":
		d.Specification = value
	case "architecture":
		d.Architecture = value
	case "producer":
		d.Producer = value
	case "witness-type":
		d.WitnessType = value
	}
}

func (e *Edge) String() string {
	s := fmt.Sprintf("%s -> %s", e.Source, e.Target)
	if e.StartLine > 0 {
		s += fmt.Sprintf(" @%d", e.StartLine)
		if e.EndLine != e.StartLine {
			s += fmt.Sprintf("-%d", e.EndLine)
		}
	}
	if e.Control != evaluator.BranchNone {
		s += " " + e.Control.String()
	}
	if e.EnterFunction != "" {
		s += " enter " + e.EnterFunction
	}
	if e.ReturnFrom != "" {
		s += " return " + e.ReturnFrom
	}
	if e.Assumption != "" {
		s += " [" + e.Assumption + "]"
	}
	return s
}
