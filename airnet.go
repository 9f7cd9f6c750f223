// Package airnet 多区域建筑气流网络模型
package airnet

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"airnet/afn"
	"airnet/element"
	"airnet/types"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// LayerDef 分层定义
type LayerDef struct {
	Start            float64 `yaml:"start"`
	TempGradient     float64 `yaml:"temp_gradient"`
	HumidityGradient float64 `yaml:"humidity_gradient"`
}

// NodeDef 节点定义
type NodeDef struct {
	Name          string     `yaml:"name" validate:"required"`
	Kind          string     `yaml:"kind" validate:"oneof=free fixed"`
	External      bool       `yaml:"external,omitempty"`
	Height        float64    `yaml:"height,omitempty"`
	Pressure      float64    `yaml:"pressure,omitempty"`
	Temperature   float64    `yaml:"temperature"`
	HumidityRatio float64    `yaml:"humidity_ratio,omitempty" validate:"gte=0,lt=1"`
	Layers        []LayerDef `yaml:"layers,omitempty"`
}

// UnmarshalYAML 缺省为 20C 待求节点
func (n *NodeDef) UnmarshalYAML(value *yaml.Node) error {
	type plain NodeDef
	p := plain{Kind: types.NodeFree.String(), Temperature: types.DefaultTemperature}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*n = NodeDef(p)
	return nil
}

// ComponentDef 命名元件，参数按类型解析
type ComponentDef struct {
	Name   string    `yaml:"name" validate:"required"`
	Type   string    `yaml:"type" validate:"required"`
	Params yaml.Node `yaml:"params,omitempty"`
}

// LinkDef 连接定义，节点与元件按名称引用
type LinkDef struct {
	Name         string  `yaml:"name" validate:"required"`
	From         string  `yaml:"from" validate:"required"`
	To           string  `yaml:"to" validate:"required,nefield=From"`
	Component    string  `yaml:"component" validate:"required"`
	FromHeight   float64 `yaml:"from_height,omitempty"`
	ToHeight     float64 `yaml:"to_height,omitempty"`
	Multiplier   float64 `yaml:"multiplier" validate:"gt=0"`
	Control      float64 `yaml:"control" validate:"gte=0"`
	WindPressure float64 `yaml:"wind_pressure,omitempty"`
	Distribution bool    `yaml:"distribution,omitempty"`
}

// UnmarshalYAML 倍数与控制值缺省为 1
func (l *LinkDef) UnmarshalYAML(value *yaml.Node) error {
	type plain LinkDef
	p := plain{Multiplier: 1, Control: 1}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*l = LinkDef(p)
	return nil
}

// Definition 网络定义文件
type Definition struct {
	Environment types.Environment `yaml:"environment"`
	Solver      types.Config      `yaml:"solver"`
	Nodes       []NodeDef         `yaml:"nodes" validate:"min=1,dive"`
	Components  []ComponentDef    `yaml:"components" validate:"dive"`
	Links       []LinkDef         `yaml:"links" validate:"dive"`
}

var validate = validator.New()

// NewDefinition 默认环境与求解参数的空定义
func NewDefinition() *Definition {
	return &Definition{
		Environment: types.DefaultEnvironment(),
		Solver:      types.DefaultConfig(),
	}
}

// Load 读取 YAML 网络定义，未给出的环境与求解参数取默认值
func Load(r io.Reader) (*Definition, error) {
	d := NewDefinition()
	if err := d.Read(r); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadFile 读取网络定义文件
func LoadFile(filename string) (*Definition, error) {
	d := NewDefinition()
	if err := d.ReadFile(filename); err != nil {
		return nil, err
	}
	return d, nil
}

// Read 读取 YAML 覆盖 d 中已有的值并校验
func (d *Definition) Read(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(d); err != nil {
		return fmt.Errorf("%w: 网络定义解析失败: %v", types.ErrInvalidNetwork, err)
	}
	return d.Validate()
}

// ReadFile 读取网络定义文件
func (d *Definition) ReadFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return d.Read(file)
}

// Validate 校验字段与名称唯一性
func (d *Definition) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidNetwork, err)
	}
	for what, names := range map[string][]string{
		"节点": nodeNames(d.Nodes),
		"元件": componentNames(d.Components),
		"连接": linkNames(d.Links),
	} {
		seen := make(map[string]bool, len(names))
		for _, name := range names {
			if seen[name] {
				return fmt.Errorf("%w: %s名称重复 %q", types.ErrInvalidNetwork, what, name)
			}
			seen[name] = true
		}
	}
	return nil
}

func nodeNames(list []NodeDef) []string {
	names := make([]string, len(list))
	for i := range list {
		names[i] = list[i].Name
	}
	return names
}

func componentNames(list []ComponentDef) []string {
	names := make([]string, len(list))
	for i := range list {
		names[i] = list[i].Name
	}
	return names
}

func linkNames(list []LinkDef) []string {
	names := make([]string, len(list))
	for i := range list {
		names[i] = list[i].Name
	}
	return names
}

// Build 解析名称引用并创建网络，同名元件在连接间共享
func (d *Definition) Build() (*types.Network, error) {
	net := &types.Network{
		Nodes: make([]types.Node, len(d.Nodes)),
		Links: make([]types.Link, len(d.Links)),
	}
	nodes := make(map[string]types.NodeID, len(d.Nodes))
	for i, n := range d.Nodes {
		nodes[n.Name] = i
		kind := types.NodeFree
		if n.Kind == types.NodeFixed.String() {
			kind = types.NodeFixed
		}
		node := types.Node{
			Name:          n.Name,
			Kind:          kind,
			External:      n.External,
			Height:        n.Height,
			Pressure:      n.Pressure,
			Temperature:   n.Temperature,
			HumidityRatio: n.HumidityRatio,
		}
		for _, l := range n.Layers {
			node.Layers = append(node.Layers, types.Layer(l))
		}
		net.Nodes[i] = node
	}
	comps := make(map[string]types.Component, len(d.Components))
	for i := range d.Components {
		c := &d.Components[i]
		comp, err := element.Decode(c.Type, &c.Params)
		if err != nil {
			return nil, fmt.Errorf("元件 %s: %w", c.Name, err)
		}
		comps[c.Name] = comp
	}
	for i, l := range d.Links {
		from, ok := nodes[l.From]
		if !ok {
			return nil, fmt.Errorf("%w: 连接 %s 起点 %q 不存在", types.ErrInvalidNetwork, l.Name, l.From)
		}
		to, ok := nodes[l.To]
		if !ok {
			return nil, fmt.Errorf("%w: 连接 %s 终点 %q 不存在", types.ErrInvalidNetwork, l.Name, l.To)
		}
		comp, ok := comps[l.Component]
		if !ok {
			return nil, fmt.Errorf("%w: 连接 %s 元件 %q 不存在", types.ErrInvalidNetwork, l.Name, l.Component)
		}
		net.Links[i] = types.Link{
			Name:         l.Name,
			From:         from,
			To:           to,
			FromHeight:   l.FromHeight,
			ToHeight:     l.ToHeight,
			Component:    comp,
			Multiplier:   l.Multiplier,
			Control:      l.Control,
			WindPressure: l.WindPressure,
			Distribution: l.Distribution,
		}
	}
	if err := net.Check(); err != nil {
		return nil, err
	}
	return net, nil
}

// Export 由网络生成定义，共享的元件只导出一次
func Export(net *types.Network, cfg types.Config, env types.Environment) (*Definition, error) {
	d := &Definition{
		Environment: env,
		Solver:      cfg,
		Nodes:       make([]NodeDef, len(net.Nodes)),
		Links:       make([]LinkDef, len(net.Links)),
	}
	for i, n := range net.Nodes {
		def := NodeDef{
			Name:          n.Name,
			Kind:          n.Kind.String(),
			External:      n.External,
			Height:        n.Height,
			Pressure:      n.Pressure,
			Temperature:   n.Temperature,
			HumidityRatio: n.HumidityRatio,
		}
		for _, l := range n.Layers {
			def.Layers = append(def.Layers, LayerDef(l))
		}
		d.Nodes[i] = def
	}
	names := make(map[types.Component]string)
	for i, l := range net.Links {
		name, ok := names[l.Component]
		if !ok {
			node, err := element.Encode(l.Component)
			if err != nil {
				return nil, err
			}
			name = fmt.Sprintf("%s-%d", l.Component.Type(), len(d.Components))
			names[l.Component] = name
			d.Components = append(d.Components, ComponentDef{
				Name:   name,
				Type:   l.Component.Type().String(),
				Params: *node,
			})
		}
		d.Links[i] = LinkDef{
			Name:         l.Name,
			From:         net.Nodes[l.From].Name,
			To:           net.Nodes[l.To].Name,
			Component:    name,
			FromHeight:   l.FromHeight,
			ToHeight:     l.ToHeight,
			Multiplier:   l.Multiplier,
			Control:      l.Control,
			WindPressure: l.WindPressure,
			Distribution: l.Distribution,
		}
	}
	return d, nil
}

// Write 输出 YAML
func (d *Definition) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}

// Model 网络定义与求解器
type Model struct {
	Definition *Definition
	Network    *types.Network
	Solver     *afn.Solver
}

// New 由定义创建模型
func New(d *Definition) (*Model, error) {
	net, err := d.Build()
	if err != nil {
		return nil, err
	}
	s, err := afn.NewSolver(net, d.Solver, d.Environment)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"nodes": len(net.Nodes),
		"free":  net.NumFree(),
		"links": len(net.Links),
		"nnz":   s.Jac.NNZ(),
	}).Debug("气流网络已建立")
	return &Model{Definition: d, Network: net, Solver: s}, nil
}

// Simulate 求解一次
func (m *Model) Simulate() (*afn.Result, error) { return m.Solver.Solve() }

// WriteResult 按格式输出结果，format 为 yaml 或 json
func WriteResult(w io.Writer, res *afn.Result, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("未知输出格式 %q", format)
}
