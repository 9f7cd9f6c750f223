package types

// NodeID 节点索引
type NodeID = int

// NodeKind 节点类型
type NodeKind uint8

const (
	NodeFree  NodeKind = iota // 压力待求节点
	NodeFixed                 // 压力固定边界节点
)

// String 节点类型名称
func (k NodeKind) String() string {
	switch k {
	case NodeFree:
		return "free"
	case NodeFixed:
		return "fixed"
	}
	return "unknown"
}

// Layer 区域温湿度分层，自 Start 高度起按梯度变化
type Layer struct {
	Start            float64 // 分层起始高度 [m]
	TempGradient     float64 // 温度梯度 [K/m]
	HumidityGradient float64 // 湿度相对梯度 [1/m]
}

// Node 区域或边界节点
type Node struct {
	Name          string
	Kind          NodeKind
	External      bool    // 室外节点使用室外温湿度
	Height        float64 // 节点参考面高度 [m]
	Pressure      float64 // 初始或固定压力 [Pa]
	Temperature   float64 // [C]
	HumidityRatio float64 // [kg/kg]
	Layers        []Layer // 分层定义，按 Start 升序
}

// IsFree 是否为待求节点
func (n *Node) IsFree() bool { return n.Kind == NodeFree }
