package types

import "fmt"

// Flow 元件计算结果，N 为流道数量(1 或 2)
type Flow struct {
	F  [2]float64 // 质量流量 [kg/s]
	DF [2]float64 // 流量对压差导数 [kg/(s Pa)]
	N  int
}

// Component 元件流量模型接口
type Component interface {
	Type() ComponentType // 元件类型
	// Calculate 由压差计算流量及导数，laminar 为线性初始化模式
	Calculate(ctx *LinkContext, laminar bool, pdrop float64, from, to *AirState) (Flow, error)
}

// Opening 需要竖向剖面的大开口
type Opening interface {
	Component
	OpeningHeight() float64 // 开口竖向投影高度 [m]
}

// ComponentType 元件类型
type ComponentType uint8

// TypeUnknown 未知类型
const TypeUnknown ComponentType = iota

// ComponentFactory 创建带默认参数的元件
type ComponentFactory func() Component

type componentEntry struct {
	Name    string
	Factory ComponentFactory
}

// componentTypes 元件映射
var componentTypes = map[ComponentType]componentEntry{
	TypeUnknown: {Name: "unknown"},
}

var mapName = map[string]ComponentType{
	"unknown": TypeUnknown,
}

// String 返回元件类型的字符串表示
func (t ComponentType) String() string {
	if ct, ok := componentTypes[t]; ok {
		return ct.Name
	}
	return "unknown"
}

// New 创建元件实例
func (t ComponentType) New() Component {
	if ct, ok := componentTypes[t]; ok && ct.Factory != nil {
		return ct.Factory()
	}
	return nil
}

// GetNameType 通过名称获取类型
func GetNameType(name string) ComponentType {
	return mapName[name]
}

// ComponentNames 已注册元件名称
func ComponentNames() []string {
	names := make([]string, 0, len(mapName))
	for name, t := range mapName {
		if t != TypeUnknown {
			names = append(names, name)
		}
	}
	return names
}

// ComponentRegister 注册元件类型
func ComponentRegister(ct ComponentType, name string, factory ComponentFactory) ComponentType {
	if _, ok := componentTypes[ct]; ok {
		panic(fmt.Errorf("指定元件类型已经注册: %s:%d", name, ct))
	}
	if _, ok := mapName[name]; ok {
		panic(fmt.Errorf("指定元件名称已经注册: %s:%d", name, ct))
	}
	mapName[name] = ct
	componentTypes[ct] = componentEntry{Name: name, Factory: factory}
	return ct
}
