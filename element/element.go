package element

import (
	"fmt"

	"airnet/types"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// 元件类型
const (
	CrackType            types.ComponentType = iota + 1 // 幂律裂缝
	DuctType                                            // 风管
	ConstantFlowType                                    // 定流量排风/泄压
	ConstantPowerFanType                                // 定功率风机
	DetailedFanType                                     // 性能曲线风机
	SimpleOpeningType                                   // 简单开口
	DetailedOpeningType                                 // 大开口
)

func init() {
	AddComponent(CrackType, "crack", func() types.Component { return NewCrack(0, 0.65) })
	AddComponent(DuctType, "duct", func() types.Component { return NewDuct(1, 0.1) })
	AddComponent(ConstantFlowType, "constant_flow", func() types.Component { return NewConstantFlow(0) })
	AddComponent(ConstantPowerFanType, "constant_power_fan", func() types.Component { return &ConstantPowerFan{} })
	AddComponent(DetailedFanType, "detailed_fan", func() types.Component { return NewDetailedFan() })
	AddComponent(SimpleOpeningType, "simple_opening", func() types.Component { return NewSimpleOpening(1, 1) })
	AddComponent(DetailedOpeningType, "detailed_opening", func() types.Component { return NewDetailedOpening(1, 1) })
}

// AddComponent 注册元件类型到全局元件列表
// 注意：如果元件类型已注册，会触发 panic
func AddComponent(ct types.ComponentType, name string, factory types.ComponentFactory) types.ComponentType {
	return types.ComponentRegister(ct, name, factory)
}

var validate = validator.New()

// checker 元件附加校验
type checker interface {
	Check() error
}

// Validate 校验元件参数
func Validate(c types.Component) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: 元件 %s 参数错误: %v", types.ErrInvalidNetwork, c.Type(), err)
	}
	if ch, ok := c.(checker); ok {
		if err := ch.Check(); err != nil {
			return fmt.Errorf("%w: 元件 %s: %v", types.ErrInvalidNetwork, c.Type(), err)
		}
	}
	return nil
}

// Decode 按类型名称创建带默认值的元件，并从 YAML 节点读取参数
func Decode(typeName string, node *yaml.Node) (types.Component, error) {
	ct := types.GetNameType(typeName)
	c := ct.New()
	if c == nil {
		return nil, fmt.Errorf("%w: 未知元件类型 %q", types.ErrInvalidNetwork, typeName)
	}
	if node != nil && node.Kind != 0 {
		if err := node.Decode(c); err != nil {
			return nil, fmt.Errorf("%w: 元件 %s 参数解析失败: %v", types.ErrInvalidNetwork, typeName, err)
		}
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Encode 导出元件参数
func Encode(c types.Component) (*yaml.Node, error) {
	node := &yaml.Node{}
	if err := node.Encode(c); err != nil {
		return nil, fmt.Errorf("元件 %s 参数导出失败: %w", c.Type(), err)
	}
	return node, nil
}
