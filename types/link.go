package types

// LinkID 连接索引
type LinkID = int

// Link 两节点之间经由一个元件的气流路径
type Link struct {
	Name         string
	From         NodeID    // 起点
	To           NodeID    // 终点
	FromHeight   float64   // 起点端相对节点参考面高度 [m]
	ToHeight     float64   // 终点端相对节点参考面高度 [m]
	Component    Component // 元件
	Multiplier   float64   // 元件倍数
	Control      float64   // 控制值(风机转速比/开口系数)
	WindPressure float64   // 风压 [Pa]
	Distribution bool      // 风管系统连接，使用简化栈压
}

// Profile 大开口竖向压差与密度剖面，长度 NrInt+2
type Profile struct {
	Dp   []float64 // 压差剖面 [Pa]
	RhoF []float64 // 起点侧密度 [kg/m3]
	RhoT []float64 // 终点侧密度 [kg/m3]
}

// NewProfile 创建剖面
func NewProfile() *Profile {
	return &Profile{
		Dp:   make([]float64, NrInt+2),
		RhoF: make([]float64, NrInt+2),
		RhoT: make([]float64, NrInt+2),
	}
}

// LinkContext 元件计算时的连接上下文
type LinkContext struct {
	ID         LinkID
	Name       string
	Multiplier float64
	Control    float64
	Profile    *Profile // 大开口剖面，非大开口为 nil
	StackDrop  float64  // 起点到终点方向的栈压 DpL
	Gravity    float64  // 重力加速度 [m/s2]
}
