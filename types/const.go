package types

// 物理常量定义
const (
	KelvinConv    = 273.15   // 摄氏度转开尔文
	StdBaroPress  = 101325.0 // 标准大气压 [Pa]
	StdGravity    = 9.8      // 简化栈压计算使用的重力加速度
	HalfGravity   = 4.9      // 零流量时平均密度栈压系数
	TinyValue     = 1e-40    // 零修正量替代值
	VerySmallFlow = 1e-30    // 定流量元件最小有效流量 [kg/s]
)

// 大开口剖面常量
const (
	NrInt  = 20     // 大开口竖向分段数
	DifLim = 1.0e-4 // 大开口压差线性化阈值 [Pa]
)

// 默认参数常量定义
var (
	DefaultInitFlag     = 0     // 0: 线性初始化, 1: 沿用上次压力
	DefaultAbsTol       = 1e-6  // 绝对收敛容差 [kg/s]
	DefaultRelTol       = 1e-4  // 相对收敛容差
	DefaultMaxIteration = 500   // 最大迭代次数
	DefaultConvLimit    = -0.5  // 加速收敛限制
	DefaultMaxPressure  = 500.0 // 单步最大压力修正 [Pa]
	DefaultTemperature  = 20.0  // 默认温度 [C]
	DefaultLatitude     = 40.0  // 默认纬度 [deg]
)
