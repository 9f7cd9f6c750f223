package types

import "errors"

// 求解错误分类
var (
	ErrSingular       = errors.New("矩阵奇异")   // 分解时主元为零
	ErrNotConverged   = errors.New("迭代未收敛")  // 超出最大迭代次数
	ErrOutOfRange     = errors.New("超出适用范围") // 风机曲线或开口系数越界
	ErrInvalidNetwork = errors.New("网络定义错误") // 节点或连接定义不合法
)
