package debug

import "airnet/afn"

// Multi 同时输出到多个调试器
type Multi []afn.Debug

// Init 依次初始化
func (m Multi) Init(s *afn.Solver) {
	for _, d := range m {
		d.Init(s)
	}
}

// Update 依次记录
func (m Multi) Update(s *afn.Solver) {
	for _, d := range m {
		d.Update(s)
	}
}

// Error 依次输出错误
func (m Multi) Error(err error) {
	for _, d := range m {
		d.Error(err)
	}
}
