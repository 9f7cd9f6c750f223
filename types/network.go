package types

import "fmt"

// Network 节点与连接集合
type Network struct {
	Nodes []Node
	Links []Link
}

// NumFree 待求节点数量
func (net *Network) NumFree() (n int) {
	for i := range net.Nodes {
		if net.Nodes[i].IsFree() {
			n++
		}
	}
	return n
}

// Check 检查连接引用
func (net *Network) Check() error {
	m := len(net.Nodes)
	if m == 0 {
		return fmt.Errorf("%w: 没有节点", ErrInvalidNetwork)
	}
	for i := range net.Links {
		l := &net.Links[i]
		if l.From < 0 || l.From >= m || l.To < 0 || l.To >= m {
			return fmt.Errorf("%w: 连接 %d(%s) 节点越界 %d->%d", ErrInvalidNetwork, i, l.Name, l.From, l.To)
		}
		if l.From == l.To {
			return fmt.Errorf("%w: 连接 %d(%s) 首尾节点相同", ErrInvalidNetwork, i, l.Name)
		}
		if l.Component == nil {
			return fmt.Errorf("%w: 连接 %d(%s) 未指定元件", ErrInvalidNetwork, i, l.Name)
		}
	}
	return nil
}
