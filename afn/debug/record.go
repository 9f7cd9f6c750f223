// Package debug 求解过程记录、图表与实时推送
package debug

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"airnet/afn"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RecordLink 连接信息
type RecordLink struct {
	Name      string `json:"name"`
	From      int    `json:"from"`
	To        int    `json:"to"`
	Component string `json:"component"`
}

// Record 记录迭代历史。
// 求解协程写入的同时可由 HTTP 协程读取输出。
type Record struct {
	RunID      string       `json:"run_id"`
	Nodes      []string     `json:"nodes"`      // 节点名称
	Free       []bool       `json:"free"`       // 待求节点
	Links      []RecordLink `json:"links"`      // 连接列表
	Iter       []int        `json:"iter"`       // 迭代序号，0 为线性初始化
	State      []string     `json:"state"`      // 求解状态
	Pressure   [][]float64  `json:"pressure"`   // 节点压力列
	SUMF       [][]float64  `json:"sumf"`       // 节点残差列
	SUMAF      [][]float64  `json:"sumaf"`      // 节点流量绝对值和列
	Correction [][]float64  `json:"correction"` // 压力修正列
	Accel      []bool       `json:"accel"`      // 是否使用加速
	Residual   []float64    `json:"residual"`   // 相对残差
	Flow       [][]float64  `json:"flow"`       // 连接主流量列
	Err        string       `json:"error,omitempty"`

	mu sync.RWMutex
}

// Init 初始化
func (r *Record) Init(s *afn.Solver) {
	net := s.Network
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RunID = uuid.New().String()
	r.Iter, r.State, r.Accel, r.Residual = nil, nil, nil, nil
	r.Pressure, r.SUMF, r.SUMAF, r.Correction, r.Flow = nil, nil, nil, nil, nil
	r.Err = ""
	r.Nodes = make([]string, len(net.Nodes))
	r.Free = make([]bool, len(net.Nodes))
	for i := range net.Nodes {
		r.Nodes[i] = net.Nodes[i].Name
		r.Free[i] = net.Nodes[i].IsFree()
	}
	r.Links = make([]RecordLink, len(net.Links))
	for i := range net.Links {
		l := &net.Links[i]
		r.Links[i] = RecordLink{
			Name:      l.Name,
			From:      l.From,
			To:        l.To,
			Component: fmt.Sprintf("%s(%d)", l.Component.Type(), i),
		}
	}
}

// Update 记录数据
func (r *Record) Update(s *afn.Solver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Iter = append(r.Iter, s.Iter)
	r.State = append(r.State, s.State.String())
	r.Pressure = append(r.Pressure, append([]float64{}, s.PZ...))
	r.SUMF = append(r.SUMF, append([]float64{}, s.SUMF...))
	r.SUMAF = append(r.SUMAF, append([]float64{}, s.SUMAF...))
	r.Correction = append(r.Correction, append([]float64{}, s.CCF...))
	r.Accel = append(r.Accel, s.Accel)
	r.Residual = append(r.Residual, s.ACC1)
	r.Flow = append(r.Flow, append([]float64{}, s.AFLOW...))
}

// Error 记录错误信息
func (r *Record) Error(err error) {
	r.mu.Lock()
	r.Err = err.Error()
	id := r.RunID
	r.mu.Unlock()
	log.WithField("run", id).Error(err)
}

// Len 记录条数
func (r *Record) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.Iter)
}

// Render 格式和输出内容
func (r *Record) Render(w io.Writer) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return json.NewEncoder(w).Encode(r)
}

// RenderCompressed 输出 snappy 压缩的 JSON
func (r *Record) RenderCompressed(w io.Writer) error {
	var buf bytes.Buffer
	if err := r.Render(&buf); err != nil {
		return err
	}
	_, err := w.Write(snappy.Encode(nil, buf.Bytes()))
	return err
}

// ReadCompressed 读取 RenderCompressed 的输出
func ReadCompressed(rd io.Reader) (*Record, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("解压记录: %w", err)
	}
	r := &Record{}
	if err := json.Unmarshal(raw, r); err != nil {
		return nil, fmt.Errorf("解析记录: %w", err)
	}
	return r, nil
}
