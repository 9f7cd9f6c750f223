package debug

import (
	"net/http"
	"sync"
	"time"

	"airnet/afn"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Frame 推送给客户端的一次迭代
type Frame struct {
	Type     string    `json:"type"` // init, update, error
	Iter     int       `json:"iter"`
	State    string    `json:"state"`
	Residual float64   `json:"residual"`
	Accel    bool      `json:"accel"`
	Nodes    []string  `json:"nodes,omitempty"`
	Pressure []float64 `json:"pressure,omitempty"`
	Flow     []float64 `json:"flow,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Stream 通过 websocket 实时推送迭代过程
type Stream struct {
	Upgrader     websocket.Upgrader
	WriteTimeout time.Duration

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewStream 创建推送服务
func NewStream() *Stream {
	return &Stream{
		WriteTimeout: time.Second,
		clients:      make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP 升级连接并保持到客户端关闭
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket 升级失败")
		return
	}
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()
	log.WithField("remote", conn.RemoteAddr()).Debug("调试客户端连接")

	// 只读取控制消息，出错即断开
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.drop(conn)
}

func (s *Stream) drop(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// Clients 当前连接数
func (s *Stream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Stream) broadcast(f *Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
		if err := conn.WriteJSON(f); err != nil {
			log.WithError(err).Warn("调试数据推送失败")
			delete(s.clients, conn)
			conn.Close()
		}
	}
}

func frame(typ string, s *afn.Solver) *Frame {
	return &Frame{
		Type:     typ,
		Iter:     s.Iter,
		State:    s.State.String(),
		Residual: s.ACC1,
		Accel:    s.Accel,
		Pressure: append([]float64{}, s.PZ...),
		Flow:     append([]float64{}, s.AFLOW...),
	}
}

// Init 推送节点名称与初始状态
func (s *Stream) Init(solver *afn.Solver) {
	f := frame("init", solver)
	f.Nodes = make([]string, len(solver.Network.Nodes))
	for i := range solver.Network.Nodes {
		f.Nodes[i] = solver.Network.Nodes[i].Name
	}
	s.broadcast(f)
}

// Update 推送一次迭代
func (s *Stream) Update(solver *afn.Solver) { s.broadcast(frame("update", solver)) }

// Error 推送错误信息
func (s *Stream) Error(err error) { s.broadcast(&Frame{Type: "error", Error: err.Error()}) }
