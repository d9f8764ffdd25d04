package statserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"github.com/weavesuite/weave-mining-server/miningmgr"
	"github.com/weavesuite/weave-mining-server/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// websocketSendBufferSize is the write buffer handed to the
	// upgrader; metric frames are tiny.
	websocketSendBufferSize = 1024

	pushInterval = time.Second
)

// statusReport is the frame pushed to subscribers.
type statusReport struct {
	miningmgr.MetricsSnapshot
	BestHash string `json:"bestHash,omitempty"`
	Session  string `json:"session,omitempty"`
}

// Server pushes mining metrics to websocket subscribers and serves one-shot
// snapshots over plain HTTP.
type Server struct {
	mgr      *miningmgr.MiningManager
	listen   string
	upgrader websocket.Upgrader

	clientsLock sync.Mutex
	clients     map[*websocket.Conn]struct{}

	httpServer *http.Server
	quit       chan struct{}
	wg         sync.WaitGroup
}

// NewServer creates a stat server bound to the given listen address.
func NewServer(listen string, mgr *miningmgr.MiningManager) *Server {
	return &Server{
		mgr:    mgr,
		listen: listen,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  websocketSendBufferSize,
			WriteBufferSize: websocketSendBufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
		quit:    make(chan struct{}),
	}
}

// Start begins serving. Startup failures surface through the error log
// only; the stat server is not load-bearing for mining.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/ws", s.handleWebsocket)

	s.httpServer = &http.Server{
		Addr:    s.listen,
		Handler: mux,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Infof("Stat server listening on %s", s.listen)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Stat server terminated: %v", err)
		}
	}()

	s.wg.Add(1)
	go s.pushLoop()
}

// Stop closes the listener and every subscriber connection.
func (s *Server) Stop() {
	close(s.quit)
	if s.httpServer != nil {
		s.httpServer.Close()
	}

	s.clientsLock.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]struct{})
	s.clientsLock.Unlock()

	s.wg.Wait()
	log.Info("Stat server stopped")
}

func (s *Server) report() *statusReport {
	report := &statusReport{
		MetricsSnapshot: s.mgr.Metrics().Snapshot(),
	}
	if best, ok := s.mgr.BestHash(); ok {
		report.BestHash = best.String()
	}
	report.Session = s.mgr.CurrentSessionID()
	return report
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	raw, err := json.Marshal(s.report())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("Websocket upgrade from %v failed: %v", r.RemoteAddr, err)
		return
	}

	s.clientsLock.Lock()
	s.clients[conn] = struct{}{}
	numClients := len(s.clients)
	s.clientsLock.Unlock()

	log.Debugf("New stat subscriber %v (%v connected)", conn.RemoteAddr(), numClients)
}

// pushLoop periodically pushes a status report to every subscriber,
// dropping connections that fail to accept the write.
func (s *Server) pushLoop() {
	defer s.wg.Done()
	defer utils.MyRecover()

	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			raw, err := json.Marshal(s.report())
			if err != nil {
				log.Errorf("Unable to marshal status report: %v", err)
				continue
			}
			s.broadcast(raw)
		case <-s.quit:
			return
		}
	}
}

func (s *Server) broadcast(msg []byte) {
	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()

	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debugf("Dropping stat subscriber %v: %v", conn.RemoteAddr(), err)
			conn.Close()
			delete(s.clients, conn)
		}
	}
}
