package server

import (
	"github.com/google/uuid"
	"github.com/nyan233/wsrpc/core/common/errorhandler"
	"github.com/nyan233/wsrpc/core/common/rpcbuilder"
	"github.com/nyan233/wsrpc/core/common/transport"
	"github.com/nyan233/wsrpc/core/middle/plugin"
)

// onOpen 每个连接先创建一个新会话, 客户端可以随后通过connect换成之前的会话
func (s *Server) onOpen(conn transport.ServerConn) {
	if !s.pManager.Event4S(plugin.OnOpen, conn) {
		s.logger.Warn("wsrpc: plugin refused connection %s", conn.RemoteAddr())
		_ = conn.Close()
		return
	}
	sess := newSession(uuid.NewString(), s, conn)
	s.sessions.Store(sess.Id(), sess)
	s.conns.Store(conn, sess)
	s.logger.Info("wsrpc: open connection %s, session %s", conn.RemoteAddr(), sess.Id())
	if s.config.OnSession != nil {
		s.config.OnSession(sess)
	}
}

func (s *Server) onClose(conn transport.ServerConn, err error) {
	s.pManager.Event4S(plugin.OnClose, conn)
	if err != nil {
		s.logger.Warn("wsrpc: close connection %s err: %v", conn.RemoteAddr(), err)
	} else {
		s.logger.Info("wsrpc: close connection %s", conn.RemoteAddr())
	}
	sess, ok := s.conns.LoadAndDelete(conn)
	if !ok {
		return
	}
	ttl := s.config.SessionTTL
	if ttl <= 0 {
		s.destroySession(sess)
		return
	}
	if sess.detach(conn, ttl, func() { s.destroySession(sess) }) {
		// 推送的请求只能由这个连接上的客户端回复
		sess.builder.FailAll(s.eHandle.LWarpErrorDesc(errorhandler.ErrConnection, "connection closed"))
	}
}

func (s *Server) onMessage(conn transport.ServerConn, data []byte) {
	sess, ok := s.conns.LoadOk(conn)
	if !ok {
		s.logger.Warn("wsrpc: drop message from connection without session %s", conn.RemoteAddr())
		return
	}
	s.onDebug(data, true)
	in, err := sess.builder.Decode(data)
	if err != nil {
		if rpcbuilder.IsLateResponse(err) {
			s.logger.Debug("wsrpc: drop late response : %v", err)
			return
		}
		s.logger.Warn("wsrpc: drop invalid message from %s : %v", conn.RemoteAddr(), err)
		return
	}
	switch v := in.(type) {
	case *rpcbuilder.Request:
		s.handleRequest(sess, conn, v)
	case *rpcbuilder.Notification:
		s.handleNotification(sess, conn, v)
	}
}
