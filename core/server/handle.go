package server

import (
	"encoding/json"
	"fmt"

	"github.com/nyan233/wsrpc/core/common/errorhandler"
	"github.com/nyan233/wsrpc/core/common/jsonrpc2"
	"github.com/nyan233/wsrpc/core/common/rpcbuilder"
	"github.com/nyan233/wsrpc/core/common/transport"
	"github.com/nyan233/wsrpc/core/middle/plugin"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

type pongReply struct {
	Value     string `json:"value"`
	SessionId string `json:"sessionId"`
}

type connectReply struct {
	SessionId string `json:"sessionId"`
}

func (s *Server) handleRequest(sess *Session, conn transport.ServerConn, req *rpcbuilder.Request) {
	if req.Duplicated {
		// 客户端重连之后重发的请求, 有缓存的回复就重放
		if data, ok := req.Cached(); ok {
			s.send(conn, req, data, nil)
		} else {
			s.logger.Debug("wsrpc: duplicated request %d is still processing", req.Id)
		}
		return
	}
	switch req.Method {
	case jsonrpc2.MethodPing:
		s.handlePing(sess, conn, req)
		return
	case jsonrpc2.MethodConnect:
		s.handleConnect(sess, conn, req)
		return
	case jsonrpc2.MethodCloseSession:
		s.reply(conn, req, true, nil, nil)
		s.conns.Delete(conn)
		s.destroySession(sess)
		s.logger.Info("wsrpc: session %s closed by client", sess.Id())
		return
	case jsonrpc2.MethodPull:
		s.reply(conn, req, jsonrpc2.PullReply, nil, nil)
		return
	}
	pub := s.newContext(conn, req.Method, &req.Id)
	handler, ok := s.methods.LoadOk(req.Method)
	if !ok {
		s.logger.Warn("wsrpc: method not found : %s", req.Method)
		s.reply(conn, req, nil, s.eHandle.LWarpErrorDesc(errorhandler.ErrMethodNotFound, req.Method), pub)
		return
	}
	if err := s.pManager.Receive4S(pub, req.Params); err != nil {
		s.reply(conn, req, nil, err, pub)
		return
	}
	if err := s.exec(req.Method, func() {
		result, err := s.callHandler(handler, sess, req)
		if pErr := s.pManager.AfterCall4S(pub, result, err); pErr != nil {
			result, err = nil, pErr
		}
		s.reply(conn, req, result, err, pub)
	}); err != nil {
		s.reply(conn, req, nil, s.eHandle.LWarpErrorDesc(errorhandler.ErrServer, err.Error()), pub)
	}
}

func (s *Server) handleNotification(sess *Session, conn transport.ServerConn, notify *rpcbuilder.Notification) {
	handler, ok := s.methods.LoadOk(notify.Method)
	if !ok {
		s.logger.Warn("wsrpc: notification method not found : %s", notify.Method)
		return
	}
	pub := s.newContext(conn, notify.Method, nil)
	if err := s.pManager.Receive4S(pub, notify.Params); err != nil {
		s.logger.Warn("wsrpc: plugin refused notification %s : %v", notify.Method, err)
		return
	}
	_ = s.exec(notify.Method, func() {
		_, err := s.callHandler(handler, sess, notify)
		_ = s.pManager.AfterCall4S(pub, nil, err)
		if err != nil {
			s.logger.Warn("wsrpc: handle notification %s failed : %v", notify.Method, err)
		}
	})
}

// handlePing 记录客户端声明的心跳间隔, 回复中带上会话id
func (s *Server) handlePing(sess *Session, conn transport.ServerConn, req *rpcbuilder.Request) {
	var params struct {
		Interval int64 `json:"interval"`
	}
	if err := json.Unmarshal(req.Params, &params); err == nil && params.Interval > 0 {
		sess.interval.Store(params.Interval)
		s.logger.Debug("wsrpc: session %s heartbeat interval %dms", sess.Id(), params.Interval)
	}
	s.reply(conn, req, &pongReply{Value: jsonrpc2.PongValue, SessionId: sess.Id()}, nil, nil)
}

// handleConnect 已知并且没有销毁的会话被绑定到这个连接, 否则继续使用连接建立时创建的会话
func (s *Server) handleConnect(sess *Session, conn transport.ServerConn, req *rpcbuilder.Request) {
	var params struct {
		SessionId string `json:"sessionId"`
	}
	_ = json.Unmarshal(req.Params, &params)
	if params.SessionId == "" || params.SessionId == sess.Id() {
		s.reply(conn, req, &connectReply{SessionId: sess.Id()}, nil, nil)
		return
	}
	old, ok := s.sessions.LoadOk(params.SessionId)
	if !ok || !old.attach(conn) {
		s.logger.Info("wsrpc: session %s not found, keep new session %s", params.SessionId, sess.Id())
		s.reply(conn, req, &connectReply{SessionId: sess.Id()}, nil, nil)
		return
	}
	s.conns.Store(conn, old)
	s.destroySession(sess)
	s.logger.Info("wsrpc: session %s resumed on %s", old.Id(), conn.RemoteAddr())
	s.reply(conn, req, &connectReply{SessionId: old.Id()}, nil, nil)
}

func (s *Server) exec(method string, fn func()) error {
	if err := s.taskPool.Push(fn); err != nil {
		s.logger.Warn("wsrpc: drop inbound call %s : %v", method, err)
		return err
	}
	return nil
}

// callHandler 用户过程panic时转换为错误, 保证请求总能得到回复
func (s *Server) callHandler(handler Handler, sess *Session, in rpcbuilder.Inbound) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("wsrpc: handler %s panic : %v", in.GetMethod(), r)
			result = nil
			err = s.eHandle.LWarpErrorDesc(errorhandler.ErrServer, fmt.Sprintf("handler panic : %v", r))
		}
	}()
	return handler(s.ctx, sess, in.GetParams())
}

func (s *Server) newContext(conn transport.ServerConn, method string, id *uint64) *plugin.Context {
	pub := plugin.NewContext(method, id, s.logger)
	pub.RemoteAddr = conn.RemoteAddr()
	return pub
}

// reply pub == nil 时不经过插件
func (s *Server) reply(conn transport.ServerConn, req *rpcbuilder.Request, result interface{}, err error, pub *plugin.Context) {
	data, lErr := req.Reply(result, err)
	if lErr != nil {
		s.logger.Error("wsrpc: encode reply of %d failed : %v", req.Id, lErr)
		return
	}
	s.send(conn, req, data, pub)
}

func (s *Server) send(conn transport.ServerConn, req *rpcbuilder.Request, data []byte, pub *plugin.Context) {
	s.onDebug(data, false)
	err := conn.Send(data)
	if err != nil {
		s.logger.Warn("wsrpc: send reply of %d failed : %v", req.Id, err)
	}
	if pub == nil {
		return
	}
	var sendErr perror.LErrorDesc
	if err != nil {
		sendErr = s.eHandle.LWarpErrorDesc(errorhandler.ErrConnection, err.Error())
	}
	_ = s.pManager.AfterSend4S(pub, data, sendErr)
}
