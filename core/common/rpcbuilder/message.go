package rpcbuilder

import (
	"encoding/json"
	"time"

	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

// Inbound Decode返回的对端调用, 具体类型为*Notification或者*Request
type Inbound interface {
	GetMethod() string
	GetParams() json.RawMessage
}

// Notification 构造之后不应该再被修改
type Notification struct {
	Method string
	// 不会为nil, 对端没有携带params时为{}
	Params json.RawMessage
}

func (n *Notification) GetMethod() string {
	return n.Method
}

func (n *Notification) GetParams() json.RawMessage {
	return n.Params
}

type Request struct {
	Notification
	Id uint64
	// 为true说明这个id之前已经被解码过, 应用层不应该再处理它
	Duplicated bool
	builder    *Builder
}

// Reply 生成并缓存这个请求的回复. 缓存中已经存在回复时直接返回缓存的数据,
// 第一次生成的回复是最终的结果, 之后传入的result/err都会被忽略
func (r *Request) Reply(result interface{}, err error) ([]byte, perror.LErrorDesc) {
	return r.builder.reply(r.Id, result, err)
}

// Cached 返回已经缓存的回复, 第一次解码的请求还没有回复时ok == false
func (r *Request) Cached() ([]byte, bool) {
	return r.builder.cachedReply(r.Id)
}

// Pending 已经发出但还没有收到回复的请求
type Pending struct {
	Id        uint64
	Method    string
	Params    json.RawMessage
	Timestamp time.Time
	Timeout   time.Duration
}
