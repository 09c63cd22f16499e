package jsonrpc2

import (
	"bytes"
	"encoding/json"

	"github.com/nyan233/wsrpc/core/common/errorhandler"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

// Parse 解析一个完整的信封, 字段是否存在通过先解码到map中来判断, 这样
// "result":null 和 没有result字段 可以被区分开
func Parse(data []byte) (*Message, perror.LErrorDesc) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrMessageDecoding, "envelope is not a json object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrMessageDecoding, err.Error())
	}
	msg := new(Message)
	if raw, ok := fields["jsonrpc"]; ok {
		if err := json.Unmarshal(raw, &msg.Version); err != nil {
			return nil, errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrProtocol, "jsonrpc field is not a string")
		}
	}
	if raw, ok := fields["id"]; ok && string(raw) != "null" {
		var id uint64
		if err := json.Unmarshal(raw, &id); err != nil {
			return nil, errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrProtocol, "id is not an unsigned integer")
		}
		msg.Id = &id
	}
	if raw, ok := fields["method"]; ok {
		if err := json.Unmarshal(raw, &msg.Method); err != nil {
			return nil, errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrProtocol, "method is not a string")
		}
	}
	if raw, ok := fields["params"]; ok {
		msg.Params = raw
	}
	if raw, ok := fields["result"]; ok {
		msg.Result = raw
	}
	if raw, ok := fields["error"]; ok && string(raw) != "null" {
		msg.Error = new(Error)
		if err := json.Unmarshal(raw, msg.Error); err != nil {
			return nil, errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrProtocol, "error is not an object")
		}
	}
	return msg, nil
}

// Kind 检查信封的形状, 不满足任何一种形状时返回协议错误
func (m *Message) Kind() (Kind, perror.LErrorDesc) {
	if m.Version != Version {
		return KindInvalid, errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrProtocol,
			"invalid jsonrpc version: "+m.Version)
	}
	if m.Method != "" {
		if !isObjectOrAbsent(m.Params) {
			return KindInvalid, errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrProtocol,
				"params is not an object")
		}
		if m.Id != nil {
			return KindRequest, nil
		}
		return KindNotification, nil
	}
	if m.Id == nil {
		return KindInvalid, errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrProtocol,
			"envelope has neither method nor id")
	}
	hasResult, hasError := m.Result != nil, m.Error != nil
	switch {
	case hasResult && hasError:
		return KindInvalid, errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrProtocol,
			"response has both result and error")
	case !hasResult && !hasError:
		return KindInvalid, errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrProtocol,
			"response has neither result nor error")
	}
	return KindResponse, nil
}

// isObjectOrAbsent 没有params字段或者为null时等同于空对象
func isObjectOrAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return true
	}
	return raw[0] == '{'
}

func Marshal(m *Message) ([]byte, perror.LErrorDesc) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrMessageEncoding, err.Error())
	}
	return bytes, nil
}

// MarshalParams params必须是一个json对象, nil时为空对象
func MarshalParams(params interface{}) (json.RawMessage, perror.LErrorDesc) {
	if params == nil {
		return json.RawMessage("{}"), nil
	}
	var raw json.RawMessage
	switch p := params.(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		bytes, err := json.Marshal(params)
		if err != nil {
			return nil, errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrCodecMarshal, err.Error())
		}
		raw = bytes
	}
	raw = bytes.TrimSpace(raw)
	if string(raw) == "null" {
		return json.RawMessage("{}"), nil
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrCallArgsType, "params must be a json object")
	}
	return raw, nil
}
