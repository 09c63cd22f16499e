package errorhandler

import (
	error2 "github.com/nyan233/wsrpc/core/protocol/error"
)

var (
	Success             = DefaultErrHandler.LNewErrorDesc(error2.Success, "OK")
	ErrProtocol         = DefaultErrHandler.LNewErrorDesc(error2.ProtocolError, "invalid jsonrpc2 envelope")
	ErrNoCallback       = DefaultErrHandler.LNewErrorDesc(error2.ProtocolError, "no callback was defined for this message")
	ErrMessageDecoding  = DefaultErrHandler.LNewErrorDesc(error2.MessageDecodingFailed, "message decoding invalid")
	ErrMessageEncoding  = DefaultErrHandler.LNewErrorDesc(error2.MessageEncodingFailed, "message encoding invalid")
	ErrServer           = DefaultErrHandler.LNewErrorDesc(error2.ServerError, "server error")
	ErrClient           = DefaultErrHandler.LNewErrorDesc(error2.ClientError, "client error")
	ErrCallArgsType     = DefaultErrHandler.LNewErrorDesc(error2.CallArgsTypeErr, "call arguments type error")
	ErrCodecMarshal     = DefaultErrHandler.LNewErrorDesc(error2.CodecMarshalErr, "json.Marshal return one error")
	ErrConnection       = DefaultErrHandler.LNewErrorDesc(error2.ConnectionErr, "connection error")
	ErrTimeout          = DefaultErrHandler.LNewErrorDesc(error2.RequestTimeout, "request timeout")
	ErrRateLimited      = DefaultErrHandler.LNewErrorDesc(error2.RateLimited, "rate limit exceeded")
	ErrMethodNotFound   = DefaultErrHandler.LNewErrorDesc(error2.MethodNotFound, "method not found")
	ErrReservedMethod   = DefaultErrHandler.LNewErrorDesc(error2.UnsafeOption, "method name is reserved")
	ErrClientClosed     = DefaultErrHandler.LNewErrorDesc(error2.ClientError, "client already closed")
	ErrRequestCancelled = DefaultErrHandler.LNewErrorDesc(error2.ClientError, "request cancelled")
)
