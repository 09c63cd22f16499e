package error

// 定义wsrpc内部会使用到的错误码, 与jsonrpc2的错误码不在同一个区间

type Code int

func (c Code) String() string {
	s, ok := mappingStr[c]
	if !ok {
		return "\"Unknown\""
	}
	return s
}

const (
	Success               = 200  // 成功返回
	Unknown               = 300  // 用户过程返回了错误,但不是wsrpc可以识别的错误
	ServerError           = 500  // 服务器的其它错误
	ClientError           = 501  // 客户端的其它错误
	ProtocolError         = 1010 // 信封不满足jsonrpc2.0的约束
	MessageDecodingFailed = 1020 // 消息解码失败
	MessageEncodingFailed = 1021 // 消息编码失败
	CallArgsTypeErr       = 1040 // 调用参数错误
	CodecMarshalErr       = 1050 // 序列化参数或结果时出错
	ConnectionErr         = 1060 // 传输层错误
	RequestTimeout        = 1070 // 等待回复超时
	RateLimited           = 1080 // 发送速率超过限制
	MethodNotFound        = 1404 // 需要调用的方法未被注册
	UnsafeOption          = 2060
)

var mappingStr = map[Code]string{
	Success:               "\"Success\"",
	Unknown:               "\"Unknown\"",
	ServerError:           "\"ServerError\"",
	ClientError:           "\"ClientError\"",
	ProtocolError:         "\"ProtocolError\"",
	MessageDecodingFailed: "\"MessageDecodingFailed\"",
	MessageEncodingFailed: "\"MessageEncodingFailed\"",
	CallArgsTypeErr:       "\"CallArgsTypeErr\"",
	CodecMarshalErr:       "\"CodecMarshalErr\"",
	ConnectionErr:         "\"ConnectionErr\"",
	RequestTimeout:        "\"RequestTimeout\"",
	RateLimited:           "\"RateLimited\"",
	MethodNotFound:        "\"MethodNotFound\"",
	UnsafeOption:          "\"UnsafeOption\"",
}
