// Package plugin is plugin interface
//
//	Plugin Context is shared by every plugin during one call,
//	able usage private type for access self data, client plugin example:
//	type xxPluginClient struct {}
//
//	-->Request4C(pub,...)
//	-->pub.SetValue(xxPluginClient{},"hello world")
//
//	---->Receive4C(pub,...)
//	---->value,_ := pub.Value(xxPluginClient{}).(string)
//	---->value == "hello world"
package plugin
