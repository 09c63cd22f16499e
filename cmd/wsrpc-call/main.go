package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/nyan233/wsrpc/core/client"
	"github.com/nyan233/wsrpc/core/common/rpcbuilder"
	"github.com/nyan233/wsrpc/internal/config"
	flag "github.com/spf13/pflag"
)

type OutType string

const (
	FormatJson OutType = "format_json"
	Json       OutType = "json"
)

var (
	configPath = flag.StringP("config", "c", "", "配置文件的路径, 为空时使用默认配置")
	urls       = flag.StringSliceP("url", "u", nil, "服务器地址, 覆盖配置文件, Example: ws://127.0.0.1:8888/jsonrpc")
	method     = flag.StringP("method", "m", "echo", "调用的方法名")
	params     = flag.StringP("params", "p", "{}", "调用传递的参数, 必须是一个json对象")
	notify     = flag.BoolP("notify", "n", false, "作为通知发送, 不等待回复")
	timeout    = flag.DurationP("timeout", "t", time.Second*10, "等待回复的超时时间")
	outType    = flag.StringP("out_type", "o", string(FormatJson), "输出的格式(format_json/json)")
	listen     = flag.DurationP("listen", "l", 0, "调用完成之后继续打印服务端推送的通知的时间")
)

func main() {
	flag.Parse()
	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalln(err)
		}
	} else {
		cfg.Logging.Enabled = false
	}
	if len(*urls) > 0 {
		cfg.Client.URLs = *urls
	}
	opts := append(cfg.ClientOptions(), client.WithRequestTimeout(*timeout))
	if *listen > 0 {
		opts = append(opts, printNotifications(os.Stdout)...)
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	c, err := client.Dial(ctx, cfg.Client.URLs, opts...)
	if err != nil {
		log.Fatalln(err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
		defer closeCancel()
		_ = c.Close(closeCtx)
	}()
	if err = call(ctx, c, os.Stdout); err != nil {
		log.Println(err)
	}
	if *listen > 0 {
		time.Sleep(*listen)
	}
}

func call(ctx context.Context, c *client.Client, w io.Writer) error {
	rawParams := json.RawMessage(*params)
	if *notify {
		return c.Notify(*method, rawParams)
	}
	var result json.RawMessage
	if err := c.Call(ctx, *method, rawParams, &result); err != nil {
		return err
	}
	return printJson(w, result, OutType(*outType))
}

// printNotifications 打印服务端推送的常见通知
func printNotifications(w io.Writer) []client.Option {
	var opts []client.Option
	for _, name := range []string{"tick", "onEvent", "news"} {
		opts = append(opts, client.WithMethod(name, func(ctx context.Context, params json.RawMessage, in rpcbuilder.Inbound) (interface{}, error) {
			_, _ = fmt.Fprintf(w, "<- %s ", name)
			return nil, printJson(w, params, OutType(*outType))
		}))
	}
	return opts
}

func printJson(w io.Writer, raw json.RawMessage, typ OutType) error {
	switch typ {
	case Json:
		_, err := fmt.Fprintln(w, string(raw))
		return err
	default:
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "    "); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, buf.String())
		return err
	}
}
