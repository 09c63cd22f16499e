package ns

import (
	"fmt"
	"net/url"
)

type fixedStorage struct {
	nodeList []Node
	updateCb func(nodeList []Node)
}

// NewFixedStorage 使用固定的url列表, 格式错误的url会导致panic
func NewFixedStorage(urlList []string) Storage {
	s := new(fixedStorage)
	for _, rawUrl := range urlList {
		u, err := url.Parse(rawUrl)
		if err != nil {
			panic(err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			panic(fmt.Sprintf("unsupported url scheme : %s", rawUrl))
		}
		s.nodeList = append(s.nodeList, Node{Addr: rawUrl})
	}
	s.updateCb = func(nodeList []Node) {}
	return s
}

func (f *fixedStorage) Start() error {
	f.updateCb(f.nodeList)
	return nil
}

func (f *fixedStorage) GetNodeList() ([]Node, error) {
	return f.nodeList, nil
}

func (f *fixedStorage) SetUpdateCallback(f2 func(nodeList []Node)) {
	f.updateCb = f2
}
