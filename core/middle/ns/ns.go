package ns

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/lafikl/consistent"
)

/*
	wsrpc endpoint selector
*/

const (
	SchemeRandom         = "random"
	SchemeRoundRobin     = "round-robin"
	SchemeConsistentHash = "consistent-hash"
)

var ErrEmptyNodeList = errors.New("node list is empty")

type Storage interface {
	Start() error
	GetNodeList() ([]Node, error)
	SetUpdateCallback(func(nodeList []Node))
}

type Node struct {
	// Addr 完整的websocket url
	Addr string
}

type Config struct {
	Storage Storage
	Scheme  string
	// Key consistent-hash使用的键, 一般为客户端的标识, 使同一个客户端总是落到同一个节点
	Key string
}

type NameServer struct {
	cfg      Config
	mu       sync.RWMutex
	nodeList []Node
	chRing   *consistent.Consistent
	rrIndex  atomic.Uint64
	storeApi Storage
}

func NewNameServer(cfg Config) *NameServer {
	if cfg.Scheme == "" {
		cfg.Scheme = SchemeRoundRobin
	}
	ns := &NameServer{
		cfg:      cfg,
		storeApi: cfg.Storage,
	}
	ns.storeApi.SetUpdateCallback(ns.updateCallback)
	return ns
}

func (ns *NameServer) Start() error {
	if err := ns.storeApi.Start(); err != nil {
		return err
	}
	nodeList, err := ns.storeApi.GetNodeList()
	if err != nil {
		return err
	}
	ns.updateCallback(nodeList)
	return nil
}

func (ns *NameServer) updateCallback(nodeList []Node) {
	ring := consistent.New()
	for _, node := range nodeList {
		ring.Add(node.Addr)
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.nodeList = nodeList
	ns.chRing = ring
}

// GetNode 根据Scheme选择一个节点
func (ns *NameServer) GetNode() (Node, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	nNode := len(ns.nodeList)
	if nNode <= 0 {
		return Node{}, ErrEmptyNodeList
	} else if nNode == 1 {
		return ns.nodeList[0], nil
	}
	switch ns.cfg.Scheme {
	case SchemeRandom:
		return ns.nodeList[rand.Intn(nNode)], nil
	case SchemeRoundRobin:
		idx := ns.rrIndex.Add(1) - 1
		return ns.nodeList[idx%uint64(nNode)], nil
	case SchemeConsistentHash:
		addr, err := ns.chRing.Get(ns.cfg.Key)
		if err != nil {
			return Node{}, err
		}
		for _, node := range ns.nodeList {
			if node.Addr == addr {
				return node, nil
			}
		}
		return Node{}, fmt.Errorf("node %s not found", addr)
	default:
		return Node{}, fmt.Errorf("unknown scheme : %s", ns.cfg.Scheme)
	}
}

// Resolve 适配transport.NetworkClientConfig.Resolve
func (ns *NameServer) Resolve() (string, error) {
	node, err := ns.GetNode()
	if err != nil {
		return "", err
	}
	return node.Addr, nil
}
